package domain

// Snapshot is the serializable representation of a loaded record set: NEOs
// in load order and approaches in storage order. It carries no links; a
// consumer rebuilds them after restoring.
type Snapshot struct {
	NEOs       []NEORecord      `json:"neos"`
	Approaches []ApproachRecord `json:"approaches"`
}
