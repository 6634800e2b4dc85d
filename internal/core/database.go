// Package core implements the neocore linking database: it owns canonical
// storage of NEO and close-approach records, builds the lookup indices and
// bidirectional links between them at construction time, and answers
// filtered queries over the close-approach set.
package core

import (
	"iter"

	"neocore/pkg/domain"
)

// Database is an interconnected set of NEOs and close approaches. Linking
// happens exactly once, in NewDatabase; the structure never mutates
// afterwards and is therefore safe to share across concurrent readers
// without synchronization.
type Database struct {
	neos       []*domain.NearEarthObject
	byDes      map[string]*domain.NearEarthObject
	byName     map[string]*domain.NearEarthObject
	groups     map[string][]*domain.CloseApproach
	groupOrder []string // designations in first-seen order among approaches
	total      int
}

// NewDatabase links the supplied unlinked collections. Preconditions: every
// NEO's approach list is empty and every approach's NEO reference is nil.
// Duplicate designations and duplicate names overwrite earlier index entries
// (last write wins); this matches the data set's historical behavior and is
// relied upon downstream, so it is deliberately not "fixed" here. Approaches
// whose designation matches no NEO stay unlinked but remain queryable.
func NewDatabase(neos []*domain.NearEarthObject, approaches []*domain.CloseApproach) *Database {
	db := &Database{
		neos:   neos,
		byDes:  make(map[string]*domain.NearEarthObject, len(neos)),
		byName: make(map[string]*domain.NearEarthObject),
		groups: make(map[string][]*domain.CloseApproach),
		total:  len(approaches),
	}
	for _, n := range neos {
		db.byDes[n.Designation] = n
	}
	for _, n := range neos {
		if name, ok := n.NamedAs(); ok {
			db.byName[name] = n
		}
	}
	for _, a := range approaches {
		if _, seen := db.groups[a.Designation]; !seen {
			db.groupOrder = append(db.groupOrder, a.Designation)
		}
		db.groups[a.Designation] = append(db.groups[a.Designation], a)
	}
	for _, n := range db.byDes {
		group, ok := db.groups[n.Designation]
		if !ok {
			continue
		}
		n.Approaches = group
		for _, a := range group {
			a.NEO = n
		}
	}
	return db
}

// GetByDesignation fetches an NEO by its primary designation. Matching is
// exact and case-sensitive.
func (db *Database) GetByDesignation(designation string) (*domain.NearEarthObject, bool) {
	n, ok := db.byDes[designation]
	return n, ok
}

// GetByName fetches an NEO by its IAU name. Matching is exact; the empty
// string never maps to an NEO because nameless records are skipped when the
// name index is built.
func (db *Database) GetByName(name string) (*domain.NearEarthObject, bool) {
	if name == "" {
		return nil, false
	}
	n, ok := db.byName[name]
	return n, ok
}

// NumNEOs returns the number of stored NEO records.
func (db *Database) NumNEOs() int { return len(db.neos) }

// NumApproaches returns the number of stored close-approach records,
// including unlinked ones.
func (db *Database) NumApproaches() int { return db.total }

// NEOs returns the stored NEO records in load order.
func (db *Database) NEOs() []*domain.NearEarthObject { return db.neos }

// Query streams the close approaches matching every filter in the set. The
// sequence is lazy and restartable: each range re-scans from the start.
// Approaches are visited exactly once each, grouped by designation in
// first-seen order; within a group, load order. The result is NOT guaranteed
// sorted by time even though the input usually is; callers depend on this
// ordering, so it is preserved rather than normalized.
func (db *Database) Query(filters domain.Filters) iter.Seq[*domain.CloseApproach] {
	return func(yield func(*domain.CloseApproach) bool) {
		for _, designation := range db.groupOrder {
			for _, a := range db.groups[designation] {
				if !filters.Matches(a) {
					continue
				}
				if !yield(a) {
					return
				}
			}
		}
	}
}

// QueryLimit materializes up to limit matching approaches. A limit of zero
// or less means no limit.
func (db *Database) QueryLimit(filters domain.Filters, limit int) []*domain.CloseApproach {
	var out []*domain.CloseApproach
	for a := range db.Query(filters) {
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Snapshot exports the database's record sequences in their serialization
// form: NEOs in load order, approaches in internal storage order. Rebuilding
// a database from a snapshot re-runs linking from scratch.
func (db *Database) Snapshot() Snapshot {
	snap := Snapshot{
		NEOs:       make([]domain.NEORecord, 0, len(db.neos)),
		Approaches: make([]domain.ApproachRecord, 0, db.total),
	}
	for _, n := range db.neos {
		snap.NEOs = append(snap.NEOs, n.Record())
	}
	for a := range db.Query(domain.Filters{}) {
		snap.Approaches = append(snap.Approaches, a.Record())
	}
	return snap
}

// Snapshot aliases the domain-level serialization form so persistence
// backends can depend on it without importing this package.
type Snapshot = domain.Snapshot

// RestoreDatabase rebuilds a linked database from a snapshot.
func RestoreDatabase(snap Snapshot) *Database {
	neos := make([]*domain.NearEarthObject, 0, len(snap.NEOs))
	for _, r := range snap.NEOs {
		neos = append(neos, r.Restore())
	}
	approaches := make([]*domain.CloseApproach, 0, len(snap.Approaches))
	for _, r := range snap.Approaches {
		approaches = append(approaches, r.Restore())
	}
	return NewDatabase(neos, approaches)
}
