// Package domain defines the near-Earth object and close-approach record
// types, their serialization forms, and the filter primitives used by the
// neocore query engine.
package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimeLayout is the textual timestamp format used by the close-approach data
// set: calendar date plus hour and minute, no seconds. Output formatting must
// reproduce exactly this precision; downstream consumers rely on it.
const TimeLayout = "2006-Jan-02 15:04"

// ParseApproachTime parses a close-approach timestamp in TimeLayout (UTC).
// A malformed value degrades to the zero time rather than failing, matching
// the record-constructor contract.
func ParseApproachTime(value string) time.Time {
	t, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// FormatApproachTime renders a timestamp in TimeLayout, minute precision.
func FormatApproachTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Diameter is an NEO diameter in kilometers. Unknown diameters are the NaN
// sentinel, which marshals to JSON null (Go's encoder rejects NaN) and
// unmarshals back from null.
type Diameter float64

// Known reports whether the diameter carries a real measurement.
func (d Diameter) Known() bool { return !math.IsNaN(float64(d)) }

// MarshalJSON encodes the diameter, mapping the NaN sentinel to null.
func (d Diameter) MarshalJSON() ([]byte, error) {
	if !d.Known() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// UnmarshalJSON decodes a diameter, mapping null back to the NaN sentinel.
func (d *Diameter) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Diameter(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Diameter(v)
	return nil
}

// NearEarthObject is a catalogued near-Earth object. Its Approaches list is
// empty until a Database links it; the database owns canonical storage of
// both record kinds.
type NearEarthObject struct {
	Designation string
	Name        *string // nil when the catalog has no IAU name
	Diameter    Diameter
	Hazardous   bool
	Approaches  []*CloseApproach
}

// NewNearEarthObject builds an NEO record from raw catalog fields, applying
// defaults instead of failing: empty designation stays empty, a blank name
// becomes nil, an unparsable or blank diameter becomes the NaN sentinel.
func NewNearEarthObject(designation, name, diameter string, hazardous bool) *NearEarthObject {
	neo := &NearEarthObject{
		Designation: designation,
		Diameter:    Diameter(math.NaN()),
		Hazardous:   hazardous,
	}
	if name != "" {
		neo.Name = &name
	}
	if diameter != "" {
		if v, err := strconv.ParseFloat(diameter, 64); err == nil {
			neo.Diameter = Diameter(v)
		}
	}
	return neo
}

// NamedAs reports whether the NEO carries a usable (non-empty) name.
func (n *NearEarthObject) NamedAs() (string, bool) {
	if n.Name == nil || *n.Name == "" {
		return "", false
	}
	return *n.Name, true
}

// Fullname returns the display name: designation plus the IAU name when one
// exists.
func (n *NearEarthObject) Fullname() string {
	if name, ok := n.NamedAs(); ok {
		return fmt.Sprintf("%s (%s)", n.Designation, name)
	}
	return n.Designation
}

// String renders the NEO for human-readable output.
func (n *NearEarthObject) String() string {
	hazard := "is not"
	if n.Hazardous {
		hazard = "is"
	}
	return fmt.Sprintf("NEO %s has a diameter of %.3f km and %s potentially hazardous.",
		n.Fullname(), float64(n.Diameter), hazard)
}

// NEORecord is the flat serialization form of a NearEarthObject, shared by
// the JSON writer and the snapshot stores.
type NEORecord struct {
	Designation string   `json:"designation"`
	Name        *string  `json:"name"`
	DiameterKM  Diameter `json:"diameter_km"`
	Hazardous   bool     `json:"potentially_hazardous"`
}

// Record returns the flat serialization form of the NEO.
func (n *NearEarthObject) Record() NEORecord {
	return NEORecord{
		Designation: n.Designation,
		Name:        n.Name,
		DiameterKM:  n.Diameter,
		Hazardous:   n.Hazardous,
	}
}

// Restore rebuilds an unlinked NEO from its serialization form.
func (r NEORecord) Restore() *NearEarthObject {
	neo := &NearEarthObject{
		Designation: r.Designation,
		Diameter:    r.DiameterKM,
		Hazardous:   r.Hazardous,
	}
	if r.Name != nil && *r.Name != "" {
		name := *r.Name
		neo.Name = &name
	}
	return neo
}

// CloseApproach is a recorded event of an NEO passing near Earth. Designation
// is the foreign key used during linking; NEO is nil until a Database links
// the record, and stays nil when no matching NEO exists.
type CloseApproach struct {
	Designation string
	Time        time.Time
	Distance    float64 // nominal approach distance, astronomical units
	Velocity    float64 // relative approach velocity, km/s
	NEO         *NearEarthObject
}

// NewCloseApproach builds a close-approach record from raw fields, applying
// defaults instead of failing: malformed numbers become 0, a malformed
// timestamp becomes the zero time.
func NewCloseApproach(designation, timestamp, distance, velocity string) *CloseApproach {
	ca := &CloseApproach{
		Designation: designation,
		Time:        ParseApproachTime(timestamp),
	}
	if v, err := strconv.ParseFloat(distance, 64); err == nil {
		ca.Distance = v
	}
	if v, err := strconv.ParseFloat(velocity, 64); err == nil {
		ca.Velocity = v
	}
	return ca
}

// TimeStr returns the approach time formatted at minute precision.
func (a *CloseApproach) TimeStr() string {
	return FormatApproachTime(a.Time)
}

// String renders the close approach for human-readable output.
func (a *CloseApproach) String() string {
	fullname := a.Designation
	if a.NEO != nil {
		fullname = a.NEO.Fullname()
	}
	return fmt.Sprintf("On %s, %q approaches Earth at a distance of %.2f au and a velocity of %.2f km/s.",
		a.TimeStr(), fullname, a.Distance, a.Velocity)
}

// ApproachRecord is the flat serialization form of a CloseApproach, shared by
// the snapshot stores. The JSON writer nests the NEO record alongside it.
type ApproachRecord struct {
	Designation string  `json:"designation"`
	DatetimeUTC string  `json:"datetime_utc"`
	DistanceAU  float64 `json:"distance_au"`
	VelocityKMS float64 `json:"velocity_km_s"`
}

// Record returns the flat serialization form of the approach.
func (a *CloseApproach) Record() ApproachRecord {
	return ApproachRecord{
		Designation: a.Designation,
		DatetimeUTC: a.TimeStr(),
		DistanceAU:  a.Distance,
		VelocityKMS: a.Velocity,
	}
}

// Restore rebuilds an unlinked close approach from its serialization form.
func (r ApproachRecord) Restore() *CloseApproach {
	return &CloseApproach{
		Designation: r.Designation,
		Time:        ParseApproachTime(r.DatetimeUTC),
		Distance:    r.DistanceAU,
		Velocity:    r.VelocityKMS,
	}
}
