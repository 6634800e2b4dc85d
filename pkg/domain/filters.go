package domain

import "time"

// Date is a calendar date (year, month, day) used for date-window filters.
// Approach timestamps compare by their UTC calendar date only.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the UTC calendar date of a timestamp.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return other.Before(d) }

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// Filters is the user-specified predicate set consumed by Database.Query.
// Nil fields are inactive; active fields combine as a logical AND. Because
// the set is a typed struct, unrecognized filter names are rejected at the
// boundary that builds it (they are unrepresentable) rather than ignored at
// query time.
type Filters struct {
	Date      *Date
	StartDate *Date
	EndDate   *Date

	DistanceMin *float64
	DistanceMax *float64
	VelocityMin *float64
	VelocityMax *float64

	DiameterMin *float64
	DiameterMax *float64
	Hazardous   *bool
}

// Empty reports whether no filter is active.
func (f Filters) Empty() bool {
	return f.Date == nil && f.StartDate == nil && f.EndDate == nil &&
		f.DistanceMin == nil && f.DistanceMax == nil &&
		f.VelocityMin == nil && f.VelocityMax == nil &&
		f.DiameterMin == nil && f.DiameterMax == nil &&
		f.Hazardous == nil
}

// NeedsNEO reports whether any active filter inspects NEO attributes.
func (f Filters) NeedsNEO() bool {
	return f.DiameterMin != nil || f.DiameterMax != nil || f.Hazardous != nil
}

// Matches reports whether a close approach satisfies every active filter.
// Evaluation stops at the first rejecting predicate. An approach whose NEO
// was never linked fails any diameter or hazardous filter outright: there is
// no NEO data to satisfy it.
func (f Filters) Matches(a *CloseApproach) bool {
	if f.Date != nil || f.StartDate != nil || f.EndDate != nil {
		day := DateOf(a.Time)
		if f.Date != nil && day != *f.Date {
			return false
		}
		if f.StartDate != nil && day.Before(*f.StartDate) {
			return false
		}
		if f.EndDate != nil && day.After(*f.EndDate) {
			return false
		}
	}
	if f.DistanceMin != nil && a.Distance < *f.DistanceMin {
		return false
	}
	if f.DistanceMax != nil && a.Distance > *f.DistanceMax {
		return false
	}
	if f.VelocityMin != nil && a.Velocity < *f.VelocityMin {
		return false
	}
	if f.VelocityMax != nil && a.Velocity > *f.VelocityMax {
		return false
	}
	if f.NeedsNEO() {
		if a.NEO == nil {
			return false
		}
		if f.DiameterMin != nil && (!a.NEO.Diameter.Known() || float64(a.NEO.Diameter) < *f.DiameterMin) {
			return false
		}
		if f.DiameterMax != nil && (!a.NEO.Diameter.Known() || float64(a.NEO.Diameter) > *f.DiameterMax) {
			return false
		}
		if f.Hazardous != nil && a.NEO.Hazardous != *f.Hazardous {
			return false
		}
	}
	return true
}
