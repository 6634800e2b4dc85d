package core

import (
	"testing"
	"time"

	"neocore/pkg/domain"
)

func ptrF(v float64) *float64         { return &v }
func ptrB(v bool) *bool               { return &v }
func ptrD(v domain.Date) *domain.Date { return &v }
func date(y int, m time.Month, d int) domain.Date {
	return domain.Date{Year: y, Month: m, Day: d}
}

func erosDatabase(t *testing.T) *Database {
	t.Helper()
	neos := []*domain.NearEarthObject{
		domain.NewNearEarthObject("433", "Eros", "16.84", false),
	}
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("433", "2020-Jan-01 00:00", "0.15", "5.0"),
	}
	return NewDatabase(neos, approaches)
}

func collect(db *Database, f domain.Filters) []*domain.CloseApproach {
	var out []*domain.CloseApproach
	for a := range db.Query(f) {
		out = append(out, a)
	}
	return out
}

func TestLinkingBackReferences(t *testing.T) {
	neos := []*domain.NearEarthObject{
		domain.NewNearEarthObject("433", "Eros", "16.84", false),
		domain.NewNearEarthObject("719", "Albert", "", false),
	}
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("433", "2020-Jan-01 00:00", "0.15", "5.0"),
		domain.NewCloseApproach("9999", "2020-Feb-01 00:00", "0.30", "7.0"), // no matching NEO
		domain.NewCloseApproach("433", "2020-Mar-01 00:00", "0.25", "6.0"),
	}
	db := NewDatabase(neos, approaches)

	// Back-reference is non-nil iff the designation appears among the NEOs.
	if approaches[0].NEO != neos[0] || approaches[2].NEO != neos[0] {
		t.Fatal("matching approaches must reference the Eros NEO")
	}
	if approaches[1].NEO != nil {
		t.Fatal("approach without matching NEO must stay unlinked")
	}

	// Per-NEO lists hold exactly the matching approaches, in load order.
	if len(neos[0].Approaches) != 2 {
		t.Fatalf("expected 2 linked approaches, got %d", len(neos[0].Approaches))
	}
	if neos[0].Approaches[0] != approaches[0] || neos[0].Approaches[1] != approaches[2] {
		t.Fatal("approach list must preserve load order")
	}
	if len(neos[1].Approaches) != 0 {
		t.Fatalf("NEO with no approaches must keep an empty list, got %d", len(neos[1].Approaches))
	}

	// Unlinked approaches remain queryable.
	all := collect(db, domain.Filters{})
	if len(all) != 3 {
		t.Fatalf("expected all 3 approaches from empty query, got %d", len(all))
	}
}

func TestDuplicateDesignationLastWriteWins(t *testing.T) {
	first := domain.NewNearEarthObject("433", "Eros", "16.84", false)
	second := domain.NewNearEarthObject("433", "Eros II", "1.0", true)
	db := NewDatabase([]*domain.NearEarthObject{first, second}, nil)

	got, ok := db.GetByDesignation("433")
	if !ok || got != second {
		t.Fatal("duplicate designation must resolve to the last-loaded NEO")
	}
}

func TestDuplicateNameLastWriteWins(t *testing.T) {
	first := domain.NewNearEarthObject("433", "Eros", "", false)
	second := domain.NewNearEarthObject("434", "Eros", "", false)
	db := NewDatabase([]*domain.NearEarthObject{first, second}, nil)

	got, ok := db.GetByName("Eros")
	if !ok || got != second {
		t.Fatal("duplicate name must resolve to the last-loaded NEO")
	}
	// The earlier NEO stays reachable by designation.
	if n, ok := db.GetByDesignation("433"); !ok || n != first {
		t.Fatal("shadowed NEO must remain reachable by designation")
	}
}

func TestLookups(t *testing.T) {
	db := erosDatabase(t)

	neo, ok := db.GetByDesignation("433")
	if !ok {
		t.Fatal("expected designation hit")
	}
	byName, ok := db.GetByName("Eros")
	if !ok || byName != neo {
		t.Fatal("name lookup must return the same NEO")
	}

	if _, ok := db.GetByDesignation("eros"); ok {
		t.Fatal("designation matching must be case-sensitive and exact")
	}
	if _, ok := db.GetByName(""); ok {
		t.Fatal("empty name must never resolve")
	}
	if _, ok := db.GetByName("433"); ok {
		t.Fatal("designations are not names")
	}
}

func TestNamelessNEONotIndexedByName(t *testing.T) {
	db := NewDatabase([]*domain.NearEarthObject{
		domain.NewNearEarthObject("2020 AB", "", "", false),
	}, nil)
	if _, ok := db.GetByName(""); ok {
		t.Fatal("nameless NEO must not be reachable by name")
	}
}

func TestEmptyQueryYieldsEveryApproachOnce(t *testing.T) {
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("a", "2020-Jan-01 00:00", "0.1", "1"),
		domain.NewCloseApproach("b", "2020-Jan-02 00:00", "0.2", "2"),
		domain.NewCloseApproach("a", "2020-Jan-03 00:00", "0.3", "3"),
		domain.NewCloseApproach("c", "2020-Jan-04 00:00", "0.4", "4"),
	}
	db := NewDatabase(nil, approaches)

	got := collect(db, domain.Filters{})
	if len(got) != 4 {
		t.Fatalf("expected 4 approaches, got %d", len(got))
	}
	// Grouped by designation in first-seen order: a, a, b, c.
	wantOrder := []*domain.CloseApproach{approaches[0], approaches[2], approaches[1], approaches[3]}
	for i, a := range wantOrder {
		if got[i] != a {
			t.Fatalf("position %d: expected approach %q@%s, got %q@%s",
				i, a.Designation, a.TimeStr(), got[i].Designation, got[i].TimeStr())
		}
	}
	seen := make(map[*domain.CloseApproach]int)
	for _, a := range got {
		seen[a]++
	}
	for a, n := range seen {
		if n != 1 {
			t.Fatalf("approach %q yielded %d times", a.Designation, n)
		}
	}
}

func TestQueryIsRestartable(t *testing.T) {
	db := erosDatabase(t)
	seq := db.Query(domain.Filters{})

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}
	if first != 1 || second != 1 {
		t.Fatalf("expected both scans to yield 1, got %d and %d", first, second)
	}
}

func TestQueryEarlyBreak(t *testing.T) {
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("a", "2020-Jan-01 00:00", "0.1", "1"),
		domain.NewCloseApproach("b", "2020-Jan-02 00:00", "0.2", "2"),
	}
	db := NewDatabase(nil, approaches)

	count := 0
	for range db.Query(domain.Filters{}) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected early break after 1, got %d", count)
	}
}

func TestHazardousPartition(t *testing.T) {
	neos := []*domain.NearEarthObject{
		domain.NewNearEarthObject("H1", "", "", true),
		domain.NewNearEarthObject("S1", "", "", false),
	}
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("H1", "2020-Jan-01 00:00", "0.1", "1"),
		domain.NewCloseApproach("S1", "2020-Jan-02 00:00", "0.2", "2"),
		domain.NewCloseApproach("H1", "2020-Jan-03 00:00", "0.3", "3"),
		domain.NewCloseApproach("X9", "2020-Jan-04 00:00", "0.4", "4"), // unlinked
	}
	db := NewDatabase(neos, approaches)

	hazardous := collect(db, domain.Filters{Hazardous: ptrB(true)})
	safe := collect(db, domain.Filters{Hazardous: ptrB(false)})

	for _, a := range hazardous {
		if a.NEO == nil || !a.NEO.Hazardous {
			t.Fatal("hazardous query leaked a non-hazardous approach")
		}
	}
	for _, a := range safe {
		if a.NEO == nil || a.NEO.Hazardous {
			t.Fatal("non-hazardous query leaked a hazardous approach")
		}
	}
	// Together the two queries partition the linked approaches; the unlinked
	// one fails both.
	if len(hazardous)+len(safe) != 3 {
		t.Fatalf("expected partition of 3 linked approaches, got %d + %d",
			len(hazardous), len(safe))
	}
}

func TestErosScenario(t *testing.T) {
	db := erosDatabase(t)

	if got := collect(db, domain.Filters{DistanceMax: ptrF(0.2)}); len(got) != 1 {
		t.Fatalf("distance_max 0.2 expected 1 match, got %d", len(got))
	}
	if got := collect(db, domain.Filters{DistanceMax: ptrF(0.1)}); len(got) != 0 {
		t.Fatalf("distance_max 0.1 expected no matches, got %d", len(got))
	}
}

func TestStartDateCombination(t *testing.T) {
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("a", "2020-Jan-01 00:00", "0.1", "1"),
		domain.NewCloseApproach("b", "2020-Jun-01 00:00", "0.2", "2"),
	}
	db := NewDatabase(nil, approaches)

	got := collect(db, domain.Filters{StartDate: ptrD(date(2020, time.March, 1))})
	if len(got) != 1 || got[0] != approaches[1] {
		t.Fatalf("start_date 2020-03-01 expected only the June approach, got %d", len(got))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	neos := []*domain.NearEarthObject{
		domain.NewNearEarthObject("433", "Eros", "16.84", false),
		domain.NewNearEarthObject("2020 AB", "", "", true),
	}
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("433", "2020-Jan-01 00:00", "0.15", "5.0"),
		domain.NewCloseApproach("9999", "2020-Feb-01 00:00", "0.30", "7.0"),
	}
	db := NewDatabase(neos, approaches)

	restored := RestoreDatabase(db.Snapshot())
	if restored.NumNEOs() != 2 || restored.NumApproaches() != 2 {
		t.Fatalf("unexpected restored sizes: %d NEOs, %d approaches",
			restored.NumNEOs(), restored.NumApproaches())
	}
	neo, ok := restored.GetByName("Eros")
	if !ok {
		t.Fatal("expected Eros after restore")
	}
	if len(neo.Approaches) != 1 || neo.Approaches[0].Distance != 0.15 {
		t.Fatal("linking must be rebuilt from the snapshot")
	}
	if nameless, ok := restored.GetByDesignation("2020 AB"); !ok || nameless.Name != nil {
		t.Fatal("absent name must survive the round trip as absent")
	}
	all := collect(restored, domain.Filters{})
	if len(all) != 2 || all[1].NEO != nil {
		t.Fatal("unlinked approach must stay unlinked and queryable after restore")
	}
}

func TestQueryLimit(t *testing.T) {
	approaches := []*domain.CloseApproach{
		domain.NewCloseApproach("a", "2020-Jan-01 00:00", "0.1", "1"),
		domain.NewCloseApproach("a", "2020-Jan-02 00:00", "0.2", "2"),
		domain.NewCloseApproach("a", "2020-Jan-03 00:00", "0.3", "3"),
	}
	db := NewDatabase(nil, approaches)

	if got := db.QueryLimit(domain.Filters{}, 2); len(got) != 2 {
		t.Fatalf("limit 2 expected 2 results, got %d", len(got))
	}
	if got := db.QueryLimit(domain.Filters{}, 0); len(got) != 3 {
		t.Fatalf("limit 0 means unlimited, got %d", len(got))
	}
	if got := db.QueryLimit(domain.Filters{}, -1); len(got) != 3 {
		t.Fatalf("negative limit means unlimited, got %d", len(got))
	}
}
