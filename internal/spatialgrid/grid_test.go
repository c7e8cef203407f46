package spatialgrid

import "testing"

func TestInsertAndGetNearby(t *testing.T) {
	g := New(100)
	g.Insert(0, 0, 0, 0)
	g.Insert(1, 10, 0, 0)
	g.Insert(2, 500, 500, 500)

	nearby := g.GetNearby(0, 0, 0, 50)
	if !containsIdx(nearby, 0) || !containsIdx(nearby, 1) {
		t.Fatalf("expected indices 0 and 1 near origin, got %v", nearby)
	}
	if containsIdx(nearby, 2) {
		t.Fatalf("did not expect far-away index 2 in result, got %v", nearby)
	}
}

func TestClearEmptiesGridButReusesMap(t *testing.T) {
	g := New(100)
	g.Insert(0, 0, 0, 0)
	cellsBefore, unitsBefore := g.Stats()
	if cellsBefore == 0 || unitsBefore == 0 {
		t.Fatalf("expected non-empty grid before clear")
	}

	g.Clear()
	cellsAfter, unitsAfter := g.Stats()
	if cellsAfter != 0 || unitsAfter != 0 {
		t.Fatalf("expected empty grid after clear, got cells=%d units=%d", cellsAfter, unitsAfter)
	}

	g.Insert(5, 1, 1, 1)
	cells, units := g.Stats()
	if cells != 1 || units != 1 {
		t.Fatalf("expected grid usable after clear, got cells=%d units=%d", cells, units)
	}
}

func TestGetNearbyMinimumRadiusIsOneCell(t *testing.T) {
	g := New(100)
	// Place a unit just across the cell boundary from the query point, at a
	// radius small enough that ceil(radius/cellSize) would floor to zero
	// without the radius-floor-of-1 rule.
	g.Insert(0, 101, 0, 0)

	nearby := g.GetNearby(99, 0, 0, 0)
	if !containsIdx(nearby, 0) {
		t.Fatalf("expected neighbor-cell search floor of 1 to catch index 0, got %v", nearby)
	}
}

func TestGetNearbyOnEmptyGrid(t *testing.T) {
	g := New(100)
	nearby := g.GetNearby(0, 0, 0, 500)
	if len(nearby) != 0 {
		t.Fatalf("expected no results on empty grid, got %v", nearby)
	}
}

func TestStatsCountsAcrossMultipleCells(t *testing.T) {
	g := New(10)
	g.Insert(0, 0, 0, 0)
	g.Insert(1, 0, 0, 0)
	g.Insert(2, 100, 0, 0)

	cells, units := g.Stats()
	if cells != 2 {
		t.Fatalf("expected 2 occupied cells, got %d", cells)
	}
	if units != 3 {
		t.Fatalf("expected 3 total indexed units, got %d", units)
	}
}

func containsIdx(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
