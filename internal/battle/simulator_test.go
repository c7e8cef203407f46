package battle

import (
	"testing"

	"github.com/google/uuid"
)

func laserWeapon() WeaponRecord {
	return WeaponRecord{
		Tag:          "laser",
		DPS:          10,
		FireRate:     1,
		MaxRange:     100,
		OptimalRange: 100,
	}
}

func TestNewSimulatorRejectsMalformedRecordsWithoutAbortingBatch(t *testing.T) {
	good := UnitRecord{ID: uuid.New(), FactionID: uuid.New(), MaxHP: 100, HP: 100}
	bad := UnitRecord{FactionID: uuid.New(), MaxHP: 100, HP: 100} // missing id

	sim, ingestErrors := NewSimulator([]UnitRecord{good, bad})

	if len(ingestErrors) != 1 {
		t.Fatalf("expected exactly 1 ingest error, got %d", len(ingestErrors))
	}
	if ingestErrors[0].Index != 1 {
		t.Fatalf("expected the error to report index 1, got %d", ingestErrors[0].Index)
	}
	if len(sim.Units()) != 1 {
		t.Fatalf("expected the valid record to be ingested despite the other's rejection")
	}
}

func TestTickResolvesCombatBetweenOpposingFactions(t *testing.T) {
	factionA := uuid.New()
	factionB := uuid.New()

	attacker := UnitRecord{
		ID: uuid.New(), FactionID: factionA,
		MaxHP: 100, HP: 100,
		Weapons: []WeaponRecord{laserWeapon()},
	}
	defender := UnitRecord{
		ID: uuid.New(), FactionID: factionB,
		MaxHP: 100, HP: 100,
		PosX: 10,
	}

	sim, ingestErrors := NewSimulator([]UnitRecord{attacker, defender})
	if len(ingestErrors) != 0 {
		t.Fatalf("expected no ingest errors, got %v", ingestErrors)
	}

	result := sim.Tick(1.0, 0.0)

	if result.Tick != 1 {
		t.Fatalf("expected tick counter to read 1 after first Tick, got %d", result.Tick)
	}
	if len(result.WeaponsFired) != 1 {
		t.Fatalf("expected exactly one weapon discharge, got %d", len(result.WeaponsFired))
	}
	if result.WeaponsFired[0].AttackerID != attacker.ID {
		t.Fatalf("expected the attacker to be the recorded shooter")
	}
	if len(result.Damaged) != 1 || result.Damaged[0].ID != defender.ID {
		t.Fatalf("expected the defender to show up in the damaged report, got %v", result.Damaged)
	}
}

func TestTickDestroysUnitAndReportsIt(t *testing.T) {
	factionA := uuid.New()
	factionB := uuid.New()

	attacker := UnitRecord{
		ID: uuid.New(), FactionID: factionA,
		MaxHP: 10, HP: 10,
		Weapons: []WeaponRecord{{Tag: "laser", DPS: 1000, FireRate: 1, MaxRange: 100, OptimalRange: 100}},
	}
	defender := UnitRecord{ID: uuid.New(), FactionID: factionB, MaxHP: 10, HP: 10}

	sim, _ := NewSimulator([]UnitRecord{attacker, defender})
	result := sim.Tick(1.0, 0.0)

	if len(result.Destroyed) != 1 || result.Destroyed[0] != defender.ID {
		t.Fatalf("expected defender destroyed in a single overwhelming tick, got %v", result.Destroyed)
	}
	if len(result.Damaged) != 0 {
		t.Fatalf("expected no surviving-damage report once destroyed, got %v", result.Damaged)
	}
}

func TestIsBattleEndedWhenOneFactionRemains(t *testing.T) {
	factionA := uuid.New()
	units := []UnitRecord{
		{ID: uuid.New(), FactionID: factionA, MaxHP: 10, HP: 10},
	}
	sim, _ := NewSimulator(units)

	if !sim.IsBattleEnded() {
		t.Fatalf("expected battle to be over with a single surviving faction")
	}
	winner, ok := sim.GetWinner()
	if !ok || winner != factionA {
		t.Fatalf("expected faction A declared winner, got %v ok=%v", winner, ok)
	}
}

func TestStalemateDeclaredAfterNoCombatWindow(t *testing.T) {
	factionA := uuid.New()
	factionB := uuid.New()

	unitsA := make([]UnitRecord, 3)
	for i := range unitsA {
		unitsA[i] = UnitRecord{ID: uuid.New(), FactionID: factionA, MaxHP: 10, HP: 10, PosX: float64(i) * 1000}
	}
	unitsB := make([]UnitRecord, 1)
	unitsB[0] = UnitRecord{ID: uuid.New(), FactionID: factionB, MaxHP: 10, HP: 10, PosX: 999999}

	sim, _ := NewSimulator(append(unitsA, unitsB...))

	for i := 0; i < StalemateTicks-1; i++ {
		if sim.Tick(1.0, float64(i)); sim.IsBattleEnded() {
			t.Fatalf("battle should not be declared ended before the stalemate window elapses")
		}
	}
	sim.Tick(1.0, float64(StalemateTicks))

	if !sim.IsBattleEnded() {
		t.Fatalf("expected stalemate to be declared once the no-combat window has elapsed")
	}

	winner, ok := sim.GetWinner()
	if !ok || winner != factionA {
		t.Fatalf("expected the larger faction (A, 3 units) to win the stalemate tiebreak, got %v", winner)
	}
}

func TestUpdateSinglePositionClearsTargetBeyondEpsilon(t *testing.T) {
	factionA := uuid.New()
	factionB := uuid.New()

	attacker := UnitRecord{
		ID: uuid.New(), FactionID: factionA,
		MaxHP: 100, HP: 100,
		Weapons: []WeaponRecord{laserWeapon()},
	}
	defender := UnitRecord{ID: uuid.New(), FactionID: factionB, MaxHP: 100, HP: 100, PosX: 10}

	sim, _ := NewSimulator([]UnitRecord{attacker, defender})
	sim.Tick(1.0, 0.0) // establishes a target on the attacker

	moved := sim.UpdateSinglePosition(attacker.ID, 5000, 5000, 5000, false)
	if !moved {
		t.Fatalf("expected position update on a known alive unit to succeed")
	}

	units := sim.Units()
	if units[0].TargetID != nil {
		t.Fatalf("expected a large position jump to clear the existing target")
	}
}

func TestUpdateSinglePositionUnknownUnitReturnsFalse(t *testing.T) {
	sim, _ := NewSimulator(nil)
	if sim.UpdateSinglePosition(uuid.New(), 0, 0, 0, false) {
		t.Fatalf("expected update against an unknown id to fail")
	}
}

func TestForceRetargetAllClearsEveryTarget(t *testing.T) {
	factionA := uuid.New()
	factionB := uuid.New()
	attacker := UnitRecord{
		ID: uuid.New(), FactionID: factionA,
		MaxHP: 100, HP: 100,
		Weapons: []WeaponRecord{laserWeapon()},
	}
	defender := UnitRecord{ID: uuid.New(), FactionID: factionB, MaxHP: 100, HP: 100, PosX: 10}

	sim, _ := NewSimulator([]UnitRecord{attacker, defender})
	sim.Tick(1.0, 0.0)

	cleared := sim.ForceRetargetAll()
	if cleared != 1 {
		t.Fatalf("expected exactly one targeted unit to be cleared, got %d", cleared)
	}
	if sim.Units()[0].TargetID != nil {
		t.Fatalf("expected attacker's target cleared")
	}
}
