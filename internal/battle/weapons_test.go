package battle

import "testing"

func TestClassifyWeaponPointDefensePrefix(t *testing.T) {
	c := classifyWeapon("AM-Flak")
	if !c.pointDefense {
		t.Fatalf("expected AM* prefix to classify as point defense")
	}
}

func TestClassifyWeaponSiegePrefixAndSubstring(t *testing.T) {
	if !classifyWeapon("NM-Warhead").siege {
		t.Fatalf("expected NM* prefix to classify as siege")
	}
	if !classifyWeapon("proto-nuke-mk2").siege {
		t.Fatalf("expected 'nuke' substring to classify as siege")
	}
}

func TestClassifyWeaponInterceptable(t *testing.T) {
	for _, tag := range []string{"homing missile", "PR-rocket", "HM1", "SM2", "CR3", "torpedo launcher"} {
		if !classifyWeapon(tag).interceptable {
			t.Fatalf("expected tag %q to classify as interceptable", tag)
		}
	}
}

func TestClassifyWeaponEnergy(t *testing.T) {
	for _, tag := range []string{"pulse laser", "ion cannon", "beam emitter"} {
		if !classifyWeapon(tag).energy {
			t.Fatalf("expected tag %q to classify as energy", tag)
		}
	}
}

func TestRangeFalloffAtOrInsideOptimalIsFull(t *testing.T) {
	if got := rangeFalloff(10, 50, 100); got != 1.0 {
		t.Fatalf("expected full damage inside optimal range, got %v", got)
	}
	if got := rangeFalloff(50, 50, 100); got != 1.0 {
		t.Fatalf("expected full damage exactly at optimal range, got %v", got)
	}
}

func TestRangeFalloffClampsAtMaxRangeBoundary(t *testing.T) {
	got := rangeFalloff(100, 50, 100)
	if got != 0.1 {
		t.Fatalf("expected 0.1 floor exactly at max_range, got %v", got)
	}
}

func TestRangeFalloffInterpolatesLinearly(t *testing.T) {
	// Halfway between optimal (0) and max (100) should be halfway between
	// 1.0 and the 0.1 floor.
	got := rangeFalloff(50, 0, 100)
	want := 1.0 - 0.9*0.5
	if got != want {
		t.Fatalf("expected linear interpolation %v at midpoint, got %v", want, got)
	}
}

func TestArmorEffectivenessTiers(t *testing.T) {
	cases := []struct {
		targetArmor, weaponMax, want float64
	}{
		{2, 2, 1.0},
		{2, 3, 1.0}, // delta negative collapses to full effectiveness
		{3, 2, 0.5},
		{4, 2, 0.25},
		{5, 2, 0.1},
	}
	for _, c := range cases {
		if got := armorEffectiveness(c.targetArmor, c.weaponMax); got != c.want {
			t.Fatalf("armorEffectiveness(%v, %v) = %v, want %v", c.targetArmor, c.weaponMax, got, c.want)
		}
	}
}

func TestSequenceGatePassesEmptySequenceAlwaysFires(t *testing.T) {
	w := &Weapon{}
	if !sequenceGatePasses(w, 7) {
		t.Fatalf("expected empty sequence to always permit firing")
	}
}

func TestSequenceGatePassesFollowsPattern(t *testing.T) {
	w := &Weapon{Sequence: []bool{true, false}}
	if !sequenceGatePasses(w, 0) {
		t.Fatalf("expected tick 0 to pass true slot")
	}
	if sequenceGatePasses(w, 1) {
		t.Fatalf("expected tick 1 to fail false slot")
	}
	if !sequenceGatePasses(w, 2) {
		t.Fatalf("expected tick 2 to wrap back to true slot")
	}
}

func TestTryFireRejectsPointDefense(t *testing.T) {
	attacker := &Unit{}
	target := &Unit{Alive: true}
	w := &Weapon{Tag: "AM-Flak", DPS: 10, FireRate: 1, MaxRange: 100}

	if _, ok := tryFire(attacker, target, w, 0, 0); ok {
		t.Fatalf("point-defense weapons must never win the main fire-resolution path")
	}
}

func TestTryFireRejectsOutOfRange(t *testing.T) {
	attacker := &Unit{PosX: 0}
	target := &Unit{Alive: true, PosX: 500}
	w := &Weapon{Tag: "laser", DPS: 10, FireRate: 1, MaxRange: 100, OptimalRange: 50}

	if _, ok := tryFire(attacker, target, w, 0, 0); ok {
		t.Fatalf("expected out-of-range shot to be rejected")
	}
}

func TestTryFireRejectsDuringCooldown(t *testing.T) {
	attacker := &Unit{}
	target := &Unit{Alive: true}
	w := &Weapon{Tag: "laser", DPS: 10, FireRate: 1, MaxRange: 100, OptimalRange: 50, Cooldown: 5, LastFired: 10}

	if _, ok := tryFire(attacker, target, w, 12, 0); ok {
		t.Fatalf("expected shot within cooldown window to be rejected")
	}
	if _, ok := tryFire(attacker, target, w, 15, 0); !ok {
		t.Fatalf("expected shot to succeed once cooldown has elapsed")
	}
}

func TestTryFireSiegeWeaponRequiresStationTarget(t *testing.T) {
	attacker := &Unit{}
	shipTarget := &Unit{Alive: true, IsShip: true}
	w := &Weapon{Tag: "NM-Warhead", DPS: 50, FireRate: 1, MaxRange: 200, OptimalRange: 100}

	if _, ok := tryFire(attacker, shipTarget, w, 0, 0); ok {
		t.Fatalf("siege weapon must reject a ship target")
	}

	stationTarget := &Unit{Alive: true, IsStation: true}
	if _, ok := tryFire(attacker, stationTarget, w, 0, 0); !ok {
		t.Fatalf("siege weapon should fire on a station target")
	}
}

func TestTryFireDamageFloorIsOne(t *testing.T) {
	attacker := &Unit{}
	target := &Unit{Alive: true, Armor: 10}
	w := &Weapon{Tag: "laser", DPS: 0.0001, FireRate: 1, MaxRange: 100, OptimalRange: 50, TargetArmorMax: 0}

	damage, ok := tryFire(attacker, target, w, 0, 0)
	if !ok {
		t.Fatalf("expected shot to succeed")
	}
	if damage < 1.0 {
		t.Fatalf("expected damage floor of 1.0, got %v", damage)
	}
}
