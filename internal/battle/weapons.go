// File: internal/battle/weapons.go
// Project: Starwake battle core
// Description: Weapon classification and firing/damage resolution
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package battle

import (
	"math"
	"strings"
)

// weaponClass is the role a weapon's tag resolves to.
type weaponClass struct {
	pointDefense  bool
	siege         bool
	interceptable bool
	energy        bool
}

func hasPrefix(tag, prefix string) bool {
	return strings.HasPrefix(strings.ToUpper(tag), prefix)
}

func hasAny(lowered string, substrs ...string) bool {
	for _, s := range substrs {
		if strings.Contains(lowered, s) {
			return true
		}
	}
	return false
}

// classifyWeapon derives a weapon's combat role from its tag, per the
// reference prefix/substring contract.
func classifyWeapon(tag string) weaponClass {
	lowered := strings.ToLower(tag)

	return weaponClass{
		pointDefense: hasPrefix(tag, "AM") || hasAny(lowered, "anti-missile"),
		siege:        hasPrefix(tag, "NM") || hasAny(lowered, "nuke"),
		interceptable: hasAny(lowered, "missile", "rocket", "torpedo") ||
			hasPrefix(tag, "HM") || hasPrefix(tag, "SM") ||
			hasPrefix(tag, "CR") || hasPrefix(tag, "PR") || hasPrefix(tag, "NM"),
		energy: hasAny(lowered, "laser", "ion", "beam"),
	}
}

// projectileSpeed returns the reference speed (units/sec) used purely for
// impact-time reporting; math.Inf(1) means instantaneous.
func projectileSpeed(tag string) float64 {
	lowered := strings.ToLower(tag)

	switch {
	case hasAny(lowered, "laser", "ion", "beam"):
		return math.Inf(1)
	case hasAny(lowered, "missile") || hasPrefix(tag, "HM") || hasPrefix(tag, "SM"):
		return 50
	case hasAny(lowered, "rocket") || hasPrefix(tag, "PR") || hasPrefix(tag, "CR"):
		return 80
	case hasAny(lowered, "nuke") || hasPrefix(tag, "NM"):
		return 30
	default:
		return 100
	}
}

// impactTimeMs computes the reported impact latency in milliseconds for a
// weapon fired over the given distance.
func impactTimeMs(tag string, distance float64) int64 {
	speed := projectileSpeed(tag)
	if math.IsInf(speed, 1) {
		return 0
	}
	return int64(math.Floor((distance / speed) * 1000))
}

// sequenceGatePasses reports whether a weapon's fire/skip pattern permits
// firing on the given tick. An empty sequence always permits firing.
func sequenceGatePasses(w *Weapon, tick uint64) bool {
	if len(w.Sequence) == 0 {
		return true
	}
	return w.Sequence[tick%uint64(len(w.Sequence))]
}

// rangeFalloff computes the range-based damage multiplier: 1.0 at or inside
// optimal range, 0.1 at or beyond max range, linearly interpolated between,
// and clamped at the 0.1 floor (the boundary at exactly max_range belongs
// to the clamp, not the interpolation).
func rangeFalloff(distance, optimalRange, maxRange float64) float64 {
	if distance <= optimalRange {
		return 1.0
	}
	if maxRange <= optimalRange {
		return 0.1
	}
	falloff := 1.0 - 0.9*(distance-optimalRange)/(maxRange-optimalRange)
	if falloff < 0.1 {
		return 0.1
	}
	return falloff
}

// armorEffectiveness computes the armor-tier damage multiplier from the
// rounded difference between the target's armor class and the weapon's
// target_armor_max.
func armorEffectiveness(targetArmor, weaponTargetArmorMax float64) float64 {
	delta := math.Round(targetArmor - weaponTargetArmorMax)
	switch {
	case delta <= 0:
		return 1.0
	case delta == 1:
		return 0.5
	case delta == 2:
		return 0.25
	default:
		return 0.1
	}
}

// tryFire evaluates whether weapon can discharge at target right now, and
// if so returns the resolved damage value. It returns (damage, true) on a
// successful fire, or (0, false) otherwise. tryFire does not mutate any
// state — committing LastFired and queuing the damage is the caller's job,
// per the two-phase plan/commit pattern used by the combat phase.
func tryFire(attacker, target *Unit, w *Weapon, now float64, tick uint64) (float64, bool) {
	class := classifyWeapon(w.Tag)

	if class.pointDefense {
		return 0, false
	}
	if !sequenceGatePasses(w, tick) {
		return 0, false
	}
	if now-w.LastFired < w.Cooldown {
		return 0, false
	}

	dist := attacker.Distance(target)
	if dist > w.MaxRange {
		return 0, false
	}
	if class.siege && !target.IsStation {
		return 0, false
	}

	var base float64
	if w.FireRate > 0 {
		base = w.DPS / w.FireRate
	} else {
		base = w.DPS
	}

	rangeMult := rangeFalloff(dist, w.OptimalRange, w.MaxRange)
	armorMult := armorEffectiveness(target.Armor, w.TargetArmorMax)

	damage := math.Max(1.0, base*rangeMult*armorMult)
	return damage, true
}
