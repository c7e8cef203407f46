// File: internal/battle/targeting.go
// Project: Starwake battle core
// Description: Priority-scored target acquisition
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package battle

import "github.com/kaspar-vey/starwake/internal/spatialgrid"

// targetPriority scores a candidate target for a given attacker. A score of
// 0 disqualifies the candidate. Ties are broken by the caller on squared
// distance (nearer wins).
func targetPriority(attacker, target *Unit) int {
	armed := target.HasWeapons && len(target.Weapons) > 0

	if attacker.IsShip {
		switch {
		case target.IsShip && armed:
			return 100
		case target.IsShip && !armed:
			return 50
		case target.IsStation && armed:
			return 30
		case target.IsStation && !armed:
			return 10
		default:
			return 1
		}
	}

	// Station attacker.
	switch {
	case target.IsShip && armed:
		return 100
	case target.IsShip && !armed:
		return 50
	default:
		return 0
	}
}

// findBestTarget returns the index of the preferred enemy for units[idx], or
// (-1, false) if none qualifies. Precondition: units[idx] is alive and
// CanAttack().
func findBestTarget(units []Unit, idx int, grid *spatialgrid.Grid) (int, bool) {
	self := &units[idx]

	radius := self.MaxWeaponRange
	if self.ViewRange > radius {
		radius = self.ViewRange
	}

	candidates := grid.GetNearby(self.PosX, self.PosY, self.PosZ, radius)

	bestIdx := -1
	bestPriority := 0
	var bestDistSq float64

	for _, candidateIdx := range candidates {
		if candidateIdx < 0 || candidateIdx >= len(units) || candidateIdx == idx {
			continue
		}
		target := &units[candidateIdx]
		if !target.Alive || target.FactionID == self.FactionID {
			continue
		}

		priority := targetPriority(self, target)
		if priority <= 0 {
			continue
		}

		distSq := self.DistanceSq(target)
		if priority > bestPriority || (priority == bestPriority && (bestIdx == -1 || distSq < bestDistSq)) {
			bestIdx = candidateIdx
			bestPriority = priority
			bestDistSq = distSq
		}
	}

	if bestIdx == -1 {
		return -1, false
	}
	return bestIdx, true
}

// findSiegeTarget returns the nearest alive enemy station, bypassing ships
// entirely, for use by siege weapons. It returns (-1, false) if no enemy
// station is found within the unit's search radius.
func findSiegeTarget(units []Unit, idx int, grid *spatialgrid.Grid) (int, bool) {
	self := &units[idx]

	radius := self.MaxWeaponRange
	if self.ViewRange > radius {
		radius = self.ViewRange
	}

	candidates := grid.GetNearby(self.PosX, self.PosY, self.PosZ, radius)

	bestIdx := -1
	var bestDistSq float64

	for _, candidateIdx := range candidates {
		if candidateIdx < 0 || candidateIdx >= len(units) || candidateIdx == idx {
			continue
		}
		target := &units[candidateIdx]
		if !target.Alive || target.FactionID == self.FactionID || !target.IsStation {
			continue
		}

		distSq := self.DistanceSq(target)
		if bestIdx == -1 || distSq < bestDistSq {
			bestIdx = candidateIdx
			bestDistSq = distSq
		}
	}

	if bestIdx == -1 {
		return -1, false
	}
	return bestIdx, true
}

// findNearestEnemyInRange performs a linear scan over all units for the
// nearest enemy within self's max weapon range, squared. This is the
// fallback safety net for when the grid-based search misses a genuinely
// in-range enemy at the radius-expansion boundary.
func findNearestEnemyInRange(units []Unit, idx int) (int, bool) {
	self := &units[idx]
	maxRangeSq := self.MaxWeaponRange * self.MaxWeaponRange

	bestIdx := -1
	var bestDistSq float64

	for i := range units {
		if i == idx {
			continue
		}
		target := &units[i]
		if !target.Alive || target.FactionID == self.FactionID {
			continue
		}

		distSq := self.DistanceSq(target)
		if distSq > maxRangeSq {
			continue
		}
		if bestIdx == -1 || distSq < bestDistSq {
			bestIdx = i
			bestDistSq = distSq
		}
	}

	if bestIdx == -1 {
		return -1, false
	}
	return bestIdx, true
}
