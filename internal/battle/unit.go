// File: internal/battle/unit.go
// Project: Starwake battle core
// Description: Unit and Weapon data model
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

// Package battle implements a deterministic, fixed-timestep battle simulator
// for space combat between factions of ships and stations. The package is
// single-threaded: callers must serialize Tick, AddUnit, and position-sync
// calls against a given Simulator.
package battle

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// Station-classifying substrings checked against a lowercased unit_type.
var stationTypeSubstrings = []string{"station", "outpost", "platform"}

// Weapon is a single mounted weapon on a Unit.
//
// Tag drives classification (point-defense, siege, interceptable, energy)
// via case-insensitive prefix/substring tests — see classifyWeapon.
type Weapon struct {
	Tag string

	DPS            float64
	FireRate       float64
	Cooldown       float64
	MaxRange       float64
	OptimalRange   float64
	TargetArmorMax float64

	// Sequence is an optional fire/skip pattern. Empty means "always
	// permitted" (subject to cooldown). SequenceIndex is advisory only;
	// gating uses tick modulo len(Sequence).
	Sequence      []bool
	SequenceIndex int

	// ProjectileSpeed is ingested and carried for host display. Impact-time
	// reporting is governed by the tag-driven speed table in projectileSpeed,
	// not this field.
	ProjectileSpeed float64

	// LastFired is the absolute clock time (seconds) of the weapon's last
	// discharge. Zero means never fired.
	LastFired float64
}

// Unit is a ship or station belonging to a faction.
type Unit struct {
	ID        uuid.UUID
	FactionID uuid.UUID
	PlayerID  *uuid.UUID

	MaxHP float64
	HP    float64
	Alive bool

	MaxShield   float64
	Shield      float64
	ShieldRegen float64

	// Armor stores the integer tier 0-4 (None, Light, Medium, Heavy, Super)
	// as a float for uniform arithmetic with the damage pipeline.
	Armor float64

	PosX, PosY, PosZ float64
	VelX, VelY, VelZ float64
	MaxSpeed         float64

	Weapons        []Weapon
	MaxWeaponRange float64

	UnitType   string
	IsShip     bool
	IsStation  bool
	HasWeapons bool
	ViewRange  float64

	TargetID    *uuid.UUID
	DamageDealt float64
	DamageTaken float64
}

// Normalize fills derived fields after ingestion, per the ingress contract:
// has_weapons from the weapon list, max_weapon_range from the weapon list,
// and is_ship/is_station from unit_type when neither was supplied.
func (u *Unit) Normalize() {
	if !u.HasWeapons && len(u.Weapons) > 0 {
		u.HasWeapons = true
	}
	if u.MaxWeaponRange == 0 && len(u.Weapons) > 0 {
		var maxRange float64
		for _, w := range u.Weapons {
			if w.MaxRange > maxRange {
				maxRange = w.MaxRange
			}
		}
		u.MaxWeaponRange = maxRange
	}
	if !u.IsShip && !u.IsStation {
		lowered := strings.ToLower(u.UnitType)
		station := false
		for _, sub := range stationTypeSubstrings {
			if strings.Contains(lowered, sub) {
				station = true
				break
			}
		}
		if station {
			u.IsStation = true
		} else {
			u.IsShip = true
		}
	}
}

// CanAttack reports whether the unit is eligible to acquire a target.
func (u *Unit) CanAttack() bool {
	return u.Alive && u.HasWeapons && len(u.Weapons) > 0
}

// DistanceSq returns the squared Euclidean distance to another unit.
func (u *Unit) DistanceSq(other *Unit) float64 {
	dx := u.PosX - other.PosX
	dy := u.PosY - other.PosY
	dz := u.PosZ - other.PosZ
	return dx*dx + dy*dy + dz*dz
}

// Distance returns the Euclidean distance to another unit.
func (u *Unit) Distance(other *Unit) float64 {
	return math.Sqrt(u.DistanceSq(other))
}

// UpdatePosition advances position by velocity*dt (Euler integration).
func (u *Unit) UpdatePosition(dt float64) {
	u.PosX += u.VelX * dt
	u.PosY += u.VelY * dt
	u.PosZ += u.VelZ * dt
}

// Stop zeroes velocity.
func (u *Unit) Stop() {
	u.VelX, u.VelY, u.VelZ = 0, 0, 0
}

// MoveTowards sets velocity to magnitude MaxSpeed pointed at (tx,ty,tz).
// No-op when the distance to the target is zero.
func (u *Unit) MoveTowards(tx, ty, tz float64) {
	dx, dy, dz := tx-u.PosX, ty-u.PosY, tz-u.PosZ
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist == 0 {
		return
	}
	u.VelX = dx / dist * u.MaxSpeed
	u.VelY = dy / dist * u.MaxSpeed
	u.VelZ = dz / dist * u.MaxSpeed
}

// MoveAway sets velocity to magnitude MaxSpeed pointed away from (tx,ty,tz).
// No-op when the distance to the target is zero.
func (u *Unit) MoveAway(tx, ty, tz float64) {
	dx, dy, dz := u.PosX-tx, u.PosY-ty, u.PosZ-tz
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dist == 0 {
		return
	}
	u.VelX = dx / dist * u.MaxSpeed
	u.VelY = dy / dist * u.MaxSpeed
	u.VelZ = dz / dist * u.MaxSpeed
}

// RegenShield restores shield at ShieldRegen units/sec, capped at MaxShield.
func (u *Unit) RegenShield(dt float64) {
	if u.Shield < u.MaxShield && u.ShieldRegen > 0 {
		u.Shield = math.Min(u.MaxShield, u.Shield+u.ShieldRegen*dt)
	}
}

// TakeDamage applies d, the aggregated damage queued against this unit for
// the tick: shield absorbs first, any spill goes to hull with a flat
// armor-tier mitigation. This flat mitigation is independent of (and in
// addition to) the weapon-effectiveness multiplier already folded into d —
// the two are deliberately not collapsed.
func (u *Unit) TakeDamage(d float64) {
	u.DamageTaken += d

	if u.Shield > 0 {
		if d <= u.Shield {
			u.Shield -= d
			return
		}
		d -= u.Shield
		u.Shield = 0
	}

	armorReduction := u.Armor * 0.5
	applied := math.Max(1.0, d-armorReduction)
	u.HP -= applied

	if u.HP <= 0 {
		u.HP = 0
		u.Alive = false
	}
}
