// File: internal/battle/schema.go
// Project: Starwake battle core
// Description: Ingress/egress record types for the simulator boundary
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package battle

import (
	"fmt"

	"github.com/google/uuid"
)

// WeaponRecord is the ingress shape of a Weapon.
type WeaponRecord struct {
	Tag             string  `json:"tag"`
	DPS             float64 `json:"dps"`
	FireRate        float64 `json:"fire_rate"`
	Cooldown        float64 `json:"cooldown"`
	MaxRange        float64 `json:"max_range"`
	OptimalRange    float64 `json:"optimal_range"`
	TargetArmorMax  float64 `json:"target_armor_max"`
	Sequence        []bool  `json:"sequence,omitempty"`
	ProjectileSpeed float64 `json:"projectile_speed,omitempty"`
}

// UnitRecord is the ingress shape of a Unit. IsShip, IsStation, and
// HasWeapons may be left zero-valued; Normalize derives them.
type UnitRecord struct {
	ID        uuid.UUID  `json:"id"`
	FactionID uuid.UUID  `json:"faction_id"`
	PlayerID  *uuid.UUID `json:"player_id,omitempty"`

	MaxHP float64 `json:"max_hp"`
	HP    float64 `json:"hp"`

	MaxShield   float64 `json:"max_shield"`
	Shield      float64 `json:"shield"`
	ShieldRegen float64 `json:"shield_regen"`

	Armor float64 `json:"armor"`

	PosX float64 `json:"pos_x"`
	PosY float64 `json:"pos_y"`
	PosZ float64 `json:"pos_z"`
	VelX float64 `json:"vel_x"`
	VelY float64 `json:"vel_y"`
	VelZ float64 `json:"vel_z"`

	MaxSpeed float64 `json:"max_speed"`

	Weapons []WeaponRecord `json:"weapons"`

	UnitType   string  `json:"unit_type"`
	IsShip     bool    `json:"is_ship,omitempty"`
	IsStation  bool    `json:"is_station,omitempty"`
	HasWeapons bool    `json:"has_weapons,omitempty"`
	ViewRange  float64 `json:"view_range"`
}

// IngestError reports a single rejected record without aborting the rest of
// the batch.
type IngestError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (e IngestError) Error() string {
	return fmt.Sprintf("unit record %d rejected: %s", e.Index, e.Reason)
}

// validate checks the minimal schema invariants malformed ingress must
// satisfy; everything else is filled in by Normalize.
func (r *UnitRecord) validate() error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if r.FactionID == uuid.Nil {
		return fmt.Errorf("faction_id is required")
	}
	if r.MaxHP <= 0 {
		return fmt.Errorf("max_hp must be positive, got %v", r.MaxHP)
	}
	if r.HP < 0 || r.HP > r.MaxHP {
		return fmt.Errorf("hp %v out of bounds [0, %v]", r.HP, r.MaxHP)
	}
	if r.MaxShield < 0 {
		return fmt.Errorf("max_shield must be non-negative, got %v", r.MaxShield)
	}
	if r.Shield < 0 || r.Shield > r.MaxShield {
		return fmt.Errorf("shield %v out of bounds [0, %v]", r.Shield, r.MaxShield)
	}
	return nil
}

func (r *UnitRecord) toUnit() Unit {
	weapons := make([]Weapon, len(r.Weapons))
	for i, wr := range r.Weapons {
		weapons[i] = Weapon{
			Tag:             wr.Tag,
			DPS:             wr.DPS,
			FireRate:        wr.FireRate,
			Cooldown:        wr.Cooldown,
			MaxRange:        wr.MaxRange,
			OptimalRange:    wr.OptimalRange,
			TargetArmorMax:  wr.TargetArmorMax,
			Sequence:        wr.Sequence,
			ProjectileSpeed: wr.ProjectileSpeed,
		}
	}

	u := Unit{
		ID:          r.ID,
		FactionID:   r.FactionID,
		PlayerID:    r.PlayerID,
		MaxHP:       r.MaxHP,
		HP:          r.HP,
		Alive:       r.HP > 0,
		MaxShield:   r.MaxShield,
		Shield:      r.Shield,
		ShieldRegen: r.ShieldRegen,
		Armor:       r.Armor,
		PosX:        r.PosX,
		PosY:        r.PosY,
		PosZ:        r.PosZ,
		VelX:        r.VelX,
		VelY:        r.VelY,
		VelZ:        r.VelZ,
		MaxSpeed:    r.MaxSpeed,
		Weapons:     weapons,
		UnitType:    r.UnitType,
		IsShip:      r.IsShip,
		IsStation:   r.IsStation,
		HasWeapons:  r.HasWeapons,
		ViewRange:   r.ViewRange,
	}
	u.Normalize()
	return u
}

// PositionUpdate is an external position-sync record.
type PositionUpdate struct {
	ID          uuid.UUID `json:"id"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Z           float64   `json:"z"`
	ClearTarget bool      `json:"clear_target"`
}

// MovedRecord reports a unit whose position changed significantly this
// tick (centroid displacement over the movement-significance threshold).
type MovedRecord struct {
	ID uuid.UUID `json:"id"`
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	Z  float64   `json:"z"`
}

// DamagedRecord reports a unit that took non-zero damage this tick but
// survived.
type DamagedRecord struct {
	ID     uuid.UUID `json:"id"`
	HP     float64   `json:"hp"`
	Shield float64   `json:"shield"`
}

// WeaponFiredRecord reports a single successful weapon discharge.
type WeaponFiredRecord struct {
	AttackerID   uuid.UUID `json:"attacker_id"`
	TargetID     uuid.UUID `json:"target_id"`
	WeaponType   string    `json:"weapon_type"`
	ImpactTimeMs int64     `json:"impact_time_ms"`
}

// TickResult is the report produced by a single Tick call.
type TickResult struct {
	Tick         uint64              `json:"tick"`
	Moved        []MovedRecord       `json:"moved,omitempty"`
	Damaged      []DamagedRecord     `json:"damaged,omitempty"`
	Destroyed    []uuid.UUID         `json:"destroyed,omitempty"`
	WeaponsFired []WeaponFiredRecord `json:"weapons_fired,omitempty"`
}

// FactionTally is a per-faction rollup of a completed battle.
type FactionTally struct {
	AliveUnits     int     `json:"alive_units"`
	DestroyedUnits int     `json:"destroyed_units"`
	DamageDealt    float64 `json:"damage_dealt"`
	DamageTaken    float64 `json:"damage_taken"`
}

// BattleSummary is the terminal record a host requests once
// Simulator.IsBattleEnded reports true.
type BattleSummary struct {
	BattleID     uuid.UUID  `json:"battle_id"`
	EndedAtTick  uint64     `json:"ended_at_tick"`
	Winner       *uuid.UUID `json:"winner,omitempty"`
	StalematedAt *uint64    `json:"stalemated_at,omitempty"`

	FactionTallies map[uuid.UUID]FactionTally `json:"faction_tallies"`
}
