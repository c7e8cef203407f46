// File: internal/battle/simulator.go
// Project: Starwake battle core
// Description: Per-tick orchestration: targeting, combat, damage, stalemate
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package battle

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/kaspar-vey/starwake/internal/logger"
	"github.com/kaspar-vey/starwake/internal/spatialgrid"
)

// Reference tunable constants. Documented as tunables rather than baked
// into call sites that might reasonably diverge per deployment.
const (
	DefaultCellSize     = 100.0
	RetargetInterval    = 20
	StalemateTicks      = 1200
	MovedThreshold      = 0.01
	PositionSyncEpsilon = 0.1
)

// Simulator owns a population of units and advances them one tick at a
// time. It is not safe for concurrent use: callers must serialize Tick,
// AddUnit, and position-sync calls.
type Simulator struct {
	units   []Unit
	idIndex map[uuid.UUID]int
	grid    *spatialgrid.Grid

	tick           uint64
	lastCombatTick uint64

	log *logger.Logger
}

// Option configures a Simulator at construction.
type Option func(*Simulator)

// WithLogger overrides the default component logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// WithCellSize overrides the spatial grid's cell size.
func WithCellSize(cellSize float64) Option {
	return func(s *Simulator) { s.grid = spatialgrid.New(cellSize) }
}

// NewSimulator builds a Simulator from a batch of ingress records. Malformed
// records are rejected and reported via the returned []IngestError without
// affecting ingestion of the valid ones.
func NewSimulator(records []UnitRecord, opts ...Option) (*Simulator, []IngestError) {
	s := &Simulator{
		idIndex: make(map[uuid.UUID]int),
		grid:    spatialgrid.New(DefaultCellSize),
		log:     logger.WithComponent("battle"),
	}
	for _, opt := range opts {
		opt(s)
	}

	var ingestErrors []IngestError
	for i, r := range records {
		if err := r.validate(); err != nil {
			ingestErrors = append(ingestErrors, IngestError{Index: i, Reason: err.Error()})
			continue
		}
		unit := r.toUnit()
		s.idIndex[unit.ID] = len(s.units)
		s.units = append(s.units, unit)
	}

	return s, ingestErrors
}

// AddUnit ingests a single unit mid-run. It takes effect starting from the
// next tick's grid rebuild.
func (s *Simulator) AddUnit(r UnitRecord) (uuid.UUID, error) {
	if err := r.validate(); err != nil {
		return uuid.Nil, IngestError{Index: len(s.units), Reason: err.Error()}
	}
	unit := r.toUnit()
	s.idIndex[unit.ID] = len(s.units)
	s.units = append(s.units, unit)
	return unit.ID, nil
}

// Units returns the simulator's unit storage, in storage order. The slice
// is not a copy: it aliases internal state, reflects later ticks, and must
// not be mutated by the caller.
func (s *Simulator) Units() []Unit {
	return s.units
}

// CurrentTick returns the most recently completed tick's ordinal.
func (s *Simulator) CurrentTick() uint64 {
	return s.tick
}

func (s *Simulator) rebuildGrid() {
	s.grid.Clear()
	for i := range s.units {
		if s.units[i].Alive {
			s.grid.Insert(i, s.units[i].PosX, s.units[i].PosY, s.units[i].PosZ)
		}
	}
}

// fireEvent is the plan-phase record of a successful weapon discharge,
// produced by a read-only pass and applied in a separate commit pass. This
// two-phase strategy avoids aliasing hazards from reading an attacker and
// target while later writing back cooldowns and damage.
type fireEvent struct {
	attackerIdx int
	targetIdx   int
	weaponIdx   int
	damage      float64
	distance    float64
	weaponTag   string
}

// Tick advances the simulator by one step: dt is the elapsed simulated
// time in seconds, now is the absolute simulation clock used for weapon
// cooldown evaluation. Sequence gates are evaluated against the tick
// counter, not now.
func (s *Simulator) Tick(dt, now float64) TickResult {
	s.tick++

	s.rebuildGrid()
	s.acquireTargets()

	// Movement phase: sync-only build. No auto-movement is performed here;
	// position changes only arrive through UpdateSinglePosition/
	// UpdatePositions. The moved list is therefore always empty in this
	// build — see the movement-mode decision in the design notes.
	var moved []MovedRecord

	fireEvents := s.planCombat(now)
	s.commitCombat(fireEvents, now)

	weaponsFired := make([]WeaponFiredRecord, 0, len(fireEvents))
	for _, fe := range fireEvents {
		weaponsFired = append(weaponsFired, WeaponFiredRecord{
			AttackerID:   s.units[fe.attackerIdx].ID,
			TargetID:     s.units[fe.targetIdx].ID,
			WeaponType:   fe.weaponTag,
			ImpactTimeMs: impactTimeMs(fe.weaponTag, fe.distance),
		})
	}

	damaged, destroyed := s.applyDamage(fireEvents)

	for i := range s.units {
		if s.units[i].Alive {
			s.units[i].RegenShield(dt)
		}
	}

	if len(fireEvents) > 0 {
		s.lastCombatTick = s.tick
	}

	if len(destroyed) > 0 {
		s.log.Debug("tick %d: %d unit(s) destroyed", s.tick, len(destroyed))
	}

	return TickResult{
		Tick:         s.tick,
		Moved:        moved,
		Damaged:      damaged,
		Destroyed:    destroyed,
		WeaponsFired: weaponsFired,
	}
}

// acquireTargets implements the target acquisition/validation phase.
func (s *Simulator) acquireTargets() {
	for i := range s.units {
		unit := &s.units[i]
		if !unit.Alive || !unit.CanAttack() {
			continue
		}

		needsRetarget := false
		switch {
		case unit.TargetID == nil:
			needsRetarget = true
		case s.tick%RetargetInterval == 0:
			needsRetarget = true
		default:
			targetIdx, ok := s.idIndex[*unit.TargetID]
			valid := ok &&
				s.units[targetIdx].Alive &&
				s.units[targetIdx].FactionID != unit.FactionID &&
				unit.Distance(&s.units[targetIdx]) <= unit.MaxWeaponRange
			if !valid {
				needsRetarget = true
			}
		}

		if !needsRetarget {
			continue
		}

		unit.TargetID = nil
		if idx, found := findBestTarget(s.units, i, s.grid); found {
			id := s.units[idx].ID
			unit.TargetID = &id
			continue
		}
		if idx, found := findNearestEnemyInRange(s.units, i); found {
			s.log.Debug("unit %s: grid search missed, fallback scan found target %s", unit.ID, s.units[idx].ID)
			id := s.units[idx].ID
			unit.TargetID = &id
		}
	}
}

// planCombat is the read-only planning pass of the combat phase.
func (s *Simulator) planCombat(now float64) []fireEvent {
	var events []fireEvent

	for i := range s.units {
		unit := &s.units[i]
		if !unit.Alive || unit.TargetID == nil {
			continue
		}

		targetIdx, ok := s.idIndex[*unit.TargetID]
		if !ok || !s.units[targetIdx].Alive {
			unit.TargetID = nil
			continue
		}
		target := &s.units[targetIdx]

		for wIdx := range unit.Weapons {
			w := &unit.Weapons[wIdx]
			class := classifyWeapon(w.Tag)
			weaponTarget := target
			targetIdxForWeapon := targetIdx

			// Siege weapons bypass the unit's primary target and seek the
			// nearest enemy station directly, per the siege-only variant.
			if class.siege && !target.IsStation {
				siegeIdx, found := findSiegeTarget(s.units, i, s.grid)
				if !found {
					continue
				}
				targetIdxForWeapon = siegeIdx
				weaponTarget = &s.units[siegeIdx]
			}

			damage, fired := tryFire(unit, weaponTarget, w, now, s.tick)
			if !fired {
				continue
			}

			events = append(events, fireEvent{
				attackerIdx: i,
				targetIdx:   targetIdxForWeapon,
				weaponIdx:   wIdx,
				damage:      damage,
				distance:    unit.Distance(weaponTarget),
				weaponTag:   w.Tag,
			})
		}
	}

	return events
}

// commitCombat applies the mutations planned by planCombat: weapon
// cooldown resets.
func (s *Simulator) commitCombat(events []fireEvent, now float64) {
	for _, fe := range events {
		s.units[fe.attackerIdx].Weapons[fe.weaponIdx].LastFired = now
	}
}

// applyDamage aggregates queued damage per target and applies it exactly
// once per target, crediting damage_dealt to every contributing attacker.
func (s *Simulator) applyDamage(events []fireEvent) ([]DamagedRecord, []uuid.UUID) {
	damageByTarget := make(map[int]float64)
	for _, fe := range events {
		damageByTarget[fe.targetIdx] += fe.damage
	}

	targetIdxs := make([]int, 0, len(damageByTarget))
	for idx := range damageByTarget {
		targetIdxs = append(targetIdxs, idx)
	}
	sort.Ints(targetIdxs)

	var damaged []DamagedRecord
	var destroyed []uuid.UUID

	for _, idx := range targetIdxs {
		wasAlive := s.units[idx].Alive
		s.units[idx].TakeDamage(damageByTarget[idx])

		if wasAlive && !s.units[idx].Alive {
			destroyed = append(destroyed, s.units[idx].ID)
		} else if s.units[idx].Alive {
			damaged = append(damaged, DamagedRecord{
				ID:     s.units[idx].ID,
				HP:     s.units[idx].HP,
				Shield: s.units[idx].Shield,
			})
		}
	}

	for _, fe := range events {
		s.units[fe.attackerIdx].DamageDealt += fe.damage
	}

	if len(destroyed) > 0 {
		destroyedSet := make(map[uuid.UUID]bool, len(destroyed))
		for _, id := range destroyed {
			destroyedSet[id] = true
		}
		for i := range s.units {
			if s.units[i].TargetID != nil && destroyedSet[*s.units[i].TargetID] {
				s.units[i].TargetID = nil
			}
		}
	}

	return damaged, destroyed
}

// UpdateSinglePosition applies an external position update to an alive
// unit by id. It zeroes velocity and clears the unit's target if either
// clearTarget is requested or the move distance exceeds
// PositionSyncEpsilon. Returns false if the unit is unknown or dead; no
// state changes in that case.
func (s *Simulator) UpdateSinglePosition(id uuid.UUID, x, y, z float64, clearTarget bool) bool {
	idx, ok := s.idIndex[id]
	if !ok || !s.units[idx].Alive {
		return false
	}

	u := &s.units[idx]
	dx, dy, dz := x-u.PosX, y-u.PosY, z-u.PosZ
	dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

	u.PosX, u.PosY, u.PosZ = x, y, z
	u.Stop()

	if u.TargetID != nil && (clearTarget || dist > PositionSyncEpsilon) {
		u.TargetID = nil
	}

	return true
}

// UpdatePositions applies a batch of external position updates and
// immediately rebuilds the spatial grid if any update succeeded. Returns
// the count of updates applied.
func (s *Simulator) UpdatePositions(updates []PositionUpdate) int {
	count := 0
	for _, u := range updates {
		if s.UpdateSinglePosition(u.ID, u.X, u.Y, u.Z, u.ClearTarget) {
			count++
		}
	}
	if count > 0 {
		s.rebuildGrid()
	}
	return count
}

// ForceRetargetAll clears target_id on every alive unit that had one,
// returning the count cleared.
func (s *Simulator) ForceRetargetAll() int {
	count := 0
	for i := range s.units {
		if s.units[i].Alive && s.units[i].TargetID != nil {
			s.units[i].TargetID = nil
			count++
		}
	}
	if count > 0 {
		s.log.Debug("forced retarget: cleared %d target(s)", count)
	}
	return count
}

// ForceRetargetUnit clears a single unit's target_id. Returns false if the
// unit is unknown, dead, or already untargeted.
func (s *Simulator) ForceRetargetUnit(id uuid.UUID) bool {
	idx, ok := s.idIndex[id]
	if !ok || !s.units[idx].Alive || s.units[idx].TargetID == nil {
		return false
	}
	s.units[idx].TargetID = nil
	return true
}

// GetActiveFactions returns the sorted, deduplicated faction ids of alive
// units.
func (s *Simulator) GetActiveFactions() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var factions []uuid.UUID
	for i := range s.units {
		if s.units[i].Alive && !seen[s.units[i].FactionID] {
			seen[s.units[i].FactionID] = true
			factions = append(factions, s.units[i].FactionID)
		}
	}
	sort.Slice(factions, func(a, b int) bool {
		return factions[a].String() < factions[b].String()
	})
	return factions
}

// isStalemated reports whether the no-damage stalemate window has elapsed.
func (s *Simulator) isStalemated() bool {
	return s.tick >= StalemateTicks && s.tick-s.lastCombatTick >= StalemateTicks
}

// IsBattleEnded reports whether the battle has reached a terminal state:
// at most one faction remains alive, or a stalemate has been declared.
func (s *Simulator) IsBattleEnded() bool {
	if len(s.GetActiveFactions()) <= 1 {
		return true
	}
	if s.isStalemated() {
		s.log.Debug("tick %d: stalemate declared", s.tick)
		return true
	}
	return false
}

// GetWinner resolves the winning faction: the sole survivor on a clean
// end, or on stalemate the faction with the largest alive-unit count,
// ties broken by first-observed order while scanning unit storage.
func (s *Simulator) GetWinner() (uuid.UUID, bool) {
	active := s.GetActiveFactions()
	if len(active) == 0 {
		return uuid.Nil, false
	}
	if len(active) == 1 {
		return active[0], true
	}

	var order []uuid.UUID
	counts := make(map[uuid.UUID]int)
	for i := range s.units {
		if !s.units[i].Alive {
			continue
		}
		fid := s.units[i].FactionID
		if _, seen := counts[fid]; !seen {
			order = append(order, fid)
		}
		counts[fid]++
	}

	var winner uuid.UUID
	best := -1
	for _, fid := range order {
		if counts[fid] > best {
			best = counts[fid]
			winner = fid
		}
	}
	return winner, true
}

// Summary builds a terminal rollup of the battle's final state. Callers
// typically invoke this once IsBattleEnded reports true.
func (s *Simulator) Summary(battleID uuid.UUID) BattleSummary {
	tallies := make(map[uuid.UUID]FactionTally)
	for i := range s.units {
		u := &s.units[i]
		t := tallies[u.FactionID]
		if u.Alive {
			t.AliveUnits++
		} else {
			t.DestroyedUnits++
		}
		t.DamageDealt += u.DamageDealt
		t.DamageTaken += u.DamageTaken
		tallies[u.FactionID] = t
	}

	summary := BattleSummary{
		BattleID:       battleID,
		EndedAtTick:    s.tick,
		FactionTallies: tallies,
	}

	if s.IsBattleEnded() {
		if w, ok := s.GetWinner(); ok {
			summary.Winner = &w
		}
		if s.isStalemated() {
			tick := s.tick
			summary.StalematedAt = &tick
		}
	}

	return summary
}
