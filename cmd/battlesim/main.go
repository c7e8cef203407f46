// File: cmd/battlesim/main.go
// Project: Starwake battle core
// Description: Terminal spectator view for a running battle simulation
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kaspar-vey/starwake/internal/battle"
	"github.com/kaspar-vey/starwake/internal/logger"
	"github.com/kaspar-vey/starwake/internal/metrics"
)

var (
	shipsPerFaction    = flag.Int("ships", 8, "Ships per faction")
	stationsPerFaction = flag.Int("stations", 1, "Stations per faction")
	factionCount       = flag.Int("factions", 2, "Number of factions")
	ticksPerSecond     = flag.Float64("rate", 4.0, "Simulated ticks per second")
	seed               = flag.Int64("seed", 1, "Random seed for unit placement")
	metricsAddr        = flag.String("metrics-addr", "", "Address to serve Prometheus metrics on, empty disables it")
)

var (
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Green
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	logStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	winnerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	destroyedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type tickMsg time.Time

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	sim          *battle.Simulator
	factions     []uuid.UUID
	factionNames map[uuid.UUID]string
	fireLog      []string
	maxLogLines  int
	interval     time.Duration
	ended        bool
	summary      *battle.BattleSummary
}

func newModel() model {
	rng := rand.New(rand.NewSource(*seed))

	var records []battle.UnitRecord
	factionNames := make(map[uuid.UUID]string)
	var factions []uuid.UUID

	for f := 0; f < *factionCount; f++ {
		factionID := uuid.New()
		factions = append(factions, factionID)
		factionNames[factionID] = fmt.Sprintf("Faction-%d", f+1)

		baseX := float64(f) * 600

		for i := 0; i < *stationsPerFaction; i++ {
			records = append(records, stationRecord(factionID, baseX, rng))
		}
		for i := 0; i < *shipsPerFaction; i++ {
			records = append(records, shipRecord(factionID, baseX, rng))
		}
	}

	sim, ingestErrors := battle.NewSimulator(records, battle.WithLogger(logger.WithComponent("battlesim")))
	for _, e := range ingestErrors {
		logger.Warn("rejected seed unit: %v", e)
	}

	return model{
		sim:          sim,
		factions:     factions,
		factionNames: factionNames,
		maxLogLines:  12,
		interval:     time.Duration(float64(time.Second) / *ticksPerSecond),
	}
}

func stationRecord(factionID uuid.UUID, baseX float64, rng *rand.Rand) battle.UnitRecord {
	return battle.UnitRecord{
		ID:          uuid.New(),
		FactionID:   factionID,
		MaxHP:       2000,
		HP:          2000,
		MaxShield:   500,
		Shield:      500,
		ShieldRegen: 5,
		Armor:       3,
		PosX:        baseX + rng.Float64()*20 - 10,
		PosY:        rng.Float64()*20 - 10,
		PosZ:        0,
		UnitType:    "station",
		ViewRange:   400,
		Weapons: []battle.WeaponRecord{
			{Tag: "AM-Flak", DPS: 20, FireRate: 2, MaxRange: 150, OptimalRange: 150, TargetArmorMax: 0},
			{Tag: "laser", DPS: 40, FireRate: 1, MaxRange: 300, OptimalRange: 200, TargetArmorMax: 2},
		},
	}
}

func shipRecord(factionID uuid.UUID, baseX float64, rng *rand.Rand) battle.UnitRecord {
	return battle.UnitRecord{
		ID:          uuid.New(),
		FactionID:   factionID,
		MaxHP:       150,
		HP:          150,
		MaxShield:   50,
		Shield:      50,
		ShieldRegen: 2,
		Armor:       1,
		PosX:        baseX + rng.Float64()*200 - 100,
		PosY:        rng.Float64()*200 - 100,
		PosZ:        rng.Float64()*40 - 20,
		MaxSpeed:    30,
		UnitType:    "frigate",
		ViewRange:   350,
		Weapons: []battle.WeaponRecord{
			{Tag: "HM1", DPS: 25, FireRate: 1, MaxRange: 250, OptimalRange: 150, TargetArmorMax: 1},
		},
	}
}

func (m model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			forced := m.sim.ForceRetargetAll()
			metrics.Global().IncrementRetargetsForced(int64(forced))
			metrics.Global().IncrementCounter("force_retarget_commands")
			m.fireLog = append(m.fireLog, logStyle.Render(fmt.Sprintf("tick %d: spectator forced retarget on %d units", m.sim.CurrentTick(), forced)))
		}
	case tickMsg:
		if m.ended {
			return m, nil
		}

		start := time.Now()
		result := m.sim.Tick(1.0, float64(m.sim.CurrentTick()))

		aliveByFaction := make(map[uuid.UUID]int64)
		var aliveTotal int64
		for _, u := range m.sim.Units() {
			if u.Alive {
				aliveTotal++
				aliveByFaction[u.FactionID]++
			}
		}
		metrics.Global().RecordTickActivity(len(result.WeaponsFired), len(result.Destroyed), aliveTotal, time.Since(start))
		for i, f := range m.factions {
			metrics.Global().SetGauge(fmt.Sprintf("alive_faction_%d", i+1), aliveByFaction[f])
		}

		for _, fired := range result.WeaponsFired {
			m.fireLog = append(m.fireLog, fmt.Sprintf("tick %d: %s -> %s (%s)", result.Tick, short(fired.AttackerID), short(fired.TargetID), fired.WeaponType))
		}
		for _, id := range result.Destroyed {
			m.fireLog = append(m.fireLog, destroyedStyle.Render(fmt.Sprintf("tick %d: %s destroyed", result.Tick, short(id))))
		}
		if len(m.fireLog) > m.maxLogLines {
			m.fireLog = m.fireLog[len(m.fireLog)-m.maxLogLines:]
		}

		if m.sim.IsBattleEnded() {
			m.ended = true
			summary := m.sim.Summary(uuid.New())
			m.summary = &summary
			metrics.Global().IncrementBattlesEnded()
			if summary.StalematedAt != nil {
				metrics.Global().IncrementStalematesDeclared()
			}
			return m, nil
		}

		return m, tickCmd(m.interval)
	}
	return m, nil
}

func short(id uuid.UUID) string {
	s := id.String()
	return s[:8]
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Battle at tick %d", m.sim.CurrentTick())))
	b.WriteString("\n\n")

	tallies := make(map[uuid.UUID]int)
	for _, u := range m.sim.Units() {
		if u.Alive {
			tallies[u.FactionID]++
		}
	}

	sortedFactions := append([]uuid.UUID(nil), m.factions...)
	sort.Slice(sortedFactions, func(i, j int) bool {
		return m.factionNames[sortedFactions[i]] < m.factionNames[sortedFactions[j]]
	})

	for _, f := range sortedFactions {
		alive := tallies[f]
		b.WriteString(fmt.Sprintf("%-12s %s (%d alive)\n", m.factionNames[f], barStyle.Render(strings.Repeat("#", alive)), alive))
	}

	b.WriteString("\n" + headerStyle.Render("Weapons fire") + "\n")
	for _, line := range m.fireLog {
		b.WriteString(logStyle.Render(line) + "\n")
	}

	if m.ended && m.summary != nil {
		b.WriteString("\n")
		if m.summary.Winner != nil {
			b.WriteString(winnerStyle.Render(fmt.Sprintf("Winner: %s", m.factionNames[*m.summary.Winner])))
		} else {
			b.WriteString(winnerStyle.Render("No survivors"))
		}
		if m.summary.StalematedAt != nil {
			b.WriteString(winnerStyle.Render(fmt.Sprintf(" (stalemate at tick %d)", *m.summary.StalematedAt)))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nq: quit   r: force retarget\n")
	return b.String()
}

func main() {
	flag.Parse()

	if *metricsAddr != "" {
		srv := metrics.NewServer(*metricsAddr, metrics.Global())
		if err := srv.Start(); err != nil {
			logger.Error("starting metrics server: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Stop(ctx)
			}()
		}
	}

	p := tea.NewProgram(newModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("battlesim error: %v\n", err)
	}
}
