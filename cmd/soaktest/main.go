// File: cmd/soaktest/main.go
// Project: Starwake battle core
// Description: Soak-test tool measuring simulator throughput over a large battle
// Version: 1.0.0
// Author: Joshua Ferguson
// Created: 2025-01-07

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kaspar-vey/starwake/internal/battle"
	"github.com/kaspar-vey/starwake/internal/persistence"
)

var (
	shipsPerFaction = flag.Int("ships", 500, "Ships per faction")
	factionCount    = flag.Int("factions", 2, "Number of factions")
	maxTicks        = flag.Int("ticks", 2000, "Maximum ticks to run before giving up")
	seed            = flag.Int64("seed", 1, "Random seed for unit placement")

	record     = flag.Bool("record", false, "Record every tick to Postgres via persistence.Recorder")
	dbHost     = flag.String("db-host", "localhost", "Database host")
	dbPort     = flag.Int("db-port", 5432, "Database port")
	dbUser     = flag.String("db-user", "starwake", "Database user")
	dbPassword = flag.String("db-password", "", "Database password")
	dbName     = flag.String("db-name", "starwake", "Database name")
)

type soakResult struct {
	UnitCount     int
	TicksRun      int
	SimTime       time.Duration
	AvgTickTime   time.Duration
	TicksPerSec   float64
	TotalShots    int
	TotalDestroys int
	Winner        string
	Stalemated    bool
}

func main() {
	flag.Parse()

	if *record && *dbPassword == "" {
		fmt.Println("Error: -db-password required when -record is set")
		flag.Usage()
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(*seed))

	var records []battle.UnitRecord
	factionIDs := make([]uuid.UUID, *factionCount)
	for f := range factionIDs {
		factionIDs[f] = uuid.New()
	}

	for f, factionID := range factionIDs {
		baseX := float64(f) * 2000
		for i := 0; i < *shipsPerFaction; i++ {
			records = append(records, battle.UnitRecord{
				ID:          uuid.New(),
				FactionID:   factionID,
				MaxHP:       150,
				HP:          150,
				MaxShield:   50,
				Shield:      50,
				ShieldRegen: 2,
				Armor:       float64(rng.Intn(3)),
				PosX:        baseX + rng.Float64()*500,
				PosY:        rng.Float64()*500,
				PosZ:        rng.Float64()*100,
				MaxSpeed:    30,
				UnitType:    "frigate",
				ViewRange:   350,
				Weapons: []battle.WeaponRecord{
					{Tag: "HM1", DPS: 25, FireRate: 1, MaxRange: 250, OptimalRange: 150, TargetArmorMax: 1},
				},
			})
		}
	}

	sim, ingestErrors := battle.NewSimulator(records)
	if len(ingestErrors) != 0 {
		log.Fatalf("unexpected ingest errors in generated seed data: %v", ingestErrors)
	}

	fmt.Printf("=== Starwake Battle Soak Test ===\n\n")
	fmt.Printf("Factions: %d, Ships per faction: %d, Total units: %d\n\n", *factionCount, *shipsPerFaction, len(records))

	var recorder *persistence.Recorder
	var battleID uuid.UUID
	ctx := context.Background()

	if *record {
		db, err := persistence.NewDB(&persistence.Config{
			Host:     *dbHost,
			Port:     *dbPort,
			User:     *dbUser,
			Password: *dbPassword,
			Database: *dbName,
			SSLMode:  "disable",
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		recorder = persistence.NewRecorder(db)
		battleID = uuid.New()
		if err := recorder.BeginBattle(ctx, battleID); err != nil {
			log.Fatalf("Failed to begin battle record: %v", err)
		}
		fmt.Printf("Recording to Postgres under battle_id=%s\n\n", battleID)
	}

	result := &soakResult{UnitCount: len(records)}

	fmt.Println("Phase 1: Running ticks...")
	start := time.Now()

	for i := 0; i < *maxTicks; i++ {
		tickResult := sim.Tick(1.0, float64(i))
		result.TotalShots += len(tickResult.WeaponsFired)
		result.TotalDestroys += len(tickResult.Destroyed)
		result.TicksRun++

		if recorder != nil {
			if err := recorder.RecordTick(ctx, battleID, tickResult); err != nil {
				log.Printf("record tick %d failed: %v", tickResult.Tick, err)
			}
		}

		if (i+1)%100 == 0 {
			fmt.Printf("  tick %d/%d, %d destroyed so far\n", i+1, *maxTicks, result.TotalDestroys)
		}

		if sim.IsBattleEnded() {
			break
		}
	}

	result.SimTime = time.Since(start)
	result.AvgTickTime = result.SimTime / time.Duration(result.TicksRun)
	result.TicksPerSec = float64(result.TicksRun) / result.SimTime.Seconds()

	summary := sim.Summary(battleID)
	if summary.Winner != nil {
		result.Winner = summary.Winner.String()
	}
	result.Stalemated = summary.StalematedAt != nil

	if recorder != nil {
		if err := recorder.RecordSummary(ctx, summary); err != nil {
			log.Printf("record summary failed: %v", err)
		}
	}

	fmt.Printf("✓ Simulation complete: %v (avg %v/tick, %.2f ticks/sec)\n\n", result.SimTime, result.AvgTickTime, result.TicksPerSec)

	fmt.Println("=== Soak Test Results ===")
	fmt.Printf("Units: %d\n", result.UnitCount)
	fmt.Printf("Ticks Run: %d\n", result.TicksRun)
	fmt.Printf("Total Shots Fired: %d\n", result.TotalShots)
	fmt.Printf("Total Destroyed: %d\n", result.TotalDestroys)
	fmt.Printf("Avg Tick Time: %v\n", result.AvgTickTime)
	fmt.Printf("Ticks/sec: %.2f\n", result.TicksPerSec)
	if result.Stalemated {
		fmt.Println("Outcome: stalemate")
	} else if result.Winner != "" {
		fmt.Printf("Outcome: faction %s wins\n", result.Winner)
	} else {
		fmt.Println("Outcome: battle did not conclude within tick budget")
	}
}
