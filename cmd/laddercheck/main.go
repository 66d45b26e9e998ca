package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/park285/Showdown-LadderTracker-bot/internal/ident"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladder"
	"github.com/park285/Showdown-LadderTracker-bot/internal/ladderapi"
)

// usage: laddercheck <format> [prefix] [limit]
func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		log.Fatal("usage: laddercheck <format> [prefix] [limit]")
	}
	format := ident.Normalize(os.Args[1])
	var prefix ident.ID
	if len(os.Args) > 2 {
		prefix = ident.Normalize(os.Args[2])
	}
	limit := 0
	if len(os.Args) > 3 {
		n, err := strconv.Atoi(os.Args[3])
		if err != nil {
			log.Fatalf("bad limit %q", os.Args[3])
		}
		limit = n
	}

	baseURL := os.Getenv("LADDER_BASE_URL")
	if baseURL == "" {
		baseURL = "https://pokemonshowdown.com/ladder"
	}
	interval := 10 * time.Second
	if v := os.Getenv("LADDERCHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	client := ladderapi.NewClient(baseURL, ladderapi.WithTimeout(8*time.Second))
	first := pull(client, format, prefix)
	log.Printf("pull 1: %d ranked", first.Len())
	for _, e := range first.Top(10) {
		fmt.Printf("%4s  %-20s %5d  gxe=%.1f  glicko=%d±%d\n", e.Rank, e.Name, e.Elo, e.GXE, e.GlickoRating, e.GlickoDeviation)
	}

	time.Sleep(interval)
	second := pull(client, format, prefix)
	log.Printf("pull 2: %d ranked", second.Len())

	changes := ladder.Diff(first.Ranked, second.Ranked, limit)
	if len(changes) == 0 {
		fmt.Println("no rank changes")
		return
	}
	for _, c := range changes {
		fmt.Printf("%-20s %4s -> %-4s (%d)\n", c.Name, c.Old, c.New, c.Elo)
	}
}

func pull(client *ladderapi.Client, format, prefix ident.ID) *ladder.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	raw, err := client.Ladder(ctx, format)
	if err != nil {
		log.Fatalf("ladder pull error: %v", err)
	}
	snap, skipped := ladder.Build(raw, prefix)
	if skipped > 0 {
		log.Printf("skipped %d malformed records", skipped)
	}
	if err := snap.Check(); err != nil {
		log.Fatalf("snapshot check: %v", err)
	}
	return snap
}
