// Command simulate runs a full auction offline with every franchise under
// AI control. Runs are reproducible from the seed, which makes it the
// quickest way to sanity-check pool data and bidding behavior changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jensholdgaard/franchise-auction/internal/auction"
	"github.com/jensholdgaard/franchise-auction/internal/bidding"
	"github.com/jensholdgaard/franchise-auction/internal/clock"
	"github.com/jensholdgaard/franchise-auction/internal/config"
	"github.com/jensholdgaard/franchise-auction/internal/pool"
	"github.com/jensholdgaard/franchise-auction/internal/random"
	"github.com/jensholdgaard/franchise-auction/internal/retention"
	"github.com/jensholdgaard/franchise-auction/internal/session"
	"github.com/jensholdgaard/franchise-auction/internal/team"
	"github.com/jensholdgaard/franchise-auction/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	seed := flag.Int64("seed", 1, "random seed, same seed reproduces the run")
	retain := flag.Int("retain", 3, "players each franchise retains before bidding")
	verbose := flag.Bool("verbose", false, "print every bid event")
	flag.Parse()

	if err := run(*configPath, *seed, *retain, *verbose); err != nil {
		slog.Error("simulation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string, seed int64, retain int, verbose bool) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	clk := clock.Real{}
	rng := random.NewSeeded(seed)

	master, rosters, err := pool.NewBuilder(logger).Build(cfg.Data)
	if err != nil {
		return fmt.Errorf("building auction pool: %w", err)
	}

	teamNames := make([]string, 0, len(rosters))
	for name := range rosters {
		teamNames = append(teamNames, name)
	}

	mgr := auction.NewManager(auction.Params{
		RunID:         session.NewRunID(),
		HumanTeam:     team.CanonicalName(teamNames[0]),
		Master:        master,
		TeamNames:     teamNames,
		InitialBudget: cfg.Rules.InitialBudget,
		Rules:         team.RulesFromConfig(cfg.Rules),
	}, logger, telemetry.NewNopProvider().TracerProvider, clk, rng)

	// Retention: every franchise keeps its top players by demand.
	resolver := retention.NewResolver(cfg.Retention, logger, rng)
	working := mgr.Master()
	for _, tm := range mgr.Teams() {
		roster := rosters[rosterKey(rosters, tm.Name)]
		names, err := resolver.Resolve(tm, &working, roster, retain, nil, false)
		if err != nil {
			return fmt.Errorf("retention for %s: %w", tm.Name, err)
		}
		fmt.Printf("%s retains %v (budget %dL)\n", tm.Name, names, tm.Budget)
	}

	states := make(map[string]session.TeamStateV1, len(teamNames))
	for _, tm := range mgr.Teams() {
		states[tm.Name] = session.TeamStateV1{
			Budget:     tm.Budget,
			SquadNames: tm.SquadNames(),
			Prices:     tm.Prices(),
		}
	}
	if err := mgr.Setup(ctx, states, working); err != nil {
		return fmt.Errorf("entering bidding stage: %w", err)
	}
	fmt.Printf("\nBidding on %d players (seed %d)\n\n", len(working), seed)

	for {
		p, _, over := mgr.StartNextPlayer(ctx)
		if over || p == nil {
			break
		}
		out, err := mgr.AutoResolveCurrent(ctx, true)
		if err != nil {
			// The fallback chain guarantees a sale whenever any franchise
			// can still buy; a failure here means the run is misconfigured
			// and cannot make progress.
			var buyerErr *bidding.NoEligibleBuyerError
			if errors.As(err, &buyerErr) {
				return fmt.Errorf("run cannot continue: %w", buyerErr)
			}
			return fmt.Errorf("resolving %s: %w", p.Name, err)
		}
		if verbose {
			for _, ev := range out.Events {
				fmt.Printf("  [%s] %s: %s\n", ev.Timestamp, ev.Bidder, ev.Info)
			}
		}
		fmt.Printf("SOLD    %-25s to %-6s for %4dL (base %dL)\n", p.Name, out.Winner.Name, out.Price, p.BasePrice)
	}

	printSummary(mgr.Summary())
	return nil
}

func printSummary(s *auction.EndSummary) {
	fmt.Println("\n=== Top purchases ===")
	for _, p := range s.TopPurchases {
		fmt.Printf("  %-25s %4dL  %s\n", p.Name, p.Price, p.Team)
	}

	fmt.Println("\n=== Franchises ===")
	for _, a := range s.TeamAnalysis {
		fmt.Printf("  %-6s players=%2d budget=%4dL bat=%d bowl=%d wk=%d ar=%d runs=%d wkts=%d rating=%d\n",
			a.Name, a.TotalPlayers, a.BudgetLeft, a.Batters, a.Bowlers, a.Keepers, a.AllRounders,
			a.TotalRuns, a.TotalWickets, a.Rating)
	}

	if len(s.Unsold) > 0 {
		fmt.Printf("\nUnsold: %v\n", s.Unsold)
	}
}

// rosterKey matches a canonical franchise name back to the roster map key.
func rosterKey(rosters map[string][]string, canonical string) string {
	for key := range rosters {
		if team.CanonicalName(key) == canonical {
			return key
		}
	}
	return ""
}
