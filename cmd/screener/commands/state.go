package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show the current system state (RISK_ON / REDUCED_RISK / RISK_OFF)",
	Long: `Fetches the market and volatility series and evaluates the market regime
gate and the market-wide failure modes, without screening any ticker.

Example:
  go run ./cmd/screener state`,
	RunE: runState,
}

var strikesCmd = &cobra.Command{
	Use:   "strikes TICKER",
	Short: "Suggest the safe short-put strike zone for a ticker",
	Long: `Computes the support levels of a ticker and the highest strike that sits
below all of them. With --strike, also checks that strike. With --spreads,
ranks 30-45 DTE put credit spreads from the live Tradier chain whose short
strike sits at or below that ceiling.

Example:
  go run ./cmd/screener strikes AAPL
  go run ./cmd/screener strikes AAPL --strike 180
  go run ./cmd/screener strikes AAPL --spreads --top 3 --width 10`,
	Args: cobra.ExactArgs(1),
	RunE: runStrikes,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check database, redis and Tradier connectivity",
	RunE:  runStatus,
}

var (
	strikeValue  float64
	showSpreads  bool
	spreadsTop   int
	spreadsWidth float64
)

func init() {
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(strikesCmd)
	rootCmd.AddCommand(statusCmd)

	strikesCmd.Flags().Float64Var(&strikeValue, "strike", 0, "strike to check against the support levels")
	strikesCmd.Flags().BoolVar(&showSpreads, "spreads", false, "rank put credit spreads from the live option chain")
	strikesCmd.Flags().IntVar(&spreadsTop, "top", 0, "number of spreads to show (default from strategy)")
	strikesCmd.Flags().Float64Var(&spreadsWidth, "width", 0, "spread width in dollars (default from strategy)")
}

func runState(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.scan.Status(ctx, true)
	if err != nil {
		return fmt.Errorf("system state: %w", err)
	}

	PrintHeader("SYSTEM STATE", time.Now().Format("2006-01-02 15:04:05"))
	PrintStatus(status.State, status.AllowNewTrades, status.Regime, status.Alerts)
	if status.Message != "" {
		fmt.Printf("\n  %s\n", status.Message)
	}
	fmt.Println()
	return nil
}

func runStrikes(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	rng, check, err := a.scan.Strikes(ctx, args[0], strikeValue)
	if err != nil {
		return err
	}

	PrintSection(fmt.Sprintf("STRIKE ZONE: %s", rng.Ticker))
	fmt.Printf("  Current Price:   $%.2f\n", rng.CurrentPrice)
	fmt.Printf("  Max Safe Strike: %s\n", money(rng.MaxSafeStrike))
	if rng.DiscountPct != nil {
		fmt.Printf("  Discount:        %.1f%% below current\n", *rng.DiscountPct)
	}

	if check != nil {
		PrintSection(fmt.Sprintf("STRIKE CHECK: $%.2f", strikeValue))
		if check.Passed {
			fmt.Println("  ✓ Below every support level")
		}
		for _, reason := range check.FailureReasons {
			fmt.Printf("  ✗ %s\n", reason)
		}
		s := check.Metrics.Support
		fmt.Printf("\n  SMA: %s  Higher Low: %s  Consolidation: %s\n",
			money(s.MovingAverage), money(s.HigherLow), money(s.Consolidation))
		if s.MinStrikeDistance != nil {
			fmt.Printf("  Min distance (ATR): %s\n", money(s.MinStrikeDistance))
		}
	}

	if showSpreads {
		suggestion, err := a.scan.Spreads(ctx, args[0], spreadsTop, spreadsWidth)
		if err != nil {
			return fmt.Errorf("rank spreads: %w", err)
		}
		PrintSpreads(suggestion)
	}
	fmt.Println()
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	PrintHeader("SYSTEM HEALTH", "")

	PrintSection("DATABASE")
	health, err := a.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("  ✗ %v\n", err)
	} else {
		fmt.Printf("  Healthy: %s (%s)\n", yesNo(health.Healthy), health.ResponseTime.Round(time.Millisecond))
		fmt.Printf("  Schema ready: %s\n", yesNo(health.SchemaReady))
		fmt.Printf("  Connections: %d/%d\n", health.Stats.TotalConns, health.Stats.MaxConns)
	}

	PrintSection("REDIS")
	fmt.Printf("  Enabled: %s\n", yesNo(a.redis.Enabled()))

	PrintSection("TRADIER")
	if !a.cfg.Tradier.Enabled() {
		fmt.Println("  Not configured (TRADIER_API_KEY)")
	} else if err := a.tradier.Ping(ctx); err != nil {
		fmt.Printf("  ✗ %v\n", err)
	} else {
		fmt.Println("  ✓ Reachable")
	}
	fmt.Printf("  Circuit breaker: %s\n", a.http.BreakerState())

	PrintSection("BAR STORE")
	if symbols, err := a.bars.Symbols(ctx); err != nil {
		fmt.Printf("  ✗ %v\n", err)
	} else {
		fmt.Printf("  Symbols stored: %d\n", len(symbols))
	}
	for _, sym := range []string{a.strategy.Screener.MarketSymbol, a.strategy.Screener.VolatilitySymbol} {
		latest, err := a.bars.LatestDate(ctx, sym)
		switch {
		case err != nil:
			fmt.Printf("  %s: ✗ %v\n", sym, err)
		case latest == nil:
			fmt.Printf("  %s: no bars\n", sym)
		default:
			fmt.Printf("  %s: through %s\n", sym, latest.Format("2006-01-02"))
		}
	}

	if latest, err := a.history.GetLatestRun(ctx); err == nil {
		PrintSection("LAST SCAN")
		fmt.Printf("  %s  %s  %d/%d qualified\n",
			latest.ScanDate.Format("2006-01-02"), latest.SystemState, latest.QualifiedCount, latest.TickersTotal)
	}
	fmt.Println()
	return nil
}
