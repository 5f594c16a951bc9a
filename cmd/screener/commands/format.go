package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/creditgate/internal/contracts"
	"github.com/wonny/creditgate/internal/scan"
	"github.com/wonny/creditgate/internal/strikes"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command prints through these helpers
// ═══════════════════════════════════════════════════════════

const lineWidth = 78

// PrintHeader prints a boxed title with a subtitle line
func PrintHeader(title, subtitle string) {
	fmt.Println()
	fmt.Println("╔" + strings.Repeat("═", lineWidth) + "╗")
	fmt.Println("║" + center(title) + "║")
	if subtitle != "" {
		fmt.Println("║" + center(subtitle) + "║")
	}
	fmt.Println("╚" + strings.Repeat("═", lineWidth) + "╝")
}

// PrintSection prints a section title followed by a rule
func PrintSection(title string) {
	fmt.Println()
	fmt.Println(title)
	PrintSeparator()
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println(strings.Repeat("─", lineWidth+2))
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("\n⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("\n✅ %s\n", message)
}

func center(s string) string {
	n := len([]rune(s))
	if n >= lineWidth {
		return string([]rune(s)[:lineWidth])
	}
	left := (lineWidth - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", lineWidth-n-left)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}

func money(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("$%.2f", *v)
}

// PrintStatus prints the system state block with regime metrics and alerts
func PrintStatus(state contracts.SystemState, allow bool, regime *contracts.MarketRegimeMetrics, alerts []contracts.Alert) {
	PrintSection("SYSTEM STATUS")

	icon := "✓"
	if !allow {
		icon = "⚠"
	}
	fmt.Printf("  System State: %s %s\n", state, icon)
	fmt.Printf("  Allow New Trades: %s\n", yesNo(allow))

	if regime != nil && regime.SMA != nil && *regime.SMA != 0 {
		pct := (regime.Close - *regime.SMA) / *regime.SMA * 100
		fmt.Printf("\n  Market: $%.2f (SMA: $%.2f, %+.2f%%)\n", regime.Close, *regime.SMA, pct)
		fmt.Printf("  Volatility: %+.1f%% over the change window\n", regime.VolChange)
	}

	if len(alerts) > 0 {
		PrintSection("ALERTS")
		for _, a := range alerts {
			fmt.Printf("  [%s] %s\n", a.Severity, a.Message)
			if a.Action != "" {
				fmt.Printf("         → %s\n", a.Action)
			}
		}
	}
}

// PrintRun prints a full scan report
func PrintRun(res *scan.Result, showFailed bool) {
	run := res.Run
	PrintHeader("CREDIT SPREAD SCREENER", res.Date.Format("2006-01-02"))

	PrintStatus(run.SystemState, run.AllowNewTrades, &run.MarketRegime.Metrics, run.Alerts)
	printQualified(run)
	if showFailed {
		printFailed(run)
	}

	PrintSection("SCREENING RESULTS")
	fmt.Printf("  Tickers Screened: %d\n", len(run.TickersEvaluated))
	fmt.Printf("  Qualified: %d\n", len(run.Qualified))
	fmt.Printf("  Failed: %d\n", len(run.Failed))
	if len(res.FetchFailures) > 0 {
		fmt.Printf("  Fetch failures: %s\n", strings.Join(res.FetchFailures, ", "))
	}
	fmt.Printf("  Duration: %s\n", res.Duration.Round(time.Millisecond))

	if res.Saved {
		PrintSection("DATA SAVED")
		fmt.Printf("  Scan ID: %s\n", res.ScanID)
		fmt.Println("  Query history: go run ./cmd/screener history latest")
	}
	fmt.Println()
}

func printQualified(run *contracts.ScreeningRun) {
	if len(run.Qualified) == 0 {
		fmt.Println("\nNO QUALIFIED TICKERS")
		if !run.AllowNewTrades {
			fmt.Printf("  Reason: System is %s\n", run.SystemState)
		}
		return
	}

	PrintSection(fmt.Sprintf("QUALIFIED TICKERS (%d)", len(run.Qualified)))
	for _, ticker := range run.Qualified {
		v := run.Verdict(ticker)
		if v == nil || v.StructuralSafety == nil {
			fmt.Printf("\n  ✓ %s\n", ticker)
			continue
		}
		ss := v.StructuralSafety.Metrics
		fmt.Printf("\n  ✓ %s - $%.2f\n", ticker, ss.CurrentPrice)

		if ceil := ss.Support.SafeStrikeCeiling; ceil != nil && ss.CurrentPrice > 0 {
			discount := (ss.CurrentPrice - *ceil) / ss.CurrentPrice * 100
			fmt.Printf("    ├─ Max Safe Strike: $%.2f (%.1f%% below current)\n", *ceil, discount)
		}
		if v.RelativeStrength != nil {
			fmt.Printf("    ├─ Relative Strength: %+.1f%% vs market\n", v.RelativeStrength.Metrics.RelativeStrength)
		}

		var supports []string
		if ss.Support.MovingAverage != nil {
			supports = append(supports, "SMA ("+money(ss.Support.MovingAverage)+")")
		}
		if ss.Support.HigherLow != nil {
			supports = append(supports, "Higher Low ("+money(ss.Support.HigherLow)+")")
		}
		if ss.Support.Consolidation != nil {
			supports = append(supports, "Consolidation ("+money(ss.Support.Consolidation)+")")
		}
		if len(supports) > 0 {
			fmt.Printf("    ├─ Support: %s\n", strings.Join(supports, ", "))
		}

		iv := "N/A"
		if v.EventVolatility != nil && v.EventVolatility.Metrics.IVRank != nil {
			iv = fmt.Sprintf("%.0f", *v.EventVolatility.Metrics.IVRank)
		}
		fmt.Printf("    └─ IV Rank: %s\n", iv)
	}
}

func printFailed(run *contracts.ScreeningRun) {
	if len(run.Failed) == 0 {
		return
	}
	PrintSection(fmt.Sprintf("FAILED TICKERS (%d)", len(run.Failed)))
	for _, f := range run.Failed {
		fmt.Printf("  ✗ %s: %s\n", f.Ticker, f.Reason)
	}
}

// PrintSpreads prints ranked put credit spreads, best first
func PrintSpreads(s *strikes.Suggestion) {
	PrintSection(fmt.Sprintf("PUT CREDIT SPREADS: %s (%d of %d candidates, %d expirations)",
		s.Ticker, len(s.Spreads), s.TotalCandidates, s.ExpirationsScanned))
	fmt.Printf("  Support: $%.2f  Max Safe Strike: $%.2f\n\n", s.SupportLevel, s.MaxSafeStrike)

	fmt.Printf("  %-3s %-10s %4s %13s %7s %9s %7s %6s %9s %6s %6s\n",
		"#", "EXPIRY", "DTE", "SELL/BUY", "CREDIT", "MAX LOSS", "ROI", "POP", "BREAKEVEN", "BELOW", "SCORE")
	for i, sp := range s.Spreads {
		pop := "N/A"
		if sp.PoP != nil {
			pop = fmt.Sprintf("%.0f%%", *sp.PoP)
		}
		fmt.Printf("  %-3d %-10s %4d %13s %7.2f %9.0f %6.1f%% %6s %9.2f %6.2f %6.1f\n",
			i+1, sp.Expiration.Format("2006-01-02"), sp.DTE,
			fmt.Sprintf("%.1f/%.1f", sp.Sell.Strike, sp.Buy.Strike),
			sp.Credit, sp.MaxLossDollars, sp.ROI, pop, sp.Breakeven,
			sp.DistanceBelowSupport, sp.CompositeScore)
	}
	fmt.Println("\n  Credit per share; max loss per contract; BELOW is dollars under support")
}
