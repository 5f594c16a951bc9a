package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/creditgate/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query stored screening runs",
	Long: `Reads the runs saved by 'scan --save', the scheduler or the API.

Subcommands:
  latest          - most recent run
  date DATE       - run on DATE (YYYY-MM-DD)
  qualified DATE  - tickers that qualified on DATE
  ticker TICKER   - one ticker's results over --days
  summary         - qualification rate per ticker over --days
  states          - daily system state over --days
  alerts DATE     - failure-mode alerts raised on DATE
  export          - CSV of every ticker result over --days`,
}

var (
	historyDays int
	exportOut   string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.PersistentFlags().IntVar(&historyDays, "days", 90, "look-back window in calendar days")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Show the most recent run",
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			run, err := repo.GetLatestRun(ctx)
			if err != nil {
				return err
			}
			printStoredRun(run)
			return nil
		}),
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "date DATE",
		Short: "Show the run stored for DATE",
		Args:  cobra.ExactArgs(1),
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			date, err := parseDay(args[0])
			if err != nil {
				return err
			}
			run, err := repo.GetRunByDate(ctx, date)
			if err != nil {
				return err
			}
			printStoredRun(run)
			return nil
		}),
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "qualified DATE",
		Short: "List the tickers that qualified on DATE",
		Args:  cobra.ExactArgs(1),
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			date, err := parseDay(args[0])
			if err != nil {
				return err
			}
			tickers, err := repo.GetQualifiedTickers(ctx, date)
			if err != nil {
				return err
			}
			PrintSection(fmt.Sprintf("QUALIFIED %s (%d)", date.Format("2006-01-02"), len(tickers)))
			if len(tickers) > 0 {
				fmt.Printf("  %s\n", strings.Join(tickers, ", "))
			}
			return nil
		}),
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "ticker TICKER",
		Short: "Show one ticker's results",
		Args:  cobra.ExactArgs(1),
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			ticker := strings.ToUpper(args[0])
			results, err := repo.GetTickerHistory(ctx, ticker, since())
			if err != nil {
				return err
			}

			PrintSection(fmt.Sprintf("%s - LAST %d DAYS (%d scans)", ticker, historyDays, len(results)))
			for _, r := range results {
				mark, reason := "✓", "qualified"
				if !r.Qualified {
					mark, reason = "✗", r.FailureReason
				}
				fmt.Printf("  %s %s  %s\n", r.ScanDate.Format("2006-01-02"), mark, reason)
			}
			return nil
		}),
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Rank tickers by qualification rate",
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			stats, err := repo.GetQualificationSummary(ctx, since())
			if err != nil {
				return err
			}

			PrintSection(fmt.Sprintf("QUALIFICATION SUMMARY - LAST %d DAYS", historyDays))
			fmt.Printf("  %-8s %8s %10s %7s  %s\n", "TICKER", "SCREENED", "QUALIFIED", "RATE", "LAST QUALIFIED")
			for _, s := range stats {
				last := "-"
				if s.LastQualified != nil {
					last = s.LastQualified.Format("2006-01-02")
				}
				fmt.Printf("  %-8s %8d %10d %6.1f%%  %s\n", s.Ticker, s.TimesScreened, s.TimesQualified, s.QualificationRate, last)
			}
			return nil
		}),
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "states",
		Short: "Show the daily system state",
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			states, err := repo.GetSystemStateHistory(ctx, since())
			if err != nil {
				return err
			}

			PrintSection(fmt.Sprintf("SYSTEM STATE - LAST %d DAYS", historyDays))
			for _, s := range states {
				fmt.Printf("  %s  %-12s trades:%-3s %d/%d qualified\n",
					s.ScanDate.Format("2006-01-02"), s.SystemState, yesNo(s.AllowNewTrades), s.QualifiedCount, s.TickersTotal)
			}
			return nil
		}),
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "alerts DATE",
		Short: "Show the alerts raised on DATE",
		Args:  cobra.ExactArgs(1),
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			date, err := parseDay(args[0])
			if err != nil {
				return err
			}
			alerts, err := repo.GetAlertsForDate(ctx, date)
			if err != nil {
				return err
			}

			PrintSection(fmt.Sprintf("ALERTS %s (%d)", date.Format("2006-01-02"), len(alerts)))
			for _, a := range alerts {
				target := string(a.Source)
				if a.Ticker != "" {
					target = a.Ticker
				}
				fmt.Printf("  [%s] %-10s %s\n", a.Severity, target, a.Message)
			}
			return nil
		}),
	})

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export ticker results as CSV",
		RunE: withHistory(func(ctx context.Context, repo *history.Repository, args []string) error {
			var w io.Writer = os.Stdout
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create %s: %w", exportOut, err)
				}
				defer f.Close()
				w = f
			}

			n, err := repo.ExportCSV(ctx, w, since())
			if err != nil {
				return err
			}
			if exportOut != "" {
				PrintSuccess(fmt.Sprintf("Exported %d rows to %s", n, exportOut))
			}
			return nil
		}),
	}
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	historyCmd.AddCommand(exportCmd)
}

// withHistory wires only what history queries need: config, logger and the pool
func withHistory(fn func(ctx context.Context, repo *history.Repository, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if historyDays < 1 {
			return fmt.Errorf("--days must be >= 1")
		}

		ctx := context.Background()
		db, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		return fn(ctx, history.NewRepository(db.Pool), args)
	}
}

func printStoredRun(run *history.StoredRun) {
	PrintHeader("STORED SCAN", run.ScanDate.Format("2006-01-02"))
	PrintStatus(run.SystemState, run.AllowNewTrades, nil, run.Alerts)

	qualified := run.Qualified()
	PrintSection(fmt.Sprintf("QUALIFIED TICKERS (%d)", len(qualified)))
	if len(qualified) > 0 {
		fmt.Printf("  %s\n", strings.Join(qualified, ", "))
	}

	failed := run.TickersTotal - run.QualifiedCount
	PrintSection(fmt.Sprintf("FAILED TICKERS (%d)", failed))
	for _, r := range run.Results {
		if !r.Qualified {
			fmt.Printf("  ✗ %s: %s\n", r.Ticker, r.FailureReason)
		}
	}

	fmt.Printf("\n  Scan ID: %s  Config: %.12s  Saved: %s\n",
		run.ScanID, run.ConfigHash, run.CreatedAt.Format(time.RFC3339))
}

func since() time.Time {
	return time.Now().UTC().AddDate(0, 0, -historyDays)
}

func parseDay(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}
