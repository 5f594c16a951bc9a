package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/creditgate/internal/scan"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [TICKER...]",
	Short: "Screen tickers through the four gates",
	Long: `Runs one screening pass.

Tickers come from, in order: positional arguments, --tickers, --file
(one ticker per line, # comments allowed), then the configured watchlist.

Run after the market close for complete daily bars.

Example:
  go run ./cmd/screener scan AAPL MSFT GOOGL
  go run ./cmd/screener scan --file watchlist.txt --save
  go run ./cmd/screener scan --date 2025-06-02 --failed`,
	RunE: runScan,
}

var (
	scanTickers    []string
	scanFile       string
	scanDate       string
	scanSave       bool
	scanShowFailed bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanTickers, "tickers", nil, "comma-separated tickers")
	scanCmd.Flags().StringVar(&scanFile, "file", "", "watchlist file")
	scanCmd.Flags().StringVar(&scanDate, "date", "", "as-of date YYYY-MM-DD (default today)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "persist the run to the database")
	scanCmd.Flags().BoolVar(&scanShowFailed, "failed", true, "list failed tickers with reasons")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tickers := append(append([]string{}, args...), scanTickers...)
	if len(tickers) == 0 && scanFile != "" {
		var err error
		if tickers, err = readWatchlist(scanFile); err != nil {
			return err
		}
	}

	req := scan.Request{Tickers: tickers, Save: scanSave}
	if scanDate != "" {
		d, err := time.Parse("2006-01-02", scanDate)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", scanDate)
		}
		req.Date = &d
	}

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(req.Tickers) == 0 && len(a.scan.Settings().Tickers) == 0 {
		return fmt.Errorf("no tickers: pass them as arguments, --tickers, --file or SCREEN_TICKERS")
	}

	res, err := a.scan.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	PrintRun(res, scanShowFailed)
	return nil
}

// readWatchlist reads one ticker per line, skipping blanks and # comments
func readWatchlist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()

	var tickers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tickers = append(tickers, strings.ToUpper(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no tickers found in %s", path)
	}
	return tickers, nil
}
