package history

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

var exportHeader = []string{"scan_date", "ticker", "passed", "failure_reason", "system_state"}

// ExportCSV writes every ticker result since the given date as CSV
func (r *Repository) ExportCSV(ctx context.Context, w io.Writer, since time.Time) (int, error) {
	rows, err := r.GetExportRows(ctx, since)
	if err != nil {
		return 0, err
	}
	if err := WriteCSV(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// WriteCSV writes rows with a header line; passed is 1 or 0
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		passed := "0"
		if row.Qualified {
			passed = "1"
		}
		record := []string{
			row.ScanDate.Format("2006-01-02"),
			row.Ticker,
			passed,
			row.FailureReason,
			string(row.SystemState),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.Ticker, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// rankStats fills in rates and orders by rate, then times qualified, then ticker
func rankStats(stats []QualificationStat) []QualificationStat {
	for i := range stats {
		if stats[i].TimesScreened > 0 {
			rate := float64(stats[i].TimesQualified) / float64(stats[i].TimesScreened) * 100
			stats[i].QualificationRate = math.Round(rate*10) / 10
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		a, b := stats[i], stats[j]
		if a.QualificationRate != b.QualificationRate {
			return a.QualificationRate > b.QualificationRate
		}
		if a.TimesQualified != b.TimesQualified {
			return a.TimesQualified > b.TimesQualified
		}
		return a.Ticker < b.Ticker
	})

	if stats == nil {
		stats = []QualificationStat{}
	}
	return stats
}
