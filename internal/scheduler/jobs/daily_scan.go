package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/creditgate/internal/scan"
	"github.com/wonny/creditgate/pkg/logger"
)

// Scanner runs one scan (satisfied by *scan.Service)
type Scanner interface {
	Run(ctx context.Context, req scan.Request) (*scan.Result, error)
}

// DailyScanJob screens the configured universe after the close and saves the run
// ⭐ SSOT: the scheduled scan is registered here only
type DailyScanJob struct {
	scanner  Scanner
	schedule string
	logger   *logger.Logger
}

// NewDailyScanJob creates the job; schedule is a cron expression with seconds
func NewDailyScanJob(scanner Scanner, schedule string, log *logger.Logger) *DailyScanJob {
	return &DailyScanJob{
		scanner:  scanner,
		schedule: schedule,
		logger:   log.WithField("job", "daily_scan"),
	}
}

// Name returns the job name
func (j *DailyScanJob) Name() string {
	return "daily_scan"
}

// Schedule returns the cron schedule
func (j *DailyScanJob) Schedule() string {
	return j.schedule
}

// Run executes the scan with persistence enabled
func (j *DailyScanJob) Run(ctx context.Context) error {
	res, err := j.scanner.Run(ctx, scan.Request{Save: true})
	if err != nil {
		return fmt.Errorf("daily scan: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"scan_id":   res.ScanID.String(),
		"state":     string(res.Run.SystemState),
		"qualified": len(res.Run.Qualified),
		"saved":     res.Saved,
	}).Info("Scheduled scan finished")

	return nil
}
