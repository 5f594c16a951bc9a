package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/creditgate/internal/scheduler"
	"github.com/wonny/creditgate/pkg/logger"
)

// JobRunner exposes scheduled jobs (satisfied by *scheduler.Scheduler)
type JobRunner interface {
	GetJobStats() map[string]scheduler.JobStats
	RunJob(name string) error
}

// JobsHandler lists scheduled jobs and triggers them on demand
type JobsHandler struct {
	runner JobRunner
	logger *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(runner JobRunner, log *logger.Logger) *JobsHandler {
	return &JobsHandler{
		runner: runner,
		logger: log.WithField("handler", "jobs"),
	}
}

// ListJobs returns per-job statistics
// GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	respondData(w, h.runner.GetJobStats())
}

// TriggerJob starts a job in the background
// POST /api/jobs/{name}/run
func (h *JobsHandler) TriggerJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.runner.RunJob(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.WithField("job", name).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"job":     name,
	})
}
