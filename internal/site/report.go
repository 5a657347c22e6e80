package site

import (
	"time"
)

// BuildReport summarizes one build for logging, events and build history.
type BuildReport struct {
	BuildID    string                   `json:"build_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Duration   time.Duration            `json:"duration"`
	Outcome    string                   `json:"outcome"` // success|failed|canceled
	Error      string                   `json:"error,omitempty"`

	Pages  int `json:"pages"`
	Assets int `json:"assets"`

	SiteHash string `json:"site_hash"`
	// Changed is false when the site hash matches the previous build, i.e.
	// the output is byte-identical.
	Changed bool `json:"changed"`

	StageDurations map[string]time.Duration `json:"stage_durations"`
}

func newBuildReport(buildID string) *BuildReport {
	return &BuildReport{
		BuildID:        buildID,
		StartedAt:      time.Now(),
		StageDurations: map[string]time.Duration{},
	}
}

func (r *BuildReport) finish(outcome string, err error) {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
	r.Outcome = outcome
	if err != nil {
		r.Error = err.Error()
	}
}
