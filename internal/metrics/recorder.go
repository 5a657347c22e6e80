// Package metrics defines observability hooks for builds and serving.
package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines the metric hooks the build and serve paths call.
// Implementations may forward to Prometheus or anything else; NoopRecorder
// is the default when monitoring is not configured.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncBuildOutcome(outcome string) // success|failed|canceled
	AddPagesRendered(n int)
	ObserveSourceSyncDuration(d time.Duration, success bool)
	IncSearchQuery()
	SetLiveReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)      {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)              {}
func (NoopRecorder) IncStageResult(string, ResultLabel)              {}
func (NoopRecorder) IncBuildOutcome(string)                          {}
func (NoopRecorder) AddPagesRendered(int)                            {}
func (NoopRecorder) ObserveSourceSyncDuration(time.Duration, bool)   {}
func (NoopRecorder) IncSearchQuery()                                 {}
func (NoopRecorder) SetLiveReloadClients(int)                        {}
