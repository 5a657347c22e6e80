package site

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/torn-open/docsmith/internal/logfields"
	"github.com/torn-open/docsmith/internal/search"
)

// StageName identifies a build stage in logs, metrics and reports.
type StageName string

const (
	StagePrepare    StageName = "prepare"
	StageSyncSource StageName = "sync_source"
	StageDiscover   StageName = "discover"
	StageAPIRef     StageName = "apiref"
	StageRender     StageName = "render"
	StageThemeCopy  StageName = "theme_assets"
	StageSearch     StageName = "search"
	StageSitemap    StageName = "sitemap"
	StageManifest   StageName = "manifest"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *buildState) error

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// buildState carries mutable state across stages of one build.
type buildState struct {
	gen        *Generator
	stagingDir string
	docsDir    string // resolved after sync_source

	pages  []*Page
	assets []Asset

	searchDocs []search.Document
	manifest   *Manifest
	report     *BuildReport
}

// runStages executes stages in order, recording timing and stopping on the
// first error. A canceled context aborts before the next stage starts.
func runStages(ctx context.Context, bs *buildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			bs.gen.recorder.IncStageResult(string(st.Name), "canceled")
			return fmt.Errorf("stage %s: %w", st.Name, ctx.Err())
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)

		bs.report.StageDurations[string(st.Name)] = dur
		bs.gen.recorder.ObserveStageDuration(string(st.Name), dur)

		if err != nil {
			bs.gen.recorder.IncStageResult(string(st.Name), "fatal")
			slog.Error("Build stage failed",
				logfields.Stage(string(st.Name)),
				logfields.DurationMS(float64(dur.Milliseconds())),
				logfields.Error(err))
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}

		bs.gen.recorder.IncStageResult(string(st.Name), "success")
		slog.Debug("Build stage complete",
			logfields.Stage(string(st.Name)),
			logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return nil
}
