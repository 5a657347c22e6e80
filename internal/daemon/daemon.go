// Package daemon runs the watch-build-serve loop: filesystem watching,
// debounced rebuilds, scheduled rebuilds, livereload and the preview server.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/torn-open/docsmith/internal/config"
	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/events"
	"github.com/torn-open/docsmith/internal/gitsync"
	"github.com/torn-open/docsmith/internal/logfields"
	"github.com/torn-open/docsmith/internal/metrics"
	"github.com/torn-open/docsmith/internal/search"
	"github.com/torn-open/docsmith/internal/server"
	"github.com/torn-open/docsmith/internal/site"
	"github.com/torn-open/docsmith/internal/watch"
)

const (
	defaultQuietWindow = 300 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// Daemon owns the long-running pieces and coordinates them over the event
// bus: watcher and scheduler publish build requests, the debouncer coalesces
// them into BuildNow, and the build loop runs the generator.
type Daemon struct {
	cfg *config.Config
	gen *site.Generator
	bus *events.Bus

	recorder       metrics.Recorder
	metricsHandler http.Handler
	livereload     *server.LiveReloadHub
	searchStore    *search.Store
	history        *events.HistoryStore
	publisher      *events.NATSPublisher
	scheduler      *Scheduler

	buildRunning atomic.Bool
	ready        chan struct{}
}

// New wires a daemon from configuration. The configuration must carry a
// daemon section.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg.Daemon == nil {
		return nil, derrors.ValidationError("daemon configuration is required")
	}

	d := &Daemon{
		cfg:      cfg,
		bus:      events.NewBus(),
		recorder: metrics.NoopRecorder{},
		ready:    make(chan struct{}),
	}

	if cfg.Monitoring != nil && cfg.Monitoring.MetricsEnabled {
		pr := metrics.NewPrometheusRecorder(nil)
		d.recorder = pr
		d.metricsHandler = pr.Handler()
	}
	d.livereload = server.NewLiveReloadHub(d.recorder)

	if cfg.Plugins.Search != nil {
		store, err := search.NewStore(anchored(cfg.BaseDir, cfg.Plugins.Search.IndexDB))
		if err != nil {
			d.close()
			return nil, err
		}
		d.searchStore = store
	}

	gen, err := site.New(cfg)
	if err != nil {
		d.close()
		return nil, err
	}
	gen.SetRecorder(d.recorder).SetLiveReload(true).SetSearchStore(d.searchStore)
	if cfg.Source != nil {
		workDir := filepath.Join(cfg.BaseDir, ".docsmith", "source")
		gen.SetSyncer(gitsync.NewClient(workDir, *cfg.Source))
	}
	d.gen = gen

	if cfg.Daemon.HistoryDB != "" {
		history, err := events.NewHistoryStore(anchored(cfg.BaseDir, cfg.Daemon.HistoryDB))
		if err != nil {
			d.close()
			return nil, err
		}
		d.history = history
	}

	if cfg.Daemon.Events.NATSURL != "" {
		publisher, err := events.NewNATSPublisher(cfg.Daemon.Events)
		if err != nil {
			d.close()
			return nil, err
		}
		d.publisher = publisher
	}

	return d, nil
}

// Bus exposes the event bus for external subscribers.
func (d *Daemon) Bus() *events.Bus { return d.bus }

// Ready is closed once the initial build finished and the server is up.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }

// Run builds once, then serves and rebuilds until the context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer d.close()

	buildCh, unsubscribe := events.Subscribe[events.BuildNow](d.bus, 16)
	defer unsubscribe()

	if d.cfg.Daemon.Watch {
		if err := d.startWatcher(ctx); err != nil {
			return err
		}
	}
	// The debouncer turns BuildRequested into BuildNow, so it must run for
	// scheduled rebuilds too, not just watch mode.
	if d.cfg.Daemon.Watch || d.cfg.Daemon.RebuildInterval != "" {
		if err := d.startDebouncer(ctx); err != nil {
			return err
		}
	}
	if err := d.startScheduler(); err != nil {
		return err
	}

	d.runBuild(ctx, "startup")

	opts := server.Options{
		SiteDir:        d.cfg.AbsOutputDir(),
		Port:           d.cfg.Daemon.HTTP.Port,
		SearchStore:    d.searchStore,
		LiveReload:     d.livereload,
		Recorder:       d.recorder,
		MetricsHandler: d.metricsHandler,
	}
	if d.cfg.Monitoring != nil {
		opts.MetricsPath = d.cfg.Monitoring.MetricsPath
		opts.HealthPath = d.cfg.Monitoring.HealthPath
	}
	srv := server.New(opts)
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	close(d.ready)
	slog.Info("Daemon running",
		slog.Int("port", d.cfg.Daemon.HTTP.Port),
		slog.Bool("watch", d.cfg.Daemon.Watch))

	for {
		select {
		case <-ctx.Done():
			return <-serverErr

		case err := <-serverErr:
			if err != nil {
				return derrors.Wrap(err, derrors.CategoryDaemon, "preview server")
			}
			return nil

		case evt, ok := <-buildCh:
			if !ok {
				return nil
			}
			d.runBuild(ctx, evt.Reason)
		}
	}
}

func (d *Daemon) startWatcher(ctx context.Context) error {
	watcher, err := watch.NewWatcher(d.bus, d.watchRoots())
	if err != nil {
		return err
	}
	go func() { _ = watcher.Run(ctx) }()
	return nil
}

func (d *Daemon) startDebouncer(ctx context.Context) error {
	debouncer, err := watch.NewDebouncer(d.bus, watch.DebouncerConfig{
		QuietWindow:       defaultQuietWindow,
		MaxDelay:          defaultMaxDelay,
		CheckBuildRunning: d.buildRunning.Load,
	})
	if err != nil {
		return err
	}
	go func() { _ = debouncer.Run(ctx) }()
	<-debouncer.Ready()
	return nil
}

func (d *Daemon) startScheduler() error {
	if d.cfg.Daemon.RebuildInterval == "" {
		return nil
	}
	interval, err := time.ParseDuration(d.cfg.Daemon.RebuildInterval)
	if err != nil {
		return derrors.ValidationError("invalid rebuild_interval: " + err.Error())
	}

	scheduler, err := NewScheduler(d.bus)
	if err != nil {
		return err
	}
	if _, err := scheduler.SchedulePeriodicRebuild(interval); err != nil {
		return err
	}
	scheduler.Start()
	d.scheduler = scheduler

	slog.Info("Periodic rebuild scheduled", slog.Duration("interval", interval))
	return nil
}

// watchRoots covers the docs tree plus any API-reference source directories.
func (d *Daemon) watchRoots() []string {
	roots := []string{d.cfg.AbsDocsDir()}
	if d.cfg.Plugins.APIRef != nil {
		for _, p := range d.cfg.Plugins.APIRef.Paths {
			roots = append(roots, anchored(d.cfg.BaseDir, p))
		}
	}
	return roots
}

// runBuild executes one build and fans the result out to the bus, the
// history store, NATS and livereload.
func (d *Daemon) runBuild(ctx context.Context, reason string) {
	d.buildRunning.Store(true)
	defer d.buildRunning.Store(false)

	slog.Info("Build triggered", slog.String("reason", reason))
	report, err := d.gen.Build(ctx)

	evt := events.BuildFinished{
		BuildID:  report.BuildID,
		Outcome:  report.Outcome,
		Changed:  report.Changed,
		SiteHash: report.SiteHash,
		Pages:    report.Pages,
		Duration: report.Duration,
		At:       time.Now(),
	}
	if err != nil {
		evt.Error = err.Error()
		slog.Error("Build failed", logfields.BuildID(report.BuildID), logfields.Error(err))
	}

	if pubErr := d.bus.Publish(ctx, evt); pubErr != nil {
		slog.Warn("Build event not delivered", logfields.Error(pubErr))
	}
	if d.history != nil {
		if histErr := d.history.Append(ctx, evt); histErr != nil {
			slog.Warn("Build history append failed", logfields.Error(histErr))
		}
	}
	if d.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if natsErr := d.publisher.PublishBuildFinished(pubCtx, evt); natsErr != nil {
			slog.Warn("Build event publish to NATS failed", logfields.Error(natsErr))
		}
		cancel()
	}

	if err == nil && report.Changed {
		d.livereload.Broadcast(report.SiteHash)
	}
}

func (d *Daemon) close() {
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
		d.scheduler = nil
	}
	if d.publisher != nil {
		d.publisher.Close()
		d.publisher = nil
	}
	if d.history != nil {
		_ = d.history.Close()
		d.history = nil
	}
	if d.searchStore != nil {
		_ = d.searchStore.Close()
		d.searchStore = nil
	}
	d.livereload.Close()
	d.bus.Close()
}

func anchored(baseDir, p string) string {
	if filepath.IsAbs(p) || baseDir == "" {
		return p
	}
	return filepath.Join(baseDir, p)
}
