package site

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/torn-open/docsmith/internal/apiref"
	"github.com/torn-open/docsmith/internal/config"
	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/logfields"
	"github.com/torn-open/docsmith/internal/markdown"
	"github.com/torn-open/docsmith/internal/metrics"
	"github.com/torn-open/docsmith/internal/search"
	"github.com/torn-open/docsmith/internal/theme"
)

// Syncer fetches the documentation source tree before a build and returns
// its local path. Builds without a remote source run with a nil Syncer.
type Syncer interface {
	Sync(ctx context.Context) (string, error)
}

// Generator runs the staged site build.
type Generator struct {
	cfg      *config.Config
	theme    theme.Theme
	renderer *markdown.Renderer
	recorder metrics.Recorder
	syncer   Syncer

	searchStore *search.Store
	livereload  bool
}

// New creates a Generator for the given configuration. The configured theme
// must be registered.
func New(cfg *config.Config) (*Generator, error) {
	th, err := theme.Get(cfg.Theme.Name)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CategoryTheme, "resolve theme")
	}
	return &Generator{
		cfg:      cfg,
		theme:    th,
		renderer: markdown.NewRenderer(markdown.OptionsFromConfig(cfg.Extensions, cfg.AbsDocsDir())),
		recorder: metrics.NoopRecorder{},
	}, nil
}

// SetRecorder injects a metrics recorder. Returns the generator for chaining.
func (g *Generator) SetRecorder(r metrics.Recorder) *Generator {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	g.recorder = r
	return g
}

// SetSyncer injects the source syncer used by the sync_source stage.
func (g *Generator) SetSyncer(s Syncer) *Generator {
	g.syncer = s
	return g
}

// SetSearchStore injects the FTS store the search stage rebuilds.
func (g *Generator) SetSearchStore(s *search.Store) *Generator {
	g.searchStore = s
	return g
}

// SetLiveReload controls whether rendered pages embed the reload client.
func (g *Generator) SetLiveReload(enabled bool) *Generator {
	g.livereload = enabled
	return g
}

// Config exposes the underlying configuration.
func (g *Generator) Config() *config.Config { return g.cfg }

// Build runs all stages and atomically replaces the output directory on
// success. The returned report is non-nil even on failure.
func (g *Generator) Build(ctx context.Context) (*BuildReport, error) {
	buildID := uuid.NewString()
	report := newBuildReport(buildID)

	slog.Info("Starting site build",
		logfields.BuildID(buildID),
		logfields.Theme(g.theme.Name()),
		logfields.Path(g.cfg.AbsOutputDir()))

	bs := &buildState{
		gen:        g,
		stagingDir: g.cfg.AbsOutputDir() + ".staging",
		docsDir:    g.cfg.AbsDocsDir(),
		manifest:   newManifest(buildID, g.theme.Name()),
		report:     report,
	}

	stages := []StageDef{
		{StagePrepare, stagePrepare},
		{StageSyncSource, stageSyncSource},
		{StageDiscover, stageDiscover},
		{StageAPIRef, stageAPIRef},
		{StageRender, stageRender},
		{StageThemeCopy, stageThemeCopy},
		{StageSearch, stageSearch},
		{StageSitemap, stageSitemap},
		{StageManifest, stageManifest},
	}

	if err := runStages(ctx, bs, stages); err != nil {
		_ = os.RemoveAll(bs.stagingDir)
		outcome := "failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		report.finish(outcome, err)
		g.recorder.ObserveBuildDuration(report.Duration)
		g.recorder.IncBuildOutcome(outcome)
		return report, err
	}

	report.finish("success", nil)
	g.recorder.ObserveBuildDuration(report.Duration)
	g.recorder.IncBuildOutcome("success")

	slog.Info("Site build complete",
		logfields.BuildID(buildID),
		slog.Int("pages", report.Pages),
		slog.Int("assets", report.Assets),
		slog.Bool("changed", report.Changed),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

func stagePrepare(_ context.Context, bs *buildState) error {
	if err := os.RemoveAll(bs.stagingDir); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, "clear staging directory")
	}
	if err := os.MkdirAll(bs.stagingDir, 0o755); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, "create staging directory")
	}
	return nil
}

func stageSyncSource(ctx context.Context, bs *buildState) error {
	if bs.gen.syncer == nil {
		return nil
	}
	t0 := time.Now()
	root, err := bs.gen.syncer.Sync(ctx)
	bs.gen.recorder.ObserveSourceSyncDuration(time.Since(t0), err == nil)
	if err != nil {
		return err
	}
	bs.docsDir = filepath.Join(root, bs.gen.cfg.DocsDir)
	return nil
}

func stageDiscover(_ context.Context, bs *buildState) error {
	pages, assets, err := discover(bs.docsDir, bs.gen.cfg.Nav, os.ReadFile)
	if err != nil {
		return err
	}
	bs.pages = pages
	bs.assets = assets
	return nil
}

func stageAPIRef(_ context.Context, bs *buildState) error {
	cfg := bs.gen.cfg
	if cfg.Plugins.APIRef == nil {
		return nil
	}

	opts := apiref.Options{
		Section:          cfg.Plugins.APIRef.Section,
		ShowRootHeading:  cfg.Plugins.APIRef.ShowRootHeading,
		ShowSource:       cfg.Plugins.APIRef.ShowSource,
		ShowRootFullPath: cfg.Plugins.APIRef.ShowRootFullPath,
	}
	for _, p := range cfg.Plugins.APIRef.Paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cfg.BaseDir, p)
		}
		opts.Paths = append(opts.Paths, p)
	}

	generated, err := apiref.Generate(opts)
	if err != nil {
		return err
	}
	for _, ap := range generated {
		bs.pages = append(bs.pages, &Page{
			SourcePath: ap.Path,
			URL:        markdown.PageURL(ap.Path),
			OutputPath: markdown.OutputPath(ap.Path),
			NavTitle:   ap.Title,
			Body:       ap.Content,
			Generated:  true,
		})
	}
	slog.Info("API reference generated",
		logfields.Plugin(config.PluginAPIRef),
		slog.Int("pages", len(generated)))
	return nil
}

func stageRender(_ context.Context, bs *buildState) error {
	cfg := bs.gen.cfg
	searchEnabled := cfg.Plugins.Search != nil && bs.gen.theme.Features().SearchBox

	for _, page := range bs.pages {
		res, err := bs.gen.renderer.Render(page.Body, page.SourcePath)
		if err != nil {
			return derrors.Wrap(err, derrors.CategoryRender, "render page "+page.SourcePath)
		}
		page.HTML = res.HTML
		page.TOC = res.TOC
		page.Title = page.resolveTitle(res.Title)

		data := theme.PageData{
			SiteName:        cfg.SiteName,
			SiteDescription: cfg.SiteDescription,
			Title:           page.Title,
			Content:         template.HTML(page.HTML),
			TOC:             page.TOC,
			Nav:             buildNav(cfg.Nav, page),
			URL:             page.URL,
			SearchEnabled:   searchEnabled,
			LiveReload:      bs.gen.livereload,
		}

		var buf bytes.Buffer
		if err := bs.gen.theme.RenderPage(&buf, data); err != nil {
			return derrors.Wrap(err, derrors.CategoryTheme, "apply theme to "+page.SourcePath)
		}

		if err := writeOutput(bs, page.OutputPath, buf.Bytes()); err != nil {
			return err
		}

		if cfg.Plugins.Search != nil {
			bs.searchDocs = append(bs.searchDocs, search.DocumentsForPage(page.URL, page.Title, page.Body)...)
		}
	}
	bs.gen.recorder.AddPagesRendered(len(bs.pages))
	bs.report.Pages = len(bs.pages)

	for _, asset := range bs.assets {
		content, err := os.ReadFile(asset.AbsPath)
		if err != nil {
			return derrors.Wrap(err, derrors.CategoryFileSystem, "read asset "+asset.SourcePath)
		}
		if err := writeOutput(bs, asset.SourcePath, content); err != nil {
			return err
		}
	}
	bs.report.Assets = len(bs.assets)
	return nil
}

func stageThemeCopy(_ context.Context, bs *buildState) error {
	static := bs.gen.theme.Static()
	if static == nil {
		return nil
	}
	return fs.WalkDir(static, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(static, p)
		if err != nil {
			return derrors.Wrap(err, derrors.CategoryTheme, "read theme asset "+p)
		}
		return writeOutput(bs, filepath.ToSlash(filepath.Join("assets", p)), content)
	})
}

func stageSearch(ctx context.Context, bs *buildState) error {
	cfg := bs.gen.cfg
	if cfg.Plugins.Search == nil {
		return nil
	}

	indexPath := filepath.Join(bs.stagingDir, "search", "search_index.json")
	if err := search.WriteIndex(indexPath, bs.searchDocs); err != nil {
		return derrors.Wrap(err, derrors.CategoryPlugin, "search index")
	}
	content, err := os.ReadFile(indexPath)
	if err != nil {
		return derrors.Wrap(err, derrors.CategoryPlugin, "search index")
	}
	bs.manifest.Record("search/search_index.json", content)

	if bs.gen.searchStore != nil {
		if err := bs.gen.searchStore.Rebuild(ctx, bs.searchDocs); err != nil {
			return derrors.Wrap(err, derrors.CategoryPlugin, "search store")
		}
	}

	slog.Info("Search index written",
		logfields.Plugin(config.PluginSearch),
		slog.Int("documents", len(bs.searchDocs)))
	return nil
}

func stageSitemap(_ context.Context, bs *buildState) error {
	if bs.gen.cfg.SiteURL == "" {
		return nil
	}
	content := renderSitemap(bs.gen.cfg.SiteURL, bs.pages)
	return writeOutput(bs, "sitemap.xml", content)
}

func stageManifest(_ context.Context, bs *buildState) error {
	bs.manifest.Finalize()
	bs.report.SiteHash = bs.manifest.SiteHash

	previous, err := LoadManifest(bs.gen.cfg.AbsOutputDir())
	if err != nil {
		slog.Warn("Previous manifest unreadable", logfields.Error(err))
	}
	bs.report.Changed = previous == nil || previous.SiteHash != bs.manifest.SiteHash

	if err := bs.manifest.Write(bs.stagingDir); err != nil {
		return err
	}

	// Atomic swap: the served tree is never half-written.
	outputDir := bs.gen.cfg.AbsOutputDir()
	if err := os.RemoveAll(outputDir); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, "clear output directory")
	}
	if err := os.Rename(bs.stagingDir, outputDir); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, "promote staging directory")
	}
	return nil
}

// writeOutput writes one file into staging and records its hash.
func writeOutput(bs *buildState, relPath string, content []byte) error {
	full := filepath.Join(bs.stagingDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, "create output directory for "+relPath)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return derrors.Wrap(err, derrors.CategoryFileSystem, "write "+relPath)
	}
	bs.manifest.Record(relPath, content)
	return nil
}
