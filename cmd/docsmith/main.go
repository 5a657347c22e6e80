package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/torn-open/docsmith/internal/config"
	"github.com/torn-open/docsmith/internal/daemon"
	"github.com/torn-open/docsmith/internal/gitsync"
	"github.com/torn-open/docsmith/internal/linkcheck"
	"github.com/torn-open/docsmith/internal/logfields"
	"github.com/torn-open/docsmith/internal/site"
	"github.com/torn-open/docsmith/internal/theme"
	"github.com/torn-open/docsmith/internal/version"

	_ "github.com/torn-open/docsmith/internal/theme/readthedocs"
	_ "github.com/torn-open/docsmith/internal/theme/slate"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docsmith.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Build struct {
	} `cmd:"" help:"Build the documentation site once"`

	Serve struct {
		Port int `short:"p" help:"Port for the preview server" default:"8000"`
	} `cmd:"" help:"Build the site, watch for changes and serve it with live reload"`

	Check struct {
	} `cmd:"" help:"Build the site and verify internal links and anchors"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Daemon struct {
	} `cmd:"" help:"Run the build daemon with the configured watch, schedule and event settings"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("docsmith"),
		kong.Description("Static documentation site generator"),
		kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "serve":
		err = runServe(CLI.Serve.Port)
	case "check":
		err = runCheck()
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	case "daemon":
		err = runDaemon()
	}
	if err != nil {
		slog.Error("Command failed", logfields.Error(err))
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}

	errs := cfg.Validate(config.ValidateOptions{ThemeKnown: theme.IsRegistered})
	for _, e := range errs {
		slog.Error("Configuration invalid", logfields.Error(e))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration has %d problem(s)", len(errs))
	}
	return cfg, nil
}

func newGenerator(cfg *config.Config) (*site.Generator, error) {
	gen, err := site.New(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Source != nil {
		workDir := filepath.Join(cfg.BaseDir, ".docsmith", "source")
		gen.SetSyncer(gitsync.NewClient(workDir, *cfg.Source))
	}
	return gen, nil
}

func runBuild() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := gen.Build(ctx)
	if err != nil {
		return err
	}
	slog.Info("Build succeeded",
		slog.Int("pages", report.Pages),
		slog.Int("assets", report.Assets),
		logfields.Path(cfg.AbsOutputDir()))
	return nil
}

// runServe is the local preview: watch, rebuild and livereload regardless of
// whether the configuration carries a daemon section.
func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Daemon == nil {
		cfg.Daemon = &config.DaemonConfig{}
	}
	cfg.Daemon.Watch = true
	cfg.Daemon.HTTP.Port = port

	return runDaemonLoop(cfg)
}

func runCheck() error {
	if err := runBuild(); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	issues, err := linkcheck.CheckSite(cfg.AbsOutputDir())
	if err != nil {
		return err
	}
	for _, issue := range issues {
		slog.Error("Broken link",
			logfields.Path(issue.Page),
			logfields.URL(issue.Link),
			slog.String("reason", issue.Reason))
	}
	if len(issues) > 0 {
		return fmt.Errorf("%d broken link(s)", len(issues))
	}
	slog.Info("All internal links verified")
	return nil
}

func runInit(configPath string, force bool) error {
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	slog.Info("Configuration created", logfields.Path(configPath))
	return nil
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return runDaemonLoop(cfg)
}

func runDaemonLoop(cfg *config.Config) error {
	d, err := daemon.New(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return d.Run(ctx)
}
