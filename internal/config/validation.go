package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	derrors "github.com/torn-open/docsmith/internal/errors"
)

// ValidateOptions parameterizes Validate with knowledge the config package
// does not own (the theme registry lives in internal/theme).
type ValidateOptions struct {
	// ThemeKnown reports whether a theme name is registered.
	ThemeKnown func(name string) bool
}

// Validate checks the structural properties of the configuration:
//
//  1. every nav path resolves to an existing file under docs_dir,
//  2. the theme name is recognized,
//  3. plugin option paths (apiref sources) exist,
//  4. daemon durations parse.
//
// Extension and plugin identifiers are validated during YAML decoding, so an
// unrecognized name never reaches Validate. All findings are returned; the
// first slot is not special.
func (c *Config) Validate(opts ValidateOptions) []error {
	var errs []error

	if c.SiteName == "" {
		errs = append(errs, derrors.ValidationError("site_name must not be empty"))
	}

	docsDir := c.AbsDocsDir()
	if st, err := os.Stat(docsDir); err != nil || !st.IsDir() {
		errs = append(errs, derrors.ValidationError(fmt.Sprintf("docs_dir %q is not a directory", c.DocsDir)))
	} else {
		for _, page := range c.Nav.Pages() {
			full := filepath.Join(docsDir, filepath.FromSlash(page))
			if _, err := os.Stat(full); err != nil {
				errs = append(errs, derrors.ValidationError(fmt.Sprintf("nav entry %q does not exist under %s", page, c.DocsDir)))
			}
		}
	}

	if opts.ThemeKnown != nil && !opts.ThemeKnown(c.Theme.Name) {
		errs = append(errs, derrors.New(derrors.CategoryTheme, derrors.SeverityFatal,
			fmt.Sprintf("unknown theme: %q", c.Theme.Name)))
	}

	if c.Plugins.APIRef != nil {
		if len(c.Plugins.APIRef.Paths) == 0 {
			errs = append(errs, derrors.ValidationError("apiref plugin requires at least one source path"))
		}
		for _, p := range c.Plugins.APIRef.Paths {
			full := p
			if !filepath.IsAbs(full) && c.BaseDir != "" {
				full = filepath.Join(c.BaseDir, full)
			}
			if st, err := os.Stat(full); err != nil || !st.IsDir() {
				errs = append(errs, derrors.ValidationError(fmt.Sprintf("apiref path %q is not a directory", p)))
			}
		}
	}

	if c.Daemon != nil && c.Daemon.RebuildInterval != "" {
		if _, err := time.ParseDuration(c.Daemon.RebuildInterval); err != nil {
			errs = append(errs, derrors.ValidationError(fmt.Sprintf("daemon.rebuild_interval: %v", err)))
		}
	}

	if c.Source != nil && c.Source.Repo == "" {
		errs = append(errs, derrors.ValidationError("source.repo must not be empty when source is set"))
	}

	return errs
}

// RebuildInterval returns the parsed daemon rebuild interval, or zero when
// unset.
func (c *Config) RebuildInterval() time.Duration {
	if c.Daemon == nil || c.Daemon.RebuildInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Daemon.RebuildInterval)
	if err != nil {
		return 0
	}
	return d
}
