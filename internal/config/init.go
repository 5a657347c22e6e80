package config

import (
	"fmt"
	"os"
)

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// exampleConfig is written verbatim so the scaffold keeps comments and the
// conventional key ordering.
const exampleConfig = `site_name: My Documentation
docs_dir: docs
output_dir: site

nav:
  - Home: index.md

theme:
  name: slate

markdown_extensions:
  - toc:
      permalink: true
  - highlight:
      anchor_linenums: true
  - inlinehilite
  - snippets
  - superfences

plugins:
  - search
  - apiref:
      paths:
        - ./internal
      show_root_heading: false
      show_source: false
      show_root_full_path: false
`
