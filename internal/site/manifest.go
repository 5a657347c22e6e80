package site

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ManifestFileName is written at the site output root.
const ManifestFileName = "manifest.json"

// Manifest records what a build produced: every output file with its
// content hash, plus a site hash over the whole set. The site hash drives
// livereload notifications and change detection between builds.
type Manifest struct {
	BuildID   string            `json:"build_id"`
	CreatedAt time.Time         `json:"created_at"`
	Theme     string            `json:"theme"`
	Files     map[string]string `json:"files"` // output path -> sha256 hex
	SiteHash  string            `json:"site_hash"`
}

func newManifest(buildID, themeName string) *Manifest {
	return &Manifest{
		BuildID:   buildID,
		CreatedAt: time.Now(),
		Theme:     themeName,
		Files:     map[string]string{},
	}
}

// Record hashes one output file's content into the manifest.
func (m *Manifest) Record(outputPath string, content []byte) {
	sum := sha256.Sum256(content)
	m.Files[outputPath] = hex.EncodeToString(sum[:])
}

// Finalize computes the site hash over the sorted file set.
func (m *Manifest) Finalize() {
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s %s\n", p, m.Files[p])
	}
	m.SiteHash = hex.EncodeToString(h.Sum(nil))
}

// Write persists the manifest under dir.
func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a manifest from a previously built site. A missing
// manifest is not an error; it returns nil.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
