// Package gitsync fetches a remote documentation source into a local
// working tree before builds.
package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/torn-open/docsmith/internal/config"
	derrors "github.com/torn-open/docsmith/internal/errors"
	"github.com/torn-open/docsmith/internal/logfields"
)

// Client clones or updates the configured source repository under workDir.
// It implements the build's Syncer.
type Client struct {
	workDir string
	source  config.SourceConfig
}

// NewClient creates a sync client. workDir holds the checkout; the checkout
// itself lives in workDir/source.
func NewClient(workDir string, source config.SourceConfig) *Client {
	return &Client{workDir: workDir, source: source}
}

// Sync clones the repository on first use and fast-forwards it afterwards,
// returning the local path of the tree.
func (c *Client) Sync(ctx context.Context) (string, error) {
	repoPath := filepath.Join(c.workDir, "source")

	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil {
		return c.clone(ctx, repoPath)
	}
	return c.update(ctx, repoPath)
}

func (c *Client) clone(ctx context.Context, repoPath string) (string, error) {
	slog.Info("Cloning documentation source",
		logfields.URL(c.source.Repo),
		slog.String("branch", c.branch()),
		logfields.Path(repoPath))

	if err := os.RemoveAll(repoPath); err != nil {
		return "", derrors.Wrap(err, derrors.CategoryFileSystem, "clear source checkout")
	}

	opts := &git.CloneOptions{
		URL:           c.source.Repo,
		ReferenceName: plumbing.ReferenceName("refs/heads/" + c.branch()),
		SingleBranch:  true,
	}
	if auth, err := c.auth(); err != nil {
		return "", err
	} else if auth != nil {
		opts.Auth = auth
	}

	repo, err := git.PlainCloneContext(ctx, repoPath, false, opts)
	if err != nil {
		return "", classifyError("clone", c.source.Repo, err)
	}

	if ref, herr := repo.Head(); herr == nil {
		slog.Info("Source cloned",
			logfields.URL(c.source.Repo),
			slog.String("commit", shortHash(ref.Hash().String())))
	}
	return repoPath, nil
}

func (c *Client) update(ctx context.Context, repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CategoryGit, "open source checkout")
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", derrors.Wrap(err, derrors.CategoryGit, "source worktree")
	}

	pullOpts := &git.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.ReferenceName("refs/heads/" + c.branch()),
		SingleBranch:  true,
	}
	if auth, err := c.auth(); err != nil {
		return "", err
	} else if auth != nil {
		pullOpts.Auth = auth
	}

	err = wt.PullContext(ctx, pullOpts)
	switch {
	case err == nil:
		if ref, herr := repo.Head(); herr == nil {
			slog.Info("Source updated",
				logfields.URL(c.source.Repo),
				slog.String("commit", shortHash(ref.Hash().String())))
		}
	case err == git.NoErrAlreadyUpToDate:
		slog.Debug("Source already up to date", logfields.URL(c.source.Repo))
	default:
		return "", classifyError("update", c.source.Repo, err)
	}
	return repoPath, nil
}

func (c *Client) branch() string {
	if c.source.Branch != "" {
		return c.source.Branch
	}
	return "main"
}

// auth maps the configured authentication onto a go-git method. Tokens use
// HTTP basic auth with the token as password.
func (c *Client) auth() (transport.AuthMethod, error) {
	a := c.source.Auth
	if a == nil {
		return nil, nil
	}
	switch a.Type {
	case "token":
		if a.Token == "" {
			return nil, derrors.New(derrors.CategoryConfig, derrors.SeverityFatal, "source auth type token requires a token")
		}
		username := a.Username
		if username == "" {
			username = "git"
		}
		return &githttp.BasicAuth{Username: username, Password: a.Token}, nil
	case "basic":
		if a.Username == "" || a.Password == "" {
			return nil, derrors.New(derrors.CategoryConfig, derrors.SeverityFatal, "source auth type basic requires username and password")
		}
		return &githttp.BasicAuth{Username: a.Username, Password: a.Password}, nil
	default:
		return nil, derrors.New(derrors.CategoryConfig, derrors.SeverityFatal,
			fmt.Sprintf("unsupported source auth type %q", a.Type))
	}
}

// classifyError maps go-git failures onto error categories, marking
// network-shaped failures retryable.
func classifyError(op, url string, err error) error {
	l := strings.ToLower(err.Error())
	msg := fmt.Sprintf("%s %s", op, url)
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "authorization") || strings.Contains(l, "invalid username or password"):
		return derrors.Wrap(err, derrors.CategoryGit, msg+": authentication failed")
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return derrors.Wrap(err, derrors.CategoryGit, msg+": repository not found")
	case strings.Contains(l, "timeout") || strings.Contains(l, "connection refused") || strings.Contains(l, "temporary failure"):
		return derrors.WrapRetryable(err, derrors.CategoryNetwork, msg)
	default:
		return derrors.Wrap(err, derrors.CategoryGit, msg)
	}
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
