// Package export materializes a project's rendered files into a directory,
// optionally as a fresh git repository.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/logging"
	"github.com/gurisko/fide/internal/templates"
)

var (
	// ErrDestNotEmpty indicates the export target already holds files
	ErrDestNotEmpty = errors.New("destination is not empty")
	// ErrUnsafePath indicates a tree entry that would land outside the target
	ErrUnsafePath = errors.New("unsafe path in file tree")
)

// Source yields a project's file tree and rendered file contents.
type Source interface {
	Tree(ctx context.Context, projectID string) ([]templates.FileNode, error)
	File(ctx context.Context, projectID, relPath string) (string, error)
}

// Options controls an export.
type Options struct {
	Git         bool   // initialise a repository and commit the files
	AuthorName  string // commit author, defaults to "fide"
	AuthorEmail string
	Message     string // commit message, defaults to "Initial commit"
	Logger      *zap.Logger
}

// Result summarises an export.
type Result struct {
	Files   int
	Skipped []string // files the service would not serve as text
	Commit  string   // commit hash when Options.Git is set
}

// Export writes every file of projectID into dest. dest must be missing or
// empty. Files the service refuses to render as text are skipped, as are
// symlink leaves that point at a directory or outside the template.
func Export(ctx context.Context, src Source, projectID, dest string, opts Options) (*Result, error) {
	logger := logging.Ensure(opts.Logger)

	if err := prepareDest(dest); err != nil {
		return nil, err
	}

	tree, err := src.Tree(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch file tree: %w", err)
	}

	res := &Result{}
	err = templates.Walk(tree, func(n templates.FileNode) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !filepath.IsLocal(filepath.FromSlash(n.Path)) {
			return fmt.Errorf("%w: %s", ErrUnsafePath, n.Path)
		}
		target := filepath.Join(dest, filepath.FromSlash(n.Path))

		if n.IsDirectory {
			return os.MkdirAll(target, 0o755)
		}

		content, err := src.File(ctx, projectID, n.Path)
		if skippable(err) {
			logger.Debug("skipping file", zap.String("path", n.Path), zap.Error(err))
			res.Skipped = append(res.Skipped, n.Path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", n.Path, err)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		res.Files++
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opts.Git {
		hash, err := commitAll(dest, opts)
		if err != nil {
			return nil, fmt.Errorf("git: %w", err)
		}
		res.Commit = hash
	}

	logger.Info("project exported",
		zap.String("project_id", projectID),
		zap.String("dest", dest),
		zap.Int("files", res.Files),
		zap.Int("skipped", len(res.Skipped)))

	return res, nil
}

func skippable(err error) bool {
	return errors.Is(err, templates.ErrNotText) ||
		errors.Is(err, templates.ErrFileTooLarge) ||
		errors.Is(err, templates.ErrFileNotFound) ||
		errors.Is(err, templates.ErrPathEscapesRoot)
}

func prepareDest(dest string) error {
	entries, err := os.ReadDir(dest)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return os.MkdirAll(dest, 0o755)
	case err != nil:
		return err
	case len(entries) > 0:
		return fmt.Errorf("%w: %s", ErrDestNotEmpty, dest)
	}
	return nil
}

func commitAll(dir string, opts Options) (string, error) {
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return "", err
	}

	name, email, msg := opts.AuthorName, opts.AuthorEmail, opts.Message
	if name == "" {
		name = "fide"
	}
	if email == "" {
		email = "fide@localhost"
	}
	if msg == "" {
		msg = "Initial commit"
	}

	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: time.Now()},
	})
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}
