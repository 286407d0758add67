// Package templates snapshots board template directories and renders
// individual template files for a named project.
//
// A template is a plain directory tree. Files may contain Placeholder, which
// is replaced with the project name when a file is read; the template on disk
// is never modified.
package templates

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gurisko/fide/internal/limits"
)

// Placeholder is substituted with the project name in rendered file content.
const Placeholder = "{{PROJECT_NAME}}"

var (
	// ErrTemplateNotFound indicates the template root is missing or not a directory
	ErrTemplateNotFound = errors.New("template not found")
	// ErrFileRead is the umbrella error for every ReadRendered failure
	ErrFileRead = errors.New("file read failed")
	// ErrPathEscapesRoot indicates a requested path resolves outside the template root
	ErrPathEscapesRoot = errors.New("path escapes template root")
	// ErrInvalidPath indicates an empty or malformed requested path
	ErrInvalidPath = errors.New("invalid file path")
	// ErrFileNotFound indicates the requested path does not exist or is a directory
	ErrFileNotFound = errors.New("file not found")
	// ErrNotText indicates the file content is not valid UTF-8
	ErrNotText = errors.New("file is not valid UTF-8 text")
	// ErrFileTooLarge indicates the file exceeds limits.FileContent
	ErrFileTooLarge = errors.New("file too large")
)

// FileNode is one entry of a template snapshot.
type FileNode struct {
	Name        string     `json:"name"`
	Path        string     `json:"path"` // slash-separated, relative to the template root
	IsDirectory bool       `json:"is_directory"`
	Children    []FileNode `json:"children,omitempty"`
}

// Snapshot returns the ordered directory tree below root. Siblings are sorted
// by name at every depth, with files and directories interleaved.
//
// Symlinks are reported as leaf entries and never followed, so the walk
// cannot loop.
func Snapshot(root string) ([]FileNode, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrTemplateNotFound, root)
	}
	return buildTree(root, "")
}

func buildTree(dir, rel string) ([]FileNode, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template directory %q: %w", rel, err)
	}
	slices.SortFunc(entries, func(a, b os.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	nodes := make([]FileNode, 0, len(entries))
	for _, entry := range entries {
		node := FileNode{
			Name: entry.Name(),
			Path: path.Join(rel, entry.Name()),
		}
		if entry.IsDir() {
			children, err := buildTree(filepath.Join(dir, entry.Name()), node.Path)
			if err != nil {
				return nil, err
			}
			node.IsDirectory = true
			node.Children = children
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Walk visits every node depth-first in snapshot order. Returning an error
// from fn stops the walk.
func Walk(nodes []FileNode, fn func(FileNode) error) error {
	for _, n := range nodes {
		if err := fn(n); err != nil {
			return err
		}
		if n.IsDirectory {
			if err := Walk(n.Children, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolvePath maps a client-supplied relative path onto the filesystem below
// root. The path is cleaned and checked for containment before anything is
// opened; symlinks are then resolved and containment is checked again against
// the resolved root.
func ResolvePath(root, rel string) (string, error) {
	if rel == "" || strings.ContainsRune(rel, 0) {
		return "", ErrInvalidPath
	}
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, filepath.ToSlash(rel))
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, root, err)
	}
	candidate := filepath.Join(absRoot, rel)
	if !within(absRoot, candidate) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, filepath.ToSlash(rel))
	}

	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, root, err)
	}
	realCandidate, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to resolve %s: %w", filepath.ToSlash(rel), err)
		}
		// A missing file below a link that leaves the root is still an escape.
		if deepest, derr := resolveExisting(candidate); derr != nil || !within(realRoot, deepest) {
			return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, filepath.ToSlash(rel))
		}
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, filepath.ToSlash(rel))
	}
	if !within(realRoot, realCandidate) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRoot, filepath.ToSlash(rel))
	}
	return realCandidate, nil
}

// resolveExisting resolves the deepest existing ancestor of p. A dangling
// symlink on the way resolves to its lexical target.
func resolveExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return resolved, err
	}
	parent := filepath.Dir(p)
	if parent == p {
		return "", err
	}
	realParent, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	link := filepath.Join(realParent, filepath.Base(p))
	if fi, lerr := os.Lstat(link); lerr == nil && fi.Mode()&os.ModeSymlink != 0 {
		target, rerr := os.Readlink(link)
		if rerr != nil {
			return "", rerr
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(realParent, target)
		}
		return filepath.Clean(target), nil
	}
	return realParent, nil
}

// within reports whether p equals root or is a descendant of it. Both must be
// absolute and clean.
func within(root, p string) bool {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) && !filepath.IsAbs(r)
}

// ReadRendered reads rel below root and substitutes Placeholder with
// projectName. Every failure wraps ErrFileRead together with a more specific
// cause (ErrPathEscapesRoot, ErrInvalidPath, ErrFileNotFound, ErrNotText,
// ErrFileTooLarge or ErrTemplateNotFound).
func ReadRendered(root, rel, projectName string) (string, error) {
	full, err := ResolvePath(root, rel)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %w: %s", ErrFileRead, ErrFileNotFound, rel)
		}
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %w: %s is a directory", ErrFileRead, ErrFileNotFound, rel)
	}
	if info.Size() > limits.FileContent {
		return "", fmt.Errorf("%w: %w: %s (%d bytes)", ErrFileRead, ErrFileTooLarge, rel, info.Size())
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %w: %s", ErrFileRead, ErrNotText, rel)
	}
	return Render(string(data), projectName), nil
}

// Render replaces every occurrence of Placeholder in content with
// projectName. The substitution is a single literal pass.
func Render(content, projectName string) string {
	return strings.ReplaceAll(content, Placeholder, projectName)
}
