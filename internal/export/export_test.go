package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/gurisko/fide/internal/boards"
	"github.com/gurisko/fide/internal/registry"
	"github.com/gurisko/fide/internal/templates"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

type registrySource struct {
	reg *registry.Registry
}

func (s registrySource) Tree(_ context.Context, projectID string) ([]templates.FileNode, error) {
	return s.reg.Tree(projectID)
}

func (s registrySource) File(_ context.Context, projectID, relPath string) (string, error) {
	return s.reg.GetFile(projectID, relPath)
}

func newProject(t *testing.T) (registrySource, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "esp32")
	writeFile(t, filepath.Join(dir, boards.DescriptorJSON), []byte(`{"id":"esp32","name":"ESP32"}`))
	writeFile(t, filepath.Join(dir, "README.md"), []byte("# {{PROJECT_NAME}}\n"))
	writeFile(t, filepath.Join(dir, "src", "main.c"), []byte("/* {{PROJECT_NAME}} */\n"))
	writeFile(t, filepath.Join(dir, "assets", "logo.bin"), []byte{0xff, 0xd8, 0xff})

	reg := registry.New(boards.NewCatalog(root, nil))
	created, err := reg.Create("Blinky", "esp32")
	require.NoError(t, err)
	return registrySource{reg: reg}, created.Project.ID
}

func TestExport_SkipsSymlinkLeaves(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "esp32")
	writeFile(t, filepath.Join(dir, boards.DescriptorJSON), []byte(`{"id":"esp32","name":"ESP32"}`))
	writeFile(t, filepath.Join(dir, "src", "main.c"), []byte("/* {{PROJECT_NAME}} */\n"))
	writeFile(t, filepath.Join(root, "secret.txt"), []byte("secret"))
	if err := os.Symlink("src", filepath.Join(dir, "src-link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join("..", "secret.txt"), filepath.Join(dir, "secret-link")))

	reg := registry.New(boards.NewCatalog(root, nil))
	created, err := reg.Create("Blinky", "esp32")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out")
	res, err := Export(context.Background(), registrySource{reg: reg}, created.Project.ID, dest, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Files)
	require.ElementsMatch(t, []string{"secret-link", "src-link"}, res.Skipped)

	_, err = os.Lstat(filepath.Join(dest, "secret-link"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExport_WritesRenderedFiles(t *testing.T) {
	src, id := newProject(t)
	dest := filepath.Join(t.TempDir(), "out")

	res, err := Export(context.Background(), src, id, dest, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, res.Files)
	require.Equal(t, []string{"assets/logo.bin"}, res.Skipped)
	require.Empty(t, res.Commit)

	b, err := os.ReadFile(filepath.Join(dest, "README.md"))
	require.NoError(t, err)
	require.Equal(t, "# Blinky\n", string(b))

	b, err = os.ReadFile(filepath.Join(dest, "src", "main.c"))
	require.NoError(t, err)
	require.Equal(t, "/* Blinky */\n", string(b))

	// the directory exists even though its only file was skipped
	fi, err := os.Stat(filepath.Join(dest, "assets"))
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	_, err = os.Stat(filepath.Join(dest, "assets", "logo.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestExport_GitCommit(t *testing.T) {
	src, id := newProject(t)
	dest := t.TempDir()

	res, err := Export(context.Background(), src, id, dest, Options{
		Git:        true,
		AuthorName: "Test",
		Message:    "scaffold Blinky",
	})
	require.NoError(t, err)
	require.Len(t, res.Commit, 40)

	repo, err := git.PlainOpen(dest)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, res.Commit, head.Hash().String())

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	require.Equal(t, "scaffold Blinky", strings.TrimSpace(commit.Message))
	require.Equal(t, "Test", commit.Author.Name)

	f, err := commit.File("src/main.c")
	require.NoError(t, err)
	content, err := f.Contents()
	require.NoError(t, err)
	require.Equal(t, "/* Blinky */\n", content)
}

func TestExport_RefusesNonEmptyDest(t *testing.T) {
	src, id := newProject(t)
	dest := t.TempDir()
	writeFile(t, filepath.Join(dest, "keep.txt"), []byte("x"))

	_, err := Export(context.Background(), src, id, dest, Options{})
	require.ErrorIs(t, err, ErrDestNotEmpty)
}

func TestExport_UnknownProject(t *testing.T) {
	src, _ := newProject(t)

	_, err := Export(context.Background(), src, "nonexistent-project", t.TempDir(), Options{})
	require.ErrorIs(t, err, registry.ErrProjectNotFound)
}

type fakeSource struct {
	tree []templates.FileNode
}

func (f fakeSource) Tree(context.Context, string) ([]templates.FileNode, error) {
	return f.tree, nil
}

func (f fakeSource) File(context.Context, string, string) (string, error) {
	return "pwned", nil
}

func TestExport_RejectsUnsafeTreePaths(t *testing.T) {
	for _, p := range []string{"../escape.txt", "/etc/cron.d/x", "a/../../b"} {
		t.Run(p, func(t *testing.T) {
			parent := t.TempDir()
			dest := filepath.Join(parent, "out")
			src := fakeSource{tree: []templates.FileNode{{Name: "x", Path: p}}}

			_, err := Export(context.Background(), src, "id", dest, Options{})
			require.ErrorIs(t, err, ErrUnsafePath)
			_, statErr := os.Stat(filepath.Join(parent, "escape.txt"))
			require.ErrorIs(t, statErr, os.ErrNotExist)
		})
	}
}

func TestExport_CancelledContext(t *testing.T) {
	src, id := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Export(ctx, src, id, t.TempDir(), Options{})
	require.ErrorIs(t, err, context.Canceled)
}
