package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gurisko/fide/internal/boards"
	"github.com/gurisko/fide/internal/templates"
)

type fakeBoards map[string]boards.BoardConfig

func (f fakeBoards) Get(id string) (boards.BoardConfig, bool) {
	b, ok := f[id]
	return b, ok
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// newBoardRoot creates a templates root holding one board per id, each with a
// descriptor and a hello.txt containing the placeholder.
func newBoardRoot(t *testing.T, ids ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, id := range ids {
		writeFile(t, filepath.Join(root, id, boards.DescriptorJSON),
			fmt.Sprintf(`{"id":%q,"name":%q,"mcu":"m","architecture":"a","ram_kb":1,"flash_kb":2}`, id, id))
		writeFile(t, filepath.Join(root, id, "hello.txt"), "Hello {{PROJECT_NAME}}")
		writeFile(t, filepath.Join(root, id, "src", "main.c"), "// "+id)
	}
	return root
}

func TestCreate_RoundTrip(t *testing.T) {
	root := newBoardRoot(t, "esp32")
	r := New(boards.NewCatalog(root, nil))

	created, err := r.Create("Foo", "esp32")
	require.NoError(t, err)
	require.NotEmpty(t, created.Project.ID)
	require.NotEmpty(t, created.Project.ContainerID)
	require.NotEqual(t, created.Project.ID, created.Project.ContainerID)
	require.Equal(t, "/workspace/"+created.Project.ID, created.WorkspaceURL)
	require.Equal(t, "esp32", created.Project.BoardID)
	require.Equal(t, "Foo", created.Project.Name)
	require.False(t, created.Project.CreatedAt.IsZero())

	require.Len(t, created.FileTree, 3)
	require.Equal(t, "board.json", created.FileTree[0].Name)
	require.Equal(t, "hello.txt", created.FileTree[1].Name)
	require.Equal(t, "src", created.FileTree[2].Name)

	content, err := r.GetFile(created.Project.ID, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello Foo", content)

	content, err = r.GetFile(created.Project.ID, "src/main.c")
	require.NoError(t, err)
	require.Equal(t, "// esp32", content)
}

func TestCreate_UniqueIDs(t *testing.T) {
	root := newBoardRoot(t, "esp32")
	r := New(boards.NewCatalog(root, nil))

	a, err := r.Create("Same", "esp32")
	require.NoError(t, err)
	b, err := r.Create("Same", "esp32")
	require.NoError(t, err)

	require.NotEqual(t, a.Project.ID, b.Project.ID)
	require.NotEqual(t, a.Project.ContainerID, b.Project.ContainerID)

	for _, id := range []string{a.Project.ID, b.Project.ID} {
		p, err := r.Get(id)
		require.NoError(t, err)
		require.Equal(t, id, p.ID)
	}
	require.Equal(t, 2, r.Len())
}

func TestCreate_UnknownBoard(t *testing.T) {
	r := New(boards.NewCatalog(newBoardRoot(t, "esp32"), nil))

	_, err := r.Create("x", "nonexistent-board")
	require.ErrorIs(t, err, ErrBoardNotFound)
	require.Equal(t, 0, r.Len())
}

func TestCreate_MissingTemplateInsertsNothing(t *testing.T) {
	lookup := fakeBoards{
		"ghost": {ID: "ghost", TemplateRoot: filepath.Join(t.TempDir(), "deleted")},
	}
	r := New(lookup)

	_, err := r.Create("x", "ghost")
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)
	require.NotErrorIs(t, err, ErrBoardNotFound)
	require.Equal(t, 0, r.Len())
	require.Empty(t, r.List())
}

func TestGetFile_UnknownProject(t *testing.T) {
	r := New(fakeBoards{})

	_, err := r.GetFile("nonexistent-project", "a.txt")
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = r.Get("nonexistent-project")
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = r.Tree("nonexistent-project")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestGetFile_PathTraversalRejectedForEveryProject(t *testing.T) {
	root := newBoardRoot(t, "esp32", "stm32f4")
	r := New(boards.NewCatalog(root, nil))

	sibling := map[string]string{"esp32": "stm32f4", "stm32f4": "esp32"}
	for _, board := range []string{"esp32", "stm32f4", "esp32"} {
		c, err := r.Create("p", board)
		require.NoError(t, err)
		id := c.Project.ID

		_, err = r.GetFile(id, "../../etc/passwd")
		require.ErrorIs(t, err, templates.ErrFileRead)
		require.ErrorIs(t, err, templates.ErrPathEscapesRoot)

		// the other board's template is outside this project's root
		_, err = r.GetFile(id, "../"+sibling[board]+"/hello.txt")
		require.ErrorIs(t, err, templates.ErrPathEscapesRoot, board)

		// its own template reached through the parent is still inside
		got, err := r.GetFile(id, "../"+board+"/hello.txt")
		require.NoError(t, err, board)
		require.Equal(t, "Hello p", got)
	}
}

func TestGetFile_TemplateRootCapturedAtCreation(t *testing.T) {
	root := newBoardRoot(t, "esp32")
	r := New(boards.NewCatalog(root, nil))

	c, err := r.Create("Foo", "esp32")
	require.NoError(t, err)

	// board disappears from the catalog, template files remain
	require.NoError(t, os.Remove(filepath.Join(root, "esp32", boards.DescriptorJSON)))

	content, err := r.GetFile(c.Project.ID, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello Foo", content)

	_, err = r.Create("Bar", "esp32")
	require.ErrorIs(t, err, ErrBoardNotFound)
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := New(boards.NewCatalog(newBoardRoot(t, "esp32"), nil))
	c, err := r.Create("Foo", "esp32")
	require.NoError(t, err)

	p, err := r.Get(c.Project.ID)
	require.NoError(t, err)
	p.Name = "mutated"
	p.TemplateRoot = "/"
	c.Project.Name = "mutated too"

	content, err := r.GetFile(c.Project.ID, "hello.txt")
	require.NoError(t, err)
	require.Equal(t, "Hello Foo", content)
}

func TestList_SortedByNameThenID(t *testing.T) {
	r := New(boards.NewCatalog(newBoardRoot(t, "esp32"), nil))
	for _, name := range []string{"zeta", "alpha", "mid", "alpha"} {
		_, err := r.Create(name, "esp32")
		require.NoError(t, err)
	}

	list := r.List()
	require.Len(t, list, 4)
	require.Equal(t, "alpha", list[0].Name)
	require.Equal(t, "alpha", list[1].Name)
	require.Less(t, list[0].ID, list[1].ID)
	require.Equal(t, "mid", list[2].Name)
	require.Equal(t, "zeta", list[3].Name)
}

func TestTree_IsFreshSnapshot(t *testing.T) {
	root := newBoardRoot(t, "esp32")
	r := New(boards.NewCatalog(root, nil))
	c, err := r.Create("Foo", "esp32")
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "esp32", "added.txt"), "new")

	tree, err := r.Tree(c.Project.ID)
	require.NoError(t, err)
	require.Len(t, tree, len(c.FileTree)+1)
	require.Equal(t, "added.txt", tree[0].Name)
}

func TestConcurrentCreateAndRead(t *testing.T) {
	const n = 16
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("board-%02d", i)
	}
	root := newBoardRoot(t, ids...)
	r := New(boards.NewCatalog(root, nil))

	var wg sync.WaitGroup
	results := make([]*Created, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Create(fmt.Sprintf("proj-%d", i), ids[i])
			if errs[i] != nil {
				return
			}
			// readers race with other writers
			_, errs[i] = r.GetFile(results[i].Project.ID, "hello.txt")
			_ = r.List()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		id := results[i].Project.ID
		require.False(t, seen[id])
		seen[id] = true

		content, err := r.GetFile(id, "hello.txt")
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("Hello proj-%d", i), content)

		p, err := r.Get(id)
		require.NoError(t, err)
		require.Equal(t, ids[i], p.BoardID)
	}
	require.Equal(t, n, r.Len())
}
