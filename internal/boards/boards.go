// Package boards discovers supported hardware boards by scanning a templates
// directory. Every immediate subdirectory carrying a descriptor file is one
// board; the subdirectory itself is that board's template root.
//
// The catalog keeps no state: every List call rescans the filesystem.
package boards

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/frontmatter"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gurisko/fide/internal/logging"
)

// Descriptor file names, in lookup order. The first one present wins.
const (
	DescriptorJSON     = "board.json"
	DescriptorYAML     = "board.yaml"
	DescriptorYML      = "board.yml"
	DescriptorMarkdown = "board.md"
)

var descriptorNames = []string{DescriptorJSON, DescriptorYAML, DescriptorYML, DescriptorMarkdown}

var (
	errNoDescriptor = errors.New("no board descriptor")
	errMissingID    = errors.New("board descriptor has no id")
)

// BoardConfig describes one supported hardware target.
type BoardConfig struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	MCU          string `json:"mcu" yaml:"mcu"`
	Architecture string `json:"architecture" yaml:"architecture"`
	RAMKB        uint32 `json:"ram_kb" yaml:"ram_kb"`
	FlashKB      uint32 `json:"flash_kb" yaml:"flash_kb"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`

	// TemplateRoot is derived from the directory the descriptor was found in.
	TemplateRoot string `json:"-" yaml:"-"`
}

// Catalog lists the boards found below a templates root.
type Catalog struct {
	root   string
	logger *zap.Logger
}

// NewCatalog returns a catalog over root. A nil logger disables logging.
func NewCatalog(root string, logger *zap.Logger) *Catalog {
	return &Catalog{root: root, logger: logging.Ensure(logger)}
}

// Root returns the templates directory scanned by the catalog.
func (c *Catalog) Root() string {
	return c.root
}

// List scans the templates root and returns one BoardConfig per subdirectory
// with a valid descriptor, in directory-name order. Unreadable roots,
// missing descriptors and malformed descriptors are skipped; List never
// fails. If two descriptors share an id, the later directory wins.
func (c *Catalog) List() []BoardConfig {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		c.logger.Debug("board catalog unreadable", zap.String("root", c.root), zap.Error(err))
		return []BoardConfig{}
	}

	boards := make([]BoardConfig, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(c.root, entry.Name())
		board, err := loadDescriptor(dir)
		if err != nil {
			if !errors.Is(err, errNoDescriptor) {
				c.logger.Debug("skipping board directory", zap.String("dir", dir), zap.Error(err))
			}
			continue
		}
		board.TemplateRoot = dir

		if i, dup := index[board.ID]; dup {
			c.logger.Debug("duplicate board id, later directory wins",
				zap.String("id", board.ID), zap.String("previous", boards[i].TemplateRoot), zap.String("dir", dir))
			boards[i] = board
			continue
		}
		index[board.ID] = len(boards)
		boards = append(boards, board)
	}
	return boards
}

// Get returns the board whose id matches, or false when none does.
func (c *Catalog) Get(id string) (BoardConfig, bool) {
	for _, b := range c.List() {
		if b.ID == id {
			return b, true
		}
	}
	return BoardConfig{}, false
}

func loadDescriptor(dir string) (BoardConfig, error) {
	for _, name := range descriptorNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return BoardConfig{}, err
		}
		board, err := parseDescriptor(name, data)
		if err != nil {
			return BoardConfig{}, fmt.Errorf("parsing %s: %w", path, err)
		}
		if board.ID == "" {
			return BoardConfig{}, fmt.Errorf("%s: %w", path, errMissingID)
		}
		return board, nil
	}
	return BoardConfig{}, errNoDescriptor
}

func parseDescriptor(name string, data []byte) (BoardConfig, error) {
	var board BoardConfig
	switch name {
	case DescriptorJSON:
		if err := json.Unmarshal(data, &board); err != nil {
			return BoardConfig{}, err
		}
	case DescriptorYAML, DescriptorYML:
		if err := yaml.Unmarshal(data, &board); err != nil {
			return BoardConfig{}, err
		}
	case DescriptorMarkdown:
		body, err := frontmatter.MustParse(bytes.NewReader(data), &board)
		if err != nil {
			return BoardConfig{}, err
		}
		if desc := bytes.TrimSpace(body); len(desc) > 0 {
			board.Description = string(desc)
		}
	default:
		return BoardConfig{}, fmt.Errorf("unknown descriptor %s", name)
	}
	return board, nil
}
