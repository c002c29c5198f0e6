// Package layout loads the initial world placement (blocks, container
// contents, hopper and frame facings, switches) from a YAML file.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"autocraft.ai/internal/protocol"
	modelpkg "autocraft.ai/internal/sim/world/kernel/model"
)

type Layout struct {
	Blocks     []Block     `yaml:"blocks"`
	Containers []Container `yaml:"containers"`
	Hoppers    []Hopper    `yaml:"hoppers"`
	Frames     []Frame     `yaml:"frames"`
	Switches   []Switch    `yaml:"switches"`
}

type Block struct {
	Pos   [3]int `yaml:"pos"`
	Block string `yaml:"block"`
}

// Container seeds the content of a container block placed under Blocks.
type Container struct {
	Pos   [3]int               `yaml:"pos"`
	Items []protocol.ItemStack `yaml:"items"`
}

type Hopper struct {
	Pos    [3]int `yaml:"pos"`
	Facing string `yaml:"facing"`
}

type Frame struct {
	Pos    [3]int `yaml:"pos"`
	Facing string `yaml:"facing"`
	Item   string `yaml:"item"`
}

type Switch struct {
	Pos [3]int `yaml:"pos"`
	On  bool   `yaml:"on"`
}

func Load(path string) (Layout, error) {
	var l Layout
	raw, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("layout.yaml: %w", err)
	}
	return l, nil
}

// Validate checks that every placement refers to a block of the right kind
// and that facings parse. Block names are checked against the catalog later.
func (l Layout) Validate() error {
	blocks := map[[3]int]string{}
	for _, b := range l.Blocks {
		if b.Block == "" {
			return fmt.Errorf("blocks %v: empty block", b.Pos)
		}
		if prev, dup := blocks[b.Pos]; dup {
			return fmt.Errorf("blocks %v: placed twice (%s, %s)", b.Pos, prev, b.Block)
		}
		blocks[b.Pos] = b.Block
	}
	for _, c := range l.Containers {
		if _, ok := blocks[c.Pos]; !ok {
			return fmt.Errorf("containers %v: no block at position", c.Pos)
		}
		for _, s := range c.Items {
			if s.Item == "" || s.Count <= 0 {
				return fmt.Errorf("containers %v: bad stack %+v", c.Pos, s)
			}
		}
	}
	for _, h := range l.Hoppers {
		if blocks[h.Pos] != "HOPPER" {
			return fmt.Errorf("hoppers %v: not a HOPPER block", h.Pos)
		}
		if _, ok := modelpkg.ParseFace(h.Facing); !ok {
			return fmt.Errorf("hoppers %v: bad facing %q", h.Pos, h.Facing)
		}
	}
	for _, f := range l.Frames {
		if b, ok := blocks[f.Pos]; ok && b != "AIR" {
			return fmt.Errorf("frames %v: cell occupied by %s", f.Pos, b)
		}
		if _, ok := modelpkg.ParseFace(f.Facing); !ok {
			return fmt.Errorf("frames %v: bad facing %q", f.Pos, f.Facing)
		}
	}
	for _, s := range l.Switches {
		if blocks[s.Pos] != "SWITCH" {
			return fmt.Errorf("switches %v: not a SWITCH block", s.Pos)
		}
	}
	return nil
}
