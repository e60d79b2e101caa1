// Package area holds the live state of one map: the passability grid, the
// entity registry, dropped props, the turn timer flag and the active
// targeter.
package area

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

const (
	// TileOpen marks a walkable tile in an authored terrain row.
	TileOpen = '.'
	// TileWall marks an impassable tile in an authored terrain row.
	TileWall = '#'
)

// Placement puts an authored actor on the map at start.
type Placement struct {
	Actor    string         `yaml:"actor"`
	Location geometry.Point `yaml:"location"`
}

// Def is an authored area.
type Def struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Terrain is one string per row; '.' is open and '#' is a wall.
	Terrain []string    `yaml:"terrain"`
	Actors  []Placement `yaml:"actors"`
}

// Width returns the column count.
func (d *Def) Width() int {
	if len(d.Terrain) == 0 {
		return 0
	}
	return len(d.Terrain[0])
}

// Height returns the row count.
func (d *Def) Height() int { return len(d.Terrain) }

// Validate reports an error if the terrain is ragged or uses unknown tiles.
func (d *Def) Validate() error {
	var errs []error
	if d.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(d.Terrain) == 0 {
		errs = append(errs, errors.New("terrain must have at least one row"))
	}
	w := d.Width()
	for y, row := range d.Terrain {
		if len(row) != w {
			errs = append(errs, fmt.Errorf("terrain row %d has width %d, want %d", y, len(row), w))
		}
		for x, c := range row {
			if c != TileOpen && c != TileWall {
				errs = append(errs, fmt.Errorf("terrain (%d,%d): unknown tile %q", x, y, c))
			}
		}
	}
	for i, p := range d.Actors {
		if p.Actor == "" {
			errs = append(errs, fmt.Errorf("actors[%d]: actor must not be empty", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("area %q: %w", d.ID, err)
	}
	return nil
}

// PropDef is an authored prop, such as the container dropped loot goes in.
type PropDef struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Size is the object size the prop occupies; props never block movement.
	Size string `yaml:"size"`
}

// Validate reports an error if id or size is missing.
func (p *PropDef) Validate() error {
	var errs []error
	if p.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if p.Size == "" {
		errs = append(errs, errors.New("size must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("prop %q: %w", p.ID, err)
	}
	return nil
}
