package geometry

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ObjectSize is a named footprint: the set of cells an object of this size
// covers, relative to its top-left corner.
type ObjectSize struct {
	ID     string  `yaml:"id"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	// Cells optionally restricts the footprint to a subset of the bounding box.
	Cells []Point `yaml:"cells"`
}

// Validate checks the footprint invariants.
//
// Postcondition: returns nil iff ID is non-empty, Width and Height are >= 1,
// and every explicit cell lies inside the bounding box.
func (s *ObjectSize) Validate() error {
	if s.ID == "" {
		return errors.New("object size: id must not be empty")
	}
	if s.Width < 1 || s.Height < 1 {
		return fmt.Errorf("object size %q: width and height must be >= 1, got %dx%d", s.ID, s.Width, s.Height)
	}
	for i, c := range s.Cells {
		if c.X < 0 || c.Y < 0 || c.X >= s.Width || c.Y >= s.Height {
			return fmt.Errorf("object size %q: cell[%d] %s outside %dx%d", s.ID, i, c, s.Width, s.Height)
		}
	}
	return nil
}

// Footprint returns the covered cells relative to the top-left corner.
func (s *ObjectSize) Footprint() []Point {
	if len(s.Cells) > 0 {
		out := make([]Point, len(s.Cells))
		copy(out, s.Cells)
		return out
	}
	out := make([]Point, 0, s.Width*s.Height)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			out = append(out, Point{X: x, Y: y})
		}
	}
	return out
}

// At returns the absolute cells covered when the top-left corner is at p.
func (s *ObjectSize) At(p Point) []Point {
	cells := s.Footprint()
	for i := range cells {
		cells[i] = cells[i].Add(p)
	}
	return cells
}

// CenteredAt returns the absolute cells covered when the footprint is centered on p.
func (s *ObjectSize) CenteredAt(p Point) []Point {
	return s.At(Point{X: p.X - s.Width/2, Y: p.Y - s.Height/2})
}

// Sizes holds every loaded ObjectSize keyed by ID.
type Sizes struct {
	sizes map[string]*ObjectSize
}

// NewSizes returns an empty Sizes registry.
func NewSizes() *Sizes {
	return &Sizes{sizes: make(map[string]*ObjectSize)}
}

// Register adds s, rejecting duplicates and invalid footprints.
func (r *Sizes) Register(s *ObjectSize) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := r.sizes[s.ID]; exists {
		return fmt.Errorf("object size %q already registered", s.ID)
	}
	r.sizes[s.ID] = s
	return nil
}

// Get returns the ObjectSize for id, or (nil, false).
func (r *Sizes) Get(id string) (*ObjectSize, bool) {
	s, ok := r.sizes[id]
	return s, ok
}

// IDs returns the registered IDs in sorted order.
func (r *Sizes) IDs() []string {
	out := make([]string, 0, len(r.sizes))
	for id := range r.sizes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadSizes reads every *.yaml file in dir as one ObjectSize.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns a populated registry or the first parse/validation error.
func LoadSizes(dir string) (*Sizes, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading object size dir %q: %w", dir, err)
	}
	reg := NewSizes()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var s ObjectSize
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&s); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
	}
	return reg, nil
}
