package targeter

import (
	"fmt"

	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

// Board is the read-only view of an area a targeter selects against.
type Board interface {
	InBounds(p geometry.Point) bool
	// EntitiesAt returns the live entities whose footprint covers p.
	EntitiesAt(p geometry.Point) []entity.Handle
	// Location returns the top-left tile of a live entity.
	Location(h entity.Handle) (geometry.Point, bool)
	// Footprint returns the tiles a live entity covers, or nil.
	Footprint(h entity.Handle) []geometry.Point
	// IsPassable reports whether size fits with its top-left at p,
	// ignoring the entity ignore.
	IsPassable(size *geometry.ObjectSize, p geometry.Point, ignore entity.Handle) bool
}

// State is the targeter lifecycle state.
type State int

const (
	Inactive State = iota
	Active
	Committed
	Cancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Committed:
		return "committed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Targeter runs one selection across input events.
//
// Transitions: Inactive -> Active -> {Committed, Cancelled}. Committed and
// Cancelled are terminal. No input mutates the Data it was built from.
type Targeter struct {
	data  *Data
	board Board
	sizes *geometry.Sizes
	state State

	cursor   *geometry.Point
	hovered  entity.Handle
	cells    []geometry.Point
	affected []entity.Handle
}

// New builds an Inactive targeter from a copy of data.
//
// Postcondition: returns an error wrapping ErrUnknownObjectSize if any
// object size data names is not loaded.
func New(data *Data, board Board, sizes *geometry.Sizes) (*Targeter, error) {
	if err := data.Validate(sizes); err != nil {
		return nil, fmt.Errorf("building targeter for %q: %w", data.AbilityID, err)
	}
	return &Targeter{data: data.Clone(), board: board, sizes: sizes, hovered: entity.None}, nil
}

// Activate moves an Inactive targeter to Active.
func (t *Targeter) Activate() error {
	if t.state != Inactive {
		return fmt.Errorf("targeter: cannot activate from %s", t.state)
	}
	t.state = Active
	return nil
}

// State returns the lifecycle state.
func (t *Targeter) State() State { return t.state }

// AbilityID returns the owning ability.
func (t *Targeter) AbilityID() string { return t.data.AbilityID }

// Parent returns the acting entity.
func (t *Targeter) Parent() entity.Handle { return t.data.Parent }

// Data returns a copy of the selection record.
func (t *Targeter) Data() *Data { return t.data.Clone() }

// Hovered returns the selectable entity under the cursor, or entity.None.
func (t *Targeter) Hovered() entity.Handle { return t.hovered }

// Cells returns the in-bounds tiles the shape covers at the current cursor.
func (t *Targeter) Cells() []geometry.Point {
	return append([]geometry.Point(nil), t.cells...)
}

// Affected returns the entities the current selection would affect.
func (t *Targeter) Affected() []entity.Handle {
	return append([]entity.Handle(nil), t.affected...)
}

// Cancel reports whether the targeter permits free cancellation.
func (t *Targeter) Cancel() bool { return !t.data.Forced }

// OnCancel discards the pending selection.
//
// Postcondition: State() == Cancelled unless already Committed.
func (t *Targeter) OnCancel() {
	if t.state == Committed {
		return
	}
	t.state = Cancelled
	t.cursor = nil
	t.hovered = entity.None
	t.cells = nil
	t.affected = nil
}

// OnMouseMove moves the cursor to (x, y), recomputing the hovered entity
// and, for area shapes, the full affected set.
//
// Postcondition: returns the selectable entity under the cursor, if any.
func (t *Targeter) OnMouseMove(x, y int) (entity.Handle, bool) {
	if t.state != Active {
		return entity.None, false
	}
	p := geometry.Point{X: x, Y: y}
	t.cursor = &p
	t.hovered = t.selectableAt(p)

	t.cells = t.cells[:0]
	t.affected = nil
	if !t.data.Shape.IsArea() {
		if t.hovered.Valid() {
			t.cells = append(t.cells, p)
			t.affected = []entity.Handle{t.hovered}
		}
		return t.hovered, t.hovered.Valid()
	}

	covered := map[geometry.Point]bool{}
	for _, c := range t.data.Shape.Cells(p, t.sizes) {
		if t.board.InBounds(c) {
			t.cells = append(t.cells, c)
			covered[c] = true
		}
	}
	seen := map[entity.Handle]bool{}
	for _, h := range t.data.Effectable {
		if !h.Valid() || seen[h] {
			continue
		}
		for _, c := range t.board.Footprint(h) {
			if covered[c] {
				seen[h] = true
				t.affected = append(t.affected, h)
				break
			}
		}
	}
	return t.hovered, t.hovered.Valid()
}

// OnActivate attempts to commit the current selection.
//
// Postcondition: on success State() == Committed and the returned Set holds
// the affected entities and the committed point; otherwise the targeter
// stays Active and nothing changes.
func (t *Targeter) OnActivate() (entity.Set, bool) {
	if t.state != Active || t.cursor == nil || !t.selectionValid() {
		return entity.Set{}, false
	}
	t.state = Committed
	return entity.NewSet(t.affected...).WithPoint(*t.cursor), true
}

func (t *Targeter) selectionValid() bool {
	if t.hovered.Valid() {
		return true
	}
	if t.data.FreeSelect == nil {
		return false
	}
	p := *t.cursor
	if !t.board.InBounds(p) {
		return false
	}
	origin, ok := t.board.Location(t.data.Parent)
	if !ok || geometry.Dist(origin, p) > *t.data.FreeSelect {
		return false
	}
	if t.data.FreeSelectMustBePassable != "" {
		size, ok := t.sizes.Get(t.data.FreeSelectMustBePassable)
		if !ok {
			return false
		}
		topLeft := geometry.Point{X: p.X - size.Width/2, Y: p.Y - size.Height/2}
		return t.board.IsPassable(size, topLeft, t.data.Parent)
	}
	return true
}

func (t *Targeter) selectableAt(p geometry.Point) entity.Handle {
	for _, h := range t.board.EntitiesAt(p) {
		for _, s := range t.data.Selectable {
			if s == h {
				return h
			}
		}
	}
	return entity.None
}
