package area

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
	"github.com/cory-johannsen/tactica/internal/game/item"
	"github.com/cory-johannsen/tactica/internal/game/targeter"
)

// ErrBlocked is returned when an entity cannot be placed or moved to a tile.
var ErrBlocked = errors.New("area: location is not passable")

// ErrTargeterActive is returned when a second targeter is installed while
// one is still running.
var ErrTargeterActive = errors.New("area: a targeter is already active")

// Entity is an actor placed on the map.
type Entity struct {
	Handle   entity.Handle
	Location geometry.Point
	Size     *geometry.ObjectSize
	Actor    *actor.State
}

// Footprint returns the tiles the entity covers.
func (e *Entity) Footprint() []geometry.Point { return e.Size.At(e.Location) }

func (e *Entity) center() (float64, float64) {
	return float64(e.Location.X) + float64(e.Size.Width-1)/2, float64(e.Location.Y) + float64(e.Size.Height-1)/2
}

// Prop is a map object holding items, such as dropped loot.
type Prop struct {
	ID       uuid.UUID
	Def      *PropDef
	Location geometry.Point
	items    []*item.Instance
}

// Items returns the held stacks.
func (p *Prop) Items() []*item.Instance {
	return append([]*item.Instance(nil), p.items...)
}

// NumItems returns the number of held stacks.
func (p *Prop) NumItems() int { return len(p.items) }

// TakeAll empties the prop and returns what it held.
func (p *Prop) TakeAll() []*item.Instance {
	out := p.items
	p.items = nil
	return out
}

// Area is the live state of one map.
// It is not safe for concurrent use; the simulation goroutine owns it.
type Area struct {
	ID   string
	Name string

	width, height int
	passable      []bool
	entities      *entity.Registry[*Entity]
	props         []*Prop
	turnActive    bool
	targeter      *targeter.Targeter
	logger        *zap.Logger
}

// New builds an empty area from def.
//
// Precondition: def has passed Validate; logger must be non-nil.
func New(def *Def, logger *zap.Logger) *Area {
	a := &Area{
		ID:       def.ID,
		Name:     def.Name,
		width:    def.Width(),
		height:   def.Height(),
		entities: entity.NewRegistry[*Entity](),
		logger:   logger,
	}
	a.passable = make([]bool, a.width*a.height)
	for y, row := range def.Terrain {
		for x, c := range row {
			a.passable[y*a.width+x] = c == TileOpen
		}
	}
	return a
}

// Width returns the column count.
func (a *Area) Width() int { return a.width }

// Height returns the row count.
func (a *Area) Height() int { return a.height }

// InBounds reports whether p lies on the map.
func (a *Area) InBounds(p geometry.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < a.width && p.Y < a.height
}

// TerrainPassable reports whether the terrain at p is walkable, ignoring entities.
func (a *Area) TerrainPassable(p geometry.Point) bool {
	return a.InBounds(p) && a.passable[p.Y*a.width+p.X]
}

// IsPassable reports whether size fits with its top-left at p: every
// covered tile is in bounds, walkable terrain, and not covered by a living
// entity other than ignore.
func (a *Area) IsPassable(size *geometry.ObjectSize, p geometry.Point, ignore entity.Handle) bool {
	for _, c := range size.At(p) {
		if !a.TerrainPassable(c) {
			return false
		}
		for _, h := range a.EntitiesAt(c) {
			if h == ignore {
				continue
			}
			if e, ok := a.entities.Get(h); ok && !e.Actor.IsDead() {
				return false
			}
		}
	}
	return true
}

// AddActor places state on the map with its top-left at loc.
//
// Postcondition: returns ErrBlocked if the footprint does not fit.
func (a *Area) AddActor(state *actor.State, size *geometry.ObjectSize, loc geometry.Point) (entity.Handle, error) {
	if !a.IsPassable(size, loc, entity.None) {
		return entity.None, fmt.Errorf("placing %q at %s: %w", state.Actor.ID, loc, ErrBlocked)
	}
	e := &Entity{Location: loc, Size: size, Actor: state}
	h := a.entities.Insert(e)
	e.Handle = h
	a.logger.Debug("entity added",
		zap.String("area", a.ID),
		zap.String("actor", state.Actor.ID),
		zap.Stringer("handle", h),
		zap.Stringer("location", loc),
	)
	return h, nil
}

// Remove retires the entity for h.
func (a *Area) Remove(h entity.Handle) (*Entity, bool) {
	e, ok := a.entities.Remove(h)
	if ok {
		a.logger.Debug("entity removed", zap.String("area", a.ID), zap.Stringer("handle", h))
	}
	return e, ok
}

// Get returns the entity for h for read access.
func (a *Area) Get(h entity.Handle) (*Entity, bool) { return a.entities.Get(h) }

// Live reports whether h resolves to an entity in this area.
func (a *Area) Live(h entity.Handle) bool { return a.entities.Live(h) }

// With grants fn exclusive mutable access to the entity for h.
// See entity.Registry.With for the borrow rules.
func (a *Area) With(h entity.Handle, fn func(*Entity) error) error {
	return a.entities.With(h, fn)
}

// Handles returns every live handle in ascending order.
func (a *Area) Handles() []entity.Handle { return a.entities.Handles() }

// EntitiesAt returns the live entities whose footprint covers p, in handle order.
func (a *Area) EntitiesAt(p geometry.Point) []entity.Handle {
	var out []entity.Handle
	for _, h := range a.entities.Handles() {
		e, _ := a.entities.Get(h)
		for _, c := range e.Footprint() {
			if c == p {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// Location returns the top-left tile of the entity for h.
func (a *Area) Location(h entity.Handle) (geometry.Point, bool) {
	e, ok := a.entities.Get(h)
	if !ok {
		return geometry.Point{}, false
	}
	return e.Location, true
}

// Footprint returns the tiles the entity for h covers, or nil if stale.
func (a *Area) Footprint(h entity.Handle) []geometry.Point {
	e, ok := a.entities.Get(h)
	if !ok {
		return nil
	}
	return e.Footprint()
}

// Distance returns the center-to-center distance between two live entities.
func (a *Area) Distance(from, to entity.Handle) (float64, bool) {
	ea, ok := a.entities.Get(from)
	if !ok {
		return 0, false
	}
	eb, ok := a.entities.Get(to)
	if !ok {
		return 0, false
	}
	ax, ay := ea.center()
	bx, by := eb.center()
	return math.Hypot(ax-bx, ay-by), true
}

// Move relocates the entity for h to p.
//
// Postcondition: returns ErrBlocked and leaves the entity in place if its
// footprint does not fit at p.
func (a *Area) Move(h entity.Handle, p geometry.Point) error {
	return a.entities.With(h, func(e *Entity) error {
		if !a.IsPassable(e.Size, p, h) {
			return fmt.Errorf("moving %s to %s: %w", h, p, ErrBlocked)
		}
		e.Location = p
		return nil
	})
}

// AddProp spawns a prop holding items at loc.
func (a *Area) AddProp(def *PropDef, loc geometry.Point, items []*item.Instance) *Prop {
	p := &Prop{ID: uuid.New(), Def: def, Location: loc, items: items}
	a.props = append(a.props, p)
	a.logger.Debug("prop added",
		zap.String("area", a.ID),
		zap.String("prop", def.ID),
		zap.Stringer("location", loc),
		zap.Int("items", len(items)),
	)
	return p
}

// Props returns every prop in spawn order.
func (a *Area) Props() []*Prop { return append([]*Prop(nil), a.props...) }

// PropsAt returns the props at p.
func (a *Area) PropsAt(p geometry.Point) []*Prop {
	var out []*Prop
	for _, pr := range a.props {
		if pr.Location == p {
			out = append(out, pr)
		}
	}
	return out
}

// RemoveProp drops the prop with id.
func (a *Area) RemoveProp(id uuid.UUID) bool {
	for i, p := range a.props {
		if p.ID == id {
			a.props = append(a.props[:i], a.props[i+1:]...)
			return true
		}
	}
	return false
}

// SetTurnActive records whether a turn-based encounter is running.
func (a *Area) SetTurnActive(v bool) { a.turnActive = v }

// IsTurnActive reports whether a turn-based encounter is running.
func (a *Area) IsTurnActive() bool { return a.turnActive }

// SetTargeter activates t and installs it as the area's targeter.
//
// Postcondition: returns ErrTargeterActive if an Active targeter is
// installed; the running one is kept.
func (a *Area) SetTargeter(t *targeter.Targeter) error {
	if a.targeter != nil && a.targeter.State() == targeter.Active {
		return ErrTargeterActive
	}
	if err := t.Activate(); err != nil {
		return err
	}
	a.targeter = t
	return nil
}

// Targeter returns the installed targeter, or nil.
func (a *Area) Targeter() *targeter.Targeter { return a.targeter }

// ClearTargeter removes the installed targeter.
func (a *Area) ClearTargeter() { a.targeter = nil }
