package targeter

import (
	"fmt"

	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

// Data is the selection-in-progress record a script builds before
// activating a targeter.
type Data struct {
	AbilityID string
	Parent    entity.Handle
	// Selectable holds the entities the player may pick.
	Selectable []entity.Handle
	// Effectable holds the entities an area shape may affect.
	Effectable    []entity.Handle
	Shape         Shape
	ShowMouseover bool
	// FreeSelect, when set, allows committing on any tile within this
	// distance of the parent.
	FreeSelect *float64
	// FreeSelectMustBePassable names the object size that must fit on the
	// committed tile.
	FreeSelectMustBePassable string
	// Forced targeters cannot be cancelled freely.
	Forced bool
}

// NewData returns a single-target Data for parent and abilityID.
func NewData(parent entity.Handle, abilityID string) *Data {
	return &Data{
		AbilityID:     abilityID,
		Parent:        parent,
		Shape:         SingleShape(),
		ShowMouseover: true,
	}
}

// AddSelectable extends the selectable set.
func (d *Data) AddSelectable(hs ...entity.Handle) { d.Selectable = append(d.Selectable, hs...) }

// AddEffectable extends the effectable set.
func (d *Data) AddEffectable(hs ...entity.Handle) { d.Effectable = append(d.Effectable, hs...) }

// SetShape validates s against sizes and installs it.
//
// Postcondition: on error the previous shape is kept.
func (d *Data) SetShape(s Shape, sizes *geometry.Sizes) error {
	if err := s.Validate(sizes); err != nil {
		return err
	}
	d.Shape = s
	return nil
}

// SetFreeSelect allows committing on any tile within dist of the parent.
func (d *Data) SetFreeSelect(dist float64) {
	d.FreeSelect = &dist
}

// SetFreeSelectMustBePassable requires the committed tile to fit size.
//
// Postcondition: returns an error wrapping ErrUnknownObjectSize if size is
// not loaded; the constraint is left unchanged.
func (d *Data) SetFreeSelectMustBePassable(size string, sizes *geometry.Sizes) error {
	if _, ok := sizes.Get(size); !ok {
		return fmt.Errorf("%w %q", ErrUnknownObjectSize, size)
	}
	d.FreeSelectMustBePassable = size
	return nil
}

// Clone returns a deep copy of d.
func (d *Data) Clone() *Data {
	out := *d
	out.Selectable = append([]entity.Handle(nil), d.Selectable...)
	out.Effectable = append([]entity.Handle(nil), d.Effectable...)
	if d.FreeSelect != nil {
		v := *d.FreeSelect
		out.FreeSelect = &v
	}
	return &out
}

// Validate re-checks every named object size.
func (d *Data) Validate(sizes *geometry.Sizes) error {
	if err := d.Shape.Validate(sizes); err != nil {
		return err
	}
	if d.FreeSelectMustBePassable != "" {
		if _, ok := sizes.Get(d.FreeSelectMustBePassable); !ok {
			return fmt.Errorf("%w %q", ErrUnknownObjectSize, d.FreeSelectMustBePassable)
		}
	}
	return nil
}
