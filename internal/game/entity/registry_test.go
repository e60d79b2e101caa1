package entity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactica/internal/game/entity"
	"github.com/cory-johannsen/tactica/internal/game/geometry"
)

type thing struct{ hp int }

func TestRegistry_InsertGet(t *testing.T) {
	r := entity.NewRegistry[*thing]()
	h := r.Insert(&thing{hp: 5})
	got, ok := r.Get(h)
	require.True(t, ok)
	assert.Equal(t, 5, got.hp)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_StaleHandleResolvesToGone(t *testing.T) {
	r := entity.NewRegistry[*thing]()
	h := r.Insert(&thing{hp: 5})
	_, ok := r.Remove(h)
	require.True(t, ok)

	_, ok = r.Get(h)
	assert.False(t, ok)
	err := r.With(h, func(*thing) error { return nil })
	assert.True(t, errors.Is(err, entity.ErrGone))

	// A later insert never reuses the slot.
	h2 := r.Insert(&thing{hp: 9})
	assert.NotEqual(t, h, h2)
	_, ok = r.Get(h)
	assert.False(t, ok)
}

func TestRegistry_InvalidHandle(t *testing.T) {
	r := entity.NewRegistry[*thing]()
	assert.False(t, r.Live(entity.None))
	assert.False(t, r.Live(entity.Handle(42)))
	_, ok := r.Remove(entity.None)
	assert.False(t, ok)
}

func TestRegistry_With_RejectsReentrantBorrow(t *testing.T) {
	r := entity.NewRegistry[*thing]()
	h := r.Insert(&thing{hp: 5})
	err := r.With(h, func(th *thing) error {
		th.hp = 3
		return r.With(h, func(th *thing) error {
			th.hp = 0
			return nil
		})
	})
	assert.True(t, errors.Is(err, entity.ErrBorrowed))
	got, _ := r.Get(h)
	assert.Equal(t, 3, got.hp)

	// The borrow is released afterwards.
	require.NoError(t, r.With(h, func(th *thing) error { th.hp = 1; return nil }))
	assert.Equal(t, 1, got.hp)
}

func TestRegistry_With_DistinctHandlesNest(t *testing.T) {
	r := entity.NewRegistry[*thing]()
	a := r.Insert(&thing{hp: 1})
	b := r.Insert(&thing{hp: 2})
	err := r.With(a, func(ta *thing) error {
		return r.With(b, func(tb *thing) error {
			ta.hp, tb.hp = tb.hp, ta.hp
			return nil
		})
	})
	require.NoError(t, err)
	ga, _ := r.Get(a)
	gb, _ := r.Get(b)
	assert.Equal(t, 2, ga.hp)
	assert.Equal(t, 1, gb.hp)
}

func TestSet_Operations(t *testing.T) {
	s := entity.NewSet(2, entity.None, 4, 2)
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Contains(4))
	assert.False(t, s.Contains(entity.None))
	assert.Equal(t, []entity.Handle{2, 4, 2}, s.Present())
	assert.Equal(t, []entity.Handle{entity.None, 4}, s.Without(2).Handles)

	p := s.WithPoint(geometry.Point{X: 3, Y: 7})
	require.NotNil(t, p.Point)
	assert.Equal(t, geometry.Point{X: 3, Y: 7}, *p.Point)
	assert.Nil(t, s.Point)
}

func TestProperty_HandlesMatchLiveSlots(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := entity.NewRegistry[int]()
		n := rapid.IntRange(1, 30).Draw(rt, "n")
		live := map[entity.Handle]bool{}
		for i := 0; i < n; i++ {
			live[r.Insert(i)] = true
		}
		removals := rapid.SliceOfN(rapid.IntRange(0, n-1), 0, n).Draw(rt, "removals")
		for _, idx := range removals {
			h := entity.Handle(idx)
			_, ok := r.Remove(h)
			assert.Equal(rt, live[h], ok)
			delete(live, h)
		}
		assert.Equal(rt, len(live), r.Len())
		for _, h := range r.Handles() {
			assert.True(rt, live[h])
		}
	})
}
