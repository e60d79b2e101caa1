package actor

import "github.com/cory-johannsen/tactica/internal/game/effect"

// SavedEffect is a persisted effect timer.
type SavedEffect struct {
	DefID          string `json:"def_id"`
	DurationMillis int    `json:"duration_millis"`
	ElapsedMillis  int    `json:"elapsed_millis"`
}

// Progress is the persisted part of a State.
type Progress struct {
	ActorID   string         `json:"actor_id"`
	HP        int            `json:"hp"`
	XP        int            `json:"xp"`
	Levels    map[string]int `json:"levels"`
	Cooldowns map[string]int `json:"cooldowns"`
	Effects   []SavedEffect  `json:"effects"`
}

// Snapshot captures the persisted part of s.
func (s *State) Snapshot() Progress {
	p := Progress{
		ActorID:   s.Actor.ID,
		HP:        s.hp,
		XP:        s.xp,
		Levels:    make(map[string]int, len(s.Actor.Levels)),
		Cooldowns: make(map[string]int, len(s.abilityStates)),
	}
	for _, l := range s.Actor.Levels {
		p.Levels[l.Class.ID] = l.Level
	}
	for id, st := range s.abilityStates {
		if st.Remaining() > 0 {
			p.Cooldowns[id] = st.Remaining()
		}
	}
	for _, e := range s.effects.All() {
		p.Effects = append(p.Effects, SavedEffect{DefID: e.DefID, DurationMillis: e.DurationMillis, ElapsedMillis: e.ElapsedMillis})
	}
	return p
}

// Restore applies p on top of the freshly created s. Effects whose
// definition lookup fails are skipped and returned by id.
//
// Precondition: p.ActorID == s.Actor.ID. Class levels are restored by the
// caller through LevelUp before Restore.
func (s *State) Restore(p Progress, lookup func(id string) (*effect.Def, bool)) []string {
	var skipped []string
	s.xp = p.XP
	for id, ms := range p.Cooldowns {
		if st, ok := s.abilityStates[id]; ok {
			st.SetRemaining(ms)
		}
	}
	for _, se := range p.Effects {
		def, ok := lookup(se.DefID)
		if !ok {
			skipped = append(skipped, se.DefID)
			continue
		}
		e := effect.New(def, se.DurationMillis)
		e.ElapsedMillis = se.ElapsedMillis
		s.effects.Add(e)
	}
	s.ComputeStats()
	s.hp = p.HP
	if s.hp > s.Stats.MaxHP {
		s.hp = s.Stats.MaxHP
	}
	return skipped
}
