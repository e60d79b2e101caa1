package ai_test

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/tactica/internal/game/actor"
	"github.com/cory-johannsen/tactica/internal/game/ai"
	"github.com/cory-johannsen/tactica/internal/game/entity"
)

// stubConditions answers every precondition with the same result.
type stubConditions struct {
	ok  bool
	err error
}

func (s stubConditions) Check(string, *ai.WorldState) (bool, error) { return s.ok, s.err }

func bruteDomain() *ai.Domain {
	return &ai.Domain{
		ID: "brute",
		Tasks: []*ai.Task{
			{ID: ai.RootTask},
			{ID: "fight"},
		},
		Methods: []*ai.Method{
			{TaskID: ai.RootTask, ID: "combat_mode", Precondition: "enemies > 0", Subtasks: []string{"fight"}},
			{TaskID: ai.RootTask, ID: "idle_mode", Subtasks: []string{"wait"}},
			{TaskID: "fight", ID: "strike_any", Subtasks: []string{"strike_nearest"}},
		},
		Operators: []*ai.Operator{
			{ID: "strike_nearest", Action: ai.ActionUse, Ability: "strike", Target: "nearest_enemy"},
			{ID: "wait", Action: ai.ActionPass},
		},
	}
}

func hostileState(combatants ...*ai.CombatantState) *ai.WorldState {
	return &ai.WorldState{
		Self:       &ai.CombatantState{Handle: 1, Name: "Goblin", Faction: actor.Hostile, HP: 10, MaxHP: 10, AP: 6},
		Combatants: combatants,
	}
}

func TestPlanner_Plan_UsesAbilityWhenPreconditionTrue(t *testing.T) {
	planner := ai.NewPlanner(bruteDomain(), stubConditions{ok: true}, zaptest.NewLogger(t))
	ws := hostileState(&ai.CombatantState{Handle: 0, Name: "Aldric", Faction: actor.Friendly, HP: 20, MaxHP: 20})

	actions, err := planner.Plan(ws)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("expected one planned action, got %v", actions)
	}
	if actions[0].Action != ai.ActionUse || actions[0].Ability != "strike" {
		t.Fatalf("expected strike, got %+v", actions[0])
	}
	if actions[0].Target != entity.Handle(0) {
		t.Fatalf("expected target handle 0, got %s", actions[0].Target)
	}
}

func TestPlanner_Plan_FallsBackToPassWhenPreconditionFalse(t *testing.T) {
	planner := ai.NewPlanner(bruteDomain(), stubConditions{ok: false}, zaptest.NewLogger(t))
	actions, err := planner.Plan(hostileState())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(actions) != 1 || actions[0].Action != ai.ActionPass || actions[0].Target != entity.None {
		t.Fatalf("expected pass fallback, got %v", actions)
	}
}

func TestPlanner_Plan_PreconditionErrorCountsAsFalse(t *testing.T) {
	planner := ai.NewPlanner(bruteDomain(), stubConditions{ok: true, err: errors.New("boom")}, zaptest.NewLogger(t))
	actions, err := planner.Plan(hostileState())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(actions) != 1 || actions[0].Action != ai.ActionPass {
		t.Fatalf("expected pass fallback, got %v", actions)
	}
}

func TestPlanner_Plan_DropsUseWithoutTarget(t *testing.T) {
	planner := ai.NewPlanner(bruteDomain(), stubConditions{ok: true}, zaptest.NewLogger(t))
	// Allies only: nearest_enemy resolves to nobody.
	ws := hostileState(&ai.CombatantState{Handle: 2, Faction: actor.Hostile, HP: 5, MaxHP: 5})
	actions, err := planner.Plan(ws)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected empty plan, got %v", actions)
	}
}

func TestPlanner_Plan_NilStateIsError(t *testing.T) {
	planner := ai.NewPlanner(bruteDomain(), stubConditions{}, zaptest.NewLogger(t))
	if _, err := planner.Plan(&ai.WorldState{}); err == nil {
		t.Fatal("expected error for missing Self")
	}
}

func TestPlanner_Plan_RecursiveDomainTerminates(t *testing.T) {
	d := &ai.Domain{
		ID:      "loop",
		Tasks:   []*ai.Task{{ID: ai.RootTask}},
		Methods: []*ai.Method{{TaskID: ai.RootTask, ID: "again", Subtasks: []string{ai.RootTask}}},
	}
	planner := ai.NewPlanner(d, stubConditions{}, zaptest.NewLogger(t))
	actions, err := planner.Plan(hostileState())
	if err != nil || len(actions) != 0 {
		t.Fatalf("expected empty plan, got %v, %v", actions, err)
	}
}

func TestProperty_Planner_NeverReturnsNilSlice(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ok := rapid.Bool().Draw(rt, "precond")
		planner := ai.NewPlanner(bruteDomain(), stubConditions{ok: ok}, zaptest.NewLogger(t))
		ws := hostileState(&ai.CombatantState{Handle: 0, Name: "P", Faction: actor.Friendly, HP: 20, MaxHP: 20})
		actions, err := planner.Plan(ws)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if actions == nil {
			rt.Fatal("Plan must return non-nil slice")
		}
	})
}
