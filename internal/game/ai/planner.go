package ai

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactica/internal/game/entity"
)

const maxDepth = 32 // guard against recursive decompositions

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Action  string        // "use" or "pass"
	Ability string        // ability to activate for "use"
	Target  entity.Handle // entity.None when the operator has no target
}

// Planner evaluates an HTN domain for one entity and produces an ordered
// action plan for its turn.
//
// Invariant: domain and conditions must not be nil.
type Planner struct {
	domain     *Domain
	conditions Conditions
	logger     *zap.Logger
}

// NewPlanner constructs a Planner.
//
// Precondition: domain, conditions and logger must not be nil.
func NewPlanner(domain *Domain, conditions Conditions, logger *zap.Logger) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	if conditions == nil {
		panic("ai.NewPlanner: conditions must not be nil")
	}
	return &Planner{domain: domain, conditions: conditions, logger: logger.With(zap.String("domain", domain.ID))}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan evaluates the HTN domain against state and returns an ordered plan.
//
// Precondition: state and state.Self must not be nil.
// Postcondition: returns a non-nil slice (may be empty); failing
// preconditions are logged and treated as false. A "use" operator whose
// target token matches nobody is dropped.
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Self == nil {
		return nil, errors.New("ai.Planner.Plan: state and state.Self must not be nil")
	}

	taskQueue := []string{RootTask}
	result := []PlannedAction{}
	steps := 0

	for len(taskQueue) > 0 && steps < maxDepth {
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			action := PlannedAction{Action: op.Action, Ability: op.Ability, Target: entity.None}
			if op.Target != "" {
				target := state.ResolveTarget(op.Target)
				if target == nil {
					continue
				}
				action.Target = target.Handle
			}
			result = append(result, action)
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}
		taskQueue = append(append([]string(nil), method.Subtasks...), taskQueue...)
	}
	return result, nil
}

// findApplicableMethod returns the first Method for taskID whose precondition
// passes, or nil. Methods are tried in declaration order.
func (p *Planner) findApplicableMethod(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" {
			return m
		}
		ok, err := p.conditions.Check(m.Precondition, state)
		if err != nil {
			p.logger.Warn("precondition failed", zap.String("method", m.ID), zap.Error(err))
			continue
		}
		if ok {
			return m
		}
	}
	return nil
}
