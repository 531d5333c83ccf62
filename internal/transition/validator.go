// Package transition implements the Transition Validator (spec.md 4.4):
// given an entity and a trigger, it resolves the active flow, the target
// status/role, and evaluates the prerequisite checks in the order spec.md
// defines, returning a typed apierr.Error on the first failure.
//
// Grounded on the teacher's internal/workflow/service.go transition-lookup
// shape and internal/models/validation.go's sentinel-error style,
// generalized from the teacher's single-flat-map StatusFlow to the spec's
// per-kind, multi-flow, tag-selected model (internal/flowconfig).
package transition

import (
	"context"
	"fmt"

	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/flowconfig"
	"github.com/jwwelbor/taskflow/internal/store"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// Transition is the resolved move a validated trigger produces.
type Transition struct {
	Trigger      workitem.Trigger
	FromStatus   string
	ToStatus     string
	FromRole     workitem.Role
	ToRole       workitem.Role
	ActiveFlow   string
	Sequence     []string
	FlowPosition int // index of ToStatus in Sequence, or -1 if not a sequence status
}

// Validator resolves and validates transitions (spec.md 4.4).
type Validator struct {
	flows *flowconfig.Service
	store *store.Store

	// RequireChildCompletion enables the optional child-completion gate
	// (spec.md 4.4.5): "optional policy — if configured, all direct
	// children must be in a Terminal role." Off by default; the Cascade
	// Engine performs its own sibling-completion check independently of
	// this gate (spec.md 4.6).
	RequireChildCompletion bool
}

// New builds a Validator over flows and st.
func New(flows *flowconfig.Service, st *store.Store) *Validator {
	return &Validator{flows: flows, store: st}
}

// Resolve validates trigger against item and returns the Transition to
// apply, or a typed apierr.Error naming the first failed prerequisite.
func (v *Validator) Resolve(ctx context.Context, item *workitem.WorkItem, trigger workitem.Trigger) (*Transition, error) {
	t, err := v.resolveTarget(item, trigger)
	if err != nil {
		return nil, err
	}

	// 1. Status validity (usually holds by construction: the target was
	// read out of the Flow Configuration itself).
	if _, err := v.flows.RoleOf(item.Kind, t.ToStatus); err != nil {
		return nil, err
	}

	// 2. Summary presence.
	if t.ToRole == workitem.RoleTerminal && item.Summary == "" {
		return nil, apierr.New(apierr.KindMissingSummary,
			fmt.Sprintf("%s %s cannot enter a terminal status without a summary", item.Kind, item.ID), nil)
	}

	// 3. Verification gate.
	if item.RequiresVerification && t.ToRole == workitem.RoleTerminal {
		reviewed, err := v.store.HasEnteredRole(ctx, item.ID, workitem.RoleReview)
		if err != nil {
			return nil, err
		}
		if !reviewed {
			return nil, apierr.New(apierr.KindVerificationRequired,
				fmt.Sprintf("%s %s requires verification before completing; it has not passed review", item.Kind, item.ID), nil)
		}
	}

	// 4. Dependency gate (Tasks only).
	if item.Kind == workitem.KindTask && t.ToRole.AtLeast(workitem.RoleWork) {
		if err := v.checkDependencyGate(ctx, item); err != nil {
			return nil, err
		}
	}

	// 5. Child completion gate (Feature/Project, only on complete).
	if v.RequireChildCompletion && trigger == workitem.TriggerComplete && item.Kind != workitem.KindTask {
		if err := v.checkChildCompletionGate(ctx, item); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func (v *Validator) resolveTarget(item *workitem.WorkItem, trigger workitem.Trigger) (*Transition, error) {
	flow, err := v.flows.ActiveFlow(item.Kind, item.Tags)
	if err != nil {
		return nil, err
	}
	fromRole, err := v.flows.RoleOf(item.Kind, item.Status)
	if err != nil {
		return nil, err
	}

	base := &Transition{
		Trigger:    trigger,
		FromStatus: item.Status,
		FromRole:   fromRole,
		ActiveFlow: flow.Name,
		Sequence:   flow.Sequence,
	}

	if workitem.EmergencyTriggers[trigger] {
		target, ok := flow.Emergency[trigger]
		if !ok {
			return nil, apierr.New(apierr.KindValidation,
				fmt.Sprintf("flow %q declares no emergency transition for trigger %q", flow.Name, trigger), nil)
		}
		return finishTarget(base, target, v.flows, item.Kind)
	}

	switch trigger {
	case workitem.TriggerStart:
		idx := indexOf(flow.Sequence, item.Status)
		if idx < 0 {
			return nil, apierr.New(apierr.KindValidation,
				fmt.Sprintf("status %q is not part of active flow %q's sequence", item.Status, flow.Name), nil)
		}
		if idx >= len(flow.Sequence)-1 || containsStr(flow.TerminalStatuses, item.Status) {
			return nil, apierr.New(apierr.KindAlreadyTerminal,
				fmt.Sprintf("%s %s is already terminal; start has no next status", item.Kind, item.ID), nil)
		}
		return finishTarget(base, flow.Sequence[idx+1], v.flows, item.Kind)

	case workitem.TriggerComplete:
		target := ""
		if len(flow.TerminalStatuses) > 0 {
			target = flow.TerminalStatuses[0]
		} else if len(flow.Sequence) > 0 {
			target = flow.Sequence[len(flow.Sequence)-1]
		}
		if target == "" {
			return nil, apierr.New(apierr.KindValidation,
				fmt.Sprintf("flow %q declares no terminal status", flow.Name), nil)
		}
		return finishTarget(base, target, v.flows, item.Kind)

	default:
		return nil, apierr.New(apierr.KindValidation, fmt.Sprintf("unknown trigger %q", trigger), nil)
	}
}

func finishTarget(base *Transition, target string, flows *flowconfig.Service, kind workitem.Kind) (*Transition, error) {
	toRole, err := flows.RoleOf(kind, target)
	if err != nil {
		return nil, err
	}
	base.ToStatus = target
	base.ToRole = toRole
	base.FlowPosition = indexOf(base.Sequence, target)
	return base, nil
}

// checkDependencyGate enforces spec.md 4.4.4: every incoming Blocks edge's
// source task must have reached or passed the edge's unblockAt role.
func (v *Validator) checkDependencyGate(ctx context.Context, item *workitem.WorkItem) error {
	blocksType := workitem.StoredBlocks
	incoming, err := v.store.FindDependenciesByTask(ctx, item.ID, workitem.DirectionIncoming, &blocksType)
	if err != nil {
		return err
	}
	if len(incoming) == 0 {
		return nil
	}

	var blockers []string
	for _, dep := range incoming {
		source, err := v.store.Get(ctx, workitem.KindTask, dep.FromTaskID)
		if err != nil {
			return err
		}
		if !source.Role.AtLeast(dep.EffectiveUnblockAt()) {
			blockers = append(blockers, source.ID.String())
		}
	}
	if len(blockers) > 0 {
		return apierr.New(apierr.KindBlockedBy,
			fmt.Sprintf("task %s is blocked by %d incoming dependency(ies)", item.ID, len(blockers)),
			map[string]interface{}{"blockerTaskIds": blockers})
	}
	return nil
}

// checkChildCompletionGate enforces spec.md 4.4.5: every direct child of a
// Project/Feature must be Terminal before the parent may complete.
func (v *Validator) checkChildCompletionGate(ctx context.Context, item *workitem.WorkItem) error {
	children, err := v.store.ChildrenRoles(ctx, item.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.Role != workitem.RoleTerminal {
			return apierr.New(apierr.KindIncompleteChildren,
				fmt.Sprintf("%s %s has non-terminal children", item.Kind, item.ID), nil)
		}
	}
	return nil
}

func indexOf(xs []string, x string) int {
	for i, v := range xs {
		if v == x {
			return i
		}
	}
	return -1
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
