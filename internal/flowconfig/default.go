package flowconfig

import "github.com/jwwelbor/taskflow/internal/workitem"

// Default returns the backward-compatible default Flow Configuration, used
// when no configuration document is present, the same role the teacher's
// DefaultWorkflow() plays for .sharkconfig.json (internal/config/workflow_default.go).
func Default() *Document {
	doc := &Document{
		Version: 0,
		Kinds: map[workitem.Kind]*KindFlows{
			workitem.KindProject: containerFlows(),
			workitem.KindFeature: containerFlows(),
			workitem.KindTask:    taskFlows(),
		},
	}
	if err := resolveRoles(doc); err != nil {
		panic("default flow config is malformed: " + err.Error())
	}
	if err := Validate(doc); err != nil {
		panic("default flow config failed validation: " + err.Error())
	}
	return doc
}

// containerFlows is shared by Project and Feature: plan -> work -> done,
// with cancel/block/hold emergency exits.
func containerFlows() *KindFlows {
	return &KindFlows{
		StatusesRaw: map[string]string{
			"planning":    "queue",
			"in_progress": "work",
			"completed":   "terminal",
			"cancelled":   "terminal",
			"blocked":     "blocked",
			"on_hold":     "blocked",
		},
		Flows: []Flow{
			{
				Name:             DefaultFlowName,
				SelectorTags:     nil,
				Sequence:         []string{"planning", "in_progress", "completed"},
				TerminalStatuses: []string{"completed"},
				Emergency: map[workitem.Trigger]string{
					workitem.TriggerCancel: "cancelled",
					workitem.TriggerBlock:  "blocked",
					workitem.TriggerHold:   "on_hold",
				},
			},
		},
	}
}

// taskFlows adds a review step absent from the container flow, matching
// spec.md's seed scenario S2 (pending -> in_progress -> in_review -> completed).
func taskFlows() *KindFlows {
	return &KindFlows{
		StatusesRaw: map[string]string{
			"pending":     "queue",
			"in_progress": "work",
			"in_review":   "review",
			"completed":   "terminal",
			"cancelled":   "terminal",
			"blocked":     "blocked",
			"on_hold":     "blocked",
		},
		Flows: []Flow{
			{
				Name:             "hotfix",
				SelectorTags:     []string{"hotfix"},
				Sequence:         []string{"pending", "in_progress", "completed"},
				TerminalStatuses: []string{"completed"},
				Emergency: map[workitem.Trigger]string{
					workitem.TriggerCancel: "cancelled",
					workitem.TriggerBlock:  "blocked",
					workitem.TriggerHold:   "on_hold",
				},
			},
			{
				Name:             DefaultFlowName,
				SelectorTags:     nil,
				Sequence:         []string{"pending", "in_progress", "in_review", "completed"},
				TerminalStatuses: []string{"completed"},
				Emergency: map[workitem.Trigger]string{
					workitem.TriggerCancel: "cancelled",
					workitem.TriggerBlock:  "blocked",
					workitem.TriggerHold:   "on_hold",
				},
			},
		},
	}
}
