// Package flowconfig parses and serves the Flow Configuration document
// (spec.md 4.3, 6), generalizing the teacher's internal/config workflow
// schema (a single flat status_flow map) into the spec's per-kind,
// multi-flow, tag-selected model.
package flowconfig

import "github.com/jwwelbor/taskflow/internal/workitem"

// DefaultFlowName is the fallback flow whose SelectorTags is always empty.
const DefaultFlowName = "default_flow"

// Flow is one named progression of statuses for a given entity kind
// (spec.md 4.3).
type Flow struct {
	Name             string                        `json:"name" yaml:"name"`
	SelectorTags     []string                      `json:"selectorTags" yaml:"selectorTags"`
	Sequence         []string                      `json:"sequence" yaml:"sequence"`
	TerminalStatuses []string                      `json:"terminalStatuses" yaml:"terminalStatuses"`
	Emergency        map[workitem.Trigger]string   `json:"emergency" yaml:"emergency"`
}

// KindFlows is the per-entity-kind section of the document: the global
// status->role table plus the ordered list of candidate flows.
type KindFlows struct {
	Statuses map[string]workitem.Role `json:"-" yaml:"-"`
	// StatusesRaw is what's actually serialized (role names, not the Role
	// int); resolveRoles converts it into Statuses during Load/Parse.
	StatusesRaw map[string]string `json:"statuses" yaml:"statuses"`
	Flows       []Flow            `json:"flows" yaml:"flows"`
}

// Document is the full parsed Flow Configuration, plus a version stamp
// that Service.Reload bumps and Service.Version reports. RoleTransition
// records do not store this version.
type Document struct {
	Version int                          `json:"-" yaml:"-"`
	Kinds   map[workitem.Kind]*KindFlows `json:"kinds" yaml:"kinds"`
}
