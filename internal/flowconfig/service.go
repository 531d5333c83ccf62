package flowconfig

import (
	"fmt"
	"sync"

	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// Service serves a loaded Flow Configuration document behind a read/write
// barrier, mirroring the teacher's config.Manager cache
// (internal/config/manager.go): read-mostly access via RLock, full replace
// under Lock on Reload (spec.md 5: "Flow Configuration ... hot-reload, if
// offered, is a full replace under a read/write barrier").
type Service struct {
	mu  sync.RWMutex
	doc *Document
}

// NewService wraps an already-loaded Document.
func NewService(doc *Document) *Service {
	return &Service{doc: doc}
}

// NewDefaultService builds a Service over the built-in Default() document.
func NewDefaultService() *Service {
	return NewService(Default())
}

// Reload atomically replaces the served document, setting the new
// document's Version to the previous one plus one (readable through
// Version). RoleTransition records do not capture this version.
func (s *Service) Reload(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc != nil {
		doc.Version = s.doc.Version + 1
	}
	s.doc = doc
}

// Version returns the currently served document's version stamp.
func (s *Service) Version() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Version
}

func (s *Service) kindFlows(kind workitem.Kind) (*KindFlows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kf, ok := s.doc.Kinds[kind]
	if !ok {
		return nil, apierr.New(apierr.KindConfigurationError, fmt.Sprintf("no flow configuration for kind %q", kind), nil)
	}
	return kf, nil
}

// ActiveFlow implements the flow-selection rule (spec.md 4.3): iterate
// flows in declared order, the first whose SelectorTags is a subset of
// tags wins; default_flow (empty selector) is always eligible as the
// fallback.
func (s *Service) ActiveFlow(kind workitem.Kind, tags []string) (Flow, error) {
	kf, err := s.kindFlows(kind)
	if err != nil {
		return Flow{}, err
	}
	for _, flow := range kf.Flows {
		if workitem.HasAllTags(tags, flow.SelectorTags) {
			return flow, nil
		}
	}
	return Flow{}, apierr.New(apierr.KindConfigurationError, fmt.Sprintf("no eligible flow (not even default_flow) for kind %q", kind), nil)
}

// RoleOf implements the global status->role mapping (spec.md 4.3): the
// same status always maps to the same role regardless of the active flow.
func (s *Service) RoleOf(kind workitem.Kind, status string) (workitem.Role, error) {
	kf, err := s.kindFlows(kind)
	if err != nil {
		return 0, err
	}
	role, ok := kf.Statuses[status]
	if !ok {
		return 0, apierr.New(apierr.KindConfigurationError, fmt.Sprintf("status %q is not defined for kind %q", status, kind), map[string]interface{}{"status": status, "kind": string(kind)})
	}
	return role, nil
}

// SequenceFor returns the active flow's ordered status sequence.
func (s *Service) SequenceFor(kind workitem.Kind, tags []string) ([]string, error) {
	flow, err := s.ActiveFlow(kind, tags)
	if err != nil {
		return nil, err
	}
	return flow.Sequence, nil
}

// EmergencyTarget resolves cancel/block/hold from the active flow's
// emergency table.
func (s *Service) EmergencyTarget(kind workitem.Kind, tags []string, trigger workitem.Trigger) (string, bool, error) {
	flow, err := s.ActiveFlow(kind, tags)
	if err != nil {
		return "", false, err
	}
	target, ok := flow.Emergency[trigger]
	return target, ok, nil
}

// IsTerminalStatus reports whether status is one of the active flow's
// terminal statuses.
func (s *Service) IsTerminalStatus(kind workitem.Kind, tags []string, status string) (bool, error) {
	flow, err := s.ActiveFlow(kind, tags)
	if err != nil {
		return false, err
	}
	return containsStr(flow.TerminalStatuses, status), nil
}
