package flowconfig

import (
	"fmt"

	"github.com/jwwelbor/taskflow/internal/apierr"
	"github.com/jwwelbor/taskflow/internal/workitem"
)

// Validate checks a parsed Document against the structural rules spec.md
// 4.3/6 requires: every flow sequence status must be declared in the
// kind's status table ("Unknown statuses in a flow sequence are rejected
// at load time"), terminal statuses must be a subset of the sequence, and
// every emergency target must be a declared status.
func Validate(doc *Document) error {
	for kind, kf := range doc.Kinds {
		if !kind.Valid() {
			return apierr.New(apierr.KindConfigurationError, fmt.Sprintf("unknown entity kind %q", kind), nil)
		}
		if err := validateKindFlows(kind, kf); err != nil {
			return err
		}
	}
	for _, kind := range workitem.Kinds {
		if _, ok := doc.Kinds[kind]; !ok {
			return apierr.New(apierr.KindConfigurationError, fmt.Sprintf("missing flow configuration for kind %q", kind), nil)
		}
	}
	return nil
}

func validateKindFlows(kind workitem.Kind, kf *KindFlows) error {
	if len(kf.Flows) == 0 {
		return apierr.New(apierr.KindConfigurationError, fmt.Sprintf("kind %q declares no flows", kind), nil)
	}

	hasDefault := false
	for _, flow := range kf.Flows {
		if flow.Name == DefaultFlowName && len(flow.SelectorTags) == 0 {
			hasDefault = true
		}
		for _, status := range flow.Sequence {
			if _, ok := kf.Statuses[status]; !ok {
				return apierr.New(apierr.KindConfigurationError,
					fmt.Sprintf("kind %q flow %q references unknown status %q", kind, flow.Name, status), nil)
			}
		}
		for _, terminal := range flow.TerminalStatuses {
			if !containsStr(flow.Sequence, terminal) {
				return apierr.New(apierr.KindConfigurationError,
					fmt.Sprintf("kind %q flow %q terminal status %q not in sequence", kind, flow.Name, terminal), nil)
			}
		}
		for trig, target := range flow.Emergency {
			if !trig.Valid() || !workitem.EmergencyTriggers[trig] {
				return apierr.New(apierr.KindConfigurationError,
					fmt.Sprintf("kind %q flow %q declares non-emergency trigger %q", kind, flow.Name, trig), nil)
			}
			if _, ok := kf.Statuses[target]; !ok {
				return apierr.New(apierr.KindConfigurationError,
					fmt.Sprintf("kind %q flow %q emergency target %q is not a declared status", kind, flow.Name, target), nil)
			}
		}
	}
	if !hasDefault {
		return apierr.New(apierr.KindConfigurationError, fmt.Sprintf("kind %q has no default_flow", kind), nil)
	}
	return nil
}

func containsStr(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
