package workitem

// Trigger is a named action the Transition Validator resolves to a
// concrete status move (spec.md 4.4, glossary).
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
	TriggerBlock    Trigger = "block"
	TriggerHold     Trigger = "hold"
)

// EmergencyTriggers are the triggers resolved via a flow's emergency
// transitions table rather than its sequence (spec.md 4.3/4.4).
var EmergencyTriggers = map[Trigger]bool{
	TriggerCancel: true,
	TriggerBlock:  true,
	TriggerHold:   true,
}

func (t Trigger) Valid() bool {
	switch t {
	case TriggerStart, TriggerComplete, TriggerCancel, TriggerBlock, TriggerHold:
		return true
	default:
		return false
	}
}
