package workitem

import "fmt"

// Role is the coarse, derived workflow phase of a status (spec.md 3, 4.3).
// Blocked is intentionally negative so "role >= Queue" excludes blocked
// items without a special case (spec.md 9, "Role comparison arithmetic").
type Role int

const (
	RoleBlocked  Role = -1
	RoleQueue    Role = 0
	RoleWork     Role = 1
	RoleReview   Role = 2
	RoleTerminal Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleBlocked:
		return "blocked"
	case RoleQueue:
		return "queue"
	case RoleWork:
		return "work"
	case RoleReview:
		return "review"
	case RoleTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole parses the string form written by Role.String, used when
// reading a role value back out of persisted configuration or dependency
// unblockAt fields.
func ParseRole(s string) (Role, error) {
	switch s {
	case "blocked":
		return RoleBlocked, nil
	case "queue":
		return RoleQueue, nil
	case "work":
		return RoleWork, nil
	case "review":
		return RoleReview, nil
	case "terminal":
		return RoleTerminal, nil
	default:
		return 0, fmt.Errorf("invalid role %q", s)
	}
}

// AtLeast reports whether r meets or exceeds other on the ordinal scale
// used by the dependency gate and the Cascade Engine's unblock detection.
func (r Role) AtLeast(other Role) bool {
	return r >= other
}
