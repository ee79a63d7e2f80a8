package guard

import (
	"context"
	"fmt"
	"strings"
)

// Policy selects how mutations against cart lines are serialized.
type Policy string

const (
	// PolicyPerLine allows one in-flight mutation per line; different lines
	// may be mutated concurrently.
	PolicyPerLine Policy = "per_line"
	// PolicyGlobal allows one in-flight mutation per scope, whatever the line.
	PolicyGlobal Policy = "global"
)

// ParsePolicy maps a configured value onto a Policy; empty means per line.
func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyPerLine:
		return PolicyPerLine, nil
	case PolicyGlobal:
		return PolicyGlobal, nil
	default:
		return "", fmt.Errorf("unknown guard policy %q", value)
	}
}

// Guard serializes quantity and removal mutations on cart lines. A scope is
// one checkout session. Every Begin that returns true must be followed by
// exactly one End for the same scope and line.
type Guard interface {
	// Begin marks lineID as being mutated. It returns false, with no error,
	// when the policy forbids a second in-flight mutation.
	Begin(ctx context.Context, scope, lineID string) (bool, error)
	End(ctx context.Context, scope, lineID string) error
	// InFlight lists the lines currently being mutated in scope.
	InFlight(ctx context.Context, scope string) ([]string, error)
	Policy() Policy
}

func validateArgs(scope, lineID string) error {
	if strings.TrimSpace(scope) == "" {
		return fmt.Errorf("guard scope required")
	}
	if strings.TrimSpace(lineID) == "" {
		return fmt.Errorf("guard line id required")
	}
	return nil
}
