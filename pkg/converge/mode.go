package converge

import (
	"fmt"
	"strings"
)

// Mode selects which parts of the convergence sequence run.
type Mode int

const (
	// ModeV1 joins, reboots and verifies enrollment. It never touches the
	// dependent service and never records Enrollment-Verified.
	ModeV1 Mode = iota + 1
	// ModeV2 additionally gates the dependent service on join purpose and
	// enrollment outcome.
	ModeV2
)

func (m Mode) String() string {
	switch m {
	case ModeV1:
		return "v1"
	case ModeV2:
		return "v2"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1", "1":
		return ModeV1, nil
	case "v2", "2", "":
		return ModeV2, nil
	default:
		return 0, fmt.Errorf("unknown mode %q, expected v1 or v2", s)
	}
}
