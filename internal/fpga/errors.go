package fpga

import (
	"fmt"
	"sort"
	"strings"
)

// BusError reports a register transfer that failed after retry and bus
// reset. It is the only error in the capture path that is retried
// internally; by the time a caller sees one, escalation is final.
type BusError struct {
	Op       string
	Offset   byte
	Attempts int
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus %s at 0x%02x failed after %d attempts: %v",
		e.Op, e.Offset, e.Attempts, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// RegisterSnapshot is a named dump of hardware state taken when a wait
// expires, attached to the TimeoutError for postmortem reading.
type RegisterSnapshot map[string]uint32

func (s RegisterSnapshot) String() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=0x%08x", k, s[k])
	}
	return sb.String()
}

// TimeoutError reports an expired hardware wait (field count, link lock,
// resolution match). Registers holds the last observed state.
type TimeoutError struct {
	Op        string
	Registers RegisterSnapshot
}

func (e *TimeoutError) Error() string {
	if len(e.Registers) == 0 {
		return fmt.Sprintf("timed out waiting for %s", e.Op)
	}
	return fmt.Sprintf("timed out waiting for %s [%s]", e.Op, e.Registers)
}
