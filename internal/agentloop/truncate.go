package agentloop

import "fmt"

// truncate shapes captured stdout for inclusion in the next turn's
// message: empty output becomes a fixed marker, output at or under
// the limit is shown in full, and anything longer is cut to its
// trailing limit characters. Boundary is exact: length == limit takes
// the full-output branch, length == limit+1 takes the truncated
// branch.
func truncate(text string, limit int) string {
	n := len(text)
	switch {
	case n == 0:
		return "[EMPTY OUTPUT]"
	case n > limit:
		return fmt.Sprintf("[TRUNCATED: Last %d chars shown].. %s", limit, text[n-limit:])
	default:
		return "[FULL OUTPUT SHOWN]... " + text
	}
}
