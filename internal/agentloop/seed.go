package agentloop

import "fmt"

// seedProgram is the fixed code run once at agent entry: it reports
// the input context's type and length, then either the whole value or
// a head/tail sample, entirely through the sandbox's own print() so it
// flows through the same capture path as every later turn's output.
const seedProgram = `_context_type = type(context).__name__
_context_len = len(context) if hasattr(context, '__len__') else None
print(_context_type)
print(_context_len)
if _context_len is not None and _context_len <= 500:
    print(context)
elif _context_len is not None:
    print(context[:500])
    print(context[-500:])
`

func seedUserMessage(truncateLen int, seedCode, seedOutput string) string {
	return fmt.Sprintf(
		"Outputs will always be truncated to last %d characters.\n\n```repl\n%s```\n\n%s",
		truncateLen, seedCode, seedOutput,
	)
}
