// Package codeextract pulls fenced ```repl code blocks out of a model
// reply.
package codeextract

import (
	"strings"
)

const (
	fenceOpen  = "```repl"
	fenceClose = "```"
)

// Extract finds all non-overlapping ```repl ... ``` blocks in reply,
// trims each, and joins them with newlines. success is true iff the
// resulting code is non-empty. No other fence language is recognized.
func Extract(reply string) (code string, success bool) {
	var blocks []string
	rest := reply
	for {
		openIdx := strings.Index(rest, fenceOpen)
		if openIdx == -1 {
			break
		}
		afterOpen := rest[openIdx+len(fenceOpen):]
		closeIdx := strings.Index(afterOpen, fenceClose)
		if closeIdx == -1 {
			break
		}
		block := strings.TrimSpace(afterOpen[:closeIdx])
		if block != "" {
			blocks = append(blocks, block)
		}
		rest = afterOpen[closeIdx+len(fenceClose):]
	}
	code = strings.Join(blocks, "\n")
	return code, len(code) > 0
}
