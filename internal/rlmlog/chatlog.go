package rlmlog

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// ChatMessage is a logging-only view of a chat message: role plus
// sanitized content, independent of whatever message type a caller
// actually uses.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatLogger records requests/responses/errors exchanged with the
// model proxy. The driver's chat client calls this on every turn; it
// never substitutes for the structured per-run event stream.
type ChatLogger interface {
	Request(runID, model string, messages []ChatMessage)
	Response(runID, model string, content string)
	Error(runID, model string, err error)
}

// StdChatLogger logs via the shared rlmlog root.
type StdChatLogger struct {
	entry *Entry
}

// NewChatLogger builds a StdChatLogger tagged component=chat.
func NewChatLogger() *StdChatLogger {
	return &StdChatLogger{entry: Named("chat")}
}

func (l *StdChatLogger) Request(runID, model string, messages []ChatMessage) {
	if l == nil || l.entry == nil {
		return
	}
	l.entry.WithFields(Fields{"run_id": runID, "model": model, "messages": len(messages)}).
		Log(logrus.InfoLevel, "-> request")
}

func (l *StdChatLogger) Response(runID, model string, content string) {
	if l == nil || l.entry == nil {
		return
	}
	l.entry.WithFields(Fields{"run_id": runID, "model": model, "text": sanitize(content)}).
		Log(logrus.InfoLevel, "<- response")
}

func (l *StdChatLogger) Error(runID, model string, err error) {
	if l == nil || l.entry == nil || err == nil {
		return
	}
	l.entry.WithFields(Fields{"run_id": runID, "model": model, "err": err}).
		Log(logrus.ErrorLevel, "!! error")
}

func sanitize(text string) string {
	text = strings.ReplaceAll(text, "\n", `\n`)
	text = strings.ReplaceAll(text, "\r", `\r`)
	return text
}
