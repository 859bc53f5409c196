// Package chatclient provides one operation, GenerateCode, that issues
// a chat-completion request carrying the fixed system prompt plus a
// run's growing message list and returns the assistant's reply
// alongside extracted code and normalized usage.
package chatclient

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"rlmdriver/internal/codeextract"
	"rlmdriver/internal/rlmerr"
	"rlmdriver/internal/rlmlog"
	"rlmdriver/internal/usage"
)

// temperature is fixed; GenerateCode takes no caller override.
const temperature = 0.1

// Role is a chat message's sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a {role, content} pair. Reasoning is the opaque field an
// assistant message may carry: logged, never re-sent on a later call.
type Message struct {
	Role      Role
	Content   string
	Reasoning string
}

// Result is generate_code's return value.
type Result struct {
	Code    string
	Success bool
	Message Message
	Usage   usage.Usage
}

// Client issues chat-completion requests against one resolved
// OpenAI-compatible endpoint.
type Client struct {
	api *openai.Client
}

var log = rlmlog.Named("chatclient")

// New wraps an already-constructed openai-go client. Callers build it
// with internal/rlmprovider.NewAPIClient, the same constructor the
// model-catalog preflight uses, so both talk to the same endpoint.
func New(api *openai.Client) *Client {
	return &Client{api: api}
}

// GenerateCode sends [{role: system, content: SystemPrompt}, ...messages]
// at the fixed temperature and returns the assistant's reply, the code
// extracted from it, and its normalized usage. Network and HTTP errors
// surface as rlmerr.ProxyError.
func (c *Client) GenerateCode(ctx context.Context, messages []Message, model string) (Result, error) {
	chatLog := rlmlog.NewChatLogger()
	runID := runIDFromContext(ctx)

	logMessages := make([]rlmlog.ChatMessage, 0, len(messages)+1)
	logMessages = append(logMessages, rlmlog.ChatMessage{Role: string(RoleSystem), Content: SystemPrompt})
	for _, m := range messages {
		logMessages = append(logMessages, rlmlog.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	chatLog.Request(runID, model, logMessages)

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    toChatMessages(messages),
		Temperature: param.NewOpt(temperature),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		wrapped := wrapHTTPError(err)
		chatLog.Error(runID, model, wrapped)
		return Result{}, wrapped
	}
	if len(resp.Choices) == 0 {
		err := rlmerr.ProxyError{Reason: "no completion choices returned"}
		chatLog.Error(runID, model, err)
		return Result{}, err
	}

	choice := resp.Choices[0]
	assistant := Message{
		Role:    RoleAssistant,
		Content: choice.Message.Content,
	}
	if raw := choice.Message.JSON.ExtraFields["reasoning"]; raw.Valid() {
		assistant.Reasoning = raw.Raw()
	}

	code, success := codeextract.Extract(assistant.Content)

	normalized, err := usage.Normalize(resp.Usage)
	if err != nil {
		log.WithError(err).Warn("unable to normalize provider usage, treating as zero")
		normalized = usage.Zero
	}

	chatLog.Response(runID, model, assistant.Content)

	return Result{
		Code:    code,
		Success: success,
		Message: assistant,
		Usage:   normalized,
	}, nil
}

func toChatMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	out = append(out, openai.SystemMessage(SystemPrompt))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func wrapHTTPError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr != nil {
		raw := strings.TrimSpace(apiErr.RawJSON())
		if raw != "" {
			return rlmerr.ProxyError{Reason: rlmerr.Redact(raw), StatusCode: apiErr.StatusCode}
		}
		return rlmerr.ProxyError{Reason: rlmerr.Redact(err.Error()), StatusCode: apiErr.StatusCode}
	}
	return rlmerr.ProxyError{Reason: rlmerr.Redact(err.Error())}
}

type runIDKey struct{}

// WithRunID attaches a run id to ctx so GenerateCode's chat log lines
// can be correlated with a run without threading an explicit parameter
// through every call site.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func runIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}
