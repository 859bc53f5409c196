package agentloop

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"rlmdriver/internal/budget"
	"rlmdriver/internal/chatclient"
	"rlmdriver/internal/eventlog"
	"rlmdriver/internal/rlmerr"
	"rlmdriver/internal/rlmprovider"
	"rlmdriver/internal/usage"
)

// fakeSandbox lets tests drive the turn loop without a real gpython
// runtime: Run keys canned outputs and final values by the exact code
// string it receives.
type fakeSandbox struct {
	outputs map[string]string
	finals  map[string]any
	bound   map[string]any
	lastRan string
	final   any
	hasFin  bool
	closed  bool
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{
		outputs: map[string]string{},
		finals:  map[string]any{},
		bound:   map[string]any{},
	}
}

func (f *fakeSandbox) Bind(name string, value any) error {
	f.bound[name] = value
	return nil
}

func (f *fakeSandbox) Run(_ context.Context, code string) {
	f.lastRan = code
	if v, ok := f.finals[code]; ok {
		f.final = v
		f.hasFin = true
	}
}

func (f *fakeSandbox) TakeStdout() string {
	return f.outputs[f.lastRan]
}

func (f *fakeSandbox) ReadFinal() (any, bool) {
	return f.final, f.hasFin
}

func (f *fakeSandbox) Close() { f.closed = true }

type fakeChat struct {
	results []chatclient.Result
	errs    []error
	calls   int
}

func (f *fakeChat) GenerateCode(_ context.Context, _ []chatclient.Message, _ string) (chatclient.Result, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return chatclient.Result{}, f.errs[i]
	}
	if i >= len(f.results) {
		return chatclient.Result{}, errors.New("fakeChat: no more scripted results")
	}
	return f.results[i], nil
}

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func testModels() rlmprovider.RuntimeModelResolution {
	return rlmprovider.RuntimeModelResolution{PrimaryAgent: "gpt-5", SubAgent: "gpt-5-codex-mini"}
}

func TestRunHappyPathReturnsFinalResult(t *testing.T) {
	chdirTemp(t)

	fs := newFakeSandbox()
	code := `FINAL("hi")`
	fs.finals[code] = "hi"

	deps := Dependencies{
		Chat: &fakeChat{results: []chatclient.Result{
			{Code: code, Success: true, Message: chatclient.Message{Role: chatclient.RoleAssistant, Content: "```repl\n" + code + "\n```"}, Usage: usage.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		}},
		NewSandbox:  func() Sandbox { return fs },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: 1000, MaxCompletionTokens: 1000}),
		Events:      eventlog.NewSink("test"),
		MaxCalls:    20,
		MaxDepth:    3,
		TruncateLen: 5000,
	}

	result, err := Run(context.Background(), deps, testModels(), "say hi", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "hi" {
		t.Fatalf("got %v", result)
	}
	if !fs.closed {
		t.Fatal("expected sandbox to be closed on return")
	}
	if deps.Budget.Get().TotalTokens != 15 {
		t.Fatalf("expected budget to reflect the one chat call, got %+v", deps.Budget.Get())
	}
}

func TestRunExtractorMissThenSuccessStillAdvancesCounter(t *testing.T) {
	chdirTemp(t)

	fs := newFakeSandbox()
	finalCode := `FINAL("done")`
	fs.finals[finalCode] = "done"

	chat := &fakeChat{results: []chatclient.Result{
		{Code: "", Success: false, Message: chatclient.Message{Role: chatclient.RoleAssistant, Content: "no fence here"}},
		{Code: finalCode, Success: true, Message: chatclient.Message{Role: chatclient.RoleAssistant, Content: "```repl\n" + finalCode + "\n```"}},
	}}

	deps := Dependencies{
		Chat:        chat,
		NewSandbox:  func() Sandbox { return fs },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: 1000, MaxCompletionTokens: 1000}),
		Events:      eventlog.NewSink("test"),
		MaxCalls:    20,
		MaxDepth:    3,
		TruncateLen: 5000,
	}

	result, err := Run(context.Background(), deps, testModels(), "say hi", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "done" {
		t.Fatalf("got %v", result)
	}
	if chat.calls != 2 {
		t.Fatalf("expected exactly 2 chat calls, got %d", chat.calls)
	}
}

func TestRunExhaustsMaxCallsWithoutFinalResult(t *testing.T) {
	chdirTemp(t)

	fs := newFakeSandbox()
	loopCode := `x = 1`
	fs.outputs[loopCode] = "still going"

	results := make([]chatclient.Result, 3)
	for i := range results {
		results[i] = chatclient.Result{Code: loopCode, Success: true, Message: chatclient.Message{Role: chatclient.RoleAssistant, Content: "```repl\n" + loopCode + "\n```"}}
	}
	chat := &fakeChat{results: results}

	deps := Dependencies{
		Chat:        chat,
		NewSandbox:  func() Sandbox { return fs },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: 1000, MaxCompletionTokens: 1000}),
		Events:      eventlog.NewSink("test"),
		MaxCalls:    3,
		MaxDepth:    3,
		TruncateLen: 5000,
	}

	_, err := Run(context.Background(), deps, testModels(), "say hi", 0, "")
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	var rtErr rlmerr.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected rlmerr.RuntimeError, got %T: %v", err, err)
	}
	if chat.calls != 3 {
		t.Fatalf("expected exactly MaxCalls chat calls, got %d", chat.calls)
	}
}

func TestRunBudgetViolationAborts(t *testing.T) {
	chdirTemp(t)

	fs := newFakeSandbox()
	code := `x = 1`
	fs.outputs[code] = "ok"

	chat := &fakeChat{results: []chatclient.Result{
		{Code: code, Success: true, Message: chatclient.Message{Role: chatclient.RoleAssistant, Content: "x"}, Usage: usage.Usage{PromptTokens: 500}},
	}}

	deps := Dependencies{
		Chat:        chat,
		NewSandbox:  func() Sandbox { return fs },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: 100, MaxCompletionTokens: 1000}),
		Events:      eventlog.NewSink("test"),
		MaxCalls:    20,
		MaxDepth:    3,
		TruncateLen: 5000,
	}

	_, err := Run(context.Background(), deps, testModels(), "say hi", 0, "")
	if err == nil {
		t.Fatal("expected budget violation error")
	}
	var rtErr rlmerr.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected rlmerr.RuntimeError, got %T: %v", err, err)
	}
	if deps.Budget.Get().PromptTokens != 500 {
		t.Fatalf("expected the overflowing call to still be counted, got %+v", deps.Budget.Get())
	}
}

func TestBridgeLLMQueryRejectsPastMaxDepth(t *testing.T) {
	chdirTemp(t)

	deps := Dependencies{
		Chat:        &fakeChat{},
		NewSandbox:  func() Sandbox { return newFakeSandbox() },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: 1000, MaxCompletionTokens: 1000}),
		Events:      eventlog.NewSink("test"),
		MaxCalls:    20,
		MaxDepth:    1,
		TruncateLen: 5000,
	}

	_, err := bridgeLLMQuery(context.Background(), deps, testModels(), 1, "parent-run", "child input")
	if err == nil {
		t.Fatal("expected depth cap error")
	}
	if got := err.Error(); !strings.Contains(got, "MAXIMUM DEPTH REACHED") {
		t.Fatalf("expected MAXIMUM DEPTH REACHED in error, got %q", got)
	}
}

func TestBridgeLLMQueryRecursesAndReturnsChildResult(t *testing.T) {
	chdirTemp(t)

	fs := newFakeSandbox()
	code := `FINAL("summary")`
	fs.finals[code] = "summary"

	deps := Dependencies{
		Chat: &fakeChat{results: []chatclient.Result{
			{Code: code, Success: true, Message: chatclient.Message{Role: chatclient.RoleAssistant, Content: "```repl\n" + code + "\n```"}},
		}},
		NewSandbox:  func() Sandbox { return fs },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: 1000, MaxCompletionTokens: 1000}),
		Events:      eventlog.NewSink("test"),
		MaxCalls:    20,
		MaxDepth:    3,
		TruncateLen: 5000,
	}

	result, err := bridgeLLMQuery(context.Background(), deps, testModels(), 0, "parent-run", "summarize: ...")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "summary" {
		t.Fatalf("got %q", result)
	}
}
