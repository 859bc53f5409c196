// Package agentloop implements the agent turn loop and its recursion
// bridge: the core protocol that drives one agent through generate ->
// extract -> execute -> observe until it sets a final result, budget
// or call-count exhaustion aborts it, or an unrecoverable error
// propagates.
package agentloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"rlmdriver/internal/budget"
	"rlmdriver/internal/chatclient"
	"rlmdriver/internal/eventlog"
	"rlmdriver/internal/rlmerr"
	"rlmdriver/internal/rlmlog"
	"rlmdriver/internal/rlmprovider"
	"rlmdriver/internal/usage"
)

var log = rlmlog.Named("agentloop")

// Sandbox is the subset of internal/sandbox.State's contract the turn
// loop depends on. Accepting an interface here (rather than the
// concrete type) lets tests substitute a fake evaluator without
// spinning up gpython.
type Sandbox interface {
	Bind(name string, value any) error
	Run(ctx context.Context, code string)
	TakeStdout() string
	ReadFinal() (value any, ok bool)
	Close()
}

// ChatGenerator is the subset of internal/chatclient.Client's contract
// the turn loop depends on.
type ChatGenerator interface {
	GenerateCode(ctx context.Context, messages []chatclient.Message, model string) (chatclient.Result, error)
}

// Dependencies bundles everything one top-level invocation's agent
// tree shares: a chat backend, a sandbox factory (fresh sandbox per
// agent), the process-wide budget accumulator, the process-wide event
// sink, and the resolved limits from config.
type Dependencies struct {
	Chat        ChatGenerator
	NewSandbox  func() Sandbox
	Budget      *budget.Accumulator
	Events      *eventlog.Sink
	MaxCalls    int
	MaxDepth    int
	TruncateLen int
}

// ResolveModels performs the preflight step: fetch the provider's
// model catalog and resolve the requested primary/sub model names
// against it. Produced once per top-level invocation and reused by
// every descendant agent.
func ResolveModels(ctx context.Context, proxyClient rlmprovider.ProxyClientConfig, requested rlmprovider.RequestedModels, env map[string]string) (rlmprovider.RuntimeModelResolution, error) {
	client := rlmprovider.NewAPIClient(proxyClient)
	available, err := rlmprovider.FetchAvailableModels(ctx, client)
	if err != nil {
		return rlmprovider.RuntimeModelResolution{}, err
	}
	return rlmprovider.ResolveRuntimeModels(requested, available, env)
}

// ResolveAndRun performs the preflight model resolution, resets the
// global budget for this invocation, and runs the root agent at depth
// 0.
func ResolveAndRun(ctx context.Context, deps Dependencies, proxyClient rlmprovider.ProxyClientConfig, requested rlmprovider.RequestedModels, env map[string]string, input string) (any, string, error) {
	models, err := ResolveModels(ctx, proxyClient, requested, env)
	if err != nil {
		return nil, deps.Events.GetLogFile(), err
	}
	for _, w := range models.Warnings {
		log.Warn(w)
	}
	deps.Budget.Reset()

	result, err := Run(ctx, deps, models, input, 0, "")
	return result, deps.Events.GetLogFile(), err
}

// Run is the entry point and turn loop for one agent at the given
// depth. It always releases its sandbox before returning, on every
// exit path.
func Run(ctx context.Context, deps Dependencies, models rlmprovider.RuntimeModelResolution, input string, depth int, parentRunID string) (result any, err error) {
	runID := uuid.NewString()
	rl := newRunLogger(deps.Events, runID, parentRunID, depth)
	if logErr := rl.logRunStart(input); logErr != nil {
		log.WithError(logErr).Warn("failed to log run_start")
	}

	sb := deps.NewSandbox()
	defer sb.Close()

	defer func() {
		if err != nil {
			if logErr := rl.logError(err); logErr != nil {
				log.WithError(logErr).Warn("failed to log error event")
			}
		}
	}()

	model := models.SubAgent
	if depth == 0 {
		model = models.PrimaryAgent
	}

	llmQuery := func(childInput string) (string, error) {
		return bridgeLLMQuery(ctx, deps, models, depth, runID, childInput)
	}
	if bindErr := sb.Bind("llm_query", llmQuery); bindErr != nil {
		return nil, rlmerr.RuntimeError{Reason: "failed to bind llm_query: " + bindErr.Error()}
	}
	if bindErr := sb.Bind("context", input); bindErr != nil {
		return nil, rlmerr.RuntimeError{Reason: "failed to bind context: " + bindErr.Error()}
	}

	sb.Run(ctx, seedProgram)
	seedOutput := sb.TakeStdout()
	messages := []chatclient.Message{
		{Role: chatclient.RoleUser, Content: seedUserMessage(deps.TruncateLen, seedProgram, seedOutput)},
	}
	seedStep := rl.nextStep()
	if logErr := rl.logExecutionResult(seedStep, seedProgram, seedOutput, false, "", usage.Zero); logErr != nil {
		log.WithError(logErr).Warn("failed to log seed step")
	}

	for i := 0; i < deps.MaxCalls; i++ {
		genResult, genErr := deps.Chat.GenerateCode(chatclient.WithRunID(ctx, runID), messages, model)
		if genErr != nil {
			return nil, genErr
		}
		messages = append(messages, genResult.Message)

		if trackErr := deps.Budget.Track(genResult.Usage); trackErr != nil {
			return nil, trackErr
		}

		if !genResult.Success {
			step := rl.nextStep()
			if logErr := rl.logCodeGenerated(step, ""); logErr != nil {
				log.WithError(logErr).Warn("failed to log code_generated")
			}
			messages = append(messages, chatclient.Message{
				Role:    chatclient.RoleUser,
				Content: "Error: We could not extract code because you may not have used repl block!",
			})
			continue
		}

		sb.Run(ctx, genResult.Code)
		raw := sb.TakeStdout()

		if final, ok := sb.ReadFinal(); ok {
			step := rl.nextStep()
			if logErr := rl.logCodeGenerated(step, genResult.Code); logErr != nil {
				log.WithError(logErr).Warn("failed to log code_generated")
			}
			if logErr := rl.logFinalResult(final); logErr != nil {
				log.WithError(logErr).Warn("failed to log final_result")
			}
			return final, nil
		}

		truncated := truncate(raw, deps.TruncateLen)
		hasError := strings.Contains(raw, "Error")
		step := rl.nextStep()
		if logErr := rl.logExecutionResult(step, genResult.Code, truncated, hasError, genResult.Message.Reasoning, genResult.Usage); logErr != nil {
			log.WithError(logErr).Warn("failed to log execution_result")
		}
		messages = append(messages, chatclient.Message{
			Role:    chatclient.RoleUser,
			Content: "Output: \n" + truncated,
		})
	}

	return nil, rlmerr.RuntimeError{Reason: "Did not finish the function stack before subagent died"}
}

// bridgeLLMQuery is the llm_query callable installed into every
// agent's sandbox. It recurses into Run at depth+1, sharing the
// caller's Dependencies (and therefore its budget accumulator and
// event sink) and the same resolved model pair.
func bridgeLLMQuery(ctx context.Context, deps Dependencies, models rlmprovider.RuntimeModelResolution, parentDepth int, parentRunID string, input string) (string, error) {
	childDepth := parentDepth + 1
	if childDepth > deps.MaxDepth {
		return "", fmt.Errorf("MAXIMUM DEPTH REACHED: cannot recurse past max_depth=%d", deps.MaxDepth)
	}

	result, err := Run(ctx, deps, models, input, childDepth, parentRunID)
	if err != nil {
		return "", err
	}
	return stringifyResult(result), nil
}

func stringifyResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
