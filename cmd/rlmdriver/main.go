// Command rlmdriver assembles the core components against the
// process environment, runs one task to completion, and prints the
// final result as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"rlmdriver/internal/agentloop"
	"rlmdriver/internal/budget"
	"rlmdriver/internal/chatclient"
	"rlmdriver/internal/eventlog"
	"rlmdriver/internal/rlmconfig"
	"rlmdriver/internal/rlmerr"
	"rlmdriver/internal/rlmlog"
	"rlmdriver/internal/rlmprovider"
	"rlmdriver/internal/sandbox"
)

func main() {
	rlmlog.Configure()
	log := rlmlog.Named("main")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: rlmdriver <task text>")
		os.Exit(int(rlmerr.ExitUsage))
	}
	task := os.Args[1]

	env := envMap()
	cfg, err := loadConfig()
	if err != nil {
		log.WithError(err).Error("config error")
		os.Exit(int(rlmerr.Code(err)))
	}

	proxyCfg, err := rlmprovider.ResolveProxyClientConfig(env)
	if err != nil {
		log.WithError(err).Error("proxy config error")
		os.Exit(int(rlmerr.Code(err)))
	}

	requested := rlmprovider.ResolveModelNames(rlmprovider.ConfigModels{
		PrimaryAgent: cfg.PrimaryAgent,
		SubAgent:     cfg.SubAgent,
	}, env)

	apiClient := rlmprovider.NewAPIClient(proxyCfg)

	sink := eventlog.NewSink("rlmdriver")
	defer sink.Flush()

	deps := agentloop.Dependencies{
		Chat:        chatclient.New(apiClient),
		NewSandbox:  func() agentloop.Sandbox { return sandbox.New() },
		Budget:      budget.New(budget.Limits{MaxPromptTokens: int64(cfg.MaxPromptTokens), MaxCompletionTokens: int64(cfg.MaxCompletionTokens)}),
		Events:      sink,
		MaxCalls:    cfg.MaxCallsPerSubagent,
		MaxDepth:    cfg.Depth(),
		TruncateLen: cfg.TruncateLen,
	}

	ctx := context.Background()
	result, logPath, err := agentloop.ResolveAndRun(ctx, deps, proxyCfg, requested, env, task)
	if err != nil {
		msg := rlmerr.Redact(err.Error())
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
		if logPath != "" {
			fmt.Fprintf(os.Stderr, "log: %s\n", logPath)
		}
		os.Exit(int(rlmerr.Code(err)))
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", rlmerr.OutputError{Reason: err.Error()})
		os.Exit(int(rlmerr.ExitOutputWrite))
	}
	fmt.Println(string(encoded))
	if logPath != "" {
		fmt.Fprintf(os.Stderr, "log: %s\n", logPath)
	}
}

func envMap() map[string]string {
	out := map[string]string{}
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return out
}

func loadConfig() (rlmconfig.Config, error) {
	path := os.Getenv("RLM_CONFIG_FILE")
	if path == "" {
		return rlmconfig.Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rlmconfig.Config{}, rlmerr.ConfigError{Reason: err.Error()}
	}
	return rlmconfig.Parse(data)
}
