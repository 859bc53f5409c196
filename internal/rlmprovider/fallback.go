package rlmprovider

import "fmt"

// RuntimeModelResolution is the outcome of preflight resolution: the
// concrete model ids to use for the primary and sub roles for the
// entire invocation tree, plus any warnings raised while picking them.
type RuntimeModelResolution struct {
	PrimaryAgent string
	SubAgent     string
	Warnings     []string
}

var fallbackPrimaryOrder = []string{"gpt-5", "gpt-5.1", "gpt-5.2", "gpt-5-codex"}
var fallbackSubOrder = []string{"gpt-5-codex-mini", "gpt-5.1-codex-mini", "gemini-2.5-flash"}

// ResolveRuntimeModels picks concrete runtime ids for the primary and
// sub roles. For each role: if the requested id is available, it is
// used verbatim with no warning; otherwise the role-specific env
// fallback is tried, then a built-in ordered fallback list, then
// available[0]. Deterministic given identical inputs.
func ResolveRuntimeModels(requested RequestedModels, available []string, env map[string]string) (RuntimeModelResolution, error) {
	if len(available) == 0 {
		return RuntimeModelResolution{}, fmt.Errorf("resolveRuntimeModels: available model list is empty")
	}
	present := make(map[string]struct{}, len(available))
	for _, id := range available {
		present[id] = struct{}{}
	}

	var warnings []string
	primary := resolveRole("primary", requested.Primary, present, available, env[envFallbackPrime], fallbackPrimaryOrder, &warnings)
	sub := resolveRole("sub", requested.Sub, present, available, env[envFallbackSub], fallbackSubOrder, &warnings)

	return RuntimeModelResolution{PrimaryAgent: primary, SubAgent: sub, Warnings: warnings}, nil
}

func resolveRole(role, requested string, present map[string]struct{}, available []string, envFallback string, builtinFallback []string, warnings *[]string) string {
	if _, ok := present[requested]; ok {
		return requested
	}

	chosen := ""
	if _, ok := present[envFallback]; envFallback != "" && ok {
		chosen = envFallback
	}
	if chosen == "" {
		for _, candidate := range builtinFallback {
			if _, ok := present[candidate]; ok {
				chosen = candidate
				break
			}
		}
	}
	if chosen == "" {
		chosen = available[0]
	}

	*warnings = append(*warnings, fmt.Sprintf("%s: requested model %q is not available, falling back to %q", role, requested, chosen))
	return chosen
}
