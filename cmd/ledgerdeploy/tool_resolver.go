package main

import (
	"fmt"
	"strings"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// ToolCandidate is one provider in an ordered capability chain: an
// executable plus an optional subcommand prefix ("docker" + "compose"
// provides the same capability as the standalone "docker-compose").
type ToolCandidate struct {
	Exec   string
	Prefix []string
}

// ResolvedTool is the first candidate that resolved on the search path.
type ResolvedTool struct {
	Exec   string
	Prefix []string
}

// Command prepends the provider's subcommand prefix to args.
func (t ResolvedTool) Command(args ...string) (string, []string) {
	return t.Exec, append(append([]string{}, t.Prefix...), args...)
}

// String renders the full invocation name for logs.
func (t ResolvedTool) String() string {
	if len(t.Prefix) == 0 {
		return t.Exec
	}
	return t.Exec + " " + strings.Join(t.Prefix, " ")
}

// composeCandidates is the capability chain for running compose files:
// the standalone binary first, then the CLI plugin form.
func composeCandidates() []ToolCandidate {
	return []ToolCandidate{
		{Exec: "docker-compose"},
		{Exec: "docker", Prefix: []string{"compose"}},
	}
}

// ResolveTool walks the candidate chain in order and returns the first
// provider whose executable resolves on the search path. Each miss
// logs one line, so the log shows why a later provider was chosen.
func ResolveTool(proc ProcessManager, log *logging.Logger, candidates []ToolCandidate) (ResolvedTool, error) {
	for _, c := range candidates {
		path, err := proc.LookPath(c.Exec)
		if err != nil {
			log.Debug("tool candidate unavailable", "tool", c.Exec)
			continue
		}
		tool := ResolvedTool{Exec: c.Exec, Prefix: c.Prefix}
		log.Info("tool provider selected", "tool", tool.String(), "path", path)
		return tool, nil
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Exec
	}
	return ResolvedTool{}, fmt.Errorf("none of %s found on PATH", strings.Join(names, ", "))
}
