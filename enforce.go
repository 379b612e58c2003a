package tandem

import (
	"context"
	"fmt"
	"strings"
)

// Keyword classifier for the common failure mode where a model narrates an
// action ("I will create the file") instead of invoking the tool for it.
// Approximate on purpose; it gates a single forced retry, nothing more.

var executorActionVerbs = []string{
	"create", "write", "add", "modify", "edit", "update", "run",
	"execute", "install", "build", "start", "check", "read", "view",
	"list", "search",
}

var analystActionVerbs = []string{
	"check", "examine", "look at", "read", "view", "list", "search", "find",
}

var actionObjects = []string{"tool", "file", "command"}

var executionEvidence = []string{"tool call", "executed"}

// ShouldHaveUsedTools reports whether the response text describes work that
// the role's tools should have performed, without evidence that any tool ran.
func ShouldHaveUsedTools(text string, role Role) bool {
	lower := strings.ToLower(text)

	for _, ev := range executionEvidence {
		if strings.Contains(lower, ev) {
			return false
		}
	}

	switch role {
	case RoleExecutor:
		if !containsAny(lower, executorActionVerbs) {
			return false
		}
		return containsAny(lower, actionObjects)
	case RoleAnalyst:
		return containsAny(lower, analystActionVerbs)
	default:
		return false
	}
}

// ForceToolUsage re-runs the agent with an amplified imperative instruction
// built from its previous guidance. The caller substitutes the returned
// result for the original.
func ForceToolUsage(ctx context.Context, agent *Agent, iteration int, originalGuidance string) AgentResult {
	var verb, goal string
	switch agent.Role() {
	case RoleAnalyst:
		verb = "investigate"
		goal = "Report what you actually found, not what you would look for."
	default:
		verb = "act"
		goal = "Report what you actually did, not what you plan to do."
	}

	prompt := fmt.Sprintf(`Your previous response described work without performing it:

%s

Do it now. Procedure:
1. Pick the single most relevant tool for the step above.
2. Invoke it with concrete arguments. You must actually invoke tools, not describe them.
3. %s

Then %s further only if the tool result demands it.`,
		truncateGuidance(originalGuidance), goal, verb)

	return agent.Run(ctx, prompt, iteration)
}

func containsAny(lower string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func truncateGuidance(s string) string {
	const limit = 1000
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
