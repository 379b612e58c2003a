package tandem

import "strings"

// Policy decides whether the iteration loop should run another
// (analyst, executor) pair. It must be a pure function of the two texts so
// identical inputs always produce identical decisions.
type Policy interface {
	ShouldContinue(analystText, executorText string) bool
}

// PolicyFunc adapts a plain function to the Policy interface.
type PolicyFunc func(analystText, executorText string) bool

func (f PolicyFunc) ShouldContinue(analystText, executorText string) bool {
	return f(analystText, executorText)
}

var stopPatterns = []string{
	"task completed", "task complete", "finished", "done",
	"quota limit", "all files created",
}

var continuePatterns = []string{
	"next step", "continue", "create", "add", "need to", "should",
}

var definiteStopPatterns = []string{
	"task is completely finished", "waiting for user input", "ask the user",
}

// StopBiased is the default policy: stop on any completion phrase, continue
// only on an explicit forward-looking phrase, and stop when neither matches.
var StopBiased Policy = PolicyFunc(func(analystText, executorText string) bool {
	combined := strings.ToLower(analystText + " " + executorText)
	if containsAny(combined, stopPatterns) {
		return false
	}
	return containsAny(combined, continuePatterns)
})

// ContinueBiased keeps iterating unless a definite stop phrase appears. It
// trades extra model calls for fewer prematurely abandoned tasks.
var ContinueBiased Policy = PolicyFunc(func(analystText, executorText string) bool {
	combined := strings.ToLower(analystText + " " + executorText)
	return !containsAny(combined, definiteStopPatterns)
})

// PolicyByName maps a configuration value to a Policy. Unknown names fall
// back to the stop-biased default.
func PolicyByName(name string) Policy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "continue", "continue-biased", "continue_biased":
		return ContinueBiased
	default:
		return StopBiased
	}
}
