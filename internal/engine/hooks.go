package engine

import (
	"context"

	"github.com/vovakirdan/undersea/internal/challenge"
	"github.com/vovakirdan/undersea/internal/score"
)

// Notifier surfaces player-facing messages. The TUI maps these to its message
// log; headless sessions use NopNotifier.
type Notifier interface {
	Info(msg string)
	Success(msg string)
	Warning(msg string)
	Error(msg string)
}

// NopNotifier discards all messages.
type NopNotifier struct{}

func (NopNotifier) Info(string)    {}
func (NopNotifier) Success(string) {}
func (NopNotifier) Warning(string) {}
func (NopNotifier) Error(string)   {}

// ChallengeResolver runs one heart challenge per call. Cancel forces any
// in-flight call to resolve as skipped.
type ChallengeResolver interface {
	Resolve(ctx context.Context) challenge.Outcome
	Cancel()
}

// skipResolver skips every challenge without touching the network.
type skipResolver struct{}

func (skipResolver) Resolve(context.Context) challenge.Outcome {
	return challenge.Outcome{Status: challenge.StatusSkipped}
}

func (skipResolver) Cancel() {}

// ScoreSubmitter sends unsubmitted score increments to the backend. A nil
// submitter means local-only play.
type ScoreSubmitter interface {
	SubmitDelta(ctx context.Context, delta int) (score.SubmitResult, error)
}
