package tui

import (
	"context"
	"time"

	"github.com/vovakirdan/undersea/internal/challenge"
)

// promptRequest is one challenge waiting for the player. The reply channel
// is buffered so a late answer never blocks the UI.
type promptRequest struct {
	puzzle  challenge.Puzzle
	reply   chan challenge.Answer
	expires time.Time
}

// PromptBridge carries challenges from the engine's goroutine into the
// Bubble Tea loop. The engine blocks in Prompt while the game screen shows
// the overlay and feeds the answer back.
type PromptBridge struct {
	requests chan promptRequest
}

// NewPromptBridge creates a bridge for one game screen.
func NewPromptBridge() *PromptBridge {
	return &PromptBridge{requests: make(chan promptRequest, 1)}
}

// Prompt hands the puzzle to the UI and waits for the player's answer or the
// deadline, whichever comes first.
func (b *PromptBridge) Prompt(ctx context.Context, p challenge.Puzzle) (challenge.Answer, error) {
	req := promptRequest{
		puzzle:  p,
		reply:   make(chan challenge.Answer, 1),
		expires: time.Now().Add(challenge.AnswerDeadline),
	}
	select {
	case b.requests <- req:
	case <-ctx.Done():
		return challenge.Answer{}, ctx.Err()
	}
	select {
	case answer := <-req.reply:
		return answer, nil
	case <-ctx.Done():
		return challenge.Answer{}, ctx.Err()
	}
}

// pending returns the next waiting challenge without blocking. Requests whose
// answer deadline already passed are dropped; the resolver has timed them out
// and they must not resurface as a stale overlay.
func (b *PromptBridge) pending() (promptRequest, bool) {
	for {
		select {
		case req := <-b.requests:
			if time.Now().After(req.expires) {
				continue
			}
			return req, true
		default:
			return promptRequest{}, false
		}
	}
}
