package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/vovakirdan/undersea/internal/challenge"
)

// EventKind tags a board effect triggered by movement.
type EventKind string

const (
	EventHeart EventKind = "heart"
	EventSnake EventKind = "snake"
)

// Event is one board effect resolved during a move.
type Event struct {
	Kind      EventKind
	Cell      int // where the effect triggered
	To        int // position after the effect
	Points    int // score awarded, hearts only
	Challenge challenge.Outcome
}

// RollResult reports one die roll and everything it set off.
type RollResult struct {
	Ignored bool // roll arrived while no roll was possible
	Die     int
	From    int
	To      int // final position after all effects
	Events  []Event
}

// Roll throws the die and resolves the move, including any chain of heart
// and snake effects. A roll while the session is not ready is a benign
// no-op, not an error.
func (s *Session) Roll(ctx context.Context) (RollResult, error) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return RollResult{Ignored: true}, nil
	}
	s.state = StateMoving
	die := s.rollDie()
	from := s.pos
	target := min(s.board.BoardSize, s.pos+die)
	s.pos = target
	s.mu.Unlock()

	s.notify.Info(fmt.Sprintf("Rolled %d", die))
	events := s.resolveEffects(ctx)

	s.mu.Lock()
	// The timer can finish the level mid-move; only a still-moving session
	// returns to active.
	if s.state == StateMoving {
		s.state = StateActive
	}
	final := s.pos
	done := s.state == StateActive && s.pos == s.board.BoardSize
	s.mu.Unlock()

	if done {
		s.finish(false)
	}
	return RollResult{Die: die, From: from, To: final, Events: events}, nil
}

// resolveEffects settles the position after a move: hearts before snakes at
// each cell, chained until the position is plain or the cap is hit. The cap
// is a safety valve against pathological board layouts.
func (s *Session) resolveEffects(ctx context.Context) []Event {
	var events []Event
	for depth := 0; ; depth++ {
		if depth > effectCap {
			s.logger.Warn("effect chain cap reached", "position", s.View().Position)
			return events
		}

		s.mu.Lock()
		if s.state != StateMoving {
			s.mu.Unlock()
			return events
		}
		pos := s.pos
		board := s.board
		s.mu.Unlock()

		switch {
		case board.IsHeart(pos):
			ev, chained := s.resolveHeart(ctx, pos)
			events = append(events, ev)
			if !chained {
				return events
			}
		case board.IsSnake(pos):
			events = append(events, s.resolveSnake(pos))
		default:
			return events
		}
	}
}

// resolveHeart runs the challenge for the heart at pos. A correct non-zero
// answer scores and advances, so the chain continues; every other outcome
// ends it.
func (s *Session) resolveHeart(ctx context.Context, pos int) (Event, bool) {
	s.mu.Lock()
	if s.state != StateMoving {
		s.mu.Unlock()
		return Event{Kind: EventHeart, Cell: pos, To: pos}, false
	}
	s.state = StateChallenge
	s.mu.Unlock()

	outcome := s.challenges.Resolve(ctx)

	s.mu.Lock()
	interrupted := s.state != StateChallenge
	if !interrupted {
		s.state = StateMoving
	}

	ev := Event{Kind: EventHeart, Cell: pos, To: s.pos, Challenge: outcome}
	if interrupted {
		// The level ended while the challenge was open; the answer must
		// not change a score that may already be submitted.
		s.mu.Unlock()
		return ev, false
	}
	switch outcome.Status {
	case challenge.StatusCorrect:
		points := outcome.Bonus * heartRate
		s.breakdown.Challenge += points
		s.score += points
		s.pos = min(s.board.BoardSize, s.pos+outcome.Bonus)
		ev.Points = points
		ev.To = s.pos
		s.mu.Unlock()

		s.recordChallenge(true)
		s.notify.Success(fmt.Sprintf("Correct! +%d points!", points))
		return ev, true

	case challenge.StatusCorrectZero:
		s.mu.Unlock()
		s.recordChallenge(true)
		s.notify.Success("Correct! No hearts here, so 0 bonus points.")
		return ev, false

	case challenge.StatusWrong:
		s.mu.Unlock()
		s.recordChallenge(false)
		s.notify.Error("Wrong answer!")
		return ev, false

	case challenge.StatusTimeout:
		s.mu.Unlock()
		s.notify.Info("Heart challenge timed out.")
		return ev, false

	default: // skipped, error
		s.mu.Unlock()
		return ev, false
	}
}

// resolveSnake slides from the snake head back toward the tail after a short
// pause. The pause runs unlocked so the timer keeps ticking.
func (s *Session) resolveSnake(head int) Event {
	tail := max(1, head-snakeSetback)

	if err := s.store.RecordSnake(); err != nil {
		s.logger.Warn("cannot record snake encounter", "error", err)
	}
	s.notify.Warning("Snake! Moving back...")

	timer := time.NewTimer(s.snakeDelay)
	defer timer.Stop()
	<-timer.C

	s.mu.Lock()
	if s.state == StateMoving {
		s.pos = tail
	}
	final := s.pos
	s.mu.Unlock()

	return Event{Kind: EventSnake, Cell: head, To: final}
}

func (s *Session) recordChallenge(success bool) {
	if err := s.store.RecordChallenge(success); err != nil {
		s.logger.Warn("cannot record challenge result", "error", err)
	}
}
