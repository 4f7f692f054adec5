// Package engine runs a game session: dice rolls, board effects, the turn
// timer, snapshot persistence, and exactly-once score submission. A Session
// is safe for concurrent use; blocking work (challenges, the snake pause,
// network saves) runs with the lock released so timer ticks interleave.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/vovakirdan/undersea/internal/level"
	"github.com/vovakirdan/undersea/internal/score"
	"github.com/vovakirdan/undersea/internal/storage"
)

// Gameplay constants.
const (
	TurnSeconds   = 60 // countdown per level
	DieSides      = 6
	snakeSetback  = 3  // cells lost at a snake head
	effectCap     = 10 // max chained board effects per move
	heartRate     = 10 // points per cell of a correct heart answer
	timeBonusRate = 5  // points per second left at level completion
)

const defaultSnakeDelay = 600 * time.Millisecond

// State is the session's lifecycle phase.
type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateMoving    State = "moving"
	StateChallenge State = "challenge"
	StateFinished  State = "finished"
)

// Outcome classifies how the last level ended.
type Outcome string

const (
	OutcomeNone          Outcome = ""
	OutcomeLevelComplete Outcome = "level_complete"
	OutcomeGameComplete  Outcome = "game_complete"
	OutcomeTimeout       Outcome = "timeout"
)

// Breakdown splits the score into its sources. Base carries score from
// earlier levels; Challenge and Time accrue within the current level.
// Total always equals the session score.
type Breakdown struct {
	Base      int
	Challenge int
	Time      int
}

// Total is the sum of all score sources.
func (b Breakdown) Total() int {
	return b.Base + b.Challenge + b.Time
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	State          State
	Level          int
	MaxLevel       int
	Board          level.Config
	Position       int
	TimeLeft       int
	Score          int
	Breakdown      Breakdown
	Outcome        Outcome
	PendingAdvance bool
	Unsaved        int // score not yet acknowledged by the backend
}

// Options configures a Session. Levels and Store are required; everything
// else has a working default. A nil Scores means local-only play.
type Options struct {
	Levels     level.Set
	Store      *storage.Store
	Challenges ChallengeResolver
	Scores     ScoreSubmitter
	Notify     Notifier
	Logger     *log.Logger

	// Seed fixes the dice sequence; 0 seeds from the clock.
	Seed int64
	// SnakeDelay overrides the pause at a snake head; 0 keeps the default.
	SnakeDelay time.Duration
	// Tick overrides the countdown granularity; 0 keeps one second.
	Tick time.Duration
}

// Session is one player's game. All exported methods are safe to call from
// any goroutine.
type Session struct {
	levels     level.Set
	store      *storage.Store
	challenges ChallengeResolver
	scores     ScoreSubmitter
	notify     Notifier
	logger     *log.Logger
	snakeDelay time.Duration
	tick       time.Duration

	mu        sync.Mutex
	rng       *rand.Rand
	rollDie   func() int // called under mu
	state     State
	lvl       int
	board     level.Config
	pos       int
	timeLeft  int
	score     int
	breakdown Breakdown
	outcome   Outcome
	pending   bool // a next level is available to advance into
	startedAt time.Time
	stop      chan struct{} // closes to stop the countdown and autosave

	submitted  int  // cumulative score already acknowledged by the backend
	scoreSaved bool // latched after a successful submission for this level
	saves      singleflight.Group
	cleaned    bool
}

// New creates an idle session positioned at the first cell of lvl.
func New(opts Options) (*Session, error) {
	if opts.Levels.Max() == 0 {
		return nil, errors.New("engine: level set is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Challenges == nil {
		opts.Challenges = skipResolver{}
	}
	if opts.Notify == nil {
		opts.Notify = NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.SnakeDelay == 0 {
		opts.SnakeDelay = defaultSnakeDelay
	}
	if opts.Tick == 0 {
		opts.Tick = time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	board, ok := opts.Levels.Get(1)
	if !ok {
		return nil, errors.New("engine: level set has no first level")
	}

	s := &Session{
		levels:     opts.Levels,
		store:      opts.Store,
		challenges: opts.Challenges,
		scores:     opts.Scores,
		notify:     opts.Notify,
		logger:     opts.Logger,
		snakeDelay: opts.SnakeDelay,
		tick:       opts.Tick,
		rng:        rand.New(rand.NewSource(seed)),
		state:      StateIdle,
		lvl:        1,
		board:      board,
		pos:        1,
		timeLeft:   TurnSeconds,
	}
	s.rollDie = func() int { return s.rng.Intn(DieSides) + 1 }
	return s, nil
}

// Start begins a fresh game at lvl: score zeroed, timer running.
func (s *Session) Start(lvl int) error {
	board, ok := s.levels.Get(lvl)
	if !ok {
		return fmt.Errorf("engine: unknown level %d", lvl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle && s.state != StateFinished {
		return fmt.Errorf("engine: cannot start while %s", s.state)
	}

	s.lvl = lvl
	s.board = board
	s.pos = 1
	s.timeLeft = TurnSeconds
	s.score = 0
	s.breakdown = Breakdown{}
	s.submitted = 0
	s.scoreSaved = false
	s.outcome = OutcomeNone
	s.pending = false
	s.state = StateActive
	s.startedAt = time.Now()
	s.startClockLocked()

	s.logger.Info("level started", "level", lvl, "board", board.BoardSize)
	return nil
}

// Advance moves into the next level after a completed one. The cumulative
// score carries over, folded into the breakdown base.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateFinished || !s.pending {
		return errors.New("engine: no level completion to advance from")
	}

	next := s.lvl + 1
	board, ok := s.levels.Get(next)
	if !ok {
		return fmt.Errorf("engine: unknown level %d", next)
	}

	s.lvl = next
	s.board = board
	s.pos = 1
	s.timeLeft = TurnSeconds
	s.breakdown = Breakdown{Base: s.score}
	s.scoreSaved = false
	s.outcome = OutcomeNone
	s.pending = false
	s.state = StateActive
	s.startedAt = time.Now()
	s.startClockLocked()

	s.logger.Info("advanced to next level", "level", next, "carried", s.score)
	return nil
}

// Reset abandons the current game and returns to idle at the current level.
// The snapshot is cleared; nothing is submitted. The countdown does not run
// again until the next start.
func (s *Session) Reset() {
	s.challenges.Cancel()

	s.mu.Lock()
	s.stopClockLocked()
	s.pos = 1
	s.timeLeft = TurnSeconds
	s.score = 0
	s.breakdown = Breakdown{}
	s.submitted = 0
	s.scoreSaved = false
	s.outcome = OutcomeNone
	s.pending = false
	s.state = StateIdle
	lvl := s.lvl
	s.mu.Unlock()

	if err := s.store.ClearSnapshot(); err != nil {
		s.logger.Warn("cannot clear snapshot on reset", "error", err)
	}
	s.notify.Info(fmt.Sprintf("Game reset to level %d", lvl))
}

// Cleanup shuts the session down: the clock stops, any in-flight challenge
// resolves skipped, a running game is snapshotted for later resume, and any
// unsaved score is submitted before returning. A concurrent save in flight is
// joined, not duplicated. Idempotent.
func (s *Session) Cleanup() {
	s.mu.Lock()
	if s.cleaned {
		s.mu.Unlock()
		return
	}
	s.cleaned = true
	s.stopClockLocked()
	active := s.state == StateActive || s.state == StateMoving || s.state == StateChallenge
	s.mu.Unlock()

	s.challenges.Cancel()
	if active {
		s.saveSnapshot()
	}
	s.trySave(context.Background())
}

// View returns a point-in-time copy of the session for rendering.
func (s *Session) View() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:          s.state,
		Level:          s.lvl,
		MaxLevel:       s.levels.Max(),
		Board:          s.board,
		Position:       s.pos,
		TimeLeft:       s.timeLeft,
		Score:          s.score,
		Breakdown:      s.breakdown,
		Outcome:        s.outcome,
		PendingAdvance: s.pending,
		Unsaved:        s.score - s.submitted,
	}
}

// finish ends the current level exactly once. Normal completion awards the
// time bonus and opens the advance decision; a timeout awards nothing.
func (s *Session) finish(timedOut bool) {
	s.mu.Lock()
	if s.state == StateFinished || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateFinished
	s.stopClockLocked()

	if !timedOut {
		bonus := s.timeLeft * timeBonusRate
		s.breakdown.Time += bonus
		s.score += bonus
		if s.lvl < s.levels.Max() {
			s.outcome = OutcomeLevelComplete
			s.pending = true
		} else {
			s.outcome = OutcomeGameComplete
		}
	} else {
		s.outcome = OutcomeTimeout
	}

	lvl := s.lvl
	total := s.score
	playTime := int(time.Since(s.startedAt).Seconds())
	s.mu.Unlock()

	s.challenges.Cancel()

	if err := s.store.ClearSnapshot(); err != nil {
		s.logger.Warn("cannot clear snapshot", "error", err)
	}
	if err := s.store.RecordGame(storage.GameResult{
		Won:      !timedOut,
		Score:    total,
		Level:    lvl,
		PlayTime: playTime,
	}); err != nil {
		s.logger.Warn("cannot record game result", "error", err)
	}

	if timedOut {
		if total > 0 {
			s.notify.Error("Time's up! Your progress has been saved.")
		} else {
			s.notify.Error("Time's up! Try again.")
		}
	} else {
		s.notify.Success(fmt.Sprintf("Level %d complete! Score: %d", lvl, total))
	}

	s.trySave(context.Background())

	s.logger.Info("level finished",
		"level", lvl, "score", total, "timeout", timedOut, "play_time", playTime)
}

// trySave submits the unsubmitted part of the score at most once. Concurrent
// attempts join a single network call. Failures are reported but not latched,
// so a later attempt may retry.
func (s *Session) trySave(ctx context.Context) {
	s.mu.Lock()
	delta := s.score - s.submitted
	saved := s.scoreSaved
	s.mu.Unlock()

	if s.scores == nil || saved || delta <= 0 {
		return
	}

	v, err, _ := s.saves.Do("save", func() (any, error) {
		return s.scores.SubmitDelta(ctx, delta)
	})
	if err != nil {
		if errors.Is(err, score.ErrNeedsLogin) {
			s.notify.Error("Session expired. Please log in again to save your score.")
		} else {
			s.notify.Warning("Unable to save score. Please try again later.")
		}
		s.logger.Warn("score submission failed", "delta", delta, "error", err)
		return
	}

	result := v.(score.SubmitResult)
	s.mu.Lock()
	if !s.scoreSaved {
		s.submitted += delta
		s.scoreSaved = true
	}
	s.mu.Unlock()

	s.notify.Success(fmt.Sprintf("Score saved! +%d points (total: %d)", result.Added, result.NewTotal))
}
