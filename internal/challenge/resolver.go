// Package challenge resolves heart-cell puzzles against the external puzzle
// service. A challenge is a one-shot interaction: fetch a puzzle image with a
// numeric solution, present it to the player under a deadline, and deliver
// exactly one outcome.
package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultServiceURL is the public puzzle service.
const DefaultServiceURL = "https://marcconrad.com/uob/heart"

const (
	// AnswerDeadline is how long the player has to answer.
	AnswerDeadline = 10 * time.Second
	// hardTimeout is the safety net in case the interaction layer never
	// calls back.
	hardTimeout = 12 * time.Second
)

// Status classifies how a challenge invocation ended.
type Status string

const (
	StatusCorrect     Status = "correct"
	StatusCorrectZero Status = "correctZero"
	StatusWrong       Status = "wrong"
	StatusTimeout     Status = "timeout"
	StatusSkipped     Status = "skipped"
	StatusError       Status = "error"
)

// Outcome is the result of a single challenge invocation.
type Outcome struct {
	Status   Status
	Bonus    int // cells/points awarded; non-zero only for StatusCorrect
	Solution int // the puzzle's expected solution, for display
}

// Succeeded reports whether the player answered correctly.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusCorrect || o.Status == StatusCorrectZero
}

// Puzzle is one fetched puzzle.
type Puzzle struct {
	ImageURL string
	Solution int
}

// Answer is the player's response collected by the interaction layer.
type Answer struct {
	Text    string
	Skipped bool
}

// Prompter presents a puzzle to the player and collects an answer. The
// context carries the answer deadline; implementations must return promptly
// once it expires.
type Prompter interface {
	Prompt(ctx context.Context, p Puzzle) (Answer, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, p Puzzle) (Answer, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, p Puzzle) (Answer, error) {
	return f(ctx, p)
}

// NopPrompter skips every challenge. It is the default when no interaction
// layer is attached.
type NopPrompter struct{}

// Prompt always skips.
func (NopPrompter) Prompt(context.Context, Puzzle) (Answer, error) {
	return Answer{Skipped: true}, nil
}

// Resolver fetches puzzles and runs challenge invocations.
type Resolver struct {
	baseURL  string
	client   *http.Client
	prompter Prompter
	logger   *log.Logger

	mu      sync.Mutex
	current *resultCell // in-flight invocation, nil when idle
}

// NewResolver creates a resolver against the given puzzle service.
// A nil prompter skips all challenges; a nil logger uses the default.
func NewResolver(baseURL string, prompter Prompter, logger *log.Logger) *Resolver {
	if baseURL == "" {
		baseURL = DefaultServiceURL
	}
	if prompter == nil {
		prompter = NopPrompter{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
		prompter: prompter,
		logger:   logger,
	}
}

// Resolve runs one challenge end to end and returns its outcome. Exactly one
// outcome is delivered per invocation: the first of player answer, skip,
// deadline, hard timeout, or cancellation wins; later completions are dropped.
func (r *Resolver) Resolve(ctx context.Context) Outcome {
	puzzle, err := r.fetchPuzzle(ctx)
	if err != nil {
		r.logger.Warn("puzzle fetch failed", "error", err)
		return Outcome{Status: StatusError}
	}

	cell := newResultCell(r.logger)
	r.mu.Lock()
	r.current = cell
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		if r.current == cell {
			r.current = nil
		}
		r.mu.Unlock()
	}()

	// Safety net: the interaction layer may never call back.
	safety := time.AfterFunc(hardTimeout, func() {
		cell.complete(Outcome{Status: StatusTimeout, Solution: puzzle.Solution})
	})
	defer safety.Stop()

	go func() {
		pctx, cancel := context.WithTimeout(ctx, AnswerDeadline)
		defer cancel()

		answer, promptErr := r.prompter.Prompt(pctx, puzzle)
		switch {
		case ctx.Err() != nil:
			// Caller cancellation is a skip; timeout is reserved for the
			// answer deadline.
			cell.complete(Outcome{Status: StatusSkipped, Solution: puzzle.Solution})
		case promptErr != nil && errors.Is(promptErr, context.DeadlineExceeded):
			cell.complete(Outcome{Status: StatusTimeout, Solution: puzzle.Solution})
		case promptErr != nil:
			r.logger.Warn("challenge prompt failed", "error", promptErr)
			cell.complete(Outcome{Status: StatusError, Solution: puzzle.Solution})
		case answer.Skipped:
			cell.complete(Outcome{Status: StatusSkipped, Solution: puzzle.Solution})
		default:
			cell.complete(Evaluate(puzzle, answer.Text))
		}
	}()

	select {
	case outcome := <-cell.ch:
		return outcome
	case <-ctx.Done():
		cell.complete(Outcome{Status: StatusSkipped, Solution: puzzle.Solution})
		return <-cell.ch
	}
}

// Cancel forces any in-flight invocation to resolve as skipped, so no caller
// is left waiting. Safe to call when nothing is in flight.
func (r *Resolver) Cancel() {
	r.mu.Lock()
	cell := r.current
	r.mu.Unlock()
	if cell != nil {
		cell.complete(Outcome{Status: StatusSkipped})
	}
}

// Evaluate scores a raw answer against the puzzle. Non-numeric or negative
// input counts as a wrong answer, never as a system error.
func Evaluate(p Puzzle, raw string) Outcome {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Outcome{Status: StatusWrong, Solution: p.Solution}
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 0 {
		return Outcome{Status: StatusWrong, Solution: p.Solution}
	}
	if n != p.Solution {
		return Outcome{Status: StatusWrong, Solution: p.Solution}
	}
	if p.Solution == 0 {
		return Outcome{Status: StatusCorrectZero, Solution: 0}
	}
	return Outcome{Status: StatusCorrect, Bonus: p.Solution, Solution: p.Solution}
}

// puzzleResponse is the service's wire format. The solution arrives as a
// number, a numeric string, null, or not at all.
type puzzleResponse struct {
	Question string `json:"question"`
	Solution any    `json:"solution"`
}

func (r *Resolver) fetchPuzzle(ctx context.Context) (Puzzle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api.php?out=json", nil)
	if err != nil {
		return Puzzle{}, fmt.Errorf("challenge: cannot build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return Puzzle{}, fmt.Errorf("challenge: puzzle fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Puzzle{}, fmt.Errorf("challenge: puzzle service returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Puzzle{}, fmt.Errorf("challenge: cannot read puzzle response: %w", err)
	}

	var pr puzzleResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return Puzzle{}, fmt.Errorf("challenge: cannot decode puzzle response: %w", err)
	}
	if pr.Question == "" {
		return Puzzle{}, fmt.Errorf("challenge: puzzle response missing question")
	}

	return Puzzle{ImageURL: pr.Question, Solution: r.parseSolution(pr.Solution)}, nil
}

// parseSolution coerces the service's loosely-typed solution field to a
// non-negative integer. Empty or missing solutions mean 0.
func (r *Resolver) parseSolution(v any) int {
	switch s := v.(type) {
	case nil:
		return 0
	case float64:
		if s < 0 {
			r.logger.Warn("negative puzzle solution, defaulting to 0", "solution", s)
			return 0
		}
		return int(s)
	case string:
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < 0 {
			r.logger.Warn("invalid puzzle solution, defaulting to 0", "solution", s)
			return 0
		}
		return n
	default:
		r.logger.Warn("unexpected puzzle solution type, defaulting to 0", "solution", v)
		return 0
	}
}

// resultCell delivers exactly one outcome per invocation. The first
// completion wins; later ones are ignored and logged.
type resultCell struct {
	once   sync.Once
	ch     chan Outcome
	logger *log.Logger
}

func newResultCell(logger *log.Logger) *resultCell {
	return &resultCell{ch: make(chan Outcome, 1), logger: logger}
}

func (c *resultCell) complete(o Outcome) bool {
	delivered := false
	c.once.Do(func() {
		c.ch <- o
		delivered = true
	})
	if !delivered {
		c.logger.Debug("late challenge resolution ignored", "status", o.Status)
	}
	return delivered
}
