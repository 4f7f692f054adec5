package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/undersea/internal/storage"
)

// SavedGame returns a resumable snapshot from a previous run, if one exists
// and is fresh enough. Stale snapshots are discarded by the store.
func (s *Session) SavedGame() (storage.Snapshot, bool) {
	snap, err := s.store.LoadSnapshot()
	if err != nil {
		if !errors.Is(err, storage.ErrNoRecord) {
			s.logger.Warn("cannot load snapshot", "error", err)
		}
		return storage.Snapshot{}, false
	}
	return snap, true
}

// Restore resumes the session from a snapshot. An active snapshot restarts
// the countdown from where it left off; the restored score counts as
// unsubmitted.
func (s *Session) Restore(snap storage.Snapshot) error {
	board, ok := s.levels.Get(snap.Level)
	if !ok {
		return fmt.Errorf("engine: snapshot references unknown level %d", snap.Level)
	}

	if snap.TimeLeft <= 0 {
		return fmt.Errorf("engine: snapshot has no time left")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle && s.state != StateFinished {
		return fmt.Errorf("engine: cannot restore while %s", s.state)
	}

	s.lvl = snap.Level
	s.board = board
	s.pos = min(max(1, snap.CurrentPos), board.BoardSize)
	s.timeLeft = min(snap.TimeLeft, TurnSeconds)
	s.score = max(0, snap.Score)
	s.breakdown = Breakdown{Base: s.score}
	s.submitted = 0
	s.scoreSaved = false
	s.outcome = OutcomeNone
	s.pending = false
	s.startedAt = time.Now()

	if snap.Active {
		s.state = StateActive
		s.startClockLocked()
	} else {
		s.state = StateIdle
	}

	s.logger.Info("game restored",
		"level", s.lvl, "position", s.pos, "time_left", s.timeLeft, "score", s.score)
	return nil
}

// saveSnapshot persists the current game for later resume. Finished and idle
// sessions have nothing worth saving.
func (s *Session) saveSnapshot() {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateFinished {
		s.mu.Unlock()
		return
	}
	snap := storage.Snapshot{
		Level:      s.lvl,
		CurrentPos: s.pos,
		TimeLeft:   s.timeLeft,
		Score:      s.score,
		Active:     true,
	}
	s.mu.Unlock()

	if err := s.store.SaveSnapshot(snap); err != nil {
		s.logger.Warn("cannot save snapshot", "error", err)
	}
}
