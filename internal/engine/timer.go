package engine

import "time"

const autosaveTicks = 5 // snapshot every five countdown ticks

// startClockLocked launches the countdown and autosave goroutines for the
// current level. Caller holds the lock. Any previous clock is stopped first.
func (s *Session) startClockLocked() {
	s.stopClockLocked()
	stop := make(chan struct{})
	s.stop = stop
	go s.runClock(stop)
}

// stopClockLocked stops the running clock, if any. Caller holds the lock.
func (s *Session) stopClockLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

// runClock decrements the countdown once per tick and autosaves the snapshot
// periodically. It exits when the level finishes or the clock is stopped.
// The timeout finalization fires at most once per level; the state machine
// guarantees it even if a finish races in from a move.
func (s *Session) runClock(stop <-chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state == StateFinished || s.state == StateIdle {
				s.mu.Unlock()
				return
			}
			s.timeLeft--
			if s.timeLeft < 0 {
				s.timeLeft = 0
			}
			expired := s.timeLeft == 0
			s.mu.Unlock()

			if expired {
				s.finish(true)
				return
			}

			ticks++
			if ticks%autosaveTicks == 0 {
				s.saveSnapshot()
			}
		}
	}
}
