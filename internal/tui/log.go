package tui

import "sync"

// MessageKind classifies a log entry for styling.
type MessageKind int

const (
	MessageInfo MessageKind = iota
	MessageSuccess
	MessageWarning
	MessageError
)

// Message is one entry in the on-screen log.
type Message struct {
	Kind MessageKind
	Text string
}

// MessageLog collects engine notifications for the on-screen log. It
// implements engine.Notifier and is safe for concurrent use: the engine
// writes from its own goroutines while the UI reads on refresh.
type MessageLog struct {
	mu      sync.Mutex
	entries []Message
	max     int
}

// NewMessageLog creates a log that keeps the last max entries.
func NewMessageLog(max int) *MessageLog {
	if max <= 0 {
		max = 50
	}
	return &MessageLog{max: max}
}

func (l *MessageLog) add(kind MessageKind, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Message{Kind: kind, Text: text})
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
}

func (l *MessageLog) Info(msg string)    { l.add(MessageInfo, msg) }
func (l *MessageLog) Success(msg string) { l.add(MessageSuccess, msg) }
func (l *MessageLog) Warning(msg string) { l.add(MessageWarning, msg) }
func (l *MessageLog) Error(msg string)   { l.add(MessageError, msg) }

// Tail returns the most recent n entries, oldest first.
func (l *MessageLog) Tail(n int) []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Message, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
