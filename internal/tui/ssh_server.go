package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/undersea/internal/challenge"
	"github.com/vovakirdan/undersea/internal/engine"
	"github.com/vovakirdan/undersea/internal/level"
	"github.com/vovakirdan/undersea/internal/storage"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.undersea/host_key.
	HostKeyPath string

	// PuzzleURL is the base URL of the heart puzzle service.
	PuzzleURL string

	// Levels is the board set served to every connection.
	Levels level.Set

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		PuzzleURL:   challenge.DefaultServiceURL,
		Levels:      level.Builtin(),
		IdleTimeout: 30 * time.Minute,
	}
}

// SSHServer serves the game over SSH via Wish. Every connection gets its own
// session with an in-memory store; guests play local-only, nothing is
// submitted to the backend.
type SSHServer struct {
	config   SSHServerConfig
	server   *ssh.Server
	logger   *log.Logger
	mu       sync.Mutex
	cleanups map[ssh.Session]func()
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "undersea-ssh",
	})

	if cfg.Levels.Max() == 0 {
		cfg.Levels = level.Builtin()
	}

	srv := &SSHServer{
		config:   cfg,
		logger:   logger,
		cleanups: make(map[ssh.Session]func()),
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".undersea", "host_key")
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.sessionMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a Bubble Tea program for each SSH connection.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	_, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	// Guests get a throwaway store; their snapshots and stats live only as
	// long as the connection.
	store, err := storage.Open(":memory:")
	if err != nil {
		s.logger.Error("cannot open in-memory store", "error", err)
		return nil, nil
	}

	msgLog := NewMessageLog(0)
	bridge := NewPromptBridge()
	resolver := challenge.NewResolver(s.config.PuzzleURL, bridge, s.logger)

	session, err := engine.New(engine.Options{
		Levels:     s.config.Levels,
		Store:      store,
		Challenges: resolver,
		Notify:     msgLog,
		Logger:     s.logger,
	})
	if err != nil {
		s.logger.Error("cannot create game session", "error", err)
		store.Close()
		return nil, nil
	}

	s.mu.Lock()
	s.cleanups[sshSession] = func() {
		session.Cleanup()
		store.Close()
	}
	s.mu.Unlock()

	return NewGameModel(session, bridge, msgLog), []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// sessionMiddleware logs connection lifecycle and releases per-connection
// resources even when the client just drops.
func (s *SSHServer) sessionMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)

		s.mu.Lock()
		cleanup := s.cleanups[sshSession]
		delete(s.cleanups, sshSession)
		s.mu.Unlock()
		if cleanup != nil {
			cleanup()
		}

		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
