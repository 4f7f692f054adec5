package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/undersea/internal/challenge"
	"github.com/vovakirdan/undersea/internal/engine"
	"github.com/vovakirdan/undersea/internal/level"
	"github.com/vovakirdan/undersea/internal/score"
	"github.com/vovakirdan/undersea/internal/storage"
	"github.com/vovakirdan/undersea/internal/tui"
)

var (
	flagLevel  int
	flagPuzzle string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the game",
	Long: `Start playing. If a saved game less than a day old exists, you are
offered to resume it.

Controls:
  Space      - Start / roll the die
  R          - Reset the level
  N          - Next level (after completing one)
  Q/Ctrl+C   - Quit (the game is saved for resume)

During a heart challenge:
  Enter      - Submit your answer
  Esc        - Skip the challenge

Examples:
  undersea play
  undersea play --level 3
  undersea play --levels ./my-boards.yaml
  undersea play --seed 42`,
	Run: runPlay,
}

func init() {
	playCmd.Flags().IntVar(&flagLevel, "level", 1, "Level to start at")
	playCmd.Flags().StringVar(&flagPuzzle, "puzzle", challenge.DefaultServiceURL, "Heart puzzle service base URL")
}

func runPlay(_ *cobra.Command, _ []string) {
	logger := fileLogger()

	levels, err := level.Load(flagLevels)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading levels: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	// Scores go online only for a logged-in user; everyone else plays
	// local-only.
	var submitter engine.ScoreSubmitter
	if _, userErr := store.LoadUser(); userErr == nil {
		submitter = score.NewClient(flagAPIBase, store, logger)
	} else if errors.Is(userErr, storage.ErrNoRecord) {
		fmt.Println("Playing as guest; scores stay local.")
	}

	msgLog := tui.NewMessageLog(0)
	bridge := tui.NewPromptBridge()
	resolver := challenge.NewResolver(flagPuzzle, bridge, logger)

	session, err := engine.New(engine.Options{
		Levels:     levels,
		Store:      store,
		Challenges: resolver,
		Scores:     submitter,
		Notify:     msgLog,
		Logger:     logger,
		Seed:       flagSeed,
		SnakeDelay: store.LoadSettings().SnakeDelay(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating session: %v\n", err)
		os.Exit(1)
	}

	if snap, ok := session.SavedGame(); ok && offerResume(snap) {
		if restoreErr := session.Restore(snap); restoreErr != nil {
			fmt.Fprintf(os.Stderr, "Could not resume: %v\n", restoreErr)
		}
	} else if startErr := session.Start(flagLevel); startErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", startErr)
		os.Exit(1)
	}

	if runErr := tui.Run(session, bridge, msgLog); runErr != nil {
		fmt.Fprintf(os.Stderr, "Error running game: %v\n", runErr)
		os.Exit(1)
	}
}

// offerResume asks whether to pick up a saved game.
func offerResume(snap storage.Snapshot) bool {
	fmt.Printf("Found a saved game: level %d, cell %d, %ds left, score %d.\n",
		snap.Level, snap.CurrentPos, snap.TimeLeft, snap.Score)
	fmt.Print("Resume it? [Y/n] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "" || answer == "y" || answer == "yes"
}

// terminalSize returns the terminal dimensions with sane fallbacks.
func terminalSize() (int, int) {
	width, height := 80, 24
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}
	return width, height
}
