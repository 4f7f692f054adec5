package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/undersea/internal/score"
	"github.com/vovakirdan/undersea/internal/storage"
	"github.com/vovakirdan/undersea/internal/tui"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the online leaderboard",
	Long: `Fetch and browse the online leaderboard. Players are ranked by total
score; ties break alphabetically.

Examples:
  undersea leaderboard
  undersea leaderboard --api http://127.0.0.1:5000/api`,
	Run: runLeaderboard,
}

func runLeaderboard(_ *cobra.Command, _ []string) {
	logger := fileLogger()

	store, err := storage.Open(flagDBPath)
	if err != nil {
		// The leaderboard is public; a broken local store is no reason
		// to stop.
		store = nil
	} else {
		defer store.Close()
	}

	client := score.NewClient(flagAPIBase, store, logger)
	width, height := terminalSize()

	if err := tui.RunLeaderboard(client, width, height); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
