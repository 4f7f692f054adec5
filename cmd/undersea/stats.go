package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/undersea/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local lifetime statistics",
	Long: `Print lifetime statistics from the local database: games played, win
rate, best scores per level, challenge success rate, and total play time.`,
	Run: runStats,
}

func runStats(_ *cobra.Command, _ []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	stats := store.LoadStats()
	if stats.TotalGames == 0 {
		fmt.Println("No games recorded yet. Run 'undersea play' to get started.")
		return
	}

	fmt.Println("Lifetime statistics")
	fmt.Println("-------------------")
	fmt.Printf("Games played:       %d (%d won, %d lost)\n",
		stats.TotalGames, stats.GamesWon, stats.GamesLost)
	fmt.Printf("Win rate:           %d%%\n", stats.WinRate())
	fmt.Printf("Best score:         %d\n", stats.BestScore)
	fmt.Printf("Average score:      %d\n", stats.AverageScore)
	fmt.Printf("Total play time:    %s\n", stats.FormattedPlayTime())
	fmt.Printf("Challenges:         %d solved, %d missed (%d%% success)\n",
		stats.ChallengesCompleted, stats.ChallengesFailed, stats.ChallengeSuccessRate())
	fmt.Printf("Snakes hit:         %d\n", stats.SnakesEncountered)

	if len(stats.BestScores) > 0 {
		fmt.Println()
		fmt.Println("Per level")
		levels := make([]int, 0, len(stats.BestScores))
		for lvl := range stats.BestScores {
			levels = append(levels, lvl)
		}
		sort.Ints(levels)
		for _, lvl := range levels {
			fmt.Printf("  Level %d: best %d, completed %d times\n",
				lvl, stats.BestScores[lvl], stats.LevelsCompleted[lvl])
		}
	}

	if stats.LastPlayed != "" {
		fmt.Println()
		fmt.Printf("Last played: %s\n", stats.LastPlayed)
	}
}
