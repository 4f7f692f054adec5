// undersea is a terminal board race game: roll the die, answer heart
// challenges, dodge snakes, and beat the clock across three boards.
//
// Usage:
//
//	undersea play           - Play the game
//	undersea leaderboard    - Show the online leaderboard
//	undersea stats          - Show local lifetime statistics
//	undersea serve          - Start SSH server for remote play
//
// Global flags:
//
//	--db <path>      - Local database path (default: ~/.undersea/undersea.db)
//	--api <url>      - Backend API base URL
//	--seed <value>   - Set RNG seed for reproducible dice
//	--levels <path>  - Custom level boards YAML
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/undersea/internal/score"
)

var (
	// Global flags
	flagDBPath  string
	flagAPIBase string
	flagSeed    int64
	flagLevels  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "undersea",
	Short: "Undersea - A board race game in your terminal",
	Long: `Undersea is a terminal board race game. Roll the die to advance,
answer heart challenges for bonus points and extra cells, dodge snakes
that drag you back, and reach the last cell before the timer runs out.

Available commands:
  play         - Play the game (resumes a saved run if one exists)
  leaderboard  - View the online leaderboard
  stats        - View local lifetime statistics
  serve        - Start SSH server for remote play

Examples:
  undersea play
  undersea play --level 2
  undersea leaderboard
  undersea serve --ssh :2222`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.undersea/undersea.db", "Path to local database")
	rootCmd.PersistentFlags().StringVar(&flagAPIBase, "api", score.DefaultAPIBase, "Backend API base URL")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagLevels, "levels", "", "Path to custom level boards YAML")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
}

// fileLogger logs to ~/.undersea/undersea.log so the TUI stays clean. It
// discards everything if the file cannot be opened.
func fileLogger() *log.Logger {
	home, err := os.UserHomeDir()
	if err != nil {
		return log.New(io.Discard)
	}
	dir := filepath.Join(home, ".undersea")
	//nolint:errcheck // Best-effort, falls through to discard
	os.MkdirAll(dir, 0o755)

	f, err := os.OpenFile(filepath.Join(dir, "undersea.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return log.New(io.Discard)
	}
	return log.NewWithOptions(f, log.Options{ReportTimestamp: true})
}
