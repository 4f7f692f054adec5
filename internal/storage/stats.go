package storage

import (
	"fmt"
	"time"
)

// Stats is the lifetime statistics record.
type Stats struct {
	TotalGames          int         `json:"totalGames"`
	GamesWon            int         `json:"gamesWon"`
	GamesLost           int         `json:"gamesLost"`
	TotalScore          int         `json:"totalScore"`
	BestScore           int         `json:"bestScore"`
	AverageScore        int         `json:"averageScore"`
	TotalPlayTime       int         `json:"totalPlayTime"` // seconds
	ChallengesCompleted int         `json:"challengesCompleted"`
	ChallengesFailed    int         `json:"challengesFailed"`
	SnakesEncountered   int         `json:"snakesEncountered"`
	LevelsCompleted     map[int]int `json:"levelsCompleted"`
	BestScores          map[int]int `json:"bestScores"`
	LastPlayed          string      `json:"lastPlayed,omitempty"` // RFC 3339
}

// GameResult describes one finished game for stats recording.
type GameResult struct {
	Won      bool
	Score    int
	Level    int
	PlayTime int // seconds
}

func newStats() Stats {
	return Stats{
		LevelsCompleted: make(map[int]int),
		BestScores:      make(map[int]int),
	}
}

// WinRate returns the percentage of games won, rounded.
func (st Stats) WinRate() int {
	if st.TotalGames == 0 {
		return 0
	}
	return int(float64(st.GamesWon)/float64(st.TotalGames)*100 + 0.5)
}

// ChallengeSuccessRate returns the percentage of heart challenges answered
// correctly, rounded.
func (st Stats) ChallengeSuccessRate() int {
	total := st.ChallengesCompleted + st.ChallengesFailed
	if total == 0 {
		return 0
	}
	return int(float64(st.ChallengesCompleted)/float64(total)*100 + 0.5)
}

// FormattedPlayTime renders the total play time as "2h 15m" or "15m".
func (st Stats) FormattedPlayTime() string {
	hours := st.TotalPlayTime / 3600
	minutes := (st.TotalPlayTime % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// LoadStats returns the lifetime statistics, or a zeroed record when nothing
// is stored yet.
func (s *Store) LoadStats() Stats {
	st := newStats()
	if err := s.getRecord(keyStatistics, &st); err != nil {
		return newStats()
	}
	if st.LevelsCompleted == nil {
		st.LevelsCompleted = make(map[int]int)
	}
	if st.BestScores == nil {
		st.BestScores = make(map[int]int)
	}
	return st
}

// SaveStats stores the lifetime statistics.
func (s *Store) SaveStats(st Stats) error {
	return s.putRecord(keyStatistics, st)
}

// RecordGame folds one finished game into the lifetime statistics.
func (s *Store) RecordGame(result GameResult) error {
	st := s.LoadStats()
	st.TotalGames++
	st.LastPlayed = time.Now().Format(time.RFC3339)
	if result.Won {
		st.GamesWon++
		if result.Level > 0 {
			st.LevelsCompleted[result.Level]++
		}
	} else {
		st.GamesLost++
	}
	if result.Score > 0 {
		st.TotalScore += result.Score
		if result.Score > st.BestScore {
			st.BestScore = result.Score
		}
		st.AverageScore = st.TotalScore / st.TotalGames
		if result.Level > 0 && result.Score > st.BestScores[result.Level] {
			st.BestScores[result.Level] = result.Score
		}
	}
	if result.PlayTime > 0 {
		st.TotalPlayTime += result.PlayTime
	}
	return s.SaveStats(st)
}

// RecordChallenge notes the outcome of one heart challenge.
func (s *Store) RecordChallenge(success bool) error {
	st := s.LoadStats()
	if success {
		st.ChallengesCompleted++
	} else {
		st.ChallengesFailed++
	}
	return s.SaveStats(st)
}

// RecordSnake notes one snake encounter.
func (s *Store) RecordSnake() error {
	st := s.LoadStats()
	st.SnakesEncountered++
	return s.SaveStats(st)
}
