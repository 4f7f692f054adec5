package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	// Check that the file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)

	snap := Snapshot{Level: 2, CurrentPos: 17, TimeLeft: 43, Score: 120, Active: true}
	if err := store.SaveSnapshot(snap); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}

	got, err := store.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() failed: %v", err)
	}
	if got.Level != 2 || got.CurrentPos != 17 || got.TimeLeft != 43 || got.Score != 120 || !got.Active {
		t.Errorf("LoadSnapshot() = %+v, want saved fields back", got)
	}
	if got.Timestamp == 0 {
		t.Error("Expected SaveSnapshot to stamp the record")
	}
}

func TestSnapshotAbsent(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.LoadSnapshot(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("LoadSnapshot() on empty store = %v, want ErrNoRecord", err)
	}
}

func TestSnapshotStaleness(t *testing.T) {
	store := openTestStore(t)

	// Write a snapshot with a timestamp older than the staleness threshold.
	old := Snapshot{
		Level:      1,
		CurrentPos: 5,
		TimeLeft:   30,
		Score:      50,
		Active:     true,
		Timestamp:  time.Now().Add(-25 * time.Hour).UnixMilli(),
	}
	if err := store.putRecord(keySnapshot, old); err != nil {
		t.Fatalf("putRecord() failed: %v", err)
	}

	if _, err := store.LoadSnapshot(); !errors.Is(err, ErrNoRecord) {
		t.Errorf("LoadSnapshot() with stale record = %v, want ErrNoRecord", err)
	}

	// The stale record should have been removed.
	var raw Snapshot
	if err := store.getRecord(keySnapshot, &raw); !errors.Is(err, ErrNoRecord) {
		t.Error("Stale snapshot should be deleted on load")
	}
}

func TestClearSnapshot(t *testing.T) {
	store := openTestStore(t)

	if err := store.SaveSnapshot(Snapshot{Level: 1, CurrentPos: 3}); err != nil {
		t.Fatalf("SaveSnapshot() failed: %v", err)
	}
	if err := store.ClearSnapshot(); err != nil {
		t.Fatalf("ClearSnapshot() failed: %v", err)
	}
	if _, err := store.LoadSnapshot(); !errors.Is(err, ErrNoRecord) {
		t.Error("Snapshot should be absent after clear")
	}

	// Clearing again is fine.
	if err := store.ClearSnapshot(); err != nil {
		t.Errorf("Second ClearSnapshot() failed: %v", err)
	}
}

func TestSettingsDefaults(t *testing.T) {
	store := openTestStore(t)

	settings := store.LoadSettings()
	if !settings.ShowAnimations || !settings.SoundEnabled || settings.AnimationSpeed != "normal" {
		t.Errorf("LoadSettings() on empty store = %+v, want defaults", settings)
	}

	settings.ShowAnimations = false
	settings.AnimationSpeed = "fast"
	if err := store.SaveSettings(settings); err != nil {
		t.Fatalf("SaveSettings() failed: %v", err)
	}

	got := store.LoadSettings()
	if got.ShowAnimations || got.AnimationSpeed != "fast" {
		t.Errorf("LoadSettings() = %+v, want stored values", got)
	}
}

func TestSettingsSnakeDelay(t *testing.T) {
	cases := []struct {
		settings Settings
		want     time.Duration
	}{
		{Settings{ShowAnimations: true, AnimationSpeed: "normal"}, 600 * time.Millisecond},
		{Settings{ShowAnimations: true, AnimationSpeed: "fast"}, 300 * time.Millisecond},
		{Settings{ShowAnimations: true, AnimationSpeed: "slow"}, time.Second},
		{Settings{ShowAnimations: false, AnimationSpeed: "slow"}, 50 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := tc.settings.SnakeDelay(); got != tc.want {
			t.Errorf("SnakeDelay(%+v) = %v, want %v", tc.settings, got, tc.want)
		}
	}
}

func TestUserRoundTrip(t *testing.T) {
	store := openTestStore(t)

	u := User{ID: "u1", Username: "finley", Email: "finley@example.com", Score: 300}
	if err := store.SaveUser(u); err != nil {
		t.Fatalf("SaveUser() failed: %v", err)
	}

	got, err := store.LoadUser()
	if err != nil {
		t.Fatalf("LoadUser() failed: %v", err)
	}
	if got.Username != "finley" || got.Score != 300 {
		t.Errorf("LoadUser() = %+v", got)
	}

	if err := store.ClearUser(); err != nil {
		t.Fatalf("ClearUser() failed: %v", err)
	}
	if _, err := store.LoadUser(); !errors.Is(err, ErrNoRecord) {
		t.Error("User should be absent after clear")
	}
}

func TestRecordGame(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordGame(GameResult{Won: true, Score: 200, Level: 1, PlayTime: 45}); err != nil {
		t.Fatalf("RecordGame() failed: %v", err)
	}
	if err := store.RecordGame(GameResult{Won: false, Score: 100, Level: 1, PlayTime: 60}); err != nil {
		t.Fatalf("RecordGame() failed: %v", err)
	}

	st := store.LoadStats()
	if st.TotalGames != 2 || st.GamesWon != 1 || st.GamesLost != 1 {
		t.Errorf("Game counts = %d/%d/%d", st.TotalGames, st.GamesWon, st.GamesLost)
	}
	if st.BestScore != 200 {
		t.Errorf("BestScore = %d, want 200", st.BestScore)
	}
	if st.AverageScore != 150 {
		t.Errorf("AverageScore = %d, want 150", st.AverageScore)
	}
	if st.TotalPlayTime != 105 {
		t.Errorf("TotalPlayTime = %d, want 105", st.TotalPlayTime)
	}
	if st.BestScores[1] != 200 {
		t.Errorf("BestScores[1] = %d, want 200", st.BestScores[1])
	}
	if st.LevelsCompleted[1] != 1 {
		t.Errorf("LevelsCompleted[1] = %d, want 1", st.LevelsCompleted[1])
	}
	if st.WinRate() != 50 {
		t.Errorf("WinRate() = %d, want 50", st.WinRate())
	}
}

func TestRecordChallengeAndSnake(t *testing.T) {
	store := openTestStore(t)

	store.RecordChallenge(true)
	store.RecordChallenge(true)
	store.RecordChallenge(false)
	store.RecordSnake()

	st := store.LoadStats()
	if st.ChallengesCompleted != 2 || st.ChallengesFailed != 1 {
		t.Errorf("Challenge counts = %d/%d", st.ChallengesCompleted, st.ChallengesFailed)
	}
	if st.ChallengeSuccessRate() != 67 {
		t.Errorf("ChallengeSuccessRate() = %d, want 67", st.ChallengeSuccessRate())
	}
	if st.SnakesEncountered != 1 {
		t.Errorf("SnakesEncountered = %d, want 1", st.SnakesEncountered)
	}
}

func TestFormattedPlayTime(t *testing.T) {
	st := Stats{TotalPlayTime: 2*3600 + 15*60}
	if got := st.FormattedPlayTime(); got != "2h 15m" {
		t.Errorf("FormattedPlayTime() = %q, want \"2h 15m\"", got)
	}
	st.TotalPlayTime = 540
	if got := st.FormattedPlayTime(); got != "9m" {
		t.Errorf("FormattedPlayTime() = %q, want \"9m\"", got)
	}
}
