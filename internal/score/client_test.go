package score

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/undersea/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "undersea.db"))
	if err != nil {
		t.Fatalf("cannot open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func loginAs(t *testing.T, store *storage.Store, session string) {
	t.Helper()
	err := store.SaveUser(storage.User{
		ID:       "u1",
		Username: "pearl",
		Email:    "pearl@example.com",
		Score:    100,
		Session:  session,
	})
	if err != nil {
		t.Fatalf("cannot save user: %v", err)
	}
}

func TestSubmitDeltaSkipsNonPositive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testStore(t), nil)
	for _, delta := range []int{0, -5} {
		if _, err := c.SubmitDelta(context.Background(), delta); err != nil {
			t.Errorf("delta %d: unexpected error: %v", delta, err)
		}
	}
}

func TestSubmitDeltaSuccess(t *testing.T) {
	store := testStore(t)
	loginAs(t, store, "sess-1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("connect.sid")
		if err != nil || cookie.Value != "sess-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/auth/me":
			_, _ = w.Write([]byte(`{"id":"u1","username":"pearl","score":100}`))
		case "/game/score":
			_, _ = w.Write([]byte(`{"msg":"Score updated","score":220,"added":120}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, store, nil)
	result, err := c.SubmitDelta(context.Background(), 120)
	if err != nil {
		t.Fatalf("SubmitDelta: %v", err)
	}
	if result.Added != 120 || result.NewTotal != 220 {
		t.Fatalf("result = %+v, want added 120 total 220", result)
	}

	user, err := store.LoadUser()
	if err != nil {
		t.Fatalf("LoadUser: %v", err)
	}
	if user.Score != 220 {
		t.Fatalf("cached total = %d, want 220", user.Score)
	}
}

func TestSubmitDeltaExpiredSession(t *testing.T) {
	store := testStore(t)
	loginAs(t, store, "stale")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, store, nil)
	if _, err := c.SubmitDelta(context.Background(), 50); !errors.Is(err, ErrNeedsLogin) {
		t.Fatalf("error = %v, want ErrNeedsLogin", err)
	}
	if _, err := store.LoadUser(); !errors.Is(err, storage.ErrNoRecord) {
		t.Fatalf("cached user should be cleared, got %v", err)
	}
}

func TestSubmitDeltaRejectedOnSubmit(t *testing.T) {
	store := testStore(t)
	loginAs(t, store, "sess-1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			_, _ = w.Write([]byte(`{"id":"u1","username":"pearl"}`))
		case "/game/score":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, store, nil)
	if _, err := c.SubmitDelta(context.Background(), 50); !errors.Is(err, ErrNeedsLogin) {
		t.Fatalf("error = %v, want ErrNeedsLogin", err)
	}
	if _, err := store.LoadUser(); !errors.Is(err, storage.ErrNoRecord) {
		t.Fatalf("cached user should be cleared, got %v", err)
	}
}

func TestSubmitDeltaServerErrorKeepsUser(t *testing.T) {
	store := testStore(t)
	loginAs(t, store, "sess-1")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			_, _ = w.Write([]byte(`{"id":"u1","username":"pearl"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"msg":"Server error"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, store, nil)
	if _, err := c.SubmitDelta(context.Background(), 50); err == nil {
		t.Fatal("expected an error from a failing backend")
	}
	if _, err := store.LoadUser(); err != nil {
		t.Fatalf("cached user should survive a server error, got %v", err)
	}
}

func TestSubmitDeltaJoinsConcurrentCalls(t *testing.T) {
	store := testStore(t)
	loginAs(t, store, "sess-1")

	inFlight := make(chan struct{})
	release := make(chan struct{})
	var gate sync.Once
	var submits atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/me":
			gate.Do(func() {
				close(inFlight)
				<-release
			})
			_, _ = w.Write([]byte(`{"id":"u1","username":"pearl"}`))
		case "/game/score":
			submits.Add(1)
			_, _ = w.Write([]byte(`{"score":150,"added":50}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, store, nil)

	var wg sync.WaitGroup
	results := make(chan SubmitResult, 3)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := c.SubmitDelta(context.Background(), 50)
		if err != nil {
			t.Errorf("SubmitDelta: %v", err)
		}
		results <- res
	}()

	// Wait for the first submission to be in flight, then pile on two more
	// callers that must join it.
	<-inFlight
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.SubmitDelta(context.Background(), 50)
			if err != nil {
				t.Errorf("SubmitDelta: %v", err)
			}
			results <- res
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	if got := submits.Load(); got != 1 {
		t.Fatalf("backend saw %d submissions, want 1", got)
	}
	for res := range results {
		if res.NewTotal != 150 {
			t.Fatalf("joined caller got %+v, want total 150", res)
		}
	}
}

func TestLeaderboardSorted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/game/leaderboard" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`[
			{"id":"a","username":"coral","email":"*****oral@example.com","score":90},
			{"id":"b","username":"ariel","email":"*****riel@example.com","score":120},
			{"id":"c","username":"bubbles","email":"*****bles@example.com","score":120}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testStore(t), nil)
	entries, err := c.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	want := []string{"ariel", "bubbles", "coral"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Username != name {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Username, name)
		}
	}
}
