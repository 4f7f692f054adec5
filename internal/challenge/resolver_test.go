package challenge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func puzzleServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api.php" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func answerWith(text string) Prompter {
	return PrompterFunc(func(ctx context.Context, p Puzzle) (Answer, error) {
		return Answer{Text: text}, nil
	})
}

func TestResolveCorrect(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p1.png","solution":4}`)
	r := NewResolver(srv.URL, answerWith("4"), nil)

	out := r.Resolve(context.Background())
	if out.Status != StatusCorrect {
		t.Fatalf("status = %q, want %q", out.Status, StatusCorrect)
	}
	if out.Bonus != 4 {
		t.Fatalf("bonus = %d, want 4", out.Bonus)
	}
	if !out.Succeeded() {
		t.Fatal("correct outcome should count as success")
	}
}

func TestResolveCorrectZero(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p0.png","solution":0}`)
	r := NewResolver(srv.URL, answerWith("0"), nil)

	out := r.Resolve(context.Background())
	if out.Status != StatusCorrectZero {
		t.Fatalf("status = %q, want %q", out.Status, StatusCorrectZero)
	}
	if out.Bonus != 0 {
		t.Fatalf("bonus = %d, want 0", out.Bonus)
	}
	if !out.Succeeded() {
		t.Fatal("correctZero outcome should count as success")
	}
}

func TestResolveWrongAnswer(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p1.png","solution":4}`)
	for _, answer := range []string{"5", "", "abc", "-1"} {
		r := NewResolver(srv.URL, answerWith(answer), nil)
		out := r.Resolve(context.Background())
		if out.Status != StatusWrong {
			t.Errorf("answer %q: status = %q, want %q", answer, out.Status, StatusWrong)
		}
		if out.Bonus != 0 {
			t.Errorf("answer %q: bonus = %d, want 0", answer, out.Bonus)
		}
	}
}

func TestResolveSkipped(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p1.png","solution":4}`)
	r := NewResolver(srv.URL, NopPrompter{}, nil)

	out := r.Resolve(context.Background())
	if out.Status != StatusSkipped {
		t.Fatalf("status = %q, want %q", out.Status, StatusSkipped)
	}
}

func TestResolvePrompterDeadline(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p1.png","solution":4}`)
	r := NewResolver(srv.URL, PrompterFunc(func(ctx context.Context, p Puzzle) (Answer, error) {
		<-ctx.Done()
		return Answer{}, ctx.Err()
	}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The prompter only returns once its context expires; cancelling the
	// outer context resolves the invocation as skipped instead of hanging
	// for the full answer deadline.
	out := r.Resolve(ctx)
	if out.Status != StatusSkipped {
		t.Fatalf("status = %q, want %q", out.Status, StatusSkipped)
	}
}

func TestResolveAnswerDeadlineIsTimeout(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p1.png","solution":4}`)
	r := NewResolver(srv.URL, PrompterFunc(func(ctx context.Context, p Puzzle) (Answer, error) {
		return Answer{}, context.DeadlineExceeded
	}), nil)

	// The caller is still waiting; only the answer deadline expired.
	out := r.Resolve(context.Background())
	if out.Status != StatusTimeout {
		t.Fatalf("status = %q, want %q", out.Status, StatusTimeout)
	}
}

func TestResolveFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, answerWith("4"), nil)
	out := r.Resolve(context.Background())
	if out.Status != StatusError {
		t.Fatalf("status = %q, want %q", out.Status, StatusError)
	}
}

func TestResolveMalformedResponse(t *testing.T) {
	for _, body := range []string{`not json`, `{"solution":4}`} {
		srv := puzzleServer(t, body)
		r := NewResolver(srv.URL, answerWith("4"), nil)
		if out := r.Resolve(context.Background()); out.Status != StatusError {
			t.Errorf("body %q: status = %q, want %q", body, out.Status, StatusError)
		}
	}
}

func TestCancelResolvesSkipped(t *testing.T) {
	srv := puzzleServer(t, `{"question":"https://img.example/p1.png","solution":4}`)

	started := make(chan struct{})
	release := make(chan struct{})
	r := NewResolver(srv.URL, PrompterFunc(func(ctx context.Context, p Puzzle) (Answer, error) {
		close(started)
		<-release
		return Answer{Text: "4"}, nil
	}), nil)

	done := make(chan Outcome, 1)
	go func() { done <- r.Resolve(context.Background()) }()

	<-started
	r.Cancel()

	out := <-done
	if out.Status != StatusSkipped {
		t.Fatalf("status = %q, want %q", out.Status, StatusSkipped)
	}

	// The late correct answer must not override the delivered outcome.
	close(release)
	time.Sleep(50 * time.Millisecond)
}

func TestCancelWithoutInvocation(t *testing.T) {
	r := NewResolver("http://unused.invalid", nil, nil)
	r.Cancel()
}

func TestParseSolutionCoercion(t *testing.T) {
	r := NewResolver("http://unused.invalid", nil, nil)
	cases := []struct {
		in   any
		want int
	}{
		{nil, 0},
		{float64(3), 3},
		{float64(-2), 0},
		{"7", 7},
		{"", 0},
		{"abc", 0},
		{true, 0},
	}
	for _, tc := range cases {
		if got := r.parseSolution(tc.in); got != tc.want {
			t.Errorf("parseSolution(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEvaluateIgnoresWhitespace(t *testing.T) {
	out := Evaluate(Puzzle{Solution: 6}, "  6\n")
	if out.Status != StatusCorrect || out.Bonus != 6 {
		t.Fatalf("got %+v, want correct with bonus 6", out)
	}
}
