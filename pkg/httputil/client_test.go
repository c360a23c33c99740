package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/trialviz/pkg/cache"
	errs "github.com/matzehuels/trialviz/pkg/errors"
)

func TestRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return Retryable(errors.New("flaky"))
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("Retry = %v after %d calls, want success after 2", err, calls)
	}

	calls = 0
	permanent := errors.New("permanent")
	err = Retry(ctx, 3, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("non-retryable error retried: %v, %d calls", err, calls)
	}

	calls = 0
	err = Retry(ctx, 0, time.Millisecond, func() error {
		calls++
		return Retryable(permanent)
	})
	if calls != 1 || !IsRetryable(err) {
		t.Errorf("attempts < 1 should run once, got %d calls", calls)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, 3, time.Hour, func() error { return Retryable(errors.New("x")) })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry = %v, want context.Canceled", err)
	}
}

func TestRetryableNil(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
}

func TestClientGet(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		switch r.URL.Path {
		case "/flaky":
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(WithRetry(3, time.Millisecond), WithCache(fc, time.Hour))

	body, err := c.Get(ctx, srv.URL+"/flaky")
	if err != nil || string(body) != `{"ok":true}` {
		t.Fatalf("Get(flaky) = %q, %v", body, err)
	}
	if hits.Load() != 2 {
		t.Errorf("server hits = %d, want 2", hits.Load())
	}

	if _, err := c.Get(ctx, srv.URL+"/flaky"); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Error("second Get should be served from cache")
	}

	_, err = c.Get(ctx, srv.URL+"/missing")
	if !errs.Is(err, errs.ErrCodeNotFound) {
		t.Errorf("Get(missing) = %v, want NOT_FOUND", err)
	}

	if _, err := c.Get(ctx, "ftp://example.com"); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Get(ftp) = %v, want INVALID_INPUT", err)
	}
}
