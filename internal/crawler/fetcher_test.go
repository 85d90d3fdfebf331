package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pagelens/crawler/internal/ratelimit"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.NewLimiter(1000)
}

func TestFetcher_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-bot/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0", Timeout: 5 * time.Second}, nil)
	res, err := f.Fetch(context.Background(), srv.URL, testLimiter())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, []byte("<html>ok</html>"), res.Body)
	require.Equal(t, srv.URL+"/", res.FinalURL+"/")
	require.Equal(t, "text/html", res.Headers["Content-Type"])
}

func TestFetcher_HeadersLastValueWins(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Add("X-Multi", "first")
		w.Header().Add("X-Multi", "second")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0"}, nil)
	res, err := f.Fetch(context.Background(), srv.URL, testLimiter())
	require.NoError(t, err)
	require.Equal(t, "second", res.Headers["X-Multi"])
}

func TestFetcher_NonSuccessStatusIsStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0"}, nil)
	_, err := f.Fetch(context.Background(), srv.URL, testLimiter())

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestFetcher_FollowsRedirectsToFinalURL(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("arrived"))
	})

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0"}, nil)
	res, err := f.Fetch(context.Background(), srv.URL+"/start", testLimiter())
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/end", res.FinalURL)
	require.Equal(t, []byte("arrived"), res.Body)
}

func TestFetcher_RedirectCapIsRequestError(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	hops := 0
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hops++
		http.Redirect(w, r, fmt.Sprintf("/hop/%d", hops), http.StatusFound)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0"}, nil)
	_, err := f.Fetch(context.Background(), srv.URL, testLimiter())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
}

func TestFetcher_TimeoutIsRequestError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0", Timeout: 50 * time.Millisecond}, nil)
	_, err := f.Fetch(context.Background(), srv.URL, testLimiter())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
}

func TestFetcher_UnreachableHostIsRequestError(t *testing.T) {
	t.Parallel()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0", Timeout: time.Second}, nil)
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1", testLimiter())

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
}

func TestFetcher_CancelledLimiterWaitIsRateLimitError(t *testing.T) {
	t.Parallel()

	// One token per hour: the first Wait would block long enough for the
	// context to expire.
	slow := ratelimit.NewLimiter(1.0 / 3600.0)
	require.NoError(t, slow.Wait(context.Background())) // burn the burst token

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	f := NewFetcher(FetcherConfig{UserAgent: "test-bot/1.0"}, nil)
	_, err := f.Fetch(ctx, "http://a.test/", slow)

	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
}
