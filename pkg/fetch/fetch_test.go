package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRangePartialContent(t *testing.T) {
	body := []byte("0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 2-5/10")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(body[2:6])
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	end := uint64(5)
	r, err := f.FetchRange(context.Background(), 2, &end)
	require.NoError(t, err)
	assert.Equal(t, []byte("2345"), r.Data)
	require.NotNil(t, r.TotalSize)
	assert.Equal(t, uint64(10), *r.TotalSize)
	assert.False(t, r.IsLast)
}

func TestFetchRangeServerIgnoresRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("full-body"))
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	r, err := f.FetchRange(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("full-body"), r.Data)
	assert.True(t, r.IsLast)
}

func TestFetchRange416PastEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	r, err := f.FetchRange(context.Background(), 100, nil)
	require.NoError(t, err)
	assert.Empty(t, r.Data)
	assert.True(t, r.IsLast)
}

func TestFetchRangeRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Range", "bytes 0-3/4")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("abcd"))
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 5}, zerolog.Nop())
	r, err := f.FetchRange(context.Background(), 0, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), r.Data)
	assert.Equal(t, 3, attempts)
}

func TestFetchRangeExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 2}, zerolog.Nop())
	_, err := f.FetchRange(context.Background(), 0, nil)
	require.Error(t, err)
}

func TestChunksIteratesUntilLast(t *testing.T) {
	full := []byte("aaaabbbbccccd")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var start, end int
		_, _ = fmt.Sscanf(r.Header.Get("Range"), "bytes=%d-%d", &start, &end)
		if end >= len(full) {
			end = len(full) - 1
		}
		if start >= len(full) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, len(full)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(full[start : end+1])
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 1, ChunkSize: 4}, zerolog.Nop())
	next := f.Chunks(context.Background(), 0)

	var collected []byte
	for {
		r, ok, err := next()
		require.NoError(t, err)
		if !ok {
			break
		}
		collected = append(collected, r.Data...)
	}
	assert.Equal(t, full, collected)
}

func TestGetTotalSizeFallsBackToRangeGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Range", "bytes 0-0/42")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, Config{BaseDelay: time.Millisecond, MaxRetries: 1}, zerolog.Nop())
	total, err := f.GetTotalSize(context.Background())
	require.NoError(t, err)
	require.NotNil(t, total)
	assert.Equal(t, uint64(42), *total)
}
