package docfetch

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSuccess(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("%PDF-1.4 fake content"))
	}))
	defer server.Close()

	fetcher := NewHTTPDocumentFetcher(server.URL, WithFetcherLogger(log.New(io.Discard, "", 0)))

	data, err := fetcher.Fetch(context.Background(), "cv/42/resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake content"), data)
	assert.Equal(t, "/cv/42/resume.pdf", gotPath)
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewHTTPDocumentFetcher(server.URL, WithFetcherLogger(log.New(io.Discard, "", 0)))

	data, err := fetcher.Fetch(context.Background(), "cv/missing.pdf")
	require.Error(t, err)
	assert.Nil(t, data)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := NewHTTPDocumentFetcher(server.URL,
		WithFetcherTimeout(50*time.Millisecond),
		WithFetcherLogger(log.New(io.Discard, "", 0)))

	_, err := fetcher.Fetch(context.Background(), "cv/slow.pdf")
	require.Error(t, err)
}

func TestFetchJoinsPathsWithoutDoubleSlash(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := NewHTTPDocumentFetcher(server.URL+"/", WithFetcherLogger(log.New(io.Discard, "", 0)))

	_, err := fetcher.Fetch(context.Background(), "/cv/1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/cv/1.pdf", gotPath)
}
