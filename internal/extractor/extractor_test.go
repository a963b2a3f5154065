package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(baseURL string) *Client {
	return New(Options{
		BaseURL:   baseURL,
		Model:     "test-model",
		APIKey:    "test-key",
		PerSecond: 1000, // do not slow tests down
		Burst:     1000,
	}, zap.NewNop())
}

func envelope(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + text + `}]}}]}`
}

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Contains(t, r.URL.Path, "test-model")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(envelope(`"{\"job_title\":\"SWE Intern\",\"company\":\"Acme\",\"skills\":{\"languages\":[\"Python\",\"Go\"],\"tools\":[\"Docker\"]}}"`)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, err := c.Extract(context.Background(), "We need Python, Go and Docker.")
	require.NoError(t, err)
	require.Equal(t, "SWE Intern", res.JobTitle)
	require.Equal(t, "Acme", res.Company)
	require.Equal(t, []string{"Python", "Go"}, res.Skills["languages"])
	require.Equal(t, []string{"Docker"}, res.Skills["tools"])
}

func TestExtract_FencedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(envelope(`"` + "```json\\n" + `{\"job_title\":\"Intern\",\"company\":null,\"skills\":{}}` + "\\n```" + `"`)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	res, err := c.Extract(context.Background(), "content")
	require.NoError(t, err)
	require.Equal(t, "Intern", res.JobTitle)
	require.Empty(t, res.Company)
}

func TestExtract_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Extract(context.Background(), "content")
	require.Error(t, err)
	require.Contains(t, err.Error(), "429")
}

func TestExtract_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Extract(context.Background(), "content")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestExtract_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(envelope(`"this is not json"`)))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.Extract(context.Background(), "content")
	require.Error(t, err)
}

func TestTruncateContent(t *testing.T) {
	require.Equal(t, "short", truncateContent("short", 100))
	require.Equal(t, "ab", truncateContent("abcd", 2))

	// Cutting inside a multi-byte sequence backs off to the rune boundary.
	require.Equal(t, "a", truncateContent("aé", 2))
	require.Equal(t, "日", truncateContent("日本語", 5))
	for n := 0; n < 10; n++ {
		require.True(t, utf8.ValidString(truncateContent("héllo wörld", n)))
	}
}

func TestStripFences(t *testing.T) {
	require.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	require.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
