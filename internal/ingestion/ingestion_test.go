package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"headings", "   # Title\n## Subtitle\nContent", "# Title\n## Subtitle\nContent"},
		{"bullets", "- Item 1\n  * Item 2", "- Item 1\n  * Item 2"},
		{"glyph bullets", "• Python\n·SQL", "- Python\n- SQL"},
		{"inner spaces", "Line    with \t multiple   spaces   ", "Line with multiple spaces"},
		{"blank lines", "Line 1\n\n\n\n\nLine 2", "Line 1\n\nLine 2"},
		{"line endings", "a\r\nb\rc", "a\nb\nc"},
		{"tab indent", "a\n\tindented", "a\n  indented"},
		{"only whitespace", " \n\t\n ", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestCleanText_Deterministic(t *testing.T) {
	in := "Data   engineer\n\n\n• Python"
	assert.Equal(t, CleanText(in), CleanText(in))
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.txt")
	require.NoError(t, os.WriteFile(path, []byte("Data Engineer\r\n\r\n\r\nPython   and SQL\n"), 0o644))

	text, meta, err := FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer\n\nPython and SQL", text)
	assert.Equal(t, path, meta.Source)
	assert.Equal(t, ComputeHash(text), meta.Hash)
	assert.Len(t, meta.Hash, 64)
	assert.Equal(t, len(text), meta.Chars)
}

func TestFromFile_Errors(t *testing.T) {
	_, _, err := FromFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	empty := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n "), 0o644))
	_, _, err = FromFile(empty)
	assert.True(t, errors.Is(err, ErrEmptyJobDescription))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://jobs.lever.co/acme/1"))
	assert.True(t, IsURL("  HTTP://example.com"))
	assert.False(t, IsURL("jobs/data_engineer.txt"))
	assert.False(t, IsURL("ftp://example.com"))
}

func TestFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav>Jobs</nav>
			<div class="job-description"><h1>Data Engineer</h1><ul><li>Python</li><li>SQL</li></ul></div>
			<footer>Apply</footer></body></html>`))
	}))
	defer server.Close()

	text, meta, err := Load(context.Background(), server.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Data Engineer\n- Python\n- SQL", text)
	assert.Equal(t, server.URL, meta.URL)
	assert.Equal(t, "unknown", meta.Board)
	assert.False(t, meta.Browser)
}

func TestFromURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, _, err := FromURL(context.Background(), server.URL, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTTPRequestFailed))
	assert.Contains(t, err.Error(), "HTTP status 500")
}

func TestFromURL_EmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>render()</script></body></html>`))
	}))
	defer server.Close()

	_, _, err := FromURL(context.Background(), server.URL, Options{})
	assert.True(t, errors.Is(err, ErrEmptyJobDescription))
}
