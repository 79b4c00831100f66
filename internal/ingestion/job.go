package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/cv-tailor/internal/fetch"
)

var (
	// ErrEmptyJobDescription is returned when a source yields no text
	ErrEmptyJobDescription = errors.New("job description is empty")
	// ErrHTTPRequestFailed is returned when fetching a URL fails
	ErrHTTPRequestFailed = errors.New("HTTP request failed")
	// ErrContentExtractionFailed is returned when HTML cannot be reduced to text
	ErrContentExtractionFailed = errors.New("content extraction failed")
)

// Options controls URL ingestion
type Options struct {
	// UseBrowser renders the page in headless Chrome when plain HTTP yields too little text
	UseBrowser     bool
	BrowserTimeout time.Duration
	Fetch          *fetch.Options
	Logger         *zerolog.Logger
}

// IsURL reports whether source looks like an http(s) URL rather than a path
func IsURL(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Load reads a job description from a URL or a file path
func Load(ctx context.Context, source string, opts Options) (string, *Metadata, error) {
	if IsURL(source) {
		return FromURL(ctx, strings.TrimSpace(source), opts)
	}
	return FromFile(source)
}

// FromFile reads and cleans a job description text file
func FromFile(path string) (string, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, fmt.Errorf("job description file not found: %w", err)
		}
		return "", nil, fmt.Errorf("failed to read job description: %w", err)
	}

	text := CleanText(string(content))
	if text == "" {
		return "", nil, fmt.Errorf("%s: %w", path, ErrEmptyJobDescription)
	}
	return text, NewMetadata(text, path), nil
}

// FromURL fetches a posting, extracts its main text with board-specific selectors and
// cleans it. With UseBrowser, pages that yield fewer than fetch.MinContentLength
// characters are re-rendered in a headless browser; a browser failure keeps the HTTP text.
func FromURL(ctx context.Context, urlStr string, opts Options) (string, *Metadata, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	board := fetch.DetectBoard(urlStr)
	log.Debug().Str("url", urlStr).Str("board", string(board)).Msg("fetching job description")

	result, err := fetch.URL(ctx, urlStr, opts.Fetch)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}

	content, noise := fetch.ContentSelectors(board), fetch.NoiseSelectors(board)
	text, err := fetch.ExtractMainText(result.HTML, content, noise...)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrContentExtractionFailed, err)
	}
	log.Debug().Int("bytes", len(result.HTML)).Int("chars", len(text)).Msg("extracted text")

	usedBrowser := false
	if opts.UseBrowser && fetch.ShouldUseBrowser(text) {
		log.Info().Int("chars", len(text)).Int("min", fetch.MinContentLength).Msg("content too short, rendering with browser")
		html, berr := fetch.Browser(ctx, urlStr, opts.BrowserTimeout, log)
		if berr != nil {
			log.Warn().Err(berr).Msg("browser rendering failed, keeping HTTP content")
		} else if rendered, xerr := fetch.ExtractMainText(html, content, noise...); xerr != nil {
			log.Warn().Err(xerr).Msg("browser content extraction failed, keeping HTTP content")
		} else {
			text = rendered
			usedBrowser = true
		}
	}

	cleaned := CleanText(text)
	if cleaned == "" {
		return "", nil, fmt.Errorf("%s: %w", urlStr, ErrEmptyJobDescription)
	}

	meta := NewMetadata(cleaned, urlStr)
	meta.URL = urlStr
	meta.Board = string(board)
	meta.Browser = usedBrowser
	return cleaned, meta, nil
}
