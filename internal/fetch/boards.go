package fetch

import (
	"net/url"
	"strings"
)

// Board is a recognized job board platform.
type Board string

// Known boards
const (
	BoardGreenhouse Board = "greenhouse"
	BoardLever      Board = "lever"
	BoardWorkday    Board = "workday"
	BoardUnknown    Board = "unknown"
)

type boardProfile struct {
	hosts   []string
	content []string
	noise   []string
}

var boards = map[Board]boardProfile{
	BoardGreenhouse: {
		hosts:   []string{"greenhouse.io"},
		content: []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		noise:   []string{".application--wrapper", ".voluntary-self-id", "#usa_self_id_section", ".post-apply"},
	},
	BoardLever: {
		hosts:   []string{"lever.co"},
		content: []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:   []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	BoardWorkday: {
		hosts:   []string{"workday.com", "myworkdayjobs.com"},
		content: []string{"[data-automation-id='jobDescription']", ".gwt-HTML", ".job-description"},
		noise:   []string{"[data-automation-id='applyButton']", ".application-section"},
	},
}

// DetectBoard identifies the job board from a URL's host.
func DetectBoard(urlStr string) Board {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return BoardUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for board, profile := range boards {
		for _, h := range profile.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return board
			}
		}
	}
	return BoardUnknown
}

// ContentSelectors returns the content selectors for a board, most specific first.
// Unknown boards use JobPostingSelectors.
func ContentSelectors(board Board) []string {
	if profile, ok := boards[board]; ok {
		return append(append([]string{}, profile.content...), JobPostingSelectors()...)
	}
	return JobPostingSelectors()
}

// NoiseSelectors returns the board-specific elements to strip.
func NoiseSelectors(board Board) []string {
	return append([]string{}, boards[board].noise...)
}
