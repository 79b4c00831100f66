package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Metadata describes where a job description came from
type Metadata struct {
	Source    string `json:"source"`
	URL       string `json:"url,omitempty"`
	Board     string `json:"board,omitempty"`
	Browser   bool   `json:"browser,omitempty"`
	Timestamp string `json:"timestamp"`
	Hash      string `json:"hash"`
	Chars     int    `json:"chars"`
}

// NewMetadata stamps cleaned content with the current time and its SHA-256 digest
func NewMetadata(content, source string) *Metadata {
	return &Metadata{
		Source:    source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      ComputeHash(content),
		Chars:     len([]rune(content)),
	}
}

// ComputeHash returns the hex SHA-256 of content
func ComputeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
