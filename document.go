package wikifetch

import (
	"encoding/hex"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// DefaultMinBodyLength is the shortest article body accepted as a real
// article. Shorter bodies are usually disambiguation stubs.
const DefaultMinBodyLength = 100

// Document is an article retrieved from the remote lookup service.
type Document struct {
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Body        string    `json:"body"`
	Revision    string    `json:"revision,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.Title == "" {
		return Errorf(EINVALID, "document title required")
	}
	return nil
}

// Qualifies reports whether the document body is at least minLength
// characters long.
func (d *Document) Qualifies(minLength int) bool {
	return d != nil && utf8.RuneCountInString(d.Body) >= minLength
}

// HashContent computes the xxHash of content and returns it as a hex string.
func HashContent(content string) string {
	h := xxhash.Sum64String(content)
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(h)
		h >>= 8
	}
	return hex.EncodeToString(b)
}
