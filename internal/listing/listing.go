// Package listing classifies directory entries and renders them as JSON.
package listing

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/aichemist/forge-mcp/internal/fsguard"
)

// Entry type tags. Exactly these two values appear in output; symlinks,
// devices and sockets fall through to whichever side the directory
// check lands on.
const (
	TypeFile      = "file"
	TypeDirectory = "directory"
)

// Item is one element of a directory listing.
type Item struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Snapshot classifies entries in the order they were produced. The
// directory check is a live stat at classification time, not the cached
// attribute from the enumeration; an entry whose type changes between
// the two steps is reported as whatever the stat observed. Names that
// are not valid UTF-8 are replaced with an empty string rather than
// failing the whole listing.
func Snapshot(entries []fsguard.Entry) []Item {
	items := make([]Item, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name
		if !utf8.ValidString(name) {
			name = ""
		}

		entryType := TypeFile
		if info, err := os.Stat(entry.Path); err == nil && info.IsDir() {
			entryType = TypeDirectory
		}

		items = append(items, Item{Name: name, Type: entryType})
	}
	return items
}

// Render serializes items as a pretty-printed JSON array with two-space
// indentation. An empty listing renders as "[]".
func Render(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode listing: %w", err)
	}
	return string(out), nil
}
