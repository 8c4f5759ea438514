// Package hosts parses, compares, merges and renders hosts files.
//
// A hosts file is read into a Document: an insertion-ordered mapping of
// hostname to address plus the comment lines found in the source. Two
// documents are compared with Compute, which yields the additions and
// modifications needed to bring a local document up to date with a remote
// one. Merge applies such a Diff and Render produces the text that is written
// back to disk.
//
// Parsing is purely syntactic. Addresses are not validated; see Validate for
// advisory checks.
//
// Example usage:
//
//	local := hosts.NewDocument("/etc/hosts")
//	if err := local.Parse(ctx, nil); err != nil {
//		log.Fatal(err)
//	}
//	remote := hosts.NewDocument("https://example.com/hosts")
//	if err := remote.Parse(ctx, fetcher); err != nil {
//		log.Fatal(err)
//	}
//	diff := hosts.Compute(local, remote)
//	hosts.Merge(local, diff)
package hosts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	// ErrFetch is returned when a remote document cannot be retrieved.
	ErrFetch = errors.New("fetch failed")
	// ErrIO is returned when a local document cannot be read.
	ErrIO = errors.New("local I/O failed")
	// ErrEmptyDocument is returned when the retrieved text has no lines at all.
	ErrEmptyDocument = errors.New("empty document")
)

// Fetcher retrieves the raw bytes of a remote document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var (
	lineBreakRegex = regexp.MustCompile(`\r\n|\r|\n`)
	fieldSepRegex  = regexp.MustCompile(`\s+`)
)

// Document is a parsed hosts file.
type Document struct {
	Entries  *OrderedMap[string, string] // hostname -> address
	Comments []string                    // raw comment lines, each ending in "\n"
	Source   string
}

// NewDocument returns an empty document for the given source. The source is
// either a local path or an http(s) URL.
func NewDocument(source string) *Document {
	return &Document{
		Entries: NewOrderedMap[string, string](),
		Source:  source,
	}
}

// IsRemote reports whether source names a remote document.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http")
}

// Reset clears all entries and comments.
func (d *Document) Reset() {
	if d.Entries == nil {
		d.Entries = NewOrderedMap[string, string]()
	}
	d.Entries.Reset()
	d.Comments = nil
}

// Parse clears the document and loads it from its source. Remote sources are
// retrieved with f, local ones are read from disk. On failure the document is
// left empty.
func (d *Document) Parse(ctx context.Context, f Fetcher) error {
	d.Reset()
	if d.Source == "" {
		return fmt.Errorf("%w: no source given", ErrIO)
	}

	var data []byte
	if IsRemote(d.Source) {
		if f == nil {
			return fmt.Errorf("%w: no fetcher for %s", ErrFetch, d.Source)
		}
		body, err := f.Fetch(ctx, d.Source)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrFetch, d.Source, err)
		}
		if len(body) == 0 {
			return fmt.Errorf("%w: %s: %w", ErrFetch, d.Source, ErrEmptyDocument)
		}
		data = body
	} else {
		body, err := os.ReadFile(d.Source)
		if err != nil {
			return fmt.Errorf("%w: failed to read hosts file %s: %w", ErrIO, d.Source, err)
		}
		data = body
	}

	if err := d.ParseText(string(data)); err != nil {
		return fmt.Errorf("%s: %w", d.Source, err)
	}
	return nil
}

// ParseText clears the document and populates it from text.
func (d *Document) ParseText(text string) error {
	d.Reset()
	if len(text) == 0 {
		return ErrEmptyDocument
	}
	for _, line := range lineBreakRegex.Split(text, -1) {
		d.handleLine(line)
	}
	return nil
}

func (d *Document) handleLine(line string) {
	line = strings.Trim(line, "\r\n ")
	if line == "" {
		return
	}
	if strings.HasPrefix(line, "#") {
		d.Comments = append(d.Comments, line+"\n")
		return
	}
	parts := fieldSepRegex.Split(line, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return
	}
	d.Entries.Set(parts[1], parts[0])
}
