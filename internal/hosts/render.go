package hosts

import (
	"fmt"
	"regexp"
	"strings"
)

const separatorLine = "###############################################"

// UnknownUpdate is shown when the remote carries no last-update marker.
const UnknownUpdate = "unknown"

var lastUpdateRegex = regexp.MustCompile(`(?i).*last\s+update\s*:\s*([^\r\n]*)`)

// LastUpdate returns the value of the first "last update: <value>" comment,
// or "" if there is none.
func LastUpdate(comments []string) string {
	for _, c := range comments {
		if m := lastUpdateRegex.FindStringSubmatch(c); m != nil {
			return m[1]
		}
	}
	return ""
}

// Header is the generated-by block written at the top of the hosts file.
type Header struct {
	Program    string // absolute path of the program writing the file
	Source     string // remote URL the entries came from
	LastUpdate string
}

func (h Header) String() string {
	update := h.LastUpdate
	if update == "" {
		update = UnknownUpdate
	}
	var b strings.Builder
	fmt.Fprintf(&b, "### Generated by %s\n", h.Program)
	fmt.Fprintf(&b, "# source: %s\n", h.Source)
	fmt.Fprintf(&b, "# last update: %s\n", update)
	b.WriteString(separatorLine + "\n\n")
	return b.String()
}

// RenderEntries writes one "<address> <hostname>" line per entry.
func RenderEntries(entries *OrderedMap[string, string]) string {
	var b strings.Builder
	entries.ForEach(func(host, addr string) {
		b.WriteString(addr)
		b.WriteByte(' ')
		b.WriteString(host)
		b.WriteByte('\n')
	})
	return b.String()
}

// Render produces the full file: header, the given comments verbatim, then
// the entries.
func Render(h Header, comments []string, entries *OrderedMap[string, string]) []byte {
	var b strings.Builder
	b.WriteString(h.String())
	for _, c := range comments {
		b.WriteString(c)
	}
	b.WriteString(RenderEntries(entries))
	return []byte(b.String())
}
