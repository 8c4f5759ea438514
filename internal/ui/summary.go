// Package ui renders the operator-facing change summary and asks for
// confirmation before the hosts file is rewritten.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/dean-jl/hostsync/internal/hosts"
)

const ruleLine = "------------------------------------------------------------"

// Summary is what the operator is shown before changes are applied.
type Summary struct {
	Source     string
	LastUpdate string
	Diff       *hosts.Diff
	Warnings   []string
}

func (s Summary) updatedOn() string {
	if s.LastUpdate == "" {
		return hosts.UnknownUpdate
	}
	return s.LastUpdate
}

// Prompt is the confirmation question for this summary.
func (s Summary) Prompt() string {
	return fmt.Sprintf("Apply these changes to hosts (add %d, modify %d), updated on %s?",
		s.Diff.Additions.Len(), s.Diff.Modifications.Len(), s.updatedOn())
}

// WriteSummary writes every modification and addition in s to w.
func WriteSummary(w io.Writer, s Summary) error {
	var b strings.Builder
	b.WriteString(FaintStyle.Render(ruleLine) + "\n")
	if n := s.Diff.Modifications.Len(); n > 0 {
		b.WriteString(TitleStyle.Render(fmt.Sprintf("### %d items will be modified:", n)) + "\n")
		s.Diff.Modifications.ForEach(func(host string, c hosts.Change) {
			b.WriteString(WarnStyle.Render(fmt.Sprintf("-- %s: %s => %s", host, c.Old, c.New)) + "\n")
		})
	}
	if n := s.Diff.Additions.Len(); n > 0 {
		b.WriteString(TitleStyle.Render(fmt.Sprintf("### %d items will be added:", n)) + "\n")
		s.Diff.Additions.ForEach(func(host, addr string) {
			b.WriteString(OkStyle.Render(fmt.Sprintf("+++ %s: %s", host, addr)) + "\n")
		})
	}
	if len(s.Warnings) > 0 {
		b.WriteString(TitleStyle.Render(fmt.Sprintf("### %d warnings:", len(s.Warnings))) + "\n")
		for _, warning := range s.Warnings {
			b.WriteString(WarnStyle.Render("!! "+warning) + "\n")
		}
	}
	b.WriteString(FaintStyle.Render(ruleLine) + "\n")
	b.WriteString(FaintStyle.Render(fmt.Sprintf("source: %s, last update: %s", s.Source, s.updatedOn())) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
