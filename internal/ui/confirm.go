package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/erikgeiser/promptkit/confirmation"
	"golang.org/x/term"
)

// Confirmer decides whether the changes in a summary are applied. Anything
// other than an explicit yes is a decline.
type Confirmer interface {
	Confirm(ctx context.Context, s Summary) (bool, error)
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, s Summary) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, s Summary) (bool, error) {
	return f(ctx, s)
}

// LineConfirmer asks on Out and reads one line from In. Only "y" or "yes"
// (any case) confirm.
type LineConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c LineConfirmer) Confirm(ctx context.Context, s Summary) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprintf(c.Out, "%s (y/n) ", s.Prompt()); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(c.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// PromptConfirmer shows an interactive yes/no prompt, defaulting to no.
type PromptConfirmer struct{}

func (PromptConfirmer) Confirm(ctx context.Context, s Summary) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := confirmation.New(s.Prompt(), confirmation.No).RunPrompt()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return ok, nil
}

// NewConfirmer returns an interactive prompt when in is a terminal and a
// line-based confirmer otherwise.
func NewConfirmer(in *os.File, out io.Writer) Confirmer {
	if term.IsTerminal(int(in.Fd())) {
		return PromptConfirmer{}
	}
	return LineConfirmer{In: in, Out: out}
}
