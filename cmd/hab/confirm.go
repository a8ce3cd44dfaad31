package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

var errAborted = errors.New("aborted")

// confirm asks msg on out and reads the answer from in. When in is not a
// terminal the prompt falls back to huh's line-based accessible mode.
func confirm(in io.Reader, out io.Writer, msg string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(msg).
			Affirmative("Yes").
			Negative("No").
			Value(&ok),
	)).
		WithInput(in).
		WithOutput(out).
		WithAccessible(!readsFromTerminal(in))

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, errAborted
		}
		return false, fmt.Errorf("confirm: %w", err)
	}
	return ok, nil
}

func readsFromTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
