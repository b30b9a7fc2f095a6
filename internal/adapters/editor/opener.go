// Package editor opens canvas files in the user's terminal editor
package editor

import (
	"fmt"
	"os"
	"os/exec"
)

// fallbacks are tried in order when neither $EDITOR nor $VISUAL is set
var fallbacks = []string{"nvim", "vim", "vi", "nano"}

// Opener runs the user's editor on a file
type Opener struct {
	getenv   func(string) string
	lookPath func(string) (string, error)
}

// NewOpener creates a new editor opener
func NewOpener() *Opener {
	return &Opener{
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
}

// Command returns an exec.Cmd editing path, attached to the terminal.
// It is meant for bubbletea's ExecProcess.
func (o *Opener) Command(path string) (*exec.Cmd, error) {
	editor := o.findEditor()
	if editor == "" {
		return nil, fmt.Errorf("no editor found: set $EDITOR environment variable")
	}

	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd, nil
}

func (o *Opener) findEditor() string {
	if editor := o.getenv("EDITOR"); editor != "" {
		return editor
	}
	if visual := o.getenv("VISUAL"); visual != "" {
		return visual
	}

	for _, editor := range fallbacks {
		if path, err := o.lookPath(editor); err == nil {
			return path
		}
	}
	return ""
}
