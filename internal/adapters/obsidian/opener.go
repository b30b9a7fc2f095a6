// Package obsidian opens vault canvases in the Obsidian app
package obsidian

import (
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"canvaslink/internal/ports"
)

var _ ports.ObsidianOpener = (*Opener)(nil)

// Opener implements ports.ObsidianOpener
type Opener struct {
	vaultName string
	run       func(uri string) error
}

// NewOpener creates a new Obsidian opener for the given vault path
func NewOpener(vaultPath string) *Opener {
	return &Opener{
		vaultName: filepath.Base(filepath.Clean(vaultPath)),
		run:       openURI,
	}
}

// OpenFile opens a vault-relative canvas using the obsidian:// URI scheme
func (o *Opener) OpenFile(relPath string) error {
	uri, err := o.BuildURI(relPath)
	if err != nil {
		return err
	}
	if err := o.run(uri); err != nil {
		return fmt.Errorf("failed to open %s in Obsidian: %w", relPath, err)
	}
	return nil
}

// BuildURI constructs the obsidian:// URI for a vault-relative path
func (o *Opener) BuildURI(relPath string) (string, error) {
	p := path.Clean(filepath.ToSlash(relPath))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") || path.IsAbs(p) {
		return "", fmt.Errorf("file is outside the vault: %s", relPath)
	}

	uri := fmt.Sprintf("obsidian://open?vault=%s&file=%s",
		url.PathEscape(o.vaultName),
		url.PathEscape(p),
	)
	return uri, nil
}

func openURI(uri string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", uri)
	case "linux":
		cmd = exec.Command("xdg-open", uri)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", uri)
	default:
		return fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return cmd.Run()
}
