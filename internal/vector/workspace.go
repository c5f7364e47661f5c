package vector

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a per-call temporary directory. Every invocation gets its own
// uniquely named subdirectory, and Close removes the whole tree.
type Workspace struct {
	root string
}

// NewWorkspace creates a fresh workspace under base (os.TempDir when empty).
func NewWorkspace(base string) (*Workspace, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return nil, fmt.Errorf("vector: ensure workspace base: %w", err)
		}
	}
	root, err := os.MkdirTemp(base, "logo-vector-*")
	if err != nil {
		return nil, fmt.Errorf("vector: create workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace directory.
func (w *Workspace) Root() string {
	return w.root
}

// Step creates an isolated directory for one tool invocation and writes the
// input file into it. It returns the directory and input path.
func (w *Workspace) Step(name, inputName string, input []byte) (string, string, error) {
	dir, err := os.MkdirTemp(w.root, name+"-*")
	if err != nil {
		return "", "", fmt.Errorf("vector: create step dir: %w", err)
	}
	in := filepath.Join(dir, inputName)
	if err := os.WriteFile(in, input, 0o600); err != nil {
		return "", "", fmt.Errorf("vector: write input: %w", err)
	}
	return dir, in, nil
}

// Close removes the workspace and everything in it.
func (w *Workspace) Close() error {
	if w == nil || w.root == "" {
		return nil
	}
	return os.RemoveAll(w.root)
}
