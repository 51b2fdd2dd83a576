// Package workdir holds the transient files of one chat request. Every request
// gets its own freshly named directory, so concurrent requests never share
// index-keyed files, whatever ID the caller reports.
package workdir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Workspace struct {
	ID  string
	Dir string
}

// New creates <root>/<uuid> with a name it picks itself. The directory must not
// exist yet; an existing one belongs to another request and is never reused.
func New(root string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return create(root, uuid.NewString())
}

func create(root, id string) (*Workspace, error) {
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace %s: %w", id, err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

func (w *Workspace) AudioPath(i int) string { return w.path(i, "mp3") }
func (w *Workspace) WavePath(i int) string  { return w.path(i, "wav") }
func (w *Workspace) CuesPath(i int) string  { return w.path(i, "json") }

func (w *Workspace) path(i int, ext string) string {
	return filepath.Join(w.Dir, fmt.Sprintf("message_%d.%s", i, ext))
}

// WriteAudio stores the synthesized audio of segment i.
func (w *Workspace) WriteAudio(i int, data []byte) (string, error) {
	p := w.AudioPath(i)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", err
	}
	return p, nil
}

func (w *Workspace) ReadAudio(i int) ([]byte, error) {
	return os.ReadFile(w.AudioPath(i))
}

// WriteJSON writes v indented to name inside the workspace.
func (w *Workspace) WriteJSON(name string, v any) (string, error) {
	p := filepath.Join(w.Dir, name)
	return p, writeJSON(p, v)
}

func (w *Workspace) Remove() error {
	return os.RemoveAll(w.Dir)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
