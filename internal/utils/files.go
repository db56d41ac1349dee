package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// TempSibling creates an empty temp file next to path and returns its name.
// Renaming it over path later stays on one filesystem.
func TempSibling(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

// StageWrite streams fill into a temp file beside path and returns its name.
// The caller renames it into place or removes it.
func StageWrite(path string, fill func(w io.Writer) error) (string, error) {
	tmp, err := TempSibling(path)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("open temp file: %w", err)
	}
	if err := fill(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmp, nil
}

// AtomicWrite streams fill into a temp file beside path and renames it into
// place. On any error the destination is left untouched.
func AtomicWrite(path string, fill func(w io.Writer) error) error {
	var p Pending
	tmp, err := StageWrite(path, fill)
	if err != nil {
		return err
	}
	p.Add(tmp, path)
	_, err = p.Commit()
	return err
}

// Pending holds temp files that become visible together. Commit renames
// them in order; if any rename fails, destinations already renamed by this
// Commit are removed and the remaining temp files are discarded.
type Pending struct {
	moves []move
}

type move struct {
	tmp, dst string
}

// Add queues tmp to be renamed to dst on Commit.
func (p *Pending) Add(tmp, dst string) {
	p.moves = append(p.moves, move{tmp: tmp, dst: dst})
}

// Len reports how many files are queued.
func (p *Pending) Len() int { return len(p.moves) }

// Commit renames every queued file into place and returns the destinations.
func (p *Pending) Commit() ([]string, error) {
	for _, m := range p.moves {
		if fi, err := os.Stat(m.dst); err == nil && fi.IsDir() {
			p.Discard()
			return nil, fmt.Errorf("commit %s: destination is a directory", m.dst)
		}
	}
	done := make([]string, 0, len(p.moves))
	for i, m := range p.moves {
		if err := os.Rename(m.tmp, m.dst); err != nil {
			for _, d := range done {
				_ = os.Remove(d)
			}
			for _, rest := range p.moves[i:] {
				_ = os.Remove(rest.tmp)
			}
			p.moves = nil
			return nil, fmt.Errorf("atomic rename: %w", err)
		}
		done = append(done, m.dst)
	}
	p.moves = nil
	return done, nil
}

// Discard removes every queued temp file.
func (p *Pending) Discard() {
	for _, m := range p.moves {
		_ = os.Remove(m.tmp)
	}
	p.moves = nil
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	return AtomicWrite(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}
