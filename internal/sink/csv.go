// Package sink persists canonical batches. Every writer produces its output
// beside the destination and renames it into place, so a failed run never
// leaves a partial file. Outputs groups several writes so that either all of
// them appear or none do.
package sink

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/reconcile-cli/internal/dataset"
	"github.com/KaramelBytes/reconcile-cli/internal/utils"
)

// Outputs stages writes beside their destinations. Nothing is visible until
// Commit succeeds.
type Outputs struct {
	pending utils.Pending
}

// CSV stages b as CSV with a header row. Missing cells render empty.
func (o *Outputs) CSV(path string, b *dataset.Batch) error {
	tmp, err := utils.StageWrite(path, func(w io.Writer) error {
		return dataset.WriteCSV(w, b)
	})
	if err != nil {
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	o.pending.Add(tmp, path)
	return nil
}

// Staged stages each batch under dir with its StagedName and returns the
// destination paths in input order.
func (o *Outputs) Staged(dir string, batches []*dataset.Batch) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create stage dir: %w", err)
	}
	paths := make([]string, 0, len(batches))
	for _, b := range batches {
		p := filepath.Join(dir, StagedName(b))
		if err := o.CSV(p, b); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Commit moves every staged file into place. On error no output from this
// set is left behind.
func (o *Outputs) Commit() ([]string, error) {
	return o.pending.Commit()
}

// Discard drops everything staged so far.
func (o *Outputs) Discard() {
	o.pending.Discard()
}

// WriteCSV writes b to path with a header row. Missing cells render empty.
func WriteCSV(path string, b *dataset.Batch) error {
	var o Outputs
	if err := o.CSV(path, b); err != nil {
		return err
	}
	_, err := o.Commit()
	return err
}

// StagedName is the file name used for one source's canonical batch.
func StagedName(b *dataset.Batch) string {
	name := b.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(b.Path), filepath.Ext(b.Path))
	}
	return "canonical_" + name + ".csv"
}

// WriteStaged writes each batch to dir under its StagedName and returns the
// paths in input order.
func WriteStaged(dir string, batches []*dataset.Batch) ([]string, error) {
	var o Outputs
	if _, err := o.Staged(dir, batches); err != nil {
		o.Discard()
		return nil, err
	}
	return o.Commit()
}
