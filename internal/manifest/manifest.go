// Package manifest records the structured outcome of a run as JSON.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/reconcile-cli/internal/reconcile"
	"github.com/KaramelBytes/reconcile-cli/internal/utils"
)

// Manifest describes one run: what was read, what was written and whether it
// succeeded. It is written even for failed runs.
type Manifest struct {
	RunID         string                    `json:"run_id"`
	Command       string                    `json:"command"`
	SchemaVersion string                    `json:"schema_version"`
	Strict        bool                      `json:"strict_schema"`
	StartedAt     time.Time                 `json:"started_at"`
	FinishedAt    time.Time                 `json:"finished_at"`
	Status        string                    `json:"status"`
	Message       string                    `json:"message,omitempty"`
	Rows          int                       `json:"rows"`
	Columns       []string                  `json:"columns,omitempty"`
	Sources       []reconcile.SourceOutcome `json:"sources"`
	Outputs       []string                  `json:"outputs,omitempty"`
	Warnings      []string                  `json:"warnings,omitempty"`
	AuditLog      string                    `json:"audit_log,omitempty"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// New starts a manifest for runID. An empty runID gets a fresh one.
func New(runID, command string) *Manifest {
	if runID == "" {
		runID = NewRunID()
	}
	return &Manifest{RunID: runID, Command: command, StartedAt: time.Now().UTC()}
}

// Apply copies a pipeline result into the manifest.
func (m *Manifest) Apply(res *reconcile.Result) {
	if res == nil {
		return
	}
	m.Status = res.Status
	m.Message = res.Message
	m.Sources = res.Sources
	m.Warnings = res.Warnings
	if res.Batch != nil {
		m.Rows = res.Batch.Len()
		m.Columns = append([]string(nil), res.Batch.Columns...)
	}
}

// Fail marks the run failed with err's message.
func (m *Manifest) Fail(err error) {
	m.Status = reconcile.StatusFailed
	m.Outputs = nil
	if err != nil {
		m.Message = err.Error()
	}
}

// Save stamps the finish time and writes the manifest atomically.
func (m *Manifest) Save(path string) error {
	m.FinishedAt = time.Now().UTC()
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

// Load reads a manifest written by Save.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
