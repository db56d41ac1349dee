// Package audit records every mutation the pipeline performs as an
// append-only trail, mirrored to a log file and the console.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Stage names the pipeline component that produced an entry.
type Stage string

const (
	StageLoad        Stage = "load"
	StageSchema      Stage = "schema"
	StageCategorical Stage = "categorical"
	StageNumeric     Stage = "numeric"
	StageImpute      Stage = "impute"
	StageDedupe      Stage = "dedupe"
	StageDerived     Stage = "derived"
	StageCombine     Stage = "combine"
	StageOutput      Stage = "output"
)

// Entry is one recorded mutation. Entries are never modified once recorded.
type Entry struct {
	Time   time.Time `json:"ts"`
	RunID  string    `json:"run_id"`
	Stage  Stage     `json:"stage"`
	Source string    `json:"source,omitempty"`
	// Scope is the column name, or "batch" for row-level actions.
	Scope  string `json:"scope"`
	Action string `json:"action"`
	Count  int    `json:"count"`
	// Value carries the fill value or canonical spelling, if any.
	Value  string `json:"value,omitempty"`
	Detail string `json:"detail,omitempty"`
	Warn   bool   `json:"warn,omitempty"`
}

// Log is a single-writer, append-only audit trail for one run.
type Log struct {
	mu      sync.Mutex
	runID   string
	logger  *zap.Logger
	entries []Entry
	now     func() time.Time
	closer  func() error
}

// New wraps an existing zap logger. Pass zap.NewNop() to keep entries in
// memory only.
func New(runID string, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		runID:  runID,
		logger: logger.With(zap.String("run_id", runID)),
		now:    time.Now,
	}
}

// Open creates a log that appends JSON lines to path and mirrors a console
// rendering to console (usually os.Stdout).
func Open(runID, path string, console io.Writer) (*Log, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.TimeKey = "ts"
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("[2006-01-02 15:04:05]")
	consoleCfg.CallerKey = ""
	consoleCfg.NameKey = ""

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(f), zapcore.InfoLevel),
	}
	if console != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(console), zapcore.InfoLevel))
	}
	logger := zap.New(zapcore.NewTee(cores...))

	l := New(runID, logger)
	l.closer = func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return l, nil
}

// RunID returns the run identifier stamped on every entry.
func (l *Log) RunID() string { return l.runID }

// Record appends a mutation entry and writes it to the sinks.
func (l *Log) Record(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Time = l.now()
	e.RunID = l.runID
	l.entries = append(l.entries, e)

	fields := []zap.Field{
		zap.String("stage", string(e.Stage)),
		zap.String("scope", e.Scope),
		zap.String("action", e.Action),
		zap.Int("count", e.Count),
	}
	if e.Source != "" {
		fields = append(fields, zap.String("source", e.Source))
	}
	if e.Value != "" {
		fields = append(fields, zap.String("value", e.Value))
	}
	msg := e.Detail
	if msg == "" {
		msg = e.Action
	}
	if e.Warn {
		l.logger.Warn(msg, fields...)
		return
	}
	l.logger.Info(msg, fields...)
}

// Note writes a progress line that is not a mutation.
func (l *Log) Note(stage Stage, msg string, fields ...zap.Field) {
	l.logger.Info(msg, append([]zap.Field{zap.String("stage", string(stage))}, fields...)...)
}

// Error writes a fatal-condition line.
func (l *Log) Error(stage Stage, msg string, err error) {
	l.logger.Error(msg, zap.String("stage", string(stage)), zap.Error(err))
}

// Entries returns a copy of the recorded trail.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Filter returns entries from stage, in record order.
func (l *Log) Filter(stage Stage) []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Close flushes and releases the log file, if any.
func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	err := l.closer()
	l.closer = nil
	return err
}
