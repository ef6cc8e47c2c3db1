package repl

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptWriter records the commands of a REPL session and their output.
type TranscriptWriter interface {
	// WriteCommand writes an input line to the transcript.
	WriteCommand(text string) error
	// WriteOutput writes the printed result of the last command.
	WriteOutput(text string) error
	// Flush ensures all buffered data is written to disk.
	Flush() error
	// Path returns the file path of the transcript.
	Path() string
	// Close closes the transcript writer and releases resources.
	Close() error
}

// FileTranscriptWriter writes session transcripts to a markdown file.
type FileTranscriptWriter struct {
	path       string
	file       *os.File
	mu         sync.Mutex
	headerDone bool
	now        func() time.Time
}

// DefaultTranscriptDir returns the default transcript directory (~/.medtriage/sessions).
func DefaultTranscriptDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(homeDir, ".medtriage", "sessions"), nil
}

// NewFileTranscriptWriter saves transcripts to ~/.medtriage/sessions/<sessionID>.md.
func NewFileTranscriptWriter(sessionID string) (*FileTranscriptWriter, error) {
	return NewFileTranscriptWriterWithDir(sessionID, "")
}

// NewFileTranscriptWriterWithDir creates a FileTranscriptWriter with a custom directory.
// If dir is empty, it uses DefaultTranscriptDir.
func NewFileTranscriptWriterWithDir(sessionID, dir string) (*FileTranscriptWriter, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	if dir == "" {
		var err error
		dir, err = DefaultTranscriptDir()
		if err != nil {
			return nil, err
		}
	}

	// 会话记录可能包含症状描述，只允许当前用户读取
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	path := filepath.Join(dir, sessionID+".md")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open transcript file: %w", err)
	}

	return &FileTranscriptWriter{
		path: path,
		file: file,
		now:  time.Now,
	}, nil
}

func (w *FileTranscriptWriter) Path() string {
	return w.path
}

func (w *FileTranscriptWriter) writeHeader() error {
	if w.headerDone {
		return nil
	}

	header := fmt.Sprintf("# MedTriage Session\n\n_Started: %s_\n\n---\n\n",
		w.now().Format("2006-01-02 15:04:05"))

	if _, err := w.file.WriteString(header); err != nil {
		return err
	}
	w.headerDone = true
	return nil
}

func (w *FileTranscriptWriter) write(entry string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return os.ErrClosed
	}
	if err := w.writeHeader(); err != nil {
		return err
	}
	if _, err := w.file.WriteString(entry); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *FileTranscriptWriter) WriteCommand(text string) error {
	if err := w.write(fmt.Sprintf("### > %s\n\n", text)); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

func (w *FileTranscriptWriter) WriteOutput(text string) error {
	if err := w.write(fmt.Sprintf("```\n%s\n```\n\n---\n\n", text)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (w *FileTranscriptWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

func (w *FileTranscriptWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync before close: %w", err)
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// NopTranscriptWriter discards everything.
type NopTranscriptWriter struct{}

func (NopTranscriptWriter) WriteCommand(string) error { return nil }
func (NopTranscriptWriter) WriteOutput(string) error  { return nil }
func (NopTranscriptWriter) Flush() error              { return nil }
func (NopTranscriptWriter) Path() string              { return "" }
func (NopTranscriptWriter) Close() error              { return nil }
