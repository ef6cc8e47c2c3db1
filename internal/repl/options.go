package repl

import (
	"io"
)

// Option is a functional option for configuring the REPL.
type Option func(*REPL) error

// WithBackend sets the triage backend, normally *app.Application.
func WithBackend(b Backend) Option {
	return func(r *REPL) error {
		r.backend = b
		return nil
	}
}

// WithTranscriptDir sets a custom directory for transcript files.
// If not set, defaults to ~/.medtriage/sessions/.
func WithTranscriptDir(dir string) Option {
	return func(r *REPL) error {
		r.transcriptDir = dir
		return nil
	}
}

// WithoutTranscript disables the session transcript.
func WithoutTranscript() Option {
	return func(r *REPL) error {
		r.transcriptEnabled = false
		return nil
	}
}

// WithPrompt sets a custom prompt prefix.
// Default is "triage> ".
func WithPrompt(prefix string) Option {
	return func(r *REPL) error {
		r.promptPrefix = prefix
		return nil
	}
}

// WithOutput redirects command output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(r *REPL) error {
		r.out = w
		return nil
	}
}

// WithExportDir sets where `export` writes reports when no path is given.
func WithExportDir(dir string) Option {
	return func(r *REPL) error {
		r.exportDir = dir
		return nil
	}
}
