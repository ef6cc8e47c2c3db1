package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/google/uuid"

	"github.com/medtriage/generator"
	"github.com/medtriage/internal/app"
	"github.com/medtriage/internal/extract"
	"github.com/medtriage/internal/persistence"
	"github.com/medtriage/store"
)

// Backend is the subset of *app.Application the REPL drives.
type Backend interface {
	Analyze(ctx context.Context, in app.Input) (*store.Report, error)
	Report(ctx context.Context, id int64) (*store.Report, error)
	Reports(ctx context.Context, limit int) ([]store.Summary, error)
	Stats(ctx context.Context) (store.Stats, error)
	Wellness(ctx context.Context, id int64) (extract.Result[generator.WellnessPlan], error)
	Treatment(ctx context.Context, id int64, profile generator.Profile) (extract.Result[generator.TreatmentPlan], error)
	Prescription(ctx context.Context, id int64, profile generator.Profile) (generator.Prescription, error)
	MedicationDetails(ctx context.Context, name string) (string, error)
}

var _ Backend = (*app.Application)(nil)

// errUsage marks malformed commands; the message is the usage line.
var errUsage = errors.New("usage")

// REPL provides an interactive command-line interface for the triage pipeline.
type REPL struct {
	backend           Backend
	transcript        TranscriptWriter
	transcriptDir     string
	transcriptEnabled bool
	promptPrefix      string
	exportDir         string
	sessionID         string
	out               io.Writer

	ctx    context.Context
	cancel context.CancelFunc
	done   bool
}

// NewREPL creates a new REPL instance with the given options.
func NewREPL(ctx context.Context, opts ...Option) (*REPL, error) {
	rctx, cancel := context.WithCancel(ctx)
	r := &REPL{
		ctx:               rctx,
		cancel:            cancel,
		promptPrefix:      "triage> ",
		transcriptEnabled: true,
		sessionID:         uuid.NewString(),
		out:               os.Stdout,
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			cancel()
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if r.backend == nil {
		cancel()
		return nil, fmt.Errorf("backend is required")
	}

	if r.transcriptEnabled {
		tw, err := NewFileTranscriptWriterWithDir(r.sessionID, r.transcriptDir)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("create transcript writer: %w", err)
		}
		r.transcript = tw
		slog.Info("repl.transcript.enabled", "path", tw.Path())
	} else {
		r.transcript = NopTranscriptWriter{}
	}

	return r, nil
}

// Run starts the REPL and blocks until the user exits or context is cancelled.
func (r *REPL) Run() error {
	slog.Info("repl.start", "session_id", r.sessionID)
	fmt.Fprintln(r.out, "MedTriage ready. Describe your symptoms or type 'help'. Not a substitute for professional care.")

	p := prompt.New(
		r.executor,
		r.completer,
		prompt.OptionPrefix(r.promptPrefix),
		prompt.OptionTitle("MedTriage"),
		prompt.OptionPrefixTextColor(prompt.Cyan),
		prompt.OptionPreviewSuggestionTextColor(prompt.Blue),
		prompt.OptionSelectedSuggestionBGColor(prompt.LightGray),
		prompt.OptionSuggestionBGColor(prompt.DarkGray),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return r.done }),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(b *prompt.Buffer) {
				r.done = true
			},
		}),
	)

	p.Run()
	return nil
}

// executor handles one input line from go-prompt.
func (r *REPL) executor(input string) {
	text := strings.TrimSpace(input)
	if text == "" {
		return
	}
	if r.ctx.Err() != nil {
		slog.Error("repl.context.cancelled", "error", r.ctx.Err())
		r.done = true
		return
	}

	if err := r.transcript.WriteCommand(text); err != nil {
		slog.Warn("repl.transcript.write_failed", "error", err)
	}
	output, exit := r.Handle(r.ctx, text)
	if output != "" {
		fmt.Fprintln(r.out, output)
		if err := r.transcript.WriteOutput(output); err != nil {
			slog.Warn("repl.transcript.write_failed", "error", err)
		}
	}
	if exit {
		r.done = true
	}
}

// Handle runs one command and returns its printable output. Input that is
// not a known command is analyzed as free-text symptoms.
func (r *REPL) Handle(ctx context.Context, line string) (string, bool) {
	cmd, rest := splitCommand(line)
	var (
		out string
		err error
	)
	switch cmd {
	case "exit", "quit":
		return "Goodbye!", true
	case "help":
		return helpText, false
	case "analyze":
		out, err = r.analyze(ctx, app.Input{Symptoms: rest})
	case "file":
		path, symptoms, _ := strings.Cut(rest, " ")
		if path == "" {
			err = fmt.Errorf("%w: file <path> [symptoms]", errUsage)
			break
		}
		out, err = r.analyze(ctx, app.Input{Symptoms: strings.TrimSpace(symptoms), FilePath: path})
	case "history":
		out, err = r.history(ctx, rest)
	case "show":
		out, err = r.withReport(ctx, rest, "show <id>", func(rep *store.Report) (string, error) {
			return FormatReport(rep), nil
		})
	case "export":
		out, err = r.export(ctx, rest)
	case "import":
		out, err = importReport(rest)
	case "stats":
		out, err = r.stats(ctx)
	case "wellness":
		out, err = r.wellness(ctx, rest)
	case "treatment":
		out, err = r.treatment(ctx, rest)
	case "prescribe":
		out, err = r.prescribe(ctx, rest)
	case "drug":
		if rest == "" {
			err = fmt.Errorf("%w: drug <name>", errUsage)
			break
		}
		out, err = r.backend.MedicationDetails(ctx, rest)
	default:
		out, err = r.analyze(ctx, app.Input{Symptoms: line})
	}
	if err != nil {
		if errors.Is(err, errUsage) {
			return "Usage: " + strings.TrimPrefix(err.Error(), "usage: "), false
		}
		slog.Error("repl.command.failed", "command", cmd, "error", err)
		return fmt.Sprintf("Error: %v", err), false
	}
	return out, false
}

func (r *REPL) analyze(ctx context.Context, in app.Input) (string, error) {
	rep, err := r.backend.Analyze(ctx, in)
	if err != nil {
		if errors.Is(err, app.ErrEmptyInput) {
			return "", fmt.Errorf("%w: analyze <symptoms>", errUsage)
		}
		if rep == nil {
			return "", err
		}
		// 保存失败时报告仍然可以展示
		return FormatReport(rep) + "\n\nWarning: " + err.Error(), nil
	}
	return FormatReport(rep), nil
}

func (r *REPL) history(ctx context.Context, arg string) (string, error) {
	limit := store.DefaultListLimit
	if arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return "", fmt.Errorf("%w: history [n]", errUsage)
		}
		limit = n
	}
	list, err := r.backend.Reports(ctx, limit)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "No reports yet.", nil
	}
	var b strings.Builder
	for _, s := range list {
		fmt.Fprintf(&b, "#%-4d %s  risk %5.2f  %s\n",
			s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.RiskScore, truncate(s.Symptoms, 60))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (r *REPL) export(ctx context.Context, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: export <id> [path]", errUsage)
	}
	path := ""
	if len(fields) > 1 {
		path = fields[1]
	}
	return r.withReport(ctx, fields[0], "export <id> [path]", func(rep *store.Report) (string, error) {
		if path == "" && r.exportDir != "" {
			path = filepath.Join(r.exportDir, fmt.Sprintf("report-%d.md", rep.ID))
		}
		written, err := persistence.ExportReport(rep, path)
		if err != nil {
			return "", fmt.Errorf("export report %d: %w", rep.ID, err)
		}
		return "Exported to " + written, nil
	})
}

func importReport(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: import <path>", errUsage)
	}
	rep, err := persistence.ImportReport(path)
	if err != nil {
		return "", err
	}
	return FormatReport(rep), nil
}

func (r *REPL) stats(ctx context.Context) (string, error) {
	s, err := r.backend.Stats(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Reports: %d\nAverage risk: %.2f\nHighest risk: %.2f", s.Count, s.AvgRisk, s.MaxRisk), nil
}

func (r *REPL) wellness(ctx context.Context, arg string) (string, error) {
	id, err := parseID(arg, "wellness <id>")
	if err != nil {
		return "", err
	}
	res, err := r.backend.Wellness(ctx, id)
	if err != nil {
		return "", err
	}
	if !res.OK() && res.Raw != "" {
		return res.Raw, nil
	}
	return toJSON(res.Value)
}

func (r *REPL) treatment(ctx context.Context, args string) (string, error) {
	id, profile, err := parseProfileArgs(args, "treatment <id> [age=N weight=KG allergies=a,b meds=a,b conditions=a,b]")
	if err != nil {
		return "", err
	}
	res, err := r.backend.Treatment(ctx, id, profile)
	if err != nil {
		return "", err
	}
	if !res.OK() && res.Raw != "" {
		return res.Raw, nil
	}
	return toJSON(res.Value)
}

func (r *REPL) prescribe(ctx context.Context, args string) (string, error) {
	id, profile, err := parseProfileArgs(args, "prescribe <id> [name=N age=N weight=KG allergies=a,b meds=a,b]")
	if err != nil {
		return "", err
	}
	rx, err := r.backend.Prescription(ctx, id, profile)
	if err != nil {
		return "", err
	}
	return rx.String(), nil
}

func (r *REPL) withReport(ctx context.Context, arg, usage string, fn func(*store.Report) (string, error)) (string, error) {
	id, err := parseID(arg, usage)
	if err != nil {
		return "", err
	}
	rep, err := r.backend.Report(ctx, id)
	if err != nil {
		return "", err
	}
	return fn(rep)
}

// completer provides command suggestions.
func (r *REPL) completer(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

var suggestions = []prompt.Suggest{
	{Text: "analyze", Description: "Analyze symptoms"},
	{Text: "file", Description: "Analyze a text file plus optional symptoms"},
	{Text: "history", Description: "List recent reports"},
	{Text: "show", Description: "Show a saved report"},
	{Text: "export", Description: "Export a report as Markdown"},
	{Text: "import", Description: "Read an exported report"},
	{Text: "stats", Description: "Report statistics"},
	{Text: "wellness", Description: "Wellness plan for a report"},
	{Text: "treatment", Description: "Treatment plan for a report"},
	{Text: "prescribe", Description: "Draft a prescription for a report"},
	{Text: "drug", Description: "Medication information"},
	{Text: "help", Description: "Show available commands"},
	{Text: "exit", Description: "Exit the application"},
	{Text: "quit", Description: "Exit the application"},
}

const helpText = `
Available Commands:
  analyze <symptoms>          Run a triage analysis (plain text works too)
  file <path> [symptoms]      Analyze a text document together with symptoms
  history [n]                 List the n most recent reports
  show <id>                   Show a saved report
  export <id> [path]          Write a report as Markdown
  import <path>               Read an exported report
  stats                       Report count and risk statistics
  wellness <id>               Wellness plan from a report's assessment
  treatment <id> [k=v ...]    Treatment plan; keys: age weight allergies meds conditions
  prescribe <id> [k=v ...]    Prescription draft; keys: name age weight allergies meds
  drug <name>                 Medication information
  help                        Show this help message
  exit, quit                  Exit the application

Keyboard Shortcuts:
  Ctrl+C      Exit
  Ctrl+D      Exit
  ↑/↓         Navigate history`

// Close performs cleanup: flushes transcript and releases resources.
func (r *REPL) Close() error {
	slog.Info("repl.close", "session_id", r.sessionID)

	if err := r.transcript.Flush(); err != nil {
		slog.Warn("repl.transcript.flush_failed", "error", err)
	}
	if err := r.transcript.Close(); err != nil {
		slog.Warn("repl.transcript.close_failed", "error", err)
	}
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

func parseID(arg, usage string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", errUsage, usage)
	}
	return id, nil
}

// parseProfileArgs parses "<id> key=value ...", list values are comma separated.
func parseProfileArgs(args, usage string) (int64, generator.Profile, error) {
	var profile generator.Profile
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, profile, fmt.Errorf("%w: %s", errUsage, usage)
	}
	id, err := parseID(fields[0], usage)
	if err != nil {
		return 0, profile, err
	}
	for _, f := range fields[1:] {
		key, val, ok := strings.Cut(f, "=")
		if !ok {
			return 0, profile, fmt.Errorf("%w: %s", errUsage, usage)
		}
		switch strings.ToLower(key) {
		case "name":
			profile.Name = val
		case "age":
			if profile.Age, err = strconv.Atoi(val); err != nil {
				return 0, profile, fmt.Errorf("invalid age %q", val)
			}
		case "weight":
			if profile.WeightKG, err = strconv.ParseFloat(val, 64); err != nil {
				return 0, profile, fmt.Errorf("invalid weight %q", val)
			}
		case "allergies":
			profile.Allergies = generator.ParseList(val)
		case "meds", "medications":
			profile.Medications = generator.ParseList(val)
		case "conditions":
			profile.Conditions = generator.ParseList(val)
		default:
			return 0, profile, fmt.Errorf("unknown profile key %q", key)
		}
	}
	return id, profile, nil
}

// FormatReport renders a report for the terminal.
func FormatReport(r *store.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Report #%d  risk %.2f/10\n", r.ID, r.RiskScore)
	if len(r.Specialists) > 0 {
		b.WriteString("\nSpecialists:\n")
		for _, s := range r.Specialists {
			status := ""
			if s.Failed {
				status = " (failed)"
			}
			fmt.Fprintf(&b, "  - %s%s\n", s.Title, status)
		}
	}
	fmt.Fprintf(&b, "\nAssessment:\n%s\n", r.Synthesis)
	fmt.Fprintf(&b, "\nEvidence:\n%s", r.Evidence)
	return b.String()
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
