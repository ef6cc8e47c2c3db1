package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/medtriage/store"
)

const (
	markdownHeaderV1    = "<!-- medtriage-report:v1 -->"
	beginReportJSONDump = "<!-- BEGIN_MEDTRIAGE_REPORT_JSON -->"
	endReportJSONDump   = "<!-- END_MEDTRIAGE_REPORT_JSON -->"
)

// ReportDumpV1 嵌入 Markdown 的报告快照
type ReportDumpV1 struct {
	Version int           `json:"version"`
	Report  *store.Report `json:"report"`
}

func EncodeMarkdownV1(r *store.Report, title string) ([]byte, error) {
	if r == nil {
		return nil, errors.New("report is nil")
	}
	body, err := json.MarshalIndent(ReportDumpV1{Version: 1, Report: r}, "", "  ")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(markdownHeaderV1)
	buf.WriteString("\n\n")

	title = strings.TrimSpace(title)
	if title == "" {
		title = fmt.Sprintf("Triage Report #%d", r.ID)
	}
	buf.WriteString("# ")
	buf.WriteString(title)
	buf.WriteString("\n\n")

	fmt.Fprintf(&buf, "- Created: %s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	if r.RunID != "" {
		fmt.Fprintf(&buf, "- Run: `%s`\n", r.RunID)
	}
	fmt.Fprintf(&buf, "- Risk score: %.2f / 10", r.RiskScore)
	if r.ScoreVersion != "" {
		fmt.Fprintf(&buf, " (%s)", r.ScoreVersion)
	}
	buf.WriteString("\n\n")

	section(&buf, "Symptoms", r.Symptoms)
	section(&buf, "Synthesis", r.Synthesis)
	section(&buf, "Evidence", r.Evidence)

	if len(r.Specialists) > 0 {
		buf.WriteString("## Specialist Reports\n\n")
		for _, s := range r.Specialists {
			name := strings.TrimSpace(s.Title)
			if name == "" {
				name = s.Role
			}
			buf.WriteString("### ")
			buf.WriteString(name)
			if s.Failed {
				buf.WriteString(" (failed)")
			}
			buf.WriteString("\n\n```text\n")
			buf.WriteString(s.Text)
			buf.WriteString("\n```\n\n")
		}
	}

	buf.WriteString(beginReportJSONDump)
	buf.WriteString("\n")
	buf.Write(body)
	buf.WriteString("\n")
	buf.WriteString(endReportJSONDump)
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

func section(buf *bytes.Buffer, heading, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	buf.WriteString("## ")
	buf.WriteString(heading)
	buf.WriteString("\n\n")
	buf.WriteString(strings.TrimSpace(text))
	buf.WriteString("\n\n")
}

func DecodeMarkdownV1(markdown []byte) (*store.Report, error) {
	content := string(markdown)

	begin := strings.Index(content, beginReportJSONDump)
	if begin < 0 {
		return nil, errors.New("missing json dump begin marker")
	}
	begin += len(beginReportJSONDump)

	end := strings.Index(content, endReportJSONDump)
	if end < 0 || end < begin {
		return nil, errors.New("missing json dump end marker")
	}

	var dump ReportDumpV1
	if err := json.Unmarshal([]byte(strings.TrimSpace(content[begin:end])), &dump); err != nil {
		return nil, err
	}
	if dump.Version != 1 {
		return nil, fmt.Errorf("unsupported report dump version %d", dump.Version)
	}
	if dump.Report == nil {
		return nil, errors.New("report dump is empty")
	}
	return dump.Report, nil
}
