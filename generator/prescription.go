package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/medtriage/internal/consts"
	"github.com/medtriage/internal/llm"
)

// PrescriptionFailure 模型失败时的处方正文
const PrescriptionFailure = "Unable to generate prescription. Please consult healthcare provider."

// Prescription 处方草稿，必须由医生审核
type Prescription struct {
	Number   string    `json:"number"`
	IssuedAt time.Time `json:"issued_at"`
	Patient  string    `json:"patient"`
	Body     string    `json:"body"`
	Failed   bool      `json:"failed,omitempty"`
}

// String 带抬头和免责声明的纯文本
func (p Prescription) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "MEDICAL PRESCRIPTION %s\n", p.Number)
	fmt.Fprintf(&b, "Date of Issue: %s\n", p.IssuedAt.Format("January 02, 2006 03:04 PM"))
	fmt.Fprintf(&b, "Patient: %s\n\n", p.Patient)
	b.WriteString(p.Body)
	b.WriteString("\n\n")
	b.WriteString(consts.PrescriptionDisclaimer)
	return b.String()
}

type PrescriptionWriter struct {
	model  llm.Invoker
	prompt *template.Template
	now    func() time.Time
	logger *slog.Logger
}

func NewPrescriptionWriter(model llm.Invoker) (*PrescriptionWriter, error) {
	tmpl, err := consts.Parse(consts.AgentNamePrescription, consts.PrescriptionPrompt)
	if err != nil {
		return nil, err
	}
	return &PrescriptionWriter{model: model, prompt: tmpl, now: time.Now, logger: slog.Default()}, nil
}

// Write 生成处方草稿，失败时 Body 为 PrescriptionFailure
func (w *PrescriptionWriter) Write(ctx context.Context, profile Profile, diagnosis string) Prescription {
	issued := w.now()
	p := Prescription{
		Number:   prescriptionNumber(issued, profile.NameText()),
		IssuedAt: issued,
		Patient:  profile.NameText(),
	}

	text, err := invokeText(ctx, w.model, w.prompt, map[string]any{"Profile": profile, "Diagnosis": diagnosis})
	if err != nil {
		w.logger.WarnContext(ctx, "prescription.write.failed", "error", err)
		p.Body, p.Failed = PrescriptionFailure, true
		return p
	}
	p.Body = text
	return p
}

// prescriptionNumber RX-<日期>-<姓名前四个字母>
func prescriptionNumber(t time.Time, name string) string {
	var tag []rune
	for _, r := range strings.ToUpper(name) {
		if len(tag) == 4 {
			break
		}
		if r != ' ' {
			tag = append(tag, r)
		}
	}
	return fmt.Sprintf("RX-%s-%s", t.Format("20060102"), string(tag))
}
