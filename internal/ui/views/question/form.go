package question

import (
	"strings"
	"time"

	sessiondto "raterc/internal/modules/session/dto"
)

const (
	closedChoice      = "MC"
	defaultConfidence = 3
	minConfidence     = 1
	maxConfidence     = 5
)

// ParseOptions splits a comma-delimited option string into trimmed,
// non-empty candidates, keeping their order.
func ParseOptions(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Form is the answer being composed for one presentation. Free text lives in
// the view's textarea and is passed in where needed.
type Form struct {
	Seq         uint64
	Options     []string
	Cursor      int
	Selected    int
	Confidence  int
	PresentedAt time.Time
}

// NewForm starts a blank form for a freshly presented question.
func NewForm(q sessiondto.QuestionView, now time.Time) Form {
	f := Form{
		Seq:         q.Seq,
		Selected:    -1,
		Confidence:  defaultConfidence,
		PresentedAt: now.UTC(),
	}
	if strings.EqualFold(q.Mode, closedChoice) {
		f.Options = ParseOptions(q.Options)
	}
	return f
}

// ClosedChoice reports whether the rater picks from a list. A closed-choice
// question whose options all parse away is answered as free text.
func (f Form) ClosedChoice() bool { return len(f.Options) > 0 }

func (f Form) MoveCursor(delta int) Form {
	if !f.ClosedChoice() {
		return f
	}
	f.Cursor = min(max(f.Cursor+delta, 0), len(f.Options)-1)
	return f
}

// Select picks the option at index i; out-of-range picks are ignored.
func (f Form) Select(i int) Form {
	if i < 0 || i >= len(f.Options) {
		return f
	}
	f.Selected = i
	f.Cursor = i
	return f
}

func (f Form) AdjustConfidence(delta int) Form {
	f.Confidence = min(max(f.Confidence+delta, minConfidence), maxConfidence)
	return f
}

// Answer is the normalized answer: the chosen option, or the trimmed text.
func (f Form) Answer(text string) string {
	if f.ClosedChoice() {
		if f.Selected < 0 {
			return ""
		}
		return f.Options[f.Selected]
	}
	return strings.TrimSpace(text)
}

func (f Form) Valid(text string) bool {
	return f.Answer(text) != "" && f.Confidence >= minConfidence && f.Confidence <= maxConfidence
}

func (f Form) Package(text string) sessiondto.SubmitInput {
	return sessiondto.SubmitInput{
		PresentationSeq: f.Seq,
		Answer:          f.Answer(text),
		Confidence:      f.Confidence,
		PresentedAt:     f.PresentedAt,
	}
}
