package domain

import (
	"strings"
	"time"
)

// AnswerMode is the question type code sent by the server.
type AnswerMode string

const (
	ModeClosedChoice AnswerMode = "MC"
	ModeOpenText     AnswerMode = "FT"
)

const (
	MinConfidence     = 1
	MaxConfidence     = 5
	DefaultConfidence = 3
)

// Session is the identity of one rater run, as issued by the server when the
// run starts. It never changes afterwards.
type Session struct {
	RaterID        string
	ExperimentName string
	StartedAt      time.Time
	EndsAt         time.Time
	CompletionURL  string
}

type Question struct {
	ID         int64
	ExternalID string
	Text       string
	Mode       AnswerMode
	Options    string
}

// Presentation is one showing of a question. Submissions are counted per
// presentation, so a question served twice can be answered twice.
type Presentation struct {
	Seq      uint64
	Question Question
}

// Draft is what the presentation surface hands back when the rater submits.
type Draft struct {
	PresentationSeq uint64
	Answer          string
	Confidence      int
	PresentedAt     time.Time
}

type Rating struct {
	PresentationSeq uint64
	QuestionID      int64
	ExternalID      string
	Answer          string
	Confidence      int
	PresentedAt     time.Time
}

// Ack is the server's answer to a submitted rating.
type Ack struct {
	Accepted     bool
	SubmissionID string
}

// Status is the informational session status reported by the server.
type Status struct {
	Active             bool
	RemainingSeconds   int
	QuestionsCompleted int
}

// RunRecord is one row of the local journal.
type RunRecord struct {
	RunID          string
	ExperimentID   string
	ParticipantID  string
	StudyID        string
	SessionID      string
	RaterID        string
	ExperimentName string
	StartedAt      time.Time
	EndsAt         time.Time
	Outcome        Outcome
	Progress       int
	Message        string
	FinishedAt     time.Time
}

// NormalizeAnswer trims the surrounding whitespace a text field collects.
func NormalizeAnswer(answer string) string {
	return strings.TrimSpace(answer)
}

func ValidConfidence(c int) bool {
	return c >= MinConfidence && c <= MaxConfidence
}
