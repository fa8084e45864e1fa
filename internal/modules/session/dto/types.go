package dto

import "time"

// StartInput opens a rater run. Explicit identifiers win over the ones read
// from EntryURL.
type StartInput struct {
	EntryURL      string
	ExperimentID  string
	ParticipantID string
	StudyID       string
	SessionID     string
}

type SubmitInput struct {
	PresentationSeq uint64
	Answer          string
	Confidence      int
	PresentedAt     time.Time
}

type QuestionView struct {
	Seq        uint64
	ID         int64
	ExternalID string
	Text       string
	Mode       string
	Options    string
}

// Snapshot is an immutable view of a run, published after every change.
// Version grows with every publication.
type Snapshot struct {
	Version        uint64
	Phase          string
	Outcome        string
	RaterID        string
	ExperimentName string
	CompletionURL  string
	EndsAt         time.Time
	Remaining      int
	LowTime        bool
	ClockRunning   bool
	Progress       int
	Question       *QuestionView
	Submitting     bool
	Notice         string
	Error          string
	Discarded      int
}

func (s Snapshot) Terminal() bool {
	return s.Phase == "expired" || s.Phase == "exhausted" || s.Phase == "error"
}

// CanRetry reports whether a failed fetch is waiting for the rater.
func (s Snapshot) CanRetry() bool {
	return s.Phase == "loading" && s.Notice != ""
}

type StatusOutput struct {
	RaterID            string
	Active             bool
	RemainingSeconds   int
	QuestionsCompleted int
}

type EndOutput struct {
	RaterID string
	Message string
}

type RunOutput struct {
	RunID          string
	ExperimentID   string
	ParticipantID  string
	RaterID        string
	ExperimentName string
	StartedAt      time.Time
	EndsAt         time.Time
	FinishedAt     time.Time
	Outcome        string
	Progress       int
	Message        string
}
