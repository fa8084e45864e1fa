package domain

import "time"

// Phase names the state a run is in.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseStarting   Phase = "starting"
	PhaseLoading    Phase = "loading"
	PhasePresenting Phase = "presenting"
	PhaseSubmitting Phase = "submitting"
	PhaseExpired    Phase = "expired"
	PhaseExhausted  Phase = "exhausted"
	PhaseFailed     Phase = "error"
)

func (p Phase) Terminal() bool {
	return p == PhaseExpired || p == PhaseExhausted || p == PhaseFailed
}

func (p Phase) Active() bool {
	return p == PhaseLoading || p == PhasePresenting || p == PhaseSubmitting
}

// Outcome is the terminal tag of a run. It is written once.
type Outcome string

const (
	OutcomeOngoing   Outcome = "ongoing"
	OutcomeExpired   Outcome = "expired"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeFailed    Outcome = "error"
)

// State is the tagged variant of the run state machine. Only the types in
// this file implement it.
type State interface {
	Phase() Phase
	sealed()
}

type Idle struct{}

type Starting struct{}

// Loading means a next-question fetch is outstanding. A non-empty Notice
// means the last fetch failed and nothing is outstanding until a retry.
type Loading struct {
	Notice string
}

type Presenting struct {
	Presentation Presentation
	Notice       string
}

type Submitting struct {
	Presentation Presentation
	Rating       Rating
}

type Expired struct{}

type Exhausted struct{}

type Failed struct {
	Message string
}

func (Idle) Phase() Phase       { return PhaseIdle }
func (Starting) Phase() Phase   { return PhaseStarting }
func (Loading) Phase() Phase    { return PhaseLoading }
func (Presenting) Phase() Phase { return PhasePresenting }
func (Submitting) Phase() Phase { return PhaseSubmitting }
func (Expired) Phase() Phase    { return PhaseExpired }
func (Exhausted) Phase() Phase  { return PhaseExhausted }
func (Failed) Phase() Phase     { return PhaseFailed }

func (Idle) sealed()       {}
func (Starting) sealed()   {}
func (Loading) sealed()    {}
func (Presenting) sealed() {}
func (Submitting) sealed() {}
func (Expired) sealed()    {}
func (Exhausted) sealed()  {}
func (Failed) sealed()     {}

// OutcomeOf maps a state to its outcome tag.
func OutcomeOf(s State) Outcome {
	switch s.(type) {
	case Expired:
		return OutcomeExpired
	case Exhausted:
		return OutcomeExhausted
	case Failed:
		return OutcomeFailed
	default:
		return OutcomeOngoing
	}
}

// Ticket tags a remote call with the generation that issued it.
type Ticket uint64

// Event is an input of the state machine.
type Event interface{ event() }

type Begin struct{ Params LaunchParams }

type StartSucceeded struct {
	Ticket  Ticket
	Session Session
}

type StartFailed struct {
	Ticket Ticket
	Err    error
}

type QuestionReceived struct {
	Ticket   Ticket
	Question Question
}

type QuestionsExhausted struct{ Ticket Ticket }

type FetchFailed struct {
	Ticket Ticket
	Err    error
}

type SubmitRequested struct{ Draft Draft }

type SubmitAcknowledged struct {
	Ticket Ticket
	Ack    Ack
}

type SubmitFailed struct {
	Ticket Ticket
	Err    error
}

type RetryRequested struct{}

type DeadlineReached struct{}

type Tick struct{ Countdown Countdown }

func (Begin) event()              {}
func (StartSucceeded) event()     {}
func (StartFailed) event()        {}
func (QuestionReceived) event()   {}
func (QuestionsExhausted) event() {}
func (FetchFailed) event()        {}
func (SubmitRequested) event()    {}
func (SubmitAcknowledged) event() {}
func (SubmitFailed) event()       {}
func (RetryRequested) event()     {}
func (DeadlineReached) event()    {}
func (Tick) event()               {}

// Effect is work the machine asks its runtime to perform.
type Effect interface{ effect() }

type StartSession struct {
	Ticket Ticket
	Params LaunchParams
}

type FetchNext struct {
	Ticket  Ticket
	RaterID string
}

type SubmitRating struct {
	Ticket  Ticket
	RaterID string
	Rating  Rating
}

type ArmClock struct{ EndsAt time.Time }

type StopClock struct{}

type SessionOpened struct{ Session Session }

type RatingAccepted struct {
	Rating Rating
	Ack    Ack
}

type Finished struct {
	Outcome  Outcome
	Progress int
	Message  string
}

func (StartSession) effect()   {}
func (FetchNext) effect()      {}
func (SubmitRating) effect()   {}
func (ArmClock) effect()       {}
func (StopClock) effect()      {}
func (SessionOpened) effect()  {}
func (RatingAccepted) effect() {}
func (Finished) effect()       {}
