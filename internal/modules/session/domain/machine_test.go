package domain_test

import (
	"errors"
	"testing"
	"time"

	"raterc/internal/modules/session/domain"
	apperrors "raterc/internal/platform/errors"
)

var validParams = domain.LaunchParams{ExperimentID: "7", ParticipantID: "P-1"}

func openSession() domain.Session {
	return domain.Session{
		RaterID:        "41",
		ExperimentName: "Relevance",
		StartedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		CompletionURL:  "https://panel.example/done",
	}
}

func mustApply(t *testing.T, m *domain.Machine, ev domain.Event) []domain.Effect {
	t.Helper()
	effects, err := m.Apply(ev)
	if err != nil {
		t.Fatalf("apply %T: %v", ev, err)
	}
	return effects
}

func findEffect[T domain.Effect](effects []domain.Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// started drives a machine to Loading with a fetch outstanding.
func started(t *testing.T) (*domain.Machine, domain.FetchNext) {
	t.Helper()
	m := domain.NewMachine()
	effects := mustApply(t, m, domain.Begin{Params: validParams})
	start, ok := findEffect[domain.StartSession](effects)
	if !ok {
		t.Fatalf("expected start effect, got %#v", effects)
	}
	effects = mustApply(t, m, domain.StartSucceeded{Ticket: start.Ticket, Session: openSession()})
	fetch, ok := findEffect[domain.FetchNext](effects)
	if !ok {
		t.Fatalf("expected fetch effect, got %#v", effects)
	}
	return m, fetch
}

func presenting(t *testing.T, q domain.Question) (*domain.Machine, domain.Presentation) {
	t.Helper()
	m, fetch := started(t)
	mustApply(t, m, domain.QuestionReceived{Ticket: fetch.Ticket, Question: q})
	p, ok := m.State().(domain.Presenting)
	if !ok {
		t.Fatalf("expected presenting, got %T", m.State())
	}
	return m, p.Presentation
}

func TestMachineBeginRejectsMissingParams(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine()
	effects := mustApply(t, m, domain.Begin{Params: domain.LaunchParams{ExperimentID: "7"}})

	failed, ok := m.State().(domain.Failed)
	if !ok {
		t.Fatalf("expected failed state, got %T", m.State())
	}
	if failed.Message != apperrors.ErrMissingLaunchParams.Error() {
		t.Fatalf("unexpected message %q", failed.Message)
	}
	if _, ok := findEffect[domain.StartSession](effects); ok {
		t.Fatalf("no remote call may be issued without launch params")
	}
	if _, ok := findEffect[domain.ArmClock](effects); ok {
		t.Fatalf("clock must not be armed")
	}
	if fin, ok := findEffect[domain.Finished](effects); !ok || fin.Outcome != domain.OutcomeFailed {
		t.Fatalf("expected finished error effect, got %#v", effects)
	}
}

func TestMachineStartOpensSessionArmsClockAndFetches(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine()
	effects := mustApply(t, m, domain.Begin{Params: validParams})
	if m.State().Phase() != domain.PhaseStarting {
		t.Fatalf("expected starting, got %s", m.State().Phase())
	}
	start, _ := findEffect[domain.StartSession](effects)

	effects = mustApply(t, m, domain.StartSucceeded{Ticket: start.Ticket, Session: openSession()})
	if _, ok := findEffect[domain.SessionOpened](effects); !ok {
		t.Fatalf("expected session opened effect")
	}
	arm, ok := findEffect[domain.ArmClock](effects)
	if !ok || !arm.EndsAt.Equal(openSession().EndsAt) {
		t.Fatalf("expected clock armed at session end, got %#v", arm)
	}
	fetch, ok := findEffect[domain.FetchNext](effects)
	if !ok || fetch.RaterID != "41" {
		t.Fatalf("expected fetch for rater 41, got %#v", fetch)
	}
	if m.State().Phase() != domain.PhaseLoading || !m.Outstanding() {
		t.Fatalf("expected loading with fetch outstanding")
	}
}

func TestMachineStartFailureKeepsServerMessage(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine()
	effects := mustApply(t, m, domain.Begin{Params: validParams})
	start, _ := findEffect[domain.StartSession](effects)

	mustApply(t, m, domain.StartFailed{Ticket: start.Ticket, Err: &apperrors.RemoteError{Status: 400, Body: "Experiment not found"}})
	failed, ok := m.State().(domain.Failed)
	if !ok || failed.Message != "Experiment not found" {
		t.Fatalf("expected verbatim failure, got %#v", m.State())
	}
	if m.Outcome() != domain.OutcomeFailed {
		t.Fatalf("expected error outcome, got %s", m.Outcome())
	}
}

func TestMachineSubmitCycleCountsProgress(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 3, Text: "Pick one", Mode: domain.ModeClosedChoice, Options: "A,B"})
	presentedAt := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	effects := mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{
		PresentationSeq: p.Seq, Answer: "  A ", Confidence: 4, PresentedAt: presentedAt,
	}})
	submit, ok := findEffect[domain.SubmitRating](effects)
	if !ok {
		t.Fatalf("expected submit effect")
	}
	if submit.Rating.Answer != "A" || submit.Rating.QuestionID != 3 || submit.Rating.Confidence != 4 {
		t.Fatalf("unexpected rating %#v", submit.Rating)
	}
	if !submit.Rating.PresentedAt.Equal(presentedAt) {
		t.Fatalf("presented-at must be carried, got %s", submit.Rating.PresentedAt)
	}
	if m.State().Phase() != domain.PhaseSubmitting {
		t.Fatalf("expected submitting, got %s", m.State().Phase())
	}

	effects = mustApply(t, m, domain.SubmitAcknowledged{Ticket: submit.Ticket, Ack: domain.Ack{Accepted: true, SubmissionID: "9"}})
	if m.Progress() != 1 {
		t.Fatalf("expected progress 1, got %d", m.Progress())
	}
	if _, ok := findEffect[domain.RatingAccepted](effects); !ok {
		t.Fatalf("expected rating accepted effect")
	}
	fetch, ok := findEffect[domain.FetchNext](effects)
	if !ok || fetch.Ticket == submit.Ticket {
		t.Fatalf("expected a fresh fetch after acceptance, got %#v", fetch)
	}
}

func TestMachineRejectsBlankAnswerWithoutSideEffect(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 1, Text: "Why?", Mode: domain.ModeOpenText})

	effects, err := m.Apply(domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "   ", Confidence: 3}})
	if !errors.Is(err, apperrors.ErrEmptyAnswer) {
		t.Fatalf("expected empty answer error, got %v", err)
	}
	if len(effects) != 0 {
		t.Fatalf("no effect expected, got %#v", effects)
	}
	state, ok := m.State().(domain.Presenting)
	if !ok || state.Notice == "" {
		t.Fatalf("expected presenting with a prompt, got %#v", m.State())
	}

	_, err = m.Apply(domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "ok", Confidence: 6}})
	if !errors.Is(err, apperrors.ErrInvalidConfidence) {
		t.Fatalf("expected confidence error, got %v", err)
	}
}

func TestMachineSubmitRequiresCurrentPresentation(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 1, Mode: domain.ModeOpenText})
	_, err := m.Apply(domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq + 1, Answer: "x", Confidence: 3}})
	if !errors.Is(err, apperrors.ErrNotPresenting) {
		t.Fatalf("expected not presenting, got %v", err)
	}

	loading, _ := started(t)
	_, err = loading.Apply(domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: 1, Answer: "x", Confidence: 3}})
	if !errors.Is(err, apperrors.ErrNotPresenting) {
		t.Fatalf("expected not presenting while loading, got %v", err)
	}
}

func TestMachineRepeatedQuestionIsANewPresentation(t *testing.T) {
	t.Parallel()
	q := domain.Question{ID: 5, Text: "Same", Mode: domain.ModeOpenText}
	m, first := presenting(t, q)
	effects := mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: first.Seq, Answer: "a", Confidence: 3}})
	submit, _ := findEffect[domain.SubmitRating](effects)
	effects = mustApply(t, m, domain.SubmitAcknowledged{Ticket: submit.Ticket, Ack: domain.Ack{Accepted: true}})
	fetch, _ := findEffect[domain.FetchNext](effects)
	mustApply(t, m, domain.QuestionReceived{Ticket: fetch.Ticket, Question: q})

	second := m.State().(domain.Presenting).Presentation
	if second.Seq == first.Seq {
		t.Fatalf("same question served twice must get a new presentation")
	}
	effects = mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: second.Seq, Answer: "b", Confidence: 2}})
	submit, _ = findEffect[domain.SubmitRating](effects)
	mustApply(t, m, domain.SubmitAcknowledged{Ticket: submit.Ticket, Ack: domain.Ack{Accepted: true}})
	if m.Progress() != 2 {
		t.Fatalf("expected progress 2, got %d", m.Progress())
	}
}

func TestMachineExhaustion(t *testing.T) {
	t.Parallel()
	m, fetch := started(t)
	effects := mustApply(t, m, domain.QuestionsExhausted{Ticket: fetch.Ticket})
	if m.Outcome() != domain.OutcomeExhausted {
		t.Fatalf("expected exhausted, got %s", m.Outcome())
	}
	if _, ok := findEffect[domain.StopClock](effects); !ok {
		t.Fatalf("expected clock stop")
	}
	if fin, ok := findEffect[domain.Finished](effects); !ok || fin.Outcome != domain.OutcomeExhausted {
		t.Fatalf("expected finished exhausted, got %#v", effects)
	}
}

func TestMachineDeadlineDiscardsLateResults(t *testing.T) {
	t.Parallel()
	m, fetch := started(t)
	mustApply(t, m, domain.DeadlineReached{})
	if m.Outcome() != domain.OutcomeExpired {
		t.Fatalf("expected expired, got %s", m.Outcome())
	}

	_, err := m.Apply(domain.QuestionReceived{Ticket: fetch.Ticket, Question: domain.Question{ID: 1}})
	if !errors.Is(err, apperrors.ErrStaleResult) {
		t.Fatalf("expected stale result, got %v", err)
	}
	if m.Outcome() != domain.OutcomeExpired {
		t.Fatalf("outcome must not change after terminal, got %s", m.Outcome())
	}
	if _, err := m.Apply(domain.DeadlineReached{}); !errors.Is(err, apperrors.ErrStaleResult) {
		t.Fatalf("second deadline must be ignored, got %v", err)
	}
	if _, err := m.Apply(domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: 1, Answer: "x", Confidence: 3}}); !errors.Is(err, apperrors.ErrSessionTerminal) {
		t.Fatalf("expected terminal error, got %v", err)
	}
}

func TestMachineSubmitAfterDeadlineIsDiscarded(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 2, Mode: domain.ModeOpenText})
	effects := mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "late", Confidence: 3}})
	submit, _ := findEffect[domain.SubmitRating](effects)

	mustApply(t, m, domain.DeadlineReached{})
	_, err := m.Apply(domain.SubmitAcknowledged{Ticket: submit.Ticket, Ack: domain.Ack{Accepted: true}})
	if !errors.Is(err, apperrors.ErrStaleResult) {
		t.Fatalf("expected stale result, got %v", err)
	}
	if m.Progress() != 0 {
		t.Fatalf("late acknowledgment must not count, got %d", m.Progress())
	}
}

func TestMachineSessionInvalidExpires(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 2, Mode: domain.ModeOpenText})
	effects := mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "x", Confidence: 3}})
	submit, _ := findEffect[domain.SubmitRating](effects)

	mustApply(t, m, domain.SubmitFailed{Ticket: submit.Ticket, Err: apperrors.ErrSessionInvalid})
	if m.Outcome() != domain.OutcomeExpired {
		t.Fatalf("expected expired, got %s", m.Outcome())
	}

	m2, fetch := started(t)
	mustApply(t, m2, domain.FetchFailed{Ticket: fetch.Ticket, Err: apperrors.ErrSessionInvalid})
	if m2.Outcome() != domain.OutcomeExpired {
		t.Fatalf("expected expired on fetch, got %s", m2.Outcome())
	}
}

func TestMachineTransientSubmitFailureKeepsPresentation(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 2, Mode: domain.ModeOpenText})
	effects := mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "x", Confidence: 3}})
	submit, _ := findEffect[domain.SubmitRating](effects)

	mustApply(t, m, domain.SubmitFailed{Ticket: submit.Ticket, Err: errors.New("connection reset")})
	state, ok := m.State().(domain.Presenting)
	if !ok || state.Presentation.Seq != p.Seq || state.Notice != "connection reset" {
		t.Fatalf("expected same presentation with notice, got %#v", m.State())
	}
	if m.Outcome() != domain.OutcomeOngoing {
		t.Fatalf("transient failure must not end the run")
	}
	if _, err := m.Apply(domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "x", Confidence: 3}}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
}

func TestMachineRejectedSubmissionReturnsToQuestion(t *testing.T) {
	t.Parallel()
	m, p := presenting(t, domain.Question{ID: 2, Mode: domain.ModeOpenText})
	effects := mustApply(t, m, domain.SubmitRequested{Draft: domain.Draft{PresentationSeq: p.Seq, Answer: "x", Confidence: 3}})
	submit, _ := findEffect[domain.SubmitRating](effects)

	mustApply(t, m, domain.SubmitAcknowledged{Ticket: submit.Ticket, Ack: domain.Ack{Accepted: false}})
	if m.Progress() != 0 {
		t.Fatalf("rejected submission must not count")
	}
	if _, ok := m.State().(domain.Presenting); !ok {
		t.Fatalf("expected presenting, got %T", m.State())
	}
}

func TestMachineFetchFailureRetry(t *testing.T) {
	t.Parallel()
	m, fetch := started(t)
	if _, err := m.Apply(domain.RetryRequested{}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("retry with a fetch in flight must fail, got %v", err)
	}
	mustApply(t, m, domain.FetchFailed{Ticket: fetch.Ticket, Err: errors.New("timeout")})
	if state, ok := m.State().(domain.Loading); !ok || state.Notice != "timeout" {
		t.Fatalf("expected loading notice, got %#v", m.State())
	}
	if m.Outstanding() {
		t.Fatalf("nothing may be outstanding after a failed fetch")
	}

	effects := mustApply(t, m, domain.RetryRequested{})
	retry, ok := findEffect[domain.FetchNext](effects)
	if !ok || retry.Ticket == fetch.Ticket {
		t.Fatalf("expected fresh fetch ticket, got %#v", effects)
	}
	if _, err := m.Apply(domain.QuestionReceived{Ticket: fetch.Ticket, Question: domain.Question{ID: 1}}); !errors.Is(err, apperrors.ErrStaleResult) {
		t.Fatalf("old ticket must be stale, got %v", err)
	}
	mustApply(t, m, domain.QuestionReceived{Ticket: retry.Ticket, Question: domain.Question{ID: 1}})
}

func TestMachineBeginTwice(t *testing.T) {
	t.Parallel()
	m := domain.NewMachine()
	mustApply(t, m, domain.Begin{Params: validParams})
	if _, err := m.Apply(domain.Begin{Params: validParams}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
