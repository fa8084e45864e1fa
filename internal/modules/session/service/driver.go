package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"raterc/internal/modules/session/domain"
	"raterc/internal/modules/session/dto"
	sessionout "raterc/internal/modules/session/port/out"
	"raterc/internal/platform/clock"
	apperrors "raterc/internal/platform/errors"
)

const eventBuffer = 16

type envelope struct {
	ev    domain.Event
	reply chan error
}

// Driver runs one rater session. A single goroutine owns the state machine
// and applies every event in arrival order; remote calls and the deadline
// clock post their results back to it.
type Driver struct {
	machine  *domain.Machine
	boundary sessionout.Boundary
	journal  sessionout.Journal
	clock    clock.Clock
	deadline *DeadlineClock
	logger   zerolog.Logger
	runID    string
	params   domain.LaunchParams

	events  chan envelope
	updates chan dto.Snapshot
	stopped chan struct{}
	cancel  context.CancelFunc

	mu       sync.RWMutex
	snapshot dto.Snapshot

	// owned by the loop goroutine
	countdown domain.Countdown
	discarded int
	version   uint64
}

func (d *Driver) start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.publish()
	go d.loop(runCtx)
	d.post(domain.Begin{Params: d.params})
}

func (d *Driver) Updates() <-chan dto.Snapshot { return d.updates }

func (d *Driver) Done() <-chan struct{} { return d.stopped }

func (d *Driver) Snapshot() dto.Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot
}

func (d *Driver) Submit(ctx context.Context, input dto.SubmitInput) error {
	return d.send(ctx, domain.SubmitRequested{Draft: domain.Draft{
		PresentationSeq: input.PresentationSeq,
		Answer:          input.Answer,
		Confidence:      input.Confidence,
		PresentedAt:     input.PresentedAt,
	}})
}

func (d *Driver) Retry(ctx context.Context) error {
	return d.send(ctx, domain.RetryRequested{})
}

// Close stops the loop and the clock. Calls still in flight are abandoned.
func (d *Driver) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	<-d.stopped
}

func (d *Driver) send(ctx context.Context, ev domain.Event) error {
	reply := make(chan error, 1)
	select {
	case d.events <- envelope{ev: ev, reply: reply}:
	case <-d.stopped:
		return apperrors.ErrSessionTerminal
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-d.stopped:
		return apperrors.ErrSessionTerminal
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) post(ev domain.Event) {
	select {
	case d.events <- envelope{ev: ev}:
	case <-d.stopped:
	}
}

func (d *Driver) loop(ctx context.Context) {
	defer close(d.stopped)
	defer d.deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-d.events:
			err := d.handle(ctx, env.ev)
			if env.reply != nil {
				env.reply <- err
			}
		}
	}
}

func (d *Driver) handle(ctx context.Context, ev domain.Event) error {
	if tick, ok := ev.(domain.Tick); ok {
		if d.machine.State().Phase().Active() {
			d.countdown = tick.Countdown
			d.publish()
		}
		return nil
	}

	before := d.machine.State().Phase()
	effects, err := d.machine.Apply(ev)
	if errors.Is(err, apperrors.ErrStaleResult) {
		if _, tardyExpiry := ev.(domain.DeadlineReached); !tardyExpiry {
			d.discarded++
			d.logger.Debug().Str("event", eventName(ev)).Str("phase", string(before)).Msg("discarded late result")
			d.publish()
		}
		return nil
	}
	if err != nil {
		d.publish()
		return err
	}

	after := d.machine.State().Phase()
	if after != before {
		d.logger.Info().Str("from", string(before)).Str("to", string(after)).Str("event", eventName(ev)).Msg("transition")
	}
	switch ev := ev.(type) {
	case domain.FetchFailed:
		if !after.Terminal() {
			d.logger.Warn().Err(ev.Err).Msg("fetch next question failed")
		}
	case domain.SubmitFailed:
		if !after.Terminal() {
			d.logger.Warn().Err(ev.Err).Msg("submit rating failed")
		}
	case domain.SubmitAcknowledged:
		if !ev.Ack.Accepted {
			d.logger.Warn().Msg("submission not accepted")
		}
	}

	for _, effect := range effects {
		d.perform(ctx, effect)
	}
	d.publish()
	return nil
}

func (d *Driver) perform(ctx context.Context, effect domain.Effect) {
	switch e := effect.(type) {
	case domain.StartSession:
		go func() {
			session, err := d.boundary.Start(ctx, e.Params)
			if err != nil {
				d.post(domain.StartFailed{Ticket: e.Ticket, Err: err})
				return
			}
			d.post(domain.StartSucceeded{Ticket: e.Ticket, Session: session})
		}()
	case domain.FetchNext:
		go func() {
			question, found, err := d.boundary.NextQuestion(ctx, e.RaterID)
			switch {
			case err != nil:
				d.post(domain.FetchFailed{Ticket: e.Ticket, Err: err})
			case !found:
				d.post(domain.QuestionsExhausted{Ticket: e.Ticket})
			default:
				d.post(domain.QuestionReceived{Ticket: e.Ticket, Question: question})
			}
		}()
	case domain.SubmitRating:
		go func() {
			ack, err := d.boundary.Submit(ctx, e.RaterID, e.Rating)
			if err != nil {
				d.post(domain.SubmitFailed{Ticket: e.Ticket, Err: err})
				return
			}
			d.post(domain.SubmitAcknowledged{Ticket: e.Ticket, Ack: ack})
		}()
	case domain.ArmClock:
		d.countdown = domain.NewCountdown(domain.RemainingSeconds(e.EndsAt, d.clock.Now()))
		d.deadline.Arm(e.EndsAt,
			func(c domain.Countdown) { d.post(domain.Tick{Countdown: c}) },
			func() { d.post(domain.DeadlineReached{}) },
		)
	case domain.StopClock:
		d.deadline.Stop()
	case domain.SessionOpened:
		d.logger = d.logger.With().Str("rater_id", e.Session.RaterID).Logger()
		if d.journal != nil {
			if err := d.journal.RecordStart(ctx, d.record(e.Session, domain.OutcomeOngoing, "")); err != nil {
				d.logger.Error().Err(err).Msg("journal run start")
			}
		}
	case domain.RatingAccepted:
		d.logger.Info().Int64("question_id", e.Rating.QuestionID).Str("submission_id", e.Ack.SubmissionID).Msg("rating accepted")
		if d.journal != nil {
			if err := d.journal.RecordRating(ctx, d.runID, e.Rating, e.Ack, d.clock.Now()); err != nil {
				d.logger.Error().Err(err).Msg("journal rating")
			}
		}
	case domain.Finished:
		d.logger.Info().Str("outcome", string(e.Outcome)).Int("progress", e.Progress).Str("message", e.Message).Msg("run finished")
		if d.journal != nil {
			run := d.record(d.machine.Session(), e.Outcome, e.Message)
			run.Progress = e.Progress
			run.FinishedAt = d.clock.Now()
			if err := d.journal.RecordOutcome(ctx, run); err != nil {
				d.logger.Error().Err(err).Msg("journal run outcome")
			}
		}
	}
}

func (d *Driver) record(session domain.Session, outcome domain.Outcome, message string) domain.RunRecord {
	return domain.RunRecord{
		RunID:          d.runID,
		ExperimentID:   d.params.ExperimentID,
		ParticipantID:  d.params.ParticipantID,
		StudyID:        d.params.StudyID,
		SessionID:      d.params.SessionID,
		RaterID:        session.RaterID,
		ExperimentName: session.ExperimentName,
		StartedAt:      session.StartedAt,
		EndsAt:         session.EndsAt,
		Outcome:        outcome,
		Progress:       d.machine.Progress(),
		Message:        message,
	}
}

// publish replaces the stored snapshot and the pending update, if any.
func (d *Driver) publish() {
	snap := d.build()
	d.mu.Lock()
	d.snapshot = snap
	d.mu.Unlock()

	select {
	case <-d.updates:
	default:
	}
	select {
	case d.updates <- snap:
	default:
	}
}

func (d *Driver) build() dto.Snapshot {
	d.version++
	state := d.machine.State()
	session := d.machine.Session()
	snap := dto.Snapshot{
		Version:        d.version,
		Phase:          string(state.Phase()),
		Outcome:        string(d.machine.Outcome()),
		RaterID:        session.RaterID,
		ExperimentName: session.ExperimentName,
		CompletionURL:  session.CompletionURL,
		EndsAt:         session.EndsAt,
		Remaining:      d.countdown.Remaining,
		LowTime:        d.countdown.Low,
		ClockRunning:   d.deadline.Running(),
		Progress:       d.machine.Progress(),
		Discarded:      d.discarded,
	}
	switch s := state.(type) {
	case domain.Loading:
		snap.Notice = s.Notice
	case domain.Presenting:
		snap.Question = questionView(s.Presentation)
		snap.Notice = s.Notice
	case domain.Submitting:
		snap.Question = questionView(s.Presentation)
		snap.Submitting = true
	case domain.Failed:
		snap.Error = s.Message
	case domain.Expired:
		snap.Remaining = 0
	}
	return snap
}

func questionView(p domain.Presentation) *dto.QuestionView {
	return &dto.QuestionView{
		Seq:        p.Seq,
		ID:         p.Question.ID,
		ExternalID: p.Question.ExternalID,
		Text:       p.Question.Text,
		Mode:       string(p.Question.Mode),
		Options:    p.Question.Options,
	}
}

func eventName(ev domain.Event) string {
	return fmt.Sprintf("%T", ev)
}
