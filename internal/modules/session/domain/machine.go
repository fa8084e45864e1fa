package domain

import (
	"errors"
	"fmt"

	apperrors "raterc/internal/platform/errors"
)

// Machine is the rater run state machine. It is not safe for concurrent use;
// the driver owns it from a single goroutine and feeds it every event.
//
// Each remote call the machine asks for carries a fresh ticket. A completion
// is applied only while its ticket is the outstanding one and the run is not
// terminal; anything else is reported as apperrors.ErrStaleResult.
type Machine struct {
	state         State
	session       Session
	progress      int
	lastTicket    Ticket
	pending       Ticket
	presentations uint64
}

func NewMachine() *Machine {
	return &Machine{state: Idle{}}
}

func (m *Machine) State() State { return m.state }

func (m *Machine) Session() Session { return m.session }

func (m *Machine) Progress() int { return m.progress }

func (m *Machine) Outcome() Outcome { return OutcomeOf(m.state) }

// Outstanding reports whether a remote call is in flight.
func (m *Machine) Outstanding() bool { return m.pending != 0 }

func (m *Machine) Apply(ev Event) ([]Effect, error) {
	switch ev := ev.(type) {
	case Begin:
		return m.begin(ev)
	case StartSucceeded:
		if !m.accept(ev.Ticket, PhaseStarting) {
			return nil, apperrors.ErrStaleResult
		}
		m.session = ev.Session
		effects := []Effect{SessionOpened{Session: ev.Session}, ArmClock{EndsAt: ev.Session.EndsAt}}
		return append(effects, m.fetch()), nil
	case StartFailed:
		if !m.accept(ev.Ticket, PhaseStarting) {
			return nil, apperrors.ErrStaleResult
		}
		return m.terminate(Failed{Message: errorText(ev.Err)}), nil
	case QuestionReceived:
		if !m.accept(ev.Ticket, PhaseLoading) {
			return nil, apperrors.ErrStaleResult
		}
		m.presentations++
		m.state = Presenting{Presentation: Presentation{Seq: m.presentations, Question: ev.Question}}
		return nil, nil
	case QuestionsExhausted:
		if !m.accept(ev.Ticket, PhaseLoading) {
			return nil, apperrors.ErrStaleResult
		}
		return m.terminate(Exhausted{}), nil
	case FetchFailed:
		if !m.accept(ev.Ticket, PhaseLoading) {
			return nil, apperrors.ErrStaleResult
		}
		if errors.Is(ev.Err, apperrors.ErrSessionInvalid) {
			return m.terminate(Expired{}), nil
		}
		m.state = Loading{Notice: errorText(ev.Err)}
		return nil, nil
	case SubmitRequested:
		return m.submit(ev.Draft)
	case SubmitAcknowledged:
		if !m.accept(ev.Ticket, PhaseSubmitting) {
			return nil, apperrors.ErrStaleResult
		}
		sub := m.state.(Submitting)
		if !ev.Ack.Accepted {
			m.state = Presenting{Presentation: sub.Presentation, Notice: apperrors.ErrRejected.Error()}
			return nil, nil
		}
		m.progress++
		return []Effect{RatingAccepted{Rating: sub.Rating, Ack: ev.Ack}, m.fetch()}, nil
	case SubmitFailed:
		if !m.accept(ev.Ticket, PhaseSubmitting) {
			return nil, apperrors.ErrStaleResult
		}
		if errors.Is(ev.Err, apperrors.ErrSessionInvalid) {
			return m.terminate(Expired{}), nil
		}
		sub := m.state.(Submitting)
		m.state = Presenting{Presentation: sub.Presentation, Notice: errorText(ev.Err)}
		return nil, nil
	case RetryRequested:
		return m.retry()
	case DeadlineReached:
		if m.state.Phase().Terminal() {
			return nil, apperrors.ErrStaleResult
		}
		return m.terminate(Expired{}), nil
	case Tick:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unknown event %T", apperrors.ErrInvalidInput, ev)
}

func (m *Machine) begin(ev Begin) ([]Effect, error) {
	if _, ok := m.state.(Idle); !ok {
		return nil, fmt.Errorf("%w: run already begun", apperrors.ErrInvalidInput)
	}
	if err := ev.Params.Validate(); err != nil {
		return m.terminate(Failed{Message: err.Error()}), nil
	}
	m.state = Starting{}
	return []Effect{StartSession{Ticket: m.issue(), Params: ev.Params}}, nil
}

func (m *Machine) submit(d Draft) ([]Effect, error) {
	if m.state.Phase().Terminal() {
		return nil, apperrors.ErrSessionTerminal
	}
	p, ok := m.state.(Presenting)
	if !ok || d.PresentationSeq != p.Presentation.Seq {
		return nil, apperrors.ErrNotPresenting
	}
	answer := NormalizeAnswer(d.Answer)
	if answer == "" {
		p.Notice = apperrors.ErrEmptyAnswer.Error()
		m.state = p
		return nil, apperrors.ErrEmptyAnswer
	}
	if !ValidConfidence(d.Confidence) {
		p.Notice = apperrors.ErrInvalidConfidence.Error()
		m.state = p
		return nil, apperrors.ErrInvalidConfidence
	}
	rating := Rating{
		PresentationSeq: p.Presentation.Seq,
		QuestionID:      p.Presentation.Question.ID,
		ExternalID:      p.Presentation.Question.ExternalID,
		Answer:          answer,
		Confidence:      d.Confidence,
		PresentedAt:     d.PresentedAt.UTC(),
	}
	m.state = Submitting{Presentation: p.Presentation, Rating: rating}
	return []Effect{SubmitRating{Ticket: m.issue(), RaterID: m.session.RaterID, Rating: rating}}, nil
}

func (m *Machine) retry() ([]Effect, error) {
	if m.state.Phase().Terminal() {
		return nil, apperrors.ErrSessionTerminal
	}
	l, ok := m.state.(Loading)
	if !ok || l.Notice == "" || m.pending != 0 {
		return nil, fmt.Errorf("%w: nothing to retry", apperrors.ErrInvalidInput)
	}
	return []Effect{m.fetch()}, nil
}

// accept consumes the outstanding ticket if t matches it while the machine
// is in the phase that issued it.
func (m *Machine) accept(t Ticket, phase Phase) bool {
	if t == 0 || t != m.pending || m.state.Phase() != phase {
		return false
	}
	m.pending = 0
	return true
}

func (m *Machine) issue() Ticket {
	m.lastTicket++
	m.pending = m.lastTicket
	return m.pending
}

func (m *Machine) fetch() Effect {
	m.state = Loading{}
	return FetchNext{Ticket: m.issue(), RaterID: m.session.RaterID}
}

func (m *Machine) terminate(next State) []Effect {
	m.state = next
	m.pending = 0
	msg := ""
	if f, ok := next.(Failed); ok {
		msg = f.Message
	}
	return []Effect{StopClock{}, Finished{Outcome: OutcomeOf(next), Progress: m.progress, Message: msg}}
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
