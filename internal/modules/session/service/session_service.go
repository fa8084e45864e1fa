package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"raterc/internal/modules/session/domain"
	"raterc/internal/modules/session/dto"
	sessionout "raterc/internal/modules/session/port/out"
	"raterc/internal/platform/clock"
	apperrors "raterc/internal/platform/errors"
	"raterc/internal/platform/id"
)

// Clock is the wall clock plus the ticker source the deadline clock runs on.
type Clock interface {
	clock.Clock
	clock.TickerFactory
}

type SessionService struct {
	clock    Clock
	idGen    id.Generator
	boundary sessionout.Boundary
	journal  sessionout.Journal
	logger   zerolog.Logger
}

func NewSessionService(clk Clock, idGen id.Generator, boundary sessionout.Boundary, journal sessionout.Journal, logger zerolog.Logger) *SessionService {
	return &SessionService{clock: clk, idGen: idGen, boundary: boundary, journal: journal, logger: logger}
}

// Open begins a run and returns its driver. Missing launch parameters do not
// fail here; the run ends in the error outcome without calling the server.
func (s *SessionService) Open(ctx context.Context, params domain.LaunchParams) *Driver {
	runID := s.idGen.New()
	d := &Driver{
		machine:  domain.NewMachine(),
		boundary: s.boundary,
		journal:  s.journal,
		clock:    s.clock,
		deadline: NewDeadlineClock(s.clock, s.clock),
		logger: s.logger.With().
			Str("run_id", runID).
			Str("experiment_id", params.ExperimentID).
			Logger(),
		runID:   runID,
		params:  params,
		events:  make(chan envelope, eventBuffer),
		updates: make(chan dto.Snapshot, 1),
		stopped: make(chan struct{}),
	}
	d.start(ctx)
	return d
}

func (s *SessionService) Status(ctx context.Context, raterID string) (domain.Status, error) {
	raterID = strings.TrimSpace(raterID)
	if raterID == "" {
		return domain.Status{}, fmt.Errorf("%w: rater id is required", apperrors.ErrInvalidInput)
	}
	status, err := s.boundary.Status(ctx, raterID)
	if err != nil {
		return domain.Status{}, fmt.Errorf("query session status: %w", err)
	}
	return status, nil
}

func (s *SessionService) End(ctx context.Context, raterID string) (string, error) {
	raterID = strings.TrimSpace(raterID)
	if raterID == "" {
		return "", fmt.Errorf("%w: rater id is required", apperrors.ErrInvalidInput)
	}
	message, err := s.boundary.End(ctx, raterID)
	if err != nil {
		return "", fmt.Errorf("end session: %w", err)
	}
	s.logger.Info().Str("rater_id", raterID).Msg("session ended early")
	return message, nil
}

func (s *SessionService) History(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", apperrors.ErrInvalidInput)
	}
	if s.journal == nil {
		return nil, nil
	}
	runs, err := s.journal.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
