package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"raterc/internal/modules/session/domain"
	sessiondto "raterc/internal/modules/session/dto"
	sessionin "raterc/internal/modules/session/port/in"
	sessionout "raterc/internal/modules/session/port/out"
	"raterc/internal/modules/session/service"
	apperrors "raterc/internal/platform/errors"
)

type Interactor struct {
	svc      *service.SessionService
	launcher sessionout.Launcher
}

func NewInteractor(svc *service.SessionService, launcher sessionout.Launcher) sessionin.Usecase {
	return &Interactor{svc: svc, launcher: launcher}
}

func (i *Interactor) Open(ctx context.Context, input sessiondto.StartInput) (sessionin.Run, error) {
	params := domain.LaunchParams{
		ExperimentID:  strings.TrimSpace(input.ExperimentID),
		ParticipantID: strings.TrimSpace(input.ParticipantID),
		StudyID:       input.StudyID,
		SessionID:     input.SessionID,
	}
	if strings.TrimSpace(input.EntryURL) != "" {
		fromLink, err := domain.ParseLaunchURL(input.EntryURL)
		if err != nil {
			return nil, err
		}
		params = params.Merge(fromLink)
	}
	return i.svc.Open(ctx, params), nil
}

func (i *Interactor) Status(ctx context.Context, raterID string) (sessiondto.StatusOutput, error) {
	status, err := i.svc.Status(ctx, raterID)
	if err != nil {
		return sessiondto.StatusOutput{}, err
	}
	return sessiondto.StatusOutput{
		RaterID:            strings.TrimSpace(raterID),
		Active:             status.Active,
		RemainingSeconds:   status.RemainingSeconds,
		QuestionsCompleted: status.QuestionsCompleted,
	}, nil
}

func (i *Interactor) End(ctx context.Context, raterID string) (sessiondto.EndOutput, error) {
	message, err := i.svc.End(ctx, raterID)
	if err != nil {
		return sessiondto.EndOutput{}, err
	}
	return sessiondto.EndOutput{RaterID: strings.TrimSpace(raterID), Message: message}, nil
}

func (i *Interactor) History(ctx context.Context, limit int) ([]sessiondto.RunOutput, error) {
	runs, err := i.svc.History(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]sessiondto.RunOutput, 0, len(runs))
	for _, run := range runs {
		out = append(out, sessiondto.RunOutput{
			RunID:          run.RunID,
			ExperimentID:   run.ExperimentID,
			ParticipantID:  run.ParticipantID,
			RaterID:        run.RaterID,
			ExperimentName: run.ExperimentName,
			StartedAt:      run.StartedAt,
			EndsAt:         run.EndsAt,
			FinishedAt:     run.FinishedAt,
			Outcome:        string(run.Outcome),
			Progress:       run.Progress,
			Message:        run.Message,
		})
	}
	return out, nil
}

// Redirect opens the completion destination in the rater's browser.
func (i *Interactor) Redirect(ctx context.Context, target string) error {
	if i.launcher == nil {
		return fmt.Errorf("launcher is not configured")
	}
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: completion url %q", apperrors.ErrInvalidInput, target)
	}
	if err := i.launcher.Open(ctx, u.String()); err != nil {
		return fmt.Errorf("open completion url: %w", err)
	}
	return nil
}
