package in

import (
	"context"

	"raterc/internal/modules/session/dto"
)

type Usecase interface {
	Open(ctx context.Context, input dto.StartInput) (Run, error)
	Status(ctx context.Context, raterID string) (dto.StatusOutput, error)
	End(ctx context.Context, raterID string) (dto.EndOutput, error)
	History(ctx context.Context, limit int) ([]dto.RunOutput, error)
	Redirect(ctx context.Context, target string) error
}

// Run is one live rater run. Updates carries the latest snapshot only;
// intermediate ones may be skipped.
type Run interface {
	Updates() <-chan dto.Snapshot
	Snapshot() dto.Snapshot
	Submit(ctx context.Context, input dto.SubmitInput) error
	Retry(ctx context.Context) error
	Done() <-chan struct{}
	Close()
}
