package out

import (
	"context"
	"time"

	"raterc/internal/modules/session/domain"
)

// Boundary is the survey server. NextQuestion reports found=false when the
// server has nothing left for the rater. Calls rejected because the session
// is no longer valid fail with apperrors.ErrSessionInvalid.
type Boundary interface {
	Start(ctx context.Context, params domain.LaunchParams) (domain.Session, error)
	NextQuestion(ctx context.Context, raterID string) (domain.Question, bool, error)
	Submit(ctx context.Context, raterID string, rating domain.Rating) (domain.Ack, error)
	Status(ctx context.Context, raterID string) (domain.Status, error)
	End(ctx context.Context, raterID string) (string, error)
}

type Journal interface {
	RecordStart(ctx context.Context, run domain.RunRecord) error
	RecordRating(ctx context.Context, runID string, rating domain.Rating, ack domain.Ack, recordedAt time.Time) error
	RecordOutcome(ctx context.Context, run domain.RunRecord) error
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

type Launcher interface {
	Open(ctx context.Context, target string) error
}
