package in

import (
	"context"

	sessiondto "raterc/internal/modules/session/dto"
	sessionin "raterc/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Status(ctx context.Context, raterID string) (sessiondto.StatusOutput, error) {
	return h.usecase.Status(ctx, raterID)
}

func (h CLIHandler) End(ctx context.Context, raterID string) (sessiondto.EndOutput, error) {
	return h.usecase.End(ctx, raterID)
}

func (h CLIHandler) History(ctx context.Context, limit int) ([]sessiondto.RunOutput, error) {
	return h.usecase.History(ctx, limit)
}
