package in

import (
	"context"

	sessiondto "raterc/internal/modules/session/dto"
	sessionin "raterc/internal/modules/session/port/in"
)

// TUIHandler is what the session screens are allowed to call.
type TUIHandler struct {
	usecase sessionin.Usecase
}

func NewTUIHandler(usecase sessionin.Usecase) TUIHandler {
	return TUIHandler{usecase: usecase}
}

func (h TUIHandler) Open(ctx context.Context, input sessiondto.StartInput) (sessionin.Run, error) {
	return h.usecase.Open(ctx, input)
}

func (h TUIHandler) Redirect(ctx context.Context, target string) error {
	return h.usecase.Redirect(ctx, target)
}
