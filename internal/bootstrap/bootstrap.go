package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	sessioninadapter "raterc/internal/modules/session/adapter/in"
	sessionoutadapter "raterc/internal/modules/session/adapter/out"
	sessiondto "raterc/internal/modules/session/dto"
	sessionservice "raterc/internal/modules/session/service"
	sessionusecase "raterc/internal/modules/session/usecase"
	"raterc/internal/platform/clock"
	"raterc/internal/platform/config"
	"raterc/internal/platform/id"
	"raterc/internal/platform/logging"
	uiapp "raterc/internal/ui/app"
)

type App struct {
	SessionCLI sessioninadapter.CLIHandler
	SessionTUI sessioninadapter.TUIHandler
	Logger     zerolog.Logger

	closers []io.Closer
}

func New(cfg config.Config) (*App, error) {
	logger, logFile, err := logging.Open(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	journal, err := sessionoutadapter.OpenSQLiteJournal(cfg.DBPath)
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("open run journal: %w", err)
	}

	boundary := sessionoutadapter.NewHTTPBoundary(cfg.ServerURL, &http.Client{Timeout: cfg.RequestTimeout})
	sessionSvc := sessionservice.NewSessionService(clock.SystemClock{}, id.UUID{}, boundary, journal, logger)
	sessionUC := sessionusecase.NewInteractor(sessionSvc, sessionoutadapter.NewBrowserLauncher())

	logger.Debug().Str("server", cfg.ServerURL).Str("db", cfg.DBPath).Msg("bootstrap ready")

	return &App{
		SessionCLI: sessioninadapter.NewCLIHandler(sessionUC),
		SessionTUI: sessioninadapter.NewTUIHandler(sessionUC),
		Logger:     logger,
		closers:    []io.Closer{journal, logFile},
	}, nil
}

// Close releases the journal and the log file, in that order.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func RunTUI(app *App, input sessiondto.StartInput) error {
	model := uiapp.NewModel(app.SessionTUI, input, time.Now)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	if err != nil {
		app.Logger.Error().Err(err).Msg("terminal ui stopped")
	}
	return err
}
