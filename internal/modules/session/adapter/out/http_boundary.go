package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"raterc/internal/modules/session/domain"
	sessionout "raterc/internal/modules/session/port/out"
	apperrors "raterc/internal/platform/errors"
)

const maxResponseBytes = 1 << 20

type startResponse struct {
	RaterID        json.Number `json:"rater_id"`
	SessionStart   string      `json:"session_start"`
	SessionEndTime string      `json:"session_end_time"`
	ExperimentName string      `json:"experiment_name"`
	CompletionURL  *string     `json:"completion_url"`
}

type questionResponse struct {
	ID           int64   `json:"id"`
	QuestionID   string  `json:"question_id"`
	QuestionText string  `json:"question_text"`
	Options      *string `json:"options"`
	QuestionType string  `json:"question_type"`
}

type ratingRequest struct {
	QuestionID  int64  `json:"question_id"`
	Answer      string `json:"answer"`
	Confidence  int    `json:"confidence"`
	TimeStarted string `json:"time_started"`
}

type ratingResponse struct {
	ID      json.Number `json:"id"`
	Success bool        `json:"success"`
}

type statusResponse struct {
	IsActive             bool `json:"is_active"`
	TimeRemainingSeconds int  `json:"time_remaining_seconds"`
	QuestionsCompleted   int  `json:"questions_completed"`
}

type endResponse struct {
	Message string `json:"message"`
}

// HTTPBoundary talks to the survey server's rater API.
type HTTPBoundary struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBoundary(baseURL string, client *http.Client) sessionout.Boundary {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPBoundary{baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"), client: client}
}

func (b *HTTPBoundary) Start(ctx context.Context, params domain.LaunchParams) (domain.Session, error) {
	query := url.Values{}
	query.Set(domain.ParamExperimentID, params.ExperimentID)
	query.Set(domain.ParamParticipantID, params.ParticipantID)
	if params.StudyID != "" {
		query.Set(domain.ParamStudyID, params.StudyID)
	}
	if params.SessionID != "" {
		query.Set(domain.ParamSessionID, params.SessionID)
	}

	body, err := b.do(ctx, http.MethodPost, "/api/raters/start", query, nil, false)
	if err != nil {
		return domain.Session{}, err
	}
	var resp startResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("decode start response: %w", err)
	}
	if resp.RaterID.String() == "" {
		return domain.Session{}, fmt.Errorf("decode start response: missing rater_id")
	}
	startedAt, err := domain.ParseInstant(resp.SessionStart)
	if err != nil {
		return domain.Session{}, fmt.Errorf("decode start response: %w", err)
	}
	endsAt, err := domain.ParseInstant(resp.SessionEndTime)
	if err != nil {
		return domain.Session{}, fmt.Errorf("decode start response: %w", err)
	}
	session := domain.Session{
		RaterID:        resp.RaterID.String(),
		ExperimentName: resp.ExperimentName,
		StartedAt:      startedAt,
		EndsAt:         endsAt,
	}
	if resp.CompletionURL != nil {
		session.CompletionURL = strings.TrimSpace(*resp.CompletionURL)
	}
	return session, nil
}

// NextQuestion folds a null, empty or {} body into found=false.
func (b *HTTPBoundary) NextQuestion(ctx context.Context, raterID string) (domain.Question, bool, error) {
	body, err := b.do(ctx, http.MethodGet, "/api/raters/next-question", raterQuery(raterID), nil, true)
	if err != nil {
		return domain.Question{}, false, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Question{}, false, nil
	}
	var resp questionResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return domain.Question{}, false, fmt.Errorf("decode question: %w", err)
	}
	if resp.ID == 0 && resp.QuestionText == "" && resp.QuestionID == "" {
		return domain.Question{}, false, nil
	}
	q := domain.Question{
		ID:         resp.ID,
		ExternalID: resp.QuestionID,
		Text:       resp.QuestionText,
		Mode:       domain.AnswerMode(strings.ToUpper(strings.TrimSpace(resp.QuestionType))),
	}
	if resp.Options != nil {
		q.Options = *resp.Options
	}
	return q, true, nil
}

func (b *HTTPBoundary) Submit(ctx context.Context, raterID string, rating domain.Rating) (domain.Ack, error) {
	payload, err := json.Marshal(ratingRequest{
		QuestionID:  rating.QuestionID,
		Answer:      rating.Answer,
		Confidence:  rating.Confidence,
		TimeStarted: rating.PresentedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return domain.Ack{}, fmt.Errorf("encode rating: %w", err)
	}
	body, err := b.do(ctx, http.MethodPost, "/api/raters/submit", raterQuery(raterID), payload, true)
	if err != nil {
		return domain.Ack{}, err
	}
	var resp ratingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Ack{}, fmt.Errorf("decode rating response: %w", err)
	}
	return domain.Ack{Accepted: resp.Success, SubmissionID: resp.ID.String()}, nil
}

func (b *HTTPBoundary) Status(ctx context.Context, raterID string) (domain.Status, error) {
	body, err := b.do(ctx, http.MethodGet, "/api/raters/session-status", raterQuery(raterID), nil, true)
	if err != nil {
		return domain.Status{}, err
	}
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Status{}, fmt.Errorf("decode session status: %w", err)
	}
	return domain.Status{
		Active:             resp.IsActive,
		RemainingSeconds:   resp.TimeRemainingSeconds,
		QuestionsCompleted: resp.QuestionsCompleted,
	}, nil
}

func (b *HTTPBoundary) End(ctx context.Context, raterID string) (string, error) {
	body, err := b.do(ctx, http.MethodPost, "/api/raters/end-session", raterQuery(raterID), nil, true)
	if err != nil {
		return "", err
	}
	var resp endResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode end session response: %w", err)
	}
	return resp.Message, nil
}

// do sends one request and returns the body of a 2xx response. On rater
// scoped calls a 403 means the session is no longer valid; any other failure
// status becomes a RemoteError carrying the body as sent.
func (b *HTTPBoundary) do(ctx context.Context, method, path string, query url.Values, payload []byte, raterScoped bool) ([]byte, error) {
	if b.baseURL == "" {
		return nil, fmt.Errorf("%w: server url is not configured", apperrors.ErrInvalidInput)
	}
	endpoint := b.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if raterScoped && resp.StatusCode == http.StatusForbidden {
		return nil, apperrors.ErrSessionInvalid
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.RemoteError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func raterQuery(raterID string) url.Values {
	return url.Values{"rater_id": []string{raterID}}
}
