package domain

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "raterc/internal/platform/errors"
)

// Query parameter names of the participation link.
const (
	ParamExperimentID  = "experiment_id"
	ParamParticipantID = "PROLIFIC_PID"
	ParamStudyID       = "STUDY_ID"
	ParamSessionID     = "SESSION_ID"
)

// LaunchParams are the inputs of a rater run. Study and session identifiers
// are forwarded to the server untouched and otherwise unused.
type LaunchParams struct {
	ExperimentID  string
	ParticipantID string
	StudyID       string
	SessionID     string
	// Origin is scheme://host of the entry link, when one was given.
	Origin string
}

func (p LaunchParams) Validate() error {
	if strings.TrimSpace(p.ExperimentID) == "" || strings.TrimSpace(p.ParticipantID) == "" {
		return apperrors.ErrMissingLaunchParams
	}
	return nil
}

// ParseLaunchURL reads launch parameters from a participation link. Missing
// mandatory parameters are not an error here; the run reports them.
func ParseLaunchURL(raw string) (LaunchParams, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return LaunchParams{}, fmt.Errorf("%w: parse entry url: %v", apperrors.ErrInvalidInput, err)
	}
	q := u.Query()
	params := LaunchParams{
		ExperimentID:  q.Get(ParamExperimentID),
		ParticipantID: q.Get(ParamParticipantID),
		StudyID:       q.Get(ParamStudyID),
		SessionID:     q.Get(ParamSessionID),
	}
	if u.Scheme != "" && u.Host != "" {
		params.Origin = u.Scheme + "://" + u.Host
	}
	return params, nil
}

// Merge fills empty fields of p from other.
func (p LaunchParams) Merge(other LaunchParams) LaunchParams {
	if p.ExperimentID == "" {
		p.ExperimentID = other.ExperimentID
	}
	if p.ParticipantID == "" {
		p.ParticipantID = other.ParticipantID
	}
	if p.StudyID == "" {
		p.StudyID = other.StudyID
	}
	if p.SessionID == "" {
		p.SessionID = other.SessionID
	}
	if p.Origin == "" {
		p.Origin = other.Origin
	}
	return p
}
