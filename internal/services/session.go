package services

import (
	"context"
	"errors"

	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/security"
)

// Session is the per-visitor view state. It travels in the signed session
// cookie, so it only holds identifiers; slips are looked up on demand.
// Month and Gate bind a signed-in session to the month and passcode it was
// issued under.
type Session struct {
	View   models.View `json:"view"`
	Email  string      `json:"email,omitempty"`
	SlipID string      `json:"slipId,omitempty"`
	Month  string      `json:"month,omitempty"`
	Gate   string      `json:"gate,omitempty"`
}

func NewSession() Session {
	return Session{View: models.ViewLanding}
}

// Normalized repairs sessions that cannot be resumed, for example a REVEAL
// without a slip, by sending them back to LANDING.
func (session Session) Normalized() Session {
	switch session.View {
	case models.ViewShrine:
		if session.Email == "" {
			return NewSession()
		}
		return Session{View: models.ViewShrine, Email: session.Email, Month: session.Month, Gate: session.Gate}
	case models.ViewReveal:
		if session.Email == "" || session.SlipID == "" {
			return NewSession()
		}
		return session
	case models.ViewAdmin:
		return Session{View: models.ViewAdmin, Gate: session.Gate}
	default:
		return NewSession()
	}
}

// SessionState is what a client needs to render the current screen.
type SessionState struct {
	View    models.View         `json:"view"`
	Email   string              `json:"email,omitempty"`
	Month   string              `json:"month"`
	Loading bool                `json:"loading"`
	Slip    *models.FortuneSlip `json:"slip,omitempty"`
}

type loadingReporter interface {
	Loading() bool
}

// Resume checks that a signed-in session still belongs to the current month
// and passcode. Stale sessions come back as LANDING with ErrSessionExpired.
func (service *ShrineService) Resume(ctx context.Context, session Session) (Session, error) {
	session = session.Normalized()
	switch session.View {
	case models.ViewAdmin:
		if !service.AdminSessionValid(session) {
			return NewSession(), ErrSessionExpired
		}
	case models.ViewShrine, models.ViewReveal:
		if session.Month != service.CurrentMonth() {
			return NewSession(), ErrSessionExpired
		}
		config, err := service.collections.Config(ctx)
		if err != nil {
			return session, storageReadError(err)
		}
		if session.Gate == "" || session.Gate != security.Fingerprint(config.UserPasscode) {
			return NewSession(), ErrSessionExpired
		}
	}
	return session, nil
}

// AdminSessionValid reports whether an ADMIN session was issued under the
// current admin passcode.
func (service *ShrineService) AdminSessionValid(session Session) bool {
	session = session.Normalized()
	if session.View != models.ViewAdmin {
		return false
	}
	gate := service.admin.Fingerprint()
	return gate != "" && session.Gate == gate
}

// State reports the screen for session. An expired session is reported as
// LANDING together with ErrSessionExpired.
func (service *ShrineService) State(ctx context.Context, session Session) (SessionState, error) {
	session, resumeErr := service.Resume(ctx, session)
	if resumeErr != nil && !errors.Is(resumeErr, ErrSessionExpired) {
		return SessionState{}, resumeErr
	}
	state := SessionState{
		View:  session.View,
		Email: session.Email,
		Month: service.CurrentMonth(),
	}
	if reporter, ok := service.collections.(loadingReporter); ok {
		state.Loading = reporter.Loading()
	}

	if session.View == models.ViewReveal {
		slip, err := service.RevealedSlip(ctx, session)
		if err != nil && !errors.Is(err, ErrLostSlip) {
			return SessionState{}, err
		}
		if err == nil {
			state.Slip = &slip
		}
	}
	return state, resumeErr
}
