package services

import (
	"context"
	"strings"
	"sync"

	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/logger"
	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/security"
)

const (
	NoticeAlreadyDrawn = "already_drawn"

	GlowAtMillis   = 0
	ShakeAtMillis  = 500
	RevealAtMillis = 2500
)

type ShrineRepository interface {
	Fortunes(ctx context.Context) ([]models.FortuneSlip, error)
	Config(ctx context.Context) (models.AppConfig, error)
	History(ctx context.Context) ([]models.UserHistory, error)
	SaveFortunes(ctx context.Context, fortunes []models.FortuneSlip) error
	SaveConfig(ctx context.Context, config models.AppConfig) error
	SaveHistory(ctx context.Context, history []models.UserHistory) error
}

// DrawTimeline tells the client when to start each stage of the draw animation.
type DrawTimeline struct {
	GlowAtMillis   int `json:"glow_at_ms"`
	ShakeAtMillis  int `json:"shake_at_ms"`
	RevealAtMillis int `json:"reveal_at_ms"`
}

func DefaultDrawTimeline() DrawTimeline {
	return DrawTimeline{
		GlowAtMillis:   GlowAtMillis,
		ShakeAtMillis:  ShakeAtMillis,
		RevealAtMillis: RevealAtMillis,
	}
}

type LoginResult struct {
	Session Session
	Slip    *models.FortuneSlip
	Month   string
	Notice  string
}

type DrawResult struct {
	Session      Session
	Slip         models.FortuneSlip
	Month        string
	HistorySaved bool
	Repeat       bool
	Timeline     DrawTimeline
}

type ShrineService struct {
	collections ShrineRepository
	clock       fortune.Clock
	rng         fortune.Rand
	admin       security.PasscodeHash

	mu      sync.Mutex
	drawing map[string]struct{}
}

func NewShrineService(collections ShrineRepository, clock fortune.Clock, rng fortune.Rand, admin security.PasscodeHash) *ShrineService {
	if clock == nil {
		clock = fortune.SystemClock(nil)
	}
	if rng == nil {
		rng = security.CryptoRand{}
	}
	return &ShrineService{
		collections: collections,
		clock:       clock,
		rng:         rng,
		admin:       admin,
		drawing:     make(map[string]struct{}),
	}
}

func (service *ShrineService) CurrentMonth() string {
	return fortune.CurrentMonth(service.clock)
}

// Login checks the shared passcode and routes the villager to SHRINE, or
// straight to REVEAL when a slip was already drawn this month.
func (service *ShrineService) Login(ctx context.Context, session Session, email string, passcode string) (LoginResult, error) {
	session = session.Normalized()
	if session.View != models.ViewLanding {
		return LoginResult{Session: session}, ErrInvalidTransition
	}

	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(passcode) == "" {
		return LoginResult{Session: session}, fieldError("credentials", ErrValidation)
	}

	config, err := service.collections.Config(ctx)
	if err != nil {
		return LoginResult{Session: session}, storageReadError(err)
	}
	if passcode != config.UserPasscode {
		return LoginResult{Session: session}, ErrAuth
	}

	month := service.CurrentMonth()
	gate := security.Fingerprint(config.UserPasscode)
	history, err := service.collections.History(ctx)
	if err != nil {
		return LoginResult{Session: session}, storageReadError(err)
	}

	normalizedEmail := fortune.NormalizeEmail(email)
	slipID, drawn := fortune.HasDrawnThisMonth(history, normalizedEmail, month)
	if !drawn {
		return LoginResult{
			Session: Session{View: models.ViewShrine, Email: normalizedEmail, Month: month, Gate: gate},
			Month:   month,
		}, nil
	}

	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return LoginResult{Session: session}, storageReadError(err)
	}
	slip, found := fortune.FindSlip(pool, slipID)
	if !found {
		logger.Warningf("login: slip %s recorded for %s in %s is missing from the pool", slipID, normalizedEmail, month)
		return LoginResult{Session: session, Month: month}, ErrLostSlip
	}

	return LoginResult{
		Session: Session{View: models.ViewReveal, Email: normalizedEmail, SlipID: slip.ID, Month: month, Gate: gate},
		Slip:    &slip,
		Month:   month,
		Notice:  NoticeAlreadyDrawn,
	}, nil
}

func (service *ShrineService) AdminLogin(session Session, passcode string) (Session, error) {
	session = session.Normalized()
	if session.View != models.ViewLanding {
		return session, ErrInvalidTransition
	}
	if strings.TrimSpace(passcode) == "" {
		return session, fieldError("passcode", ErrValidation)
	}
	if !service.admin.Matches(passcode) {
		return session, ErrAuth
	}
	return Session{View: models.ViewAdmin, Gate: service.admin.Fingerprint()}, nil
}

// Draw selects this month's slip for the signed-in villager and records it.
// A failed history write is logged and the slip is still revealed.
func (service *ShrineService) Draw(ctx context.Context, session Session) (DrawResult, error) {
	session, err := service.Resume(ctx, session)
	if err != nil {
		return DrawResult{Session: session}, err
	}
	if session.View != models.ViewShrine {
		return DrawResult{Session: session}, ErrInvalidTransition
	}

	if !service.beginDraw(session.Email) {
		return DrawResult{Session: session}, ErrDrawInProgress
	}
	defer service.endDraw(session.Email)

	month := service.CurrentMonth()
	history, err := service.collections.History(ctx)
	if err != nil {
		return DrawResult{Session: session}, storageReadError(err)
	}
	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return DrawResult{Session: session}, storageReadError(err)
	}

	if slipID, drawn := fortune.HasDrawnThisMonth(history, session.Email, month); drawn {
		slip, found := fortune.FindSlip(pool, slipID)
		if !found {
			return DrawResult{Session: session, Month: month}, ErrLostSlip
		}
		return DrawResult{
			Session:      revealSession(session, slip.ID),
			Slip:         slip,
			Month:        month,
			HistorySaved: true,
			Repeat:       true,
			Timeline:     DefaultDrawTimeline(),
		}, nil
	}

	slip, err := fortune.Draw(pool, month, service.rng)
	if err != nil {
		return DrawResult{Session: session, Month: month}, err
	}

	historySaved := true
	updated := fortune.RecordDraw(history, session.Email, month, slip.ID)
	if err := service.collections.SaveHistory(ctx, updated); err != nil {
		historySaved = false
		logger.Errorf("draw: save history for %s failed: %v", session.Email, err)
	}

	return DrawResult{
		Session:      revealSession(session, slip.ID),
		Slip:         slip,
		Month:        month,
		HistorySaved: historySaved,
		Timeline:     DefaultDrawTimeline(),
	}, nil
}

func revealSession(session Session, slipID string) Session {
	return Session{View: models.ViewReveal, Email: session.Email, SlipID: slipID, Month: session.Month, Gate: session.Gate}
}

func (service *ShrineService) beginDraw(email string) bool {
	service.mu.Lock()
	defer service.mu.Unlock()
	if _, busy := service.drawing[email]; busy {
		return false
	}
	service.drawing[email] = struct{}{}
	return true
}

func (service *ShrineService) endDraw(email string) {
	service.mu.Lock()
	defer service.mu.Unlock()
	delete(service.drawing, email)
}

// Reset returns any view to LANDING and forgets the villager.
func (service *ShrineService) Reset(Session) Session {
	return NewSession()
}

func (service *ShrineService) RevealedSlip(ctx context.Context, session Session) (models.FortuneSlip, error) {
	session, err := service.Resume(ctx, session)
	if err != nil {
		return models.FortuneSlip{}, err
	}
	if session.View != models.ViewReveal {
		return models.FortuneSlip{}, ErrInvalidTransition
	}

	pool, err := service.collections.Fortunes(ctx)
	if err != nil {
		return models.FortuneSlip{}, storageReadError(err)
	}
	slip, found := fortune.FindSlip(pool, session.SlipID)
	if !found {
		return models.FortuneSlip{}, ErrLostSlip
	}
	return slip, nil
}

// Logo returns the configured custom logo, or "" for the default shrine icon.
func (service *ShrineService) Logo(ctx context.Context) (string, error) {
	config, err := service.collections.Config(ctx)
	if err != nil {
		return "", storageReadError(err)
	}
	return config.CustomLogo, nil
}
