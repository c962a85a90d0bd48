package api

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/terraincognita07/shrine/internal/i18n"
	"github.com/terraincognita07/shrine/internal/services"
)

const (
	defaultSessionTTL     = 7 * 24 * time.Hour
	passcodeAttemptLimit  = 5
	passcodeAttemptWindow = 15 * time.Minute

	cookieKeyLabel = "shrine.cookie-key.v1"
)

type Config struct {
	SecretKey    string
	CookieSecure bool
	ShrineName   string
	ShareURL     string
	SessionTTL   time.Duration
}

type Handler struct {
	secretKey       []byte
	cookieSecure    bool
	shrineName      string
	shareURL        string
	sessionTTL      time.Duration
	i18n            *i18n.Manager
	shrine          *services.ShrineService
	admin           *services.AdminService
	cookieKey       string
	passcodeLimiter *attemptLimiter
	now             func() time.Time
}

func NewHandler(shrine *services.ShrineService, admin *services.AdminService, i18nManager *i18n.Manager, config Config) (*Handler, error) {
	if shrine == nil || admin == nil {
		return nil, errors.New("shrine and admin services are required")
	}
	if i18nManager == nil {
		return nil, errors.New("i18n manager is required")
	}

	secretKey := []byte(config.SecretKey)
	cookieKey, err := deriveCookieKey(secretKey)
	if err != nil {
		return nil, err
	}

	shrineName := strings.TrimSpace(config.ShrineName)
	if shrineName == "" {
		shrineName = services.DefaultShrineName
	}
	sessionTTL := config.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}

	return &Handler{
		secretKey:       secretKey,
		cookieSecure:    config.CookieSecure,
		shrineName:      shrineName,
		shareURL:        strings.TrimSpace(config.ShareURL),
		sessionTTL:      sessionTTL,
		i18n:            i18nManager,
		shrine:          shrine,
		admin:           admin,
		cookieKey:       cookieKey,
		passcodeLimiter: newAttemptLimiter(),
		now:             time.Now,
	}, nil
}

// deriveCookieKey expands the session secret into the base64 AES-256 key the
// cookie encryption middleware expects.
func deriveCookieKey(secretKey []byte) (string, error) {
	if len(secretKey) == 0 {
		return "", errors.New("cookie secret key is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secretKey, nil, []byte(cookieKeyLabel)), key); err != nil {
		return "", fmt.Errorf("derive cookie key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
