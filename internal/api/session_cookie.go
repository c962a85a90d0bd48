package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/services"
)

type sessionClaims struct {
	View   string `json:"view"`
	Email  string `json:"email,omitempty"`
	SlipID string `json:"sid,omitempty"`
	Month  string `json:"month,omitempty"`
	Gate   string `json:"gate,omitempty"`
	jwt.RegisteredClaims
}

func (handler *Handler) buildSessionToken(session services.Session) (string, error) {
	now := handler.now()
	claims := sessionClaims{
		View:   string(session.View),
		Email:  session.Email,
		SlipID: session.SlipID,
		Month:  session.Month,
		Gate:   session.Gate,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(handler.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(handler.secretKey)
}

func (handler *Handler) parseSessionToken(rawCookie string) (services.Session, error) {
	rawCookie = strings.TrimSpace(rawCookie)
	if rawCookie == "" {
		return services.Session{}, errors.New("missing session cookie")
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(rawCookie, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return handler.secretKey, nil
	}, jwt.WithTimeFunc(handler.now))
	if err != nil || !token.Valid {
		return services.Session{}, errors.New("invalid session token")
	}
	if claims.ExpiresAt == nil {
		return services.Session{}, errors.New("session token without expiry")
	}

	return services.Session{
		View:   models.View(claims.View),
		Email:  claims.Email,
		SlipID: claims.SlipID,
		Month:  claims.Month,
		Gate:   claims.Gate,
	}.Normalized(), nil
}

func (handler *Handler) setSessionCookie(c *fiber.Ctx, session services.Session) error {
	if session.Normalized() == services.NewSession() {
		handler.clearSessionCookie(c)
		c.Locals(contextSessionKey, services.NewSession())
		return nil
	}

	value, err := handler.buildSessionToken(session)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  handler.now().Add(handler.sessionTTL),
	})
	c.Locals(contextSessionKey, session)
	return nil
}

func (handler *Handler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}
