package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/security"
)

func TestLoginValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		email    string
		passcode string
		wantErr  error
	}{
		{name: "missing email", email: "  ", passcode: "soba", wantErr: ErrValidation},
		{name: "missing passcode", email: "kaya@example.com", passcode: " ", wantErr: ErrValidation},
		{name: "wrong passcode", email: "kaya@example.com", passcode: "udon", wantErr: ErrAuth},
		{name: "passcode is case-sensitive", email: "kaya@example.com", passcode: "Soba", wantErr: ErrAuth},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			service := newShrineServiceForTest(newStubShrineRepo())
			result, err := service.Login(context.Background(), NewSession(), test.email, test.passcode)
			if !errors.Is(err, test.wantErr) {
				t.Fatalf("expected %v, got %v", test.wantErr, err)
			}
			if result.Session.View != models.ViewLanding {
				t.Fatalf("expected view to stay LANDING, got %s", result.Session.View)
			}
		})
	}
}

func TestLoginNewVillagerEntersShrine(t *testing.T) {
	service := newShrineServiceForTest(newStubShrineRepo())

	result, err := service.Login(context.Background(), NewSession(), " Kaya@Example.com ", "soba")
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if result.Session.View != models.ViewShrine {
		t.Fatalf("expected SHRINE, got %s", result.Session.View)
	}
	if result.Session.Email != "kaya@example.com" {
		t.Fatalf("expected normalized email, got %q", result.Session.Email)
	}
	if result.Notice != "" {
		t.Fatalf("expected no notice, got %q", result.Notice)
	}
}

func TestLoginReturningVillagerSeesRecordedSlip(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-b", "2024-06")}
	repo.history = []models.UserHistory{{Email: "kaya@example.com", Draws: map[string]string{"2024-06": "slip-b"}}}
	service := newShrineServiceForTest(repo)

	result, err := service.Login(context.Background(), NewSession(), "kaya@example.com", "soba")
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if result.Session.View != models.ViewReveal || result.Session.SlipID != "slip-b" {
		t.Fatalf("expected REVEAL with slip-b, got %#v", result.Session)
	}
	if result.Slip == nil || result.Slip.ID != "slip-b" {
		t.Fatalf("expected revealed slip-b, got %#v", result.Slip)
	}
	if result.Notice != NoticeAlreadyDrawn {
		t.Fatalf("expected already_drawn notice, got %q", result.Notice)
	}
}

func TestLoginLostSlipStaysOnLanding(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-other", "2024-06")}
	repo.history = []models.UserHistory{{Email: "kaya@example.com", Draws: map[string]string{"2024-06": "slip-deleted"}}}
	service := newShrineServiceForTest(repo)

	result, err := service.Login(context.Background(), NewSession(), "kaya@example.com", "soba")
	if !errors.Is(err, ErrLostSlip) {
		t.Fatalf("expected ErrLostSlip, got %v", err)
	}
	if result.Session.View != models.ViewLanding {
		t.Fatalf("expected LANDING, got %s", result.Session.View)
	}
}

func TestLoginUsesStoredPasscode(t *testing.T) {
	repo := newStubShrineRepo()
	repo.config.UserPasscode = "udon"
	service := newShrineServiceForTest(repo)

	if _, err := service.Login(context.Background(), NewSession(), "kaya@example.com", "soba"); !errors.Is(err, ErrAuth) {
		t.Fatalf("expected default passcode to be rejected, got %v", err)
	}
	if _, err := service.Login(context.Background(), NewSession(), "kaya@example.com", "udon"); err != nil {
		t.Fatalf("expected stored passcode to be accepted, got %v", err)
	}
}

func TestLoginStorageFailure(t *testing.T) {
	repo := newStubShrineRepo()
	repo.readErr = errors.New("offline")
	service := newShrineServiceForTest(repo)

	if _, err := service.Login(context.Background(), NewSession(), "kaya@example.com", "soba"); !errors.Is(err, ErrStorageRead) {
		t.Fatalf("expected ErrStorageRead, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	service := newShrineServiceForTest(newStubShrineRepo())

	session, err := service.AdminLogin(NewSession(), "wrong")
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if session.View != models.ViewLanding {
		t.Fatalf("expected LANDING after failed admin login, got %s", session.View)
	}

	session, err = service.AdminLogin(NewSession(), "takaramono")
	if err != nil {
		t.Fatalf("AdminLogin() unexpected error: %v", err)
	}
	if session.View != models.ViewAdmin {
		t.Fatalf("expected ADMIN, got %s", session.View)
	}
}

func shrineSession() Session {
	return Session{View: models.ViewShrine, Email: "kaya@example.com", Month: "2024-06", Gate: security.Fingerprint(models.DefaultUserPasscode)}
}

func revealSessionFor(slipID string) Session {
	session := shrineSession()
	session.View = models.ViewReveal
	session.SlipID = slipID
	return session
}

func TestDrawRecordsHistoryAndReveals(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{
		sampleSlip("slip-a", "2024-05"),
		sampleSlip("slip-b", "2024-06"),
	}
	service := newShrineServiceForTest(repo)

	result, err := service.Draw(context.Background(), shrineSession())
	if err != nil {
		t.Fatalf("Draw() unexpected error: %v", err)
	}
	if result.Slip.ID != "slip-b" {
		t.Fatalf("expected only June slip to be drawable, got %q", result.Slip.ID)
	}
	if result.Session.View != models.ViewReveal || result.Session.SlipID != "slip-b" {
		t.Fatalf("expected REVEAL with slip-b, got %#v", result.Session)
	}
	if !result.HistorySaved || repo.historySaves != 1 {
		t.Fatalf("expected one history save, saved=%v count=%d", result.HistorySaved, repo.historySaves)
	}
	if result.Timeline != (DrawTimeline{GlowAtMillis: 0, ShakeAtMillis: 500, RevealAtMillis: 2500}) {
		t.Fatalf("unexpected timeline %#v", result.Timeline)
	}
	if repo.history[0].Draws["2024-06"] != "slip-b" {
		t.Fatalf("expected history to record slip-b, got %#v", repo.history)
	}
}

func TestDrawEmptyPoolStaysOnShrine(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-a", "2024-05")}
	service := newShrineServiceForTest(repo)

	result, err := service.Draw(context.Background(), shrineSession())
	if !errors.Is(err, ErrEmptyPool) {
		t.Fatalf("expected ErrEmptyPool, got %v", err)
	}
	if result.Session.View != models.ViewShrine {
		t.Fatalf("expected SHRINE, got %s", result.Session.View)
	}
	if repo.historySaves != 0 {
		t.Fatalf("expected no history write, got %d", repo.historySaves)
	}
}

func TestDrawHistoryWriteFailureStillReveals(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-b", "2024-06")}
	repo.saveHistoryErr = errors.New("permission denied")
	service := newShrineServiceForTest(repo)

	result, err := service.Draw(context.Background(), shrineSession())
	if err != nil {
		t.Fatalf("Draw() unexpected error: %v", err)
	}
	if result.HistorySaved {
		t.Fatal("expected HistorySaved=false")
	}
	if result.Session.View != models.ViewReveal {
		t.Fatalf("expected REVEAL, got %s", result.Session.View)
	}
}

func TestDrawSecondTimeReturnsRecordedSlip(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-b", "2024-06"), sampleSlip("slip-c", "2024-06")}
	repo.history = []models.UserHistory{{Email: "kaya@example.com", Draws: map[string]string{"2024-06": "slip-c"}}}
	service := newShrineServiceForTest(repo)

	result, err := service.Draw(context.Background(), shrineSession())
	if err != nil {
		t.Fatalf("Draw() unexpected error: %v", err)
	}
	if !result.Repeat || result.Slip.ID != "slip-c" {
		t.Fatalf("expected repeat reveal of slip-c, got repeat=%v slip=%q", result.Repeat, result.Slip.ID)
	}
	if repo.historySaves != 0 {
		t.Fatalf("expected no history write on repeat, got %d", repo.historySaves)
	}
}

func TestDrawRejectsOtherViews(t *testing.T) {
	service := newShrineServiceForTest(newStubShrineRepo())

	for _, session := range []Session{
		NewSession(),
		{View: models.ViewAdmin, Gate: security.Fingerprint("takaramono")},
		revealSessionFor("slip-b"),
		{View: models.ViewShrine},
	} {
		if _, err := service.Draw(context.Background(), session); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Draw(%#v) expected ErrInvalidTransition, got %v", session, err)
		}
	}
}

func TestDrawRejectsConcurrentDrawForSameVillager(t *testing.T) {
	service := newShrineServiceForTest(newStubShrineRepo())
	if !service.beginDraw("kaya@example.com") {
		t.Fatal("expected first draw to begin")
	}
	defer service.endDraw("kaya@example.com")

	if _, err := service.Draw(context.Background(), shrineSession()); !errors.Is(err, ErrDrawInProgress) {
		t.Fatalf("expected ErrDrawInProgress, got %v", err)
	}
}

func TestResetReturnsToLanding(t *testing.T) {
	service := newShrineServiceForTest(newStubShrineRepo())

	for _, session := range []Session{
		{View: models.ViewAdmin},
		{View: models.ViewReveal, Email: "kaya@example.com", SlipID: "slip-b"},
	} {
		reset := service.Reset(session)
		if reset != NewSession() {
			t.Fatalf("Reset(%#v) = %#v, want landing session", session, reset)
		}
	}
}

func TestStateReportsRevealedSlip(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-b", "2024-06")}
	service := newShrineServiceForTest(repo)

	state, err := service.State(context.Background(), revealSessionFor("slip-b"))
	if err != nil {
		t.Fatalf("State() unexpected error: %v", err)
	}
	if state.Month != "2024-06" || state.Slip == nil || state.Slip.ID != "slip-b" {
		t.Fatalf("unexpected state %#v", state)
	}

	state, err = service.State(context.Background(), revealSessionFor("gone"))
	if err != nil {
		t.Fatalf("State() with lost slip unexpected error: %v", err)
	}
	if state.Slip != nil {
		t.Fatalf("expected no slip for lost id, got %#v", state.Slip)
	}
}

func TestSessionNormalized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session Session
		want    Session
	}{
		{name: "unknown view", session: Session{View: "DANCE"}, want: NewSession()},
		{name: "reveal without slip", session: Session{View: models.ViewReveal, Email: "a@b.c"}, want: NewSession()},
		{name: "shrine drops slip", session: Session{View: models.ViewShrine, Email: "a@b.c", SlipID: "x", Month: "2024-06"}, want: Session{View: models.ViewShrine, Email: "a@b.c", Month: "2024-06"}},
		{name: "admin drops identity", session: Session{View: models.ViewAdmin, Email: "a@b.c", Gate: "g"}, want: Session{View: models.ViewAdmin, Gate: "g"}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := test.session.Normalized(); got != test.want {
				t.Fatalf("Normalized() = %#v, want %#v", got, test.want)
			}
		})
	}
}

func TestSessionsExpireWhenPasscodeRotates(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-b", "2024-06")}
	service := newShrineServiceForTest(repo)

	login, err := service.Login(context.Background(), NewSession(), "Kaya@Example.com", models.DefaultUserPasscode)
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}
	if login.Session.Month != "2024-06" || login.Session.Gate == "" {
		t.Fatalf("expected login session bound to month and passcode, got %#v", login.Session)
	}

	repo.config.UserPasscode = "udon"

	result, err := service.Draw(context.Background(), login.Session)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after passcode rotation, got %v", err)
	}
	if result.Session != NewSession() {
		t.Fatalf("expected landing session, got %#v", result.Session)
	}
	if repo.historySaves != 0 {
		t.Fatalf("expected no draw to be recorded, got %d history saves", repo.historySaves)
	}

	if _, err := service.RevealedSlip(context.Background(), revealSessionFor("slip-b")); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected REVEAL session to expire with the old passcode, got %v", err)
	}
}

func TestSessionsExpireWhenMonthChanges(t *testing.T) {
	repo := newStubShrineRepo()
	repo.fortunes = []models.FortuneSlip{sampleSlip("slip-b", "2024-06"), sampleSlip("slip-j", "2024-07")}
	june := newShrineServiceForTest(repo)

	login, err := june.Login(context.Background(), NewSession(), "kaya@example.com", models.DefaultUserPasscode)
	if err != nil {
		t.Fatalf("Login() unexpected error: %v", err)
	}

	admin, err := security.NewPasscodeHash("takaramono")
	if err != nil {
		t.Fatalf("NewPasscodeHash() unexpected error: %v", err)
	}
	julyClock := fortune.FixedClock(time.Date(2024, time.July, 1, 0, 0, 1, 0, time.UTC))
	july := NewShrineService(repo, julyClock, firstIndex{}, admin)

	if _, err := july.Draw(context.Background(), login.Session); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected June session to expire in July, got %v", err)
	}

	state, err := july.State(context.Background(), login.Session)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected State() to report expiry, got %v", err)
	}
	if state.View != models.ViewLanding || state.Month != "2024-07" {
		t.Fatalf("expected July landing state, got %#v", state)
	}
}

func TestAdminSessionBoundToAdminPasscode(t *testing.T) {
	service := newShrineServiceForTest(newStubShrineRepo())

	session, err := service.AdminLogin(NewSession(), "takaramono")
	if err != nil {
		t.Fatalf("AdminLogin() unexpected error: %v", err)
	}
	if !service.AdminSessionValid(session) {
		t.Fatal("expected freshly issued admin session to be valid")
	}

	rotated, err := security.NewPasscodeHash("omamori")
	if err != nil {
		t.Fatalf("NewPasscodeHash() unexpected error: %v", err)
	}
	restarted := NewShrineService(newStubShrineRepo(), juneClock, firstIndex{}, rotated)
	if restarted.AdminSessionValid(session) {
		t.Fatal("expected admin session to be rejected after the admin passcode changed")
	}
	if restarted.AdminSessionValid(Session{View: models.ViewAdmin}) {
		t.Fatal("expected admin session without a gate to be rejected")
	}
	if _, err := restarted.Resume(context.Background(), session); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected Resume() to expire the old admin session, got %v", err)
	}
}
