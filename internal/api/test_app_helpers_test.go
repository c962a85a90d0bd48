package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/shrine/internal/fortune"
	"github.com/terraincognita07/shrine/internal/i18n"
	"github.com/terraincognita07/shrine/internal/models"
	"github.com/terraincognita07/shrine/internal/security"
	"github.com/terraincognita07/shrine/internal/services"
	"github.com/terraincognita07/shrine/internal/store"
)

const (
	testAdminPasscode = "takaramono"
	testSecretKey     = "test-secret-key-with-enough-entropy"
)

var testJuneClock = fortune.FixedClock(time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC))

type testShrine struct {
	app         *fiber.App
	handler     *Handler
	collections *store.CollectionStore
}

type firstSlip struct{}

func (firstSlip) Intn(int) int {
	return 0
}

type testShrineOptions struct {
	clock         fortune.Clock
	adminPasscode string
	collections   *store.CollectionStore
}

func newTestShrine(t *testing.T) *testShrine {
	t.Helper()
	return newTestShrineWith(t, testShrineOptions{})
}

// newTestShrineWith builds an app over the given collections, so two apps can
// share storage and the session secret while differing in clock or admin passcode.
func newTestShrineWith(t *testing.T, options testShrineOptions) *testShrine {
	t.Helper()

	if options.clock == nil {
		options.clock = testJuneClock
	}
	if options.adminPasscode == "" {
		options.adminPasscode = testAdminPasscode
	}
	if options.collections == nil {
		options.collections = store.NewCollectionStore(store.NewMemoryStore())
	}

	adminHash, err := security.NewPasscodeHash(options.adminPasscode)
	if err != nil {
		t.Fatalf("hash admin passcode: %v", err)
	}
	i18nManager, err := i18n.NewManager(i18n.LangEN)
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	shrine := services.NewShrineService(options.collections, options.clock, firstSlip{}, adminHash)
	admin := services.NewAdminService(options.collections, options.clock)
	handler, err := NewHandler(shrine, admin, i18nManager, Config{
		SecretKey:  testSecretKey,
		ShareURL:   "https://shrine.example.com/",
		SessionTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New(fiber.Config{
		JSONEncoder: gojson.Marshal,
		JSONDecoder: gojson.Unmarshal,
	})
	RegisterRoutes(app, handler)

	return &testShrine{app: app, handler: handler, collections: options.collections}
}

func (shrine *testShrine) seedSlips(t *testing.T, slips ...models.FortuneSlip) {
	t.Helper()
	if err := shrine.collections.SaveFortunes(context.Background(), slips); err != nil {
		t.Fatalf("seed fortunes: %v", err)
	}
}

func testSlip(id string, month string) models.FortuneSlip {
	return models.FortuneSlip{
		ID:        id,
		Month:     month,
		Level:     models.LevelDaiKichi,
		Poem:      "Rain on the rice terraces",
		FocusOn:   "Patience",
		DoingWell: "Listening",
		Advice:    models.FortuneAdvice{Luck: "Walk east"},
	}
}

type apiResponse struct {
	status  int
	header  http.Header
	cookies []*http.Cookie
	body    []byte
}

func (response apiResponse) decode(t *testing.T) map[string]any {
	t.Helper()
	payload := map[string]any{}
	if err := json.Unmarshal(response.body, &payload); err != nil {
		t.Fatalf("decode response body %q: %v", string(response.body), err)
	}
	return payload
}

func (response apiResponse) sessionCookie() string {
	cookie := responseCookie(response.cookies, sessionCookieName)
	if cookie == nil {
		return ""
	}
	return cookie.Value
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func (shrine *testShrine) do(t *testing.T, request *http.Request, session string) apiResponse {
	t.Helper()

	if session != "" {
		request.Header.Set("Cookie", sessionCookieName+"="+session)
	}
	response, err := shrine.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", request.Method, request.URL.Path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("%s %s read body failed: %v", request.Method, request.URL.Path, err)
	}
	return apiResponse{
		status:  response.StatusCode,
		header:  response.Header,
		cookies: response.Cookies(),
		body:    body,
	}
}

func (shrine *testShrine) sendJSON(t *testing.T, method string, path string, session string, payload any) apiResponse {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, body)
	if payload != nil {
		request.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	}
	return shrine.do(t, request, session)
}

func (shrine *testShrine) upload(t *testing.T, path string, session string, field string, content []byte) apiResponse {
	t.Helper()

	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)
	part, err := writer.CreateFormFile(field, field+".png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	request := httptest.NewRequest(http.MethodPut, path, buffer)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return shrine.do(t, request, session)
}

func (shrine *testShrine) loginVillager(t *testing.T, email string) apiResponse {
	t.Helper()
	return shrine.sendJSON(t, http.MethodPost, "/api/session/login", "", map[string]string{
		"email":    email,
		"passcode": models.DefaultUserPasscode,
	})
}

func (shrine *testShrine) loginAdmin(t *testing.T) string {
	t.Helper()

	response := shrine.sendJSON(t, http.MethodPost, "/api/session/admin", "", map[string]string{
		"passcode": testAdminPasscode,
	})
	if response.status != fiber.StatusOK {
		t.Fatalf("admin login expected 200, got %d: %s", response.status, string(response.body))
	}
	session := response.sessionCookie()
	if session == "" {
		t.Fatal("expected admin session cookie")
	}
	return session
}

func assertSessionCleared(t *testing.T, response apiResponse) {
	t.Helper()
	cookie := responseCookie(response.cookies, sessionCookieName)
	if cookie == nil {
		t.Fatal("expected session cookie to be cleared")
	}
	if cookie.Expires.After(time.Now()) {
		t.Fatalf("expected expired session cookie, got expiry %s", cookie.Expires)
	}
}

func fakePNG(size int) []byte {
	image := make([]byte, size)
	copy(image, []byte("\x89PNG\r\n\x1a\n"))
	return image
}

func assertErrorCode(t *testing.T, response apiResponse, status int, code string) {
	t.Helper()
	if response.status != status {
		t.Fatalf("expected status %d, got %d: %s", status, response.status, string(response.body))
	}
	if got := response.decode(t)["error"]; got != code {
		t.Fatalf("expected error %q, got %v", code, got)
	}
}

func containsAll(text string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(text, part) {
			return false
		}
	}
	return true
}
