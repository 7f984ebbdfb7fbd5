package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/WinterTamarind/auth_service/internal/api/rest/handlers"
	"github.com/WinterTamarind/auth_service/internal/domain"
	"github.com/WinterTamarind/auth_service/internal/dto"
	"github.com/WinterTamarind/auth_service/internal/helper"
	"github.com/WinterTamarind/auth_service/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu     sync.Mutex
	users  map[uint]*domain.User
	nextID uint
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[uint]*domain.User{}, nextID: 1}
}

func (r *memRepo) CreateUser(user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	user.ID = r.nextID
	r.nextID++
	cp := *user
	r.users[user.ID] = &cp
	return user, nil
}

func (r *memRepo) FindUserByEmail(email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) FindUserBySessionToken(token string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.SessionToken != nil && *u.SessionToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRepo) SetOtp(userID uint, otpHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.OtpHash = &otpHash
	u.OtpExpiresAt = &expiresAt
	return nil
}

func (r *memRepo) ConsumeOtp(userID uint, otpHash string, sessionToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.OtpHash == nil || *u.OtpHash != otpHash {
		return false, nil
	}
	u.IsVerified = true
	u.OtpHash = nil
	u.OtpExpiresAt = nil
	u.SessionToken = &sessionToken
	return true, nil
}

func (r *memRepo) RotateSessionToken(userID uint, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.SessionToken = &token
	return nil
}

type memProducer struct {
	mu     sync.Mutex
	events []dto.OtpEmailEvent
}

func (p *memProducer) PublishMessage(key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var event dto.OtpEmailEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *memProducer) lastOtp(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	return p.events[len(p.events)-1].Otp
}

func newTestApp() (*fiber.App, *memProducer) {
	repo := newMemRepo()
	producer := &memProducer{}
	svc := services.NewAuthService(repo, producer, helper.SetupAuth())

	app := fiber.New()
	handlers.NewAuthHandler(svc).SetupRoutes(app)
	return app, producer
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestRegister_Endpoint(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp()

	status, body := doJSON(t, app, http.MethodPost, "/register", fiber.Map{
		"name": "Ann", "email": "ann@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, "User registered. OTP sent.", body["message"])

	// validation failures are 422
	status, _ = doJSON(t, app, http.MethodPost, "/register", fiber.Map{
		"name": "Ann", "email": "ann@x.com", "password": "five5",
	}, "")
	require.Equal(t, fiber.StatusUnprocessableEntity, status)

	// and so is a duplicate email
	status, _ = doJSON(t, app, http.MethodPost, "/register", fiber.Map{
		"name": "Ann2", "email": "ann@x.com", "password": "secret2",
	}, "")
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestVerifyOtp_EndpointStatusCodes(t *testing.T) {
	t.Parallel()

	app, producer := newTestApp()

	status, _ := doJSON(t, app, http.MethodPost, "/register", fiber.Map{
		"name": "Ann", "email": "ann@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = doJSON(t, app, http.MethodPost, "/verify-otp", fiber.Map{
		"email": "ghost@x.com", "otp": "123456",
	}, "")
	require.Equal(t, fiber.StatusNotFound, status)

	code := producer.lastOtp(t)
	wrong := "123456"
	if wrong == code {
		wrong = "654321"
	}
	status, _ = doJSON(t, app, http.MethodPost, "/verify-otp", fiber.Map{
		"email": "ann@x.com", "otp": wrong,
	}, "")
	require.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, body := doJSON(t, app, http.MethodPost, "/verify-otp", fiber.Map{
		"email": "ann@x.com", "otp": code,
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Email verified.", body["message"])
	require.NotEmpty(t, body["token"])
}

func TestLogin_EndpointStatusCodes(t *testing.T) {
	t.Parallel()

	app, producer := newTestApp()

	status, _ := doJSON(t, app, http.MethodPost, "/register", fiber.Map{
		"name": "Bob", "email": "bob@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusCreated, status)

	// unverified account is forbidden even with good credentials
	status, _ = doJSON(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "bob@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "bob@x.com", "password": "wrongpw",
	}, "")
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/verify-otp", fiber.Map{
		"email": "bob@x.com", "otp": producer.lastOtp(t),
	}, "")
	require.Equal(t, fiber.StatusOK, status)

	status, body := doJSON(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "bob@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Login successful", body["message"])
	require.NotEmpty(t, body["token"])
}

// The full walk: register, verify, profile, re-login, stale token rejected.
func TestAuthFlow_EndToEnd(t *testing.T) {
	t.Parallel()

	app, producer := newTestApp()

	status, _ := doJSON(t, app, http.MethodPost, "/register", fiber.Map{
		"name": "Ann", "email": "ann@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusCreated, status)

	status, body := doJSON(t, app, http.MethodPost, "/verify-otp", fiber.Map{
		"email": "ann@x.com", "otp": producer.lastOtp(t),
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	t1, _ := body["token"].(string)
	require.Len(t, t1, 60)

	status, body = doJSON(t, app, http.MethodGet, "/profile", nil, t1)
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "Ann", body["name"])
	require.Equal(t, "ann@x.com", body["email"])
	require.Equal(t, true, body["is_verified"])

	status, body = doJSON(t, app, http.MethodPost, "/login", fiber.Map{
		"email": "ann@x.com", "password": "secret1",
	}, "")
	require.Equal(t, fiber.StatusOK, status)
	t2, _ := body["token"].(string)
	require.NotEmpty(t, t2)
	require.NotEqual(t, t1, t2)

	// the verify-time token was rotated away by the login
	status, _ = doJSON(t, app, http.MethodGet, "/profile", nil, t1)
	require.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/profile", nil, "Bearer "+t2)
	require.Equal(t, fiber.StatusOK, status)
}

func TestProfile_Unauthorized(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp()

	status, body := doJSON(t, app, http.MethodGet, "/profile", nil, "")
	require.Equal(t, fiber.StatusUnauthorized, status)
	require.Equal(t, "unauthorized", body["message"])

	status, _ = doJSON(t, app, http.MethodGet, "/profile", nil, "never-issued")
	require.Equal(t, fiber.StatusUnauthorized, status)
}
