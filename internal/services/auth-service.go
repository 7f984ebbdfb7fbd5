package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/WinterTamarind/auth_service/internal/domain"
	"github.com/WinterTamarind/auth_service/internal/dto"
	"github.com/WinterTamarind/auth_service/internal/helper"
	"github.com/WinterTamarind/auth_service/internal/helper/utils"
	"github.com/WinterTamarind/auth_service/internal/interfaces"
	"github.com/WinterTamarind/auth_service/internal/repository"
	"github.com/google/uuid"
)

type AuthService interface {
	Register(input dto.RegisterRequest) error
	VerifyOtp(email, code string) (string, error)
	Login(input dto.UserLogin) (string, error)
	Authenticate(token string) (*domain.User, error)
}

type authService struct {
	repo     repository.UserRepository
	producer interfaces.ProducerHandler
	auth     helper.Auth
}

func NewAuthService(
	repo repository.UserRepository,
	producer interfaces.ProducerHandler,
	auth helper.Auth,
) AuthService {
	return &authService{
		repo:     repo,
		producer: producer,
		auth:     auth,
	}
}

func (s *authService) Register(input dto.RegisterRequest) error {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))

	if name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := utils.ExtractEmailDomain(email); err != nil {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if len(input.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}

	hashedPassword, err := s.auth.Hash(input.Password)
	if err != nil {
		return err
	}

	usr, err := s.repo.CreateUser(&domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashedPassword,
		IsVerified:   false,
	})
	if err != nil {
		return err
	}
	if usr == nil || usr.ID == 0 {
		return errors.New("failed to create user")
	}

	return s.issueOtp(usr)
}

// issueOtp stores the hashed code and expiry before any delivery is
// attempted. A publish failure is surfaced to the caller but the stored OTP
// stays in place, so the user can still verify if the mail went out late.
func (s *authService) issueOtp(usr *domain.User) error {
	code, err := s.auth.GenerateOtp()
	if err != nil {
		return err
	}
	codeHash, err := s.auth.Hash(code)
	if err != nil {
		return err
	}
	expiry := time.Now().Add(helper.OtpTTL)

	if err := s.repo.SetOtp(usr.ID, codeHash, expiry); err != nil {
		return err
	}

	event := dto.OtpEmailEvent{
		EventID:   uuid.NewString(),
		UserID:    usr.ID,
		Email:     usr.Email,
		Otp:       code,
		ExpiresAt: expiry.Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.ErrNotificationFailed
	}

	if s.producer != nil {
		if err := s.producer.PublishMessage([]byte("user.send_otp"), payload); err != nil {
			log.Printf("publish otp event error: %v", err)
			return domain.ErrNotificationFailed
		}
	}

	return nil
}

// VerifyOtp checks existence, then expiry, then the code itself, in that
// order: an expired-but-wrong submission reports expiry, not a bad code.
func (s *authService) VerifyOtp(email, code string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	code = strings.TrimSpace(code)

	if email == "" || code == "" {
		return "", fmt.Errorf("%w: email and otp are required", domain.ErrValidation)
	}

	user, err := s.repo.FindUserByEmail(email)
	if err != nil {
		return "", err
	}

	if user.OtpHash == nil || user.OtpExpiresAt == nil || !time.Now().Before(*user.OtpExpiresAt) {
		return "", domain.ErrOtpExpired
	}

	if err := s.auth.Verify(code, *user.OtpHash); err != nil {
		return "", domain.ErrOtpInvalid
	}

	token, err := s.auth.GenerateSessionToken()
	if err != nil {
		return "", errors.New("failed to generate session token")
	}

	consumed, err := s.repo.ConsumeOtp(user.ID, *user.OtpHash, token)
	if err != nil {
		return "", err
	}
	if !consumed {
		// a concurrent request already used this code
		return "", domain.ErrOtpExpired
	}

	return token, nil
}

func (s *authService) Login(input dto.UserLogin) (string, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	// checked exactly as submitted; Register hashed the raw password
	password := input.Password

	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	// unknown email and wrong password are indistinguishable on purpose
	user, err := s.repo.FindUserByEmail(email)
	if err != nil || user == nil || user.ID == 0 {
		return "", domain.ErrInvalidCredentials
	}
	if err := s.auth.Verify(password, user.PasswordHash); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return "", domain.ErrNotVerified
	}

	token, err := s.auth.GenerateSessionToken()
	if err != nil {
		return "", errors.New("failed to generate session token")
	}
	if err := s.repo.RotateSessionToken(user.ID, token); err != nil {
		return "", err
	}

	return token, nil
}

func (s *authService) Authenticate(token string) (*domain.User, error) {
	token = strings.TrimSpace(token)

	// support both:
	// - "Bearer <token>"
	// - "<token>"
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		parts := strings.SplitN(token, " ", 2)
		if len(parts) != 2 {
			return nil, domain.ErrUnauthorized
		}
		token = strings.TrimSpace(parts[1])
	}

	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.repo.FindUserBySessionToken(token)
	if err != nil || user == nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}
