package repository

import (
	"errors"
	"log"
	"time"

	"github.com/WinterTamarind/auth_service/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type UserRepository interface {
	CreateUser(user *domain.User) (*domain.User, error)
	FindUserByEmail(email string) (*domain.User, error)
	FindUserBySessionToken(token string) (*domain.User, error)
	SetOtp(userID uint, otpHash string, expiresAt time.Time) error
	ConsumeOtp(userID uint, otpHash string, sessionToken string) (bool, error)
	RotateSessionToken(userID uint, token string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) CreateUser(user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, errors.New("nil user")
	}

	if err := r.db.Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		log.Printf("create user error: %v", err)
		return nil, errors.New("failed to create user")
	}

	return user, nil
}

func (r *userRepository) FindUserByEmail(email string) (*domain.User, error) {
	user := &domain.User{}

	if err := r.db.First(user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		log.Printf("find user by email error: %v", err)
		return nil, errors.New("failed to find user by email")
	}

	return user, nil
}

func (r *userRepository) FindUserBySessionToken(token string) (*domain.User, error) {
	user := &domain.User{}

	if err := r.db.Where("session_token = ?", token).First(user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		log.Printf("find user by session token error: %v", err)
		return nil, errors.New("failed to find user by session token")
	}

	return user, nil
}

// SetOtp replaces both OTP fields in a single update so a user never has a
// hash without an expiry or the other way around.
func (r *userRepository) SetOtp(userID uint, otpHash string, expiresAt time.Time) error {
	res := r.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"otp_hash":       otpHash,
			"otp_expires_at": expiresAt,
		})
	if res.Error != nil {
		log.Printf("set otp error: %v", res.Error)
		return errors.New("failed to store otp")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ConsumeOtp marks the user verified, clears the outstanding code and
// installs the session token in one guarded update. The otp_hash predicate
// makes concurrent verify attempts race on the row: only one wins, the rest
// see RowsAffected == 0.
func (r *userRepository) ConsumeOtp(userID uint, otpHash string, sessionToken string) (bool, error) {
	res := r.db.Model(&domain.User{}).
		Where("id = ? AND otp_hash = ?", userID, otpHash).
		Updates(map[string]interface{}{
			"is_verified":    true,
			"otp_hash":       nil,
			"otp_expires_at": nil,
			"session_token":  sessionToken,
		})
	if res.Error != nil {
		log.Printf("consume otp error: %v", res.Error)
		return false, errors.New("failed to consume otp")
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) RotateSessionToken(userID uint, token string) error {
	res := r.db.Model(&domain.User{}).
		Where("id = ?", userID).
		Update("session_token", token)
	if res.Error != nil {
		log.Printf("rotate session token error: %v", res.Error)
		return errors.New("failed to rotate session token")
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return false
}
