package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type otpStore interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, key string) error
}

// OTPConfig tunes code lifetime and verification attempts.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

// OTPService issues and verifies 6-digit one-time codes backed by Redis.
type OTPService struct {
	store  otpStore
	logger *zap.Logger
	config OTPConfig
}

// NewOTPService constructs an OTPService instance.
func NewOTPService(store otpStore, logger *zap.Logger, config OTPConfig) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	return &OTPService{store: store, logger: logger, config: config}
}

// Generate creates and stores a fresh code for the subject, replacing any
// previous one.
func (s *OTPService) Generate(ctx context.Context, subject string) (string, error) {
	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	if err := s.store.SetString(ctx, otpKey(subject), code, s.config.TTL); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	if err := s.store.Delete(ctx, otpAttemptsKey(subject)); err != nil {
		s.logger.Warn("failed to reset otp attempts", zap.Error(err))
	}

	return code, nil
}

// Verify checks the submitted code. The code is consumed on success; after
// MaxAttempts failures it is invalidated.
func (s *OTPService) Verify(ctx context.Context, subject, code string) error {
	stored, err := s.store.GetString(ctx, otpKey(subject))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "otp expired or not requested")
		}
		return fmt.Errorf("load otp: %w", err)
	}

	if stored != code {
		attempts, err := s.store.Incr(ctx, otpAttemptsKey(subject), s.config.TTL)
		if err != nil {
			s.logger.Warn("failed to track otp attempts", zap.Error(err))
		}
		if attempts >= int64(s.config.MaxAttempts) {
			if err := s.store.Delete(ctx, otpKey(subject)); err != nil {
				s.logger.Warn("failed to invalidate otp", zap.Error(err))
			}
			return appErrors.Clone(appErrors.ErrUnauthorized, "too many invalid attempts, request a new otp")
		}
		return appErrors.Clone(appErrors.ErrUnauthorized, "invalid otp")
	}

	if err := s.store.Delete(ctx, otpKey(subject)); err != nil {
		s.logger.Warn("failed to consume otp", zap.Error(err))
	}
	if err := s.store.Delete(ctx, otpAttemptsKey(subject)); err != nil {
		s.logger.Warn("failed to clear otp attempts", zap.Error(err))
	}
	return nil
}

func otpKey(subject string) string {
	return "otp:" + subject
}

func otpAttemptsKey(subject string) string {
	return "otp:attempts:" + subject
}

func randomCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
