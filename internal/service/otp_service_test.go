package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/civicnet/civicconnect-api/pkg/errors"
)

type fakeOTPStore struct {
	values   map[string]string
	counters map[string]int64
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{values: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeOTPStore) SetString(_ context.Context, key, value string, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeOTPStore) GetString(_ context.Context, key string) (string, error) {
	if value, ok := f.values[key]; ok {
		return value, nil
	}
	return "", appErrors.ErrCacheMiss
}

func (f *fakeOTPStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.counters[key]++
	return f.counters[key], nil
}

func (f *fakeOTPStore) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	delete(f.counters, key)
	return nil
}

func TestOTPGenerateAndVerify(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store, nil, OTPConfig{})

	code, err := svc.Generate(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	require.NoError(t, svc.Verify(context.Background(), "asha@example.com", code))

	// Codes are single use.
	err = svc.Verify(context.Background(), "asha@example.com", code)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestOTPVerifyWrongCode(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store, nil, OTPConfig{})

	code, err := svc.Generate(context.Background(), "asha@example.com")
	require.NoError(t, err)

	err = svc.Verify(context.Background(), "asha@example.com", "000000")
	if code == "000000" {
		t.Skip("generated code collided with the guess")
	}
	require.Error(t, err)

	// The stored code survives a single failure.
	require.NoError(t, svc.Verify(context.Background(), "asha@example.com", code))
}

func TestOTPVerifyExhaustsAttempts(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store, nil, OTPConfig{MaxAttempts: 2})

	code, err := svc.Generate(context.Background(), "asha@example.com")
	require.NoError(t, err)
	if code == "000000" {
		t.Skip("generated code collided with the guess")
	}

	require.Error(t, svc.Verify(context.Background(), "asha@example.com", "000000"))
	require.Error(t, svc.Verify(context.Background(), "asha@example.com", "000000"))

	// The code was invalidated on the final attempt.
	err = svc.Verify(context.Background(), "asha@example.com", code)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestOTPVerifyWithoutGenerate(t *testing.T) {
	svc := NewOTPService(newFakeOTPStore(), nil, OTPConfig{})

	err := svc.Verify(context.Background(), "nobody@example.com", "123456")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestOTPGenerateReplacesPreviousCode(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store, nil, OTPConfig{})

	first, err := svc.Generate(context.Background(), "asha@example.com")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "asha@example.com")
	require.NoError(t, err)
	if first == second {
		t.Skip("consecutive codes collided")
	}

	require.Error(t, svc.Verify(context.Background(), "asha@example.com", first))
	require.NoError(t, svc.Verify(context.Background(), "asha@example.com", second))
}
