package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/mocks"
)

func TestOTPServiceImpl_Issue(t *testing.T) {
	store := mocks.NewMockOtpStore()
	svc := NewOTPService(store, OTPConfig{TTL: 5 * time.Minute})
	userID := uuid.New()

	for i := 0; i < 200; i++ {
		code, err := svc.Issue(context.Background(), userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil || n < 100000 || n > 999999 {
			t.Fatalf("code %q outside 100000-999999", code)
		}
	}

	if ttl := store.TTLs[userID.String()]; ttl != 5*time.Minute {
		t.Errorf("expected ttl 5m, got %v", ttl)
	}
}

func TestOTPServiceImpl_Issue_StoreFailure(t *testing.T) {
	store := mocks.NewMockOtpStore()
	store.PutFunc = func(ctx context.Context, key, code string, ttl time.Duration) error {
		return errors.New("redis down")
	}
	svc := NewOTPService(store, OTPConfig{TTL: time.Minute})

	if _, err := svc.Issue(context.Background(), uuid.New()); err == nil {
		t.Fatal("expected store failure to propagate")
	}
}

func TestOTPServiceImpl_Validate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name          string
		setup         func(svc domain.OTPService, store *mocks.MockOtpStore) string
		wantErr       bool
		expectedError error
	}{
		{
			name: "matching code",
			setup: func(svc domain.OTPService, store *mocks.MockOtpStore) string {
				code, _ := svc.Issue(ctx, userID)
				return code
			},
		},
		{
			name: "no challenge",
			setup: func(svc domain.OTPService, store *mocks.MockOtpStore) string {
				return "123456"
			},
			expectedError: domain.ErrInvalidOtp,
		},
		{
			name: "wrong code",
			setup: func(svc domain.OTPService, store *mocks.MockOtpStore) string {
				_ = store.Put(ctx, userID.String(), "111111", time.Minute)
				return "222222"
			},
			expectedError: domain.ErrInvalidOtp,
		},
		{
			name: "store error is not an otp failure",
			setup: func(svc domain.OTPService, store *mocks.MockOtpStore) string {
				store.TakeIfMatchFunc = func(ctx context.Context, key, expected string) (bool, error) {
					return false, errors.New("redis down")
				}
				return "123456"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockOtpStore()
			svc := NewOTPService(store, OTPConfig{TTL: time.Minute})
			code := tt.setup(svc, store)

			err := svc.Validate(ctx, userID, code)
			switch {
			case tt.wantErr:
				if err == nil || errors.Is(err, domain.ErrInvalidOtp) {
					t.Fatalf("expected infrastructure error, got %v", err)
				}
			case tt.expectedError != nil:
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected %v, got %v", tt.expectedError, err)
				}
			case err != nil:
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOTPServiceImpl_SingleUse(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(mocks.NewMockOtpStore(), OTPConfig{TTL: time.Minute})
	userID := uuid.New()

	code, err := svc.Issue(ctx, userID)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := svc.Validate(ctx, userID, code); err != nil {
		t.Fatalf("first validate failed: %v", err)
	}
	if err := svc.Validate(ctx, userID, code); !errors.Is(err, domain.ErrInvalidOtp) {
		t.Errorf("expected second validate to fail with ErrInvalidOtp, got %v", err)
	}
}

func TestOTPServiceImpl_Overwrite(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(mocks.NewMockOtpStore(), OTPConfig{TTL: time.Minute})
	userID := uuid.New()

	first, _ := svc.Issue(ctx, userID)
	second, _ := svc.Issue(ctx, userID)
	for first == second {
		second, _ = svc.Issue(ctx, userID)
	}

	if err := svc.Validate(ctx, userID, first); !errors.Is(err, domain.ErrInvalidOtp) {
		t.Errorf("expected superseded code to fail, got %v", err)
	}
	if err := svc.Validate(ctx, userID, second); err != nil {
		t.Errorf("expected latest code to validate, got %v", err)
	}
}

func TestOTPServiceImpl_KeyedByUser(t *testing.T) {
	ctx := context.Background()
	svc := NewOTPService(mocks.NewMockOtpStore(), OTPConfig{TTL: time.Minute})
	alice, mallory := uuid.New(), uuid.New()

	code, _ := svc.Issue(ctx, alice)
	if err := svc.Validate(ctx, mallory, code); !errors.Is(err, domain.ErrInvalidOtp) {
		t.Errorf("code issued to one user must not validate for another, got %v", err)
	}
}
