package security

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	mgr := NewTokenManager("test-secret")

	token, err := mgr.Sign("owner-42", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	ownerID, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ownerID != "owner-42" {
		t.Errorf("owner = %q, want owner-42", ownerID)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a").Sign("owner-1", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = NewTokenManager("secret-b").Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	mgr := NewTokenManager("test-secret")

	token, err := mgr.Sign("owner-1", -time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	_, err = mgr.Verify(token)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenRejectsGarbage(t *testing.T) {
	mgr := NewTokenManager("test-secret")

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := mgr.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("owner-1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("owner-1") {
		t.Error("request over budget should be denied")
	}

	// Other keys have their own budget
	if !rl.Allow("owner-2") {
		t.Error("separate key should not share the budget")
	}
}
