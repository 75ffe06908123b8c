package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSessionTokens_RoundTrip(t *testing.T) {
	tokens := NewSessionTokens(testSecret, time.Hour)

	token, err := tokens.Issue("user-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	userID, err := tokens.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("resolved user = %q, want user-42", userID)
	}
}

func TestSessionTokens_Rejections(t *testing.T) {
	tokens := NewSessionTokens(testSecret, time.Hour)

	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong secret", mustIssue(t, NewSessionTokens("ffffffffffffffffffffffffffffffff", time.Hour), "user-1")},
		{"expired", mustIssue(t, NewSessionTokens(testSecret, -time.Minute), "user-1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tokens.Resolve(tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func mustIssue(t *testing.T, tokens *SessionTokens, userID string) string {
	t.Helper()
	token, err := tokens.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return token
}

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{Cost: 4} // minimum cost keeps the test fast

	hash, err := hasher.Hash("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := hasher.Compare(hash, "hunter2"); err != nil {
		t.Errorf("compare with correct password: %v", err)
	}
	if err := hasher.Compare(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Errorf("compare with wrong password: error = %v, want ErrPasswordMismatch", err)
	}
}
