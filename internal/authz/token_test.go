package authz

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

func TestRunCredentialRoundTrip(t *testing.T) {
	viewToken, err := NewViewToken()
	if err != nil {
		t.Fatalf("NewViewToken: %v", err)
	}

	signed, exp, err := IssueRunCredential(testSecret, "run-1", viewToken, time.Hour)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Fatalf("unexpected expiry %v", exp)
	}

	claims, err := ParseRunCredential(testSecret, signed)
	if err != nil {
		t.Fatalf("ParseRunCredential: %v", err)
	}
	if claims.RunID != "run-1" || claims.ViewToken != viewToken {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.IsExpired(time.Now()) {
		t.Fatal("fresh credential reported expired")
	}
}

func TestExpiredCredentialIsDistinguishable(t *testing.T) {
	signed, _, err := IssueRunCredential(testSecret, "run-1", "vt", -time.Minute)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}
	_, err = ParseRunCredential(testSecret, signed)
	if !errors.Is(err, ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	signed, _, err := IssueRunCredential(testSecret, "run-1", "vt", time.Hour)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}
	_, err = ParseRunCredential("other-secret", signed)
	if !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestProducerTokenNotAcceptedAsViewCredential(t *testing.T) {
	signed, err := IssueProducerToken(testSecret, "run-1", time.Hour)
	if err != nil {
		t.Fatalf("IssueProducerToken: %v", err)
	}
	if _, err := ParseRunCredential(testSecret, signed); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("producer token accepted as view credential: %v", err)
	}
	runID, err := ParseProducerToken(testSecret, signed)
	if err != nil || runID != "run-1" {
		t.Fatalf("producer token rejected on its own route: %v", err)
	}
}

func TestViewCredentialNotAcceptedAsProducerToken(t *testing.T) {
	signed, _, err := IssueRunCredential(testSecret, "run-1", "vt", time.Hour)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}
	if _, err := ParseProducerToken(testSecret, signed); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("view credential accepted on ingest route: %v", err)
	}
}

func TestCredentialWithoutExpiryRejected(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "run-1",
		"vt":  "vt",
		"aud": viewerAudience,
		"iss": tokenIssuer,
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseRunCredential(testSecret, signed); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("credential without exp must be rejected, got %v", err)
	}
}

func TestExpiryClaimRoundTripsThroughParse(t *testing.T) {
	signed, issuedExp, err := IssueRunCredential(testSecret, "run-1", "vt", time.Hour)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}
	claims, err := ParseRunCredential(testSecret, signed)
	if err != nil {
		t.Fatalf("ParseRunCredential: %v", err)
	}
	// exp is carried at second precision in the claim set.
	if claims.ExpiresAt.Unix() != issuedExp.Unix() {
		t.Fatalf("expiry drifted through parse: issued %v, parsed %v", issuedExp, claims.ExpiresAt)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	if _, err := ParseRunCredential(testSecret, "not.a.token"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}
