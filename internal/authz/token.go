package authz

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	viewerAudience   = "run-viewer"
	producerAudience = "producer"
	tokenIssuer      = "hireloop-api"
)

var (
	// ErrCredentialExpired marks a structurally valid credential whose
	// lifetime has passed. Terminal: the caller must restart the search.
	ErrCredentialExpired = errors.New("run credential expired")
	// ErrInvalidCredential covers every other rejection (bad signature,
	// wrong audience, malformed claims).
	ErrInvalidCredential = errors.New("invalid run credential")
)

// RunClaims is the decoded content of a run-scoped view credential.
type RunClaims struct {
	RunID     string
	ViewToken string
	ExpiresAt time.Time
}

// IsExpired reports whether the credential is unusable at the given instant.
func (c RunClaims) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// NewViewToken returns a fresh random view token. The raw token is stored on
// the run row and embedded in the signed credential; possession of a valid
// credential for run X grants reads of run X's data and nothing else.
func NewViewToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// IssueRunCredential mints the short-lived credential handed back from the
// run-start response. There is no refresh path; once expired the viewer has
// to initiate a new search.
func IssueRunCredential(secret, runID, viewToken string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": runID,
		"vt":  viewToken,
		"aud": viewerAudience,
		"iss": tokenIssuer,
		"exp": exp.Unix(),
		"iat": time.Now().Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseRunCredential verifies a view credential and returns its claims.
// Expiry is reported as ErrCredentialExpired so callers can distinguish the
// terminal case from garbage input.
func ParseRunCredential(secret, tokenString string) (RunClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return RunClaims{}, ErrCredentialExpired
		}
		return RunClaims{}, ErrInvalidCredential
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return RunClaims{}, ErrInvalidCredential
	}
	if !claims.VerifyAudience(viewerAudience, true) {
		return RunClaims{}, ErrInvalidCredential
	}
	runID, _ := claims["sub"].(string)
	viewToken, _ := claims["vt"].(string)
	if runID == "" || viewToken == "" {
		return RunClaims{}, ErrInvalidCredential
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return RunClaims{}, ErrInvalidCredential
	}
	return RunClaims{RunID: runID, ViewToken: viewToken, ExpiresAt: time.Unix(int64(exp), 0)}, nil
}

// IssueProducerToken mints the short-lived token the engine presents on the
// ingest callbacks for one run.
func IssueProducerToken(secret, runID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": runID,
		"aud": producerAudience,
		"iss": tokenIssuer,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseProducerToken verifies an ingest token and returns the run it is
// scoped to.
func ParseProducerToken(secret, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidCredential
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !claims.VerifyAudience(producerAudience, true) {
		return "", ErrInvalidCredential
	}
	runID, _ := claims["sub"].(string)
	if runID == "" {
		return "", ErrInvalidCredential
	}
	return runID, nil
}
