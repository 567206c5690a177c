package authz

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// credentialError is the machine-readable rejection body. The expired code
// is what tells the client to stop retrying and send the user back to the
// search form.
type credentialError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeCredentialExpired = "credential_expired"
	CodeCredentialInvalid = "credential_invalid"
)

func writeCredentialError(w http.ResponseWriter, err error) {
	code := CodeCredentialInvalid
	if errors.Is(err, ErrCredentialExpired) {
		code = CodeCredentialExpired
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(credentialError{Error: err.Error(), Code: code})
}

// credentialFromRequest extracts the bearer credential. Websocket clients
// cannot set headers, so a token query parameter is accepted as well.
func credentialFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// RequireRunAccess verifies the run-scoped credential and checks that it was
// issued for the run named in the route. Fails closed: no credential means
// no query is ever issued downstream.
func RequireRunAccess(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := credentialFromRequest(r)
			if tokenString == "" {
				writeCredentialError(w, ErrInvalidCredential)
				return
			}
			claims, err := ParseRunCredential(secret, tokenString)
			if err != nil {
				writeCredentialError(w, err)
				return
			}
			if runID := mux.Vars(r)["run_id"]; runID != "" && runID != claims.RunID {
				writeCredentialError(w, ErrInvalidCredential)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithRunClaims(r.Context(), claims)))
		})
	}
}

// AttachRunAccess parses a credential when one is present but lets the
// request through either way. Used on the job listing route, which serves
// both browse mode (unscoped, no credential) and run mode (scoped, the
// handler enforces the claim against the requested run).
func AttachRunAccess(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := credentialFromRequest(r); tokenString != "" {
				claims, err := ParseRunCredential(secret, tokenString)
				if err != nil {
					writeCredentialError(w, err)
					return
				}
				r = r.WithContext(WithRunClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireProducer guards the ingest callbacks with the producer token minted
// at dispatch time.
func RequireProducer(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := credentialFromRequest(r)
			if tokenString == "" {
				writeCredentialError(w, ErrInvalidCredential)
				return
			}
			runID, err := ParseProducerToken(secret, tokenString)
			if err != nil {
				writeCredentialError(w, err)
				return
			}
			if want := mux.Vars(r)["run_id"]; want != "" && want != runID {
				writeCredentialError(w, ErrInvalidCredential)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
