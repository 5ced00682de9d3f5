// Package auth implements the opaque bearer-token scheme: secret generation,
// one-way hashing, the "<id>|<secret>" wire codec, and the rule binding token
// types to endpoints.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tileschb/larang-api/internal/apperrors"
	"github.com/tileschb/larang-api/internal/server/models"
)

// RefreshRouteSuffix marks the rotation endpoint. Route names ending with it
// accept refresh tokens only; every other route accepts auth tokens only.
const RefreshRouteSuffix = "token-refresh"

// NewSecret returns a random opaque token secret.
func NewSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HashSecret returns the hex-encoded SHA-256 hash of the secret. Only this
// value is ever persisted.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// FormatPlaintext builds the client-facing token string "<id>|<secret>".
// The id prefix makes resolution a primary-key lookup instead of a scan.
func FormatPlaintext(id int64, secret string) string {
	return strconv.FormatInt(id, 10) + "|" + secret
}

// ParsePlaintext splits a presented token into record id and secret.
// Any malformed input yields apperrors.ErrInvalidToken.
func ParsePlaintext(plain string) (int64, string, error) {
	idPart, secret, ok := strings.Cut(plain, "|")
	if !ok || secret == "" {
		return 0, "", apperrors.ErrInvalidToken
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", apperrors.ErrInvalidToken
	}
	return id, secret, nil
}

// SecretMatches compares the presented secret against a stored hash in
// constant time.
func SecretMatches(tokenHash, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(tokenHash), []byte(HashSecret(secret))) == 1
}

// AllowsRoute decides whether a resolved token may authenticate the named
// route: the token must be non-expired, and refresh tokens are accepted on
// the rotation endpoint and nowhere else (and vice versa for auth tokens).
func AllowsRoute(t *models.TokenRecord, routeName string) bool {
	if t.Expired() {
		return false
	}
	if strings.HasSuffix(routeName, RefreshRouteSuffix) {
		return t.IsRefresh()
	}
	return t.IsAuth()
}
