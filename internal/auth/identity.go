package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"maipocket-quiz/internal/domain"
)

// DeviceHeader carries the anonymous player's install id. Clients that cannot set
// headers, such as browser websockets, send DeviceParam instead.
const (
	DeviceHeader = "X-Device-ID"
	DeviceParam  = "device"
)

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// Verifier resolves bearer tokens into players.
//
// With a secret, tokens must carry a valid HMAC signature. Without one, tokens are
// only trusted when backendVerifies is set: the token is then forwarded on every
// backend call and the backend rejects forgeries. Otherwise every caller is anonymous.
type Verifier struct {
	key             []byte
	backendVerifies bool
}

func NewVerifier(secret string, backendVerifies bool) *Verifier {
	v := &Verifier{backendVerifies: backendVerifies}
	if secret != "" {
		v.key = []byte(secret)
	}
	return v
}

// PlayerFromRequest resolves who is playing.
func (v *Verifier) PlayerFromRequest(r *http.Request, now time.Time) domain.Player {
	if token, ok := bearer(r.Header.Get("Authorization")); ok {
		if player, ok := v.PlayerFromToken(token, now); ok {
			return player
		}
	}
	device := r.Header.Get(DeviceHeader)
	if device == "" {
		device = r.URL.Query().Get(DeviceParam)
	}
	return Anonymous(device)
}

// PlayerFromToken reads the subject of an unexpired, acceptable token.
func (v *Verifier) PlayerFromToken(token string, now time.Time) (domain.Player, bool) {
	claims := &jwt.RegisteredClaims{}
	switch {
	case v.key != nil:
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return v.key, nil
		}, jwt.WithValidMethods(hmacMethods), jwt.WithTimeFunc(func() time.Time { return now }))
		if err != nil {
			return domain.Player{}, false
		}
	case v.backendVerifies:
		parsed, _, err := jwt.NewParser().ParseUnverified(token, claims)
		if err != nil || parsed.Method == nil || parsed.Method.Alg() == jwt.SigningMethodNone.Alg() {
			return domain.Player{}, false
		}
		if claims.ExpiresAt != nil && !claims.ExpiresAt.After(now) {
			return domain.Player{}, false
		}
	default:
		return domain.Player{}, false
	}
	if claims.Subject == "" {
		return domain.Player{}, false
	}
	return domain.Player{ID: claims.Subject, Token: token, Authenticated: true}, true
}

// Anonymous keys a player by device id, or by a fresh id when none is sent.
func Anonymous(deviceID string) domain.Player {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	return domain.Player{ID: "device:" + deviceID}
}

func bearer(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
