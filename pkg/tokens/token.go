package tokens

import "time"

// AuthToken is the persisted OAuth credential pair. The refresh token is
// treated as non-expiring; Reddit may rotate it during a refresh exchange
// and the newest value is always the one persisted.
type AuthToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the access token is past (or within margin of)
// its expiry.
func (t *AuthToken) Expired(margin time.Duration) bool {
	if t.AccessToken == "" {
		return true
	}
	return time.Now().Add(margin).Unix() >= t.ExpiresAt
}

// Store persists the credential record. Load returns (nil, nil) when no
// record exists; Save must be atomic so a crash mid-write cannot corrupt
// the stored credential.
type Store interface {
	Load() (*AuthToken, error)
	Save(token *AuthToken) error
	Exists() bool
}
