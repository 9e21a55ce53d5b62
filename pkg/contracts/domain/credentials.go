package domain

import "time"

// Credentials identifies an end user against the identity provider.
// ID, UserName and Email are enriched from the provider's userinfo
// response after a successful password grant; Password is transient and
// only ever persisted inside the encrypted credential blob.
type Credentials struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Token is the provider-issued token pair held by the token client.
// It is replaced wholesale on every authenticate or refresh and is
// never persisted to disk.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	Expiry       time.Time `json:"-"`
}

// Expired reports whether the token's expiry has passed. A zero Expiry
// means the provider supplied no lifetime and the token is treated as
// live.
func (t *Token) Expired(now time.Time) bool {
	if t == nil {
		return true
	}
	if t.Expiry.IsZero() {
		return false
	}
	return t.Expiry.Before(now)
}
