package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		token   *Token
		expired bool
	}{
		{"nil token", nil, true},
		{"zero expiry is live", &Token{AccessToken: "tok"}, false},
		{"future expiry", &Token{Expiry: now.Add(time.Hour)}, false},
		{"past expiry", &Token{Expiry: now.Add(-time.Second)}, true},
		{"boundary is live", &Token{Expiry: now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, tt.token.Expired(now))
		})
	}
}
