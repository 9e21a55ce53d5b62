package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"licenser/pkg/contracts/domain"
)

func TestStatusOf(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Second)
	future := now.Add(24 * time.Hour)
	boundary := now

	tests := []struct {
		name string
		lic  *domain.License
		want domain.LicenseStatus
	}{
		{
			name: "missing license is invalid",
			lic:  nil,
			want: domain.LicenseInvalid,
		},
		{
			name: "nil expiry is perpetual",
			lic:  &domain.License{ProductName: "analyzer"},
			want: domain.LicenseValid,
		},
		{
			name: "future expiry is valid",
			lic:  &domain.License{ProductName: "analyzer", ExpiryDate: &future},
			want: domain.LicenseValid,
		},
		{
			name: "past expiry is expired",
			lic:  &domain.License{ProductName: "analyzer", ExpiryDate: &past},
			want: domain.LicenseExpired,
		},
		{
			name: "expiry exactly now is still valid",
			lic:  &domain.License{ProductName: "analyzer", ExpiryDate: &boundary},
			want: domain.LicenseValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.lic, now))
		})
	}
}

func TestStatusOfDoesNotMutate(t *testing.T) {
	expiry := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lic := &domain.License{ProductName: "analyzer", ExpiryDate: &expiry}

	_ = StatusOf(lic, expiry.Add(time.Hour))
	_ = StatusOf(lic, expiry.Add(-time.Hour))

	assert.Equal(t, expiry, *lic.ExpiryDate)
}
