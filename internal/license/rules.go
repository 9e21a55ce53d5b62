package license

import (
	"time"

	"licenser/pkg/contracts/domain"
)

// StatusOf decides the validity of a license record at the given time.
// A missing record is Invalid. A record whose expiry date is strictly
// before now is Expired; a nil expiry date means a perpetual license.
// The boundary case expiry == now is Valid: strict less-than is the
// expiry test.
func StatusOf(lic *domain.License, now time.Time) domain.LicenseStatus {
	if lic == nil {
		return domain.LicenseInvalid
	}
	if lic.ExpiryDate != nil && lic.ExpiryDate.Before(now) {
		return domain.LicenseExpired
	}
	return domain.LicenseValid
}
