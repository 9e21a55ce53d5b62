package apiclient

import (
	"context"
	"log/slog"
	"strings"

	"licenser/internal/security"
	"licenser/pkg/contracts/domain"
)

const msgEmptyProductName = "Product name is empty"

// Client is the license API facade host applications embed. It binds
// the token client to a device fingerprint and a configured product
// name, and exposes the license operations as envelope-returning
// calls.
type Client struct {
	*TokenClient
	fingerprinter security.Fingerprinter
	logger        *slog.Logger
}

// NewClient builds the facade. The fingerprinter supplies the machine
// identity every license operation is bound to.
func NewClient(opts Options, fp security.Fingerprinter, logger *slog.Logger) (*Client, error) {
	tc, err := NewTokenClient(opts, logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		TokenClient:   tc,
		fingerprinter: fp,
		logger:        logger.With(slog.String("component", "api_client")),
	}, nil
}

// GetProductName returns the product name this client was configured
// for.
func (c *Client) GetProductName() string {
	return c.opts.ProductName
}

// CheckLicense asks the server for the status of this machine's
// license for the configured product. The owner is taken from the
// authenticated credentials.
func (c *Client) CheckLicense(ctx context.Context) domain.Response[domain.LicenseStatus] {
	if strings.TrimSpace(c.opts.ProductName) == "" {
		return domain.Err[domain.LicenseStatus](domain.ErrKindInvalidArgument, msgEmptyProductName)
	}

	machineID, err := c.fingerprinter.MachineID()
	if err != nil {
		return domain.Err[domain.LicenseStatus](domain.ErrKindUnknown, err.Error())
	}

	lic := &domain.License{
		MachineID:   machineID,
		ProductName: c.opts.ProductName,
	}
	if creds := c.Credentials(); creds != nil {
		lic.OwnerID = creds.ID
		lic.OwnerUserName = creds.UserName
		lic.OwnerEmail = creds.Email
	}

	return post[domain.LicenseStatus](ctx, c.TokenClient, "licenses/check", lic)
}

// CreateActivationRequest submits an activation request for this
// machine and the configured product.
func (c *Client) CreateActivationRequest(ctx context.Context) domain.Response[domain.ActivationRequestStatus] {
	if strings.TrimSpace(c.opts.ProductName) == "" {
		return domain.Err[domain.ActivationRequestStatus](domain.ErrKindInvalidArgument, msgEmptyProductName)
	}

	machineID, err := c.fingerprinter.MachineID()
	if err != nil {
		return domain.Err[domain.ActivationRequestStatus](domain.ErrKindUnknown, err.Error())
	}

	req := &domain.ActivationRequest{
		ActivationID: machineID,
		ProductName:  c.opts.ProductName,
	}
	if creds := c.Credentials(); creds != nil {
		req.RequestedClientID = creds.ID
		req.RequestedClientUserName = creds.UserName
	}

	return post[domain.ActivationRequestStatus](ctx, c.TokenClient, "licenses/sendActivationRequest", req)
}

// Administrative operations. These require a token carrying the admin
// role; the server rejects them otherwise.

// GetLicenses lists every license on the server.
func (c *Client) GetLicenses(ctx context.Context) domain.Response[[]*domain.License] {
	return get[[]*domain.License](ctx, c.TokenClient, "licenses")
}

// GetLicense fetches a single license by id.
func (c *Client) GetLicense(ctx context.Context, id string) domain.Response[*domain.License] {
	return get[*domain.License](ctx, c.TokenClient, "licenses/"+id)
}

// IssueLicense creates or renews a license. Issuing also clears any
// pending activation request for the same triple on the server.
func (c *Client) IssueLicense(ctx context.Context, lic *domain.License) domain.Response[*domain.License] {
	return post[*domain.License](ctx, c.TokenClient, "licenses", lic)
}

// UpdateLicense replaces the expiry of an existing license.
func (c *Client) UpdateLicense(ctx context.Context, lic *domain.License) domain.Response[*domain.License] {
	return put[*domain.License](ctx, c.TokenClient, "licenses/"+lic.ID, lic)
}

// DeleteLicense removes a license by id.
func (c *Client) DeleteLicense(ctx context.Context, id string) domain.Response[domain.Unit] {
	return del[domain.Unit](ctx, c.TokenClient, "licenses/"+id)
}

// GetActivationRequests lists the pending activation requests.
func (c *Client) GetActivationRequests(ctx context.Context) domain.Response[[]*domain.ActivationRequest] {
	return get[[]*domain.ActivationRequest](ctx, c.TokenClient, "licenses/activationRequests")
}

// DeleteActivationRequest discards a pending activation request.
func (c *Client) DeleteActivationRequest(ctx context.Context, id string) domain.Response[domain.Unit] {
	return del[domain.Unit](ctx, c.TokenClient, "licenses/activationRequest/"+id)
}
