package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"licenser/pkg/contracts/domain"
)

type stubFingerprinter struct {
	id  string
	err error
}

func (s stubFingerprinter) MachineID() (string, error) {
	return s.id, s.err
}

func newTestClient(t *testing.T, apiURL, product string, fp stubFingerprinter) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIBaseURL:   apiURL,
		AuthorityURL: "http://authority.invalid",
		ProductName:  product,
	}, fp, discardLogger())
	require.NoError(t, err)
	return c
}

func TestCheckLicenseSendsMachineBoundPayload(t *testing.T) {
	var got domain.License
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/licenses/check", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(domain.OK("Returned license status", domain.LicenseValid))
	}))
	t.Cleanup(api.Close)

	c := newTestClient(t, api.URL, "analyzer", stubFingerprinter{id: "machine-1"})
	c.SetAccessToken("tok1")

	resp := c.CheckLicense(context.Background())

	require.False(t, resp.IsError(), resp.Message)
	assert.Equal(t, domain.LicenseValid, resp.Data)
	assert.Equal(t, "machine-1", got.MachineID)
	assert.Equal(t, "analyzer", got.ProductName)
}

func TestCheckLicenseEmptyProductName(t *testing.T) {
	c := newTestClient(t, "http://api.invalid", "   ", stubFingerprinter{id: "machine-1"})
	c.SetAccessToken("tok1")

	resp := c.CheckLicense(context.Background())

	require.True(t, resp.IsError())
	assert.Equal(t, domain.ErrKindInvalidArgument, resp.Kind)
	assert.Equal(t, "Product name is empty", resp.Message)
}

func TestCheckLicenseFingerprintFailure(t *testing.T) {
	c := newTestClient(t, "http://api.invalid", "analyzer",
		stubFingerprinter{err: errors.New("no network interfaces")})
	c.SetAccessToken("tok1")

	resp := c.CheckLicense(context.Background())

	require.True(t, resp.IsError())
	assert.Equal(t, domain.ErrKindUnknown, resp.Kind)
}

func TestCreateActivationRequestCarriesCredentials(t *testing.T) {
	var got domain.ActivationRequest
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/licenses/sendActivationRequest", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(domain.OK("Activation request created", domain.RequestCreated))
	}))
	t.Cleanup(api.Close)

	c := newTestClient(t, api.URL, "analyzer", stubFingerprinter{id: "machine-1"})
	c.SetAccessToken("tok1")
	c.mu.Lock()
	c.creds = &domain.Credentials{ID: "u1", UserName: "alice"}
	c.mu.Unlock()

	resp := c.CreateActivationRequest(context.Background())

	require.False(t, resp.IsError(), resp.Message)
	assert.Equal(t, domain.RequestCreated, resp.Data)
	assert.Equal(t, "machine-1", got.ActivationID)
	assert.Equal(t, "u1", got.RequestedClientID)
	assert.Equal(t, "alice", got.RequestedClientUserName)
	assert.Equal(t, "analyzer", got.ProductName)
}

func TestCreateActivationRequestEmptyProductName(t *testing.T) {
	c := newTestClient(t, "http://api.invalid", "", stubFingerprinter{id: "machine-1"})
	c.SetAccessToken("tok1")

	resp := c.CreateActivationRequest(context.Background())

	require.True(t, resp.IsError())
	assert.Equal(t, "Product name is empty", resp.Message)
}

func TestAdminOperationsHitExpectedRoutes(t *testing.T) {
	var paths []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/v1/licenses":
			if r.Method == http.MethodGet {
				json.NewEncoder(w).Encode(domain.OK("Returned licenses", []*domain.License{}))
				return
			}
			json.NewEncoder(w).Encode(domain.OK("License issued", &domain.License{ID: "lic-1"}))
		case "/v1/licenses/activationRequests":
			json.NewEncoder(w).Encode(domain.OK("Returned requests", []*domain.ActivationRequest{}))
		default:
			json.NewEncoder(w).Encode(domain.OK("ok", domain.Unit{}))
		}
	}))
	t.Cleanup(api.Close)

	c := newTestClient(t, api.URL, "analyzer", stubFingerprinter{id: "machine-1"})
	c.SetAccessToken("admin-tok")
	ctx := context.Background()

	assert.False(t, c.GetLicenses(ctx).IsError())
	assert.False(t, c.IssueLicense(ctx, &domain.License{MachineID: "m", OwnerID: "u", ProductName: "analyzer"}).IsError())
	assert.False(t, c.DeleteLicense(ctx, "lic-1").IsError())
	assert.False(t, c.GetActivationRequests(ctx).IsError())
	assert.False(t, c.DeleteActivationRequest(ctx, "req-1").IsError())

	assert.Equal(t, []string{
		"GET /v1/licenses",
		"POST /v1/licenses",
		"DELETE /v1/licenses/lic-1",
		"GET /v1/licenses/activationRequests",
		"DELETE /v1/licenses/activationRequest/req-1",
	}, paths)
}
