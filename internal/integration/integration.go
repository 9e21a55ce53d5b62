// Package integration is the embedding surface for host applications.
// A host binary wires a ClientIntegration at startup to gate features
// behind a valid license, launch the activator when activation is
// missing, and revalidate periodically in the background.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"licenser/internal/infrastructure"
	"licenser/internal/security"
	"licenser/pkg/contracts/domain"
)

// ActivatorSuccessExitCode is the exit code the activator binary
// returns when the machine holds a valid license. Host applications
// treat any other exit code as "not activated". The value is a fixed
// contract shared with every deployed activator; never change it.
//
// POSIX wait status truncates exit codes to 8 bits, so on anything but
// Windows the parent observes only the low byte of the sentinel. See
// observedSuccessExitCode.
const ActivatorSuccessExitCode = 19980729

// observedSuccessExitCode returns the sentinel as the parent process
// actually sees it after waiting on the activator: the full value on
// Windows, its low byte everywhere else.
func observedSuccessExitCode() int {
	if runtime.GOOS == "windows" {
		return ActivatorSuccessExitCode
	}
	return ActivatorSuccessExitCode & 0xFF
}

// ErrNotActivated is returned by StartActivator when the activator did
// not confirm a valid license. The host is expected to terminate.
var ErrNotActivated = errors.New("application is not activated")

// LicenseAPI is the slice of the SDK the integration needs. Satisfied
// by *apiclient.Client.
type LicenseAPI interface {
	IsAuthenticated() bool
	AuthenticatePassword(ctx context.Context, creds *domain.Credentials) domain.Response[*domain.Token]
	CheckLicense(ctx context.Context) domain.Response[domain.LicenseStatus]
	GetProductName() string
}

// Hooks are optional callbacks fired during validation. Nil hooks are
// skipped. Hooks run synchronously on the validating goroutine.
type Hooks struct {
	OnAuthorizing     func()
	OnCheckingLicense func()
	OnValid           func()
	OnExpired         func()
	OnInvalid         func()
	OnError           func(error)
}

// ClientIntegration validates the machine's license for one product on
// behalf of a host application.
type ClientIntegration struct {
	api           LicenseAPI
	credentials   *security.CredentialStore
	hooks         Hooks
	activatorPath string
	logger        *slog.Logger
}

// New creates a client integration. activatorPath may be empty when
// the host never launches the activator.
func New(api LicenseAPI, credentials *security.CredentialStore, hooks Hooks, activatorPath string, logger *slog.Logger) *ClientIntegration {
	return &ClientIntegration{
		api:           api,
		credentials:   credentials,
		hooks:         hooks,
		activatorPath: activatorPath,
		logger:        infrastructure.WithComponent(logger, "client_integration"),
	}
}

// ValidateLicense runs the full validation flow: load stored
// credentials, authenticate, check the license. It reports whether the
// machine currently holds a valid license.
//
// The method never panics and never returns an error: every failure
// path resolves to false, with the cause delivered to the OnError hook
// and the log. A host can therefore gate directly on the boolean.
func (ci *ClientIntegration) ValidateLicense(ctx context.Context) (valid bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("license validation panicked: %v", r)
			ci.logger.ErrorContext(ctx, "license validation panicked",
				slog.Any("panic", r))
			ci.fireError(err)
			valid = false
		}
	}()

	creds, err := ci.credentials.Load()
	if err != nil {
		ci.logger.ErrorContext(ctx, "credential load failed",
			slog.String("error", err.Error()))
		ci.fireError(err)
		return false
	}
	if creds == nil {
		// Never activated on this machine.
		ci.logger.InfoContext(ctx, "no stored credentials, license invalid")
		ci.fire(ci.hooks.OnInvalid)
		return false
	}

	ci.fire(ci.hooks.OnAuthorizing)
	if auth := ci.api.AuthenticatePassword(ctx, creds); auth.IsError() {
		ci.logger.WarnContext(ctx, "authentication failed",
			slog.String("message", auth.Message),
			slog.String("kind", string(auth.Kind)),
		)
		ci.fireError(errors.New(auth.Message))
		return false
	}

	ci.fire(ci.hooks.OnCheckingLicense)
	check := ci.api.CheckLicense(ctx)
	if check.IsError() {
		ci.logger.WarnContext(ctx, "license check failed",
			slog.String("message", check.Message),
			slog.String("kind", string(check.Kind)),
		)
		ci.fireError(errors.New(check.Message))
		return false
	}

	switch check.Data {
	case domain.LicenseValid:
		ci.fire(ci.hooks.OnValid)
		return true
	case domain.LicenseExpired:
		ci.logger.InfoContext(ctx, "license expired",
			slog.String("product", ci.api.GetProductName()))
		ci.fire(ci.hooks.OnExpired)
		return false
	default:
		ci.logger.InfoContext(ctx, "license invalid",
			slog.String("product", ci.api.GetProductName()))
		ci.fire(ci.hooks.OnInvalid)
		return false
	}
}

// StartActivator launches the activator binary for the configured
// product and blocks until it exits. Only the sentinel exit code
// counts as activated; launch failure or any other code returns
// ErrNotActivated.
func (ci *ClientIntegration) StartActivator(ctx context.Context) error {
	if ci.activatorPath == "" {
		return fmt.Errorf("activator path is not configured: %w", ErrNotActivated)
	}

	cmd := exec.CommandContext(ctx, ci.activatorPath, "--product", ci.api.GetProductName())
	err := cmd.Run()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		// Exit code 0 is not the activation sentinel.
		return ErrNotActivated
	case errors.As(err, &exitErr):
		if exitErr.ExitCode() == observedSuccessExitCode() {
			return nil
		}
		ci.logger.InfoContext(ctx, "activator exited without activation",
			slog.Int("exit_code", exitErr.ExitCode()))
		return ErrNotActivated
	default:
		ci.logger.ErrorContext(ctx, "activator launch failed",
			slog.String("error", err.Error()))
		return fmt.Errorf("activator launch failed: %w", ErrNotActivated)
	}
}

func (ci *ClientIntegration) fire(hook func()) {
	if hook != nil {
		hook()
	}
}

func (ci *ClientIntegration) fireError(err error) {
	if ci.hooks.OnError != nil {
		ci.hooks.OnError(err)
	}
}
