// The activator authenticates a user against the identity provider,
// checks this machine's license for a product, and submits an
// activation request when none exists. A valid license is reported
// through the exit code contract host applications wait on.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"licenser/internal/apiclient"
	"licenser/internal/config"
	"licenser/internal/infrastructure"
	"licenser/internal/integration"
	"licenser/internal/security"
	"licenser/pkg/contracts"
	"licenser/pkg/contracts/domain"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			infrastructure.GetLogger().Error("Activator panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			os.Exit(1)
		}
	}()

	username := flag.String("username", "", "account username (prompts when omitted and no stored credentials exist)")
	password := flag.String("password", "", "account password")
	product := flag.String("product", "", "product name to activate (overrides configuration)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Error: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if *product != "" {
		cfg.Client.ProductName = *product
	}

	fmt.Println(contracts.GetVersionString())

	os.Exit(run(context.Background(), cfg, *username, *password, logger))
}

// run executes the activation flow and returns the process exit code.
func run(ctx context.Context, cfg *config.Config, username, password string, logger *slog.Logger) int {
	fingerprinter := security.NewFingerprintManager()
	credStore := security.NewCredentialStore(cfg.Client.CredentialsFile, nil)

	client, err := apiclient.NewClient(apiclient.Options{
		APIBaseURL:   cfg.Client.APIBaseURL,
		AuthorityURL: cfg.Client.AuthorityURL,
		ClientID:     cfg.Client.ClientID,
		ClientSecret: cfg.Client.ClientSecret,
		Scope:        cfg.Client.Scope,
		ProductName:  cfg.Client.ProductName,
		Timeout:      cfg.Client.RequestTimeout,
	}, fingerprinter, logger)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	creds, err := resolveCredentials(credStore, username, password)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}

	fmt.Println("Authenticating...")
	auth := client.AuthenticatePassword(ctx, creds)
	if auth.IsError() {
		fmt.Printf("Authentication failed: %s\n", auth.Message)
		return 1
	}

	// Credentials now carry the provider's identity; persist them so
	// the host application can revalidate unattended.
	if err := credStore.Save(creds); err != nil {
		logger.Warn("failed to persist credentials",
			slog.String("error", err.Error()))
	}

	fmt.Printf("Checking license for %q...\n", client.GetProductName())
	check := client.CheckLicense(ctx)
	if check.IsError() {
		fmt.Printf("License check failed: %s\n", check.Message)
		return 1
	}

	switch check.Data {
	case domain.LicenseValid:
		fmt.Println("License is valid. Activation complete.")
		return integration.ActivatorSuccessExitCode
	case domain.LicenseExpired:
		fmt.Println("License has expired.")
	default:
		fmt.Println("No valid license found for this machine.")
	}

	fmt.Println("Submitting activation request...")
	submit := client.CreateActivationRequest(ctx)
	if submit.IsError() {
		fmt.Printf("Activation request failed: %s\n", submit.Message)
		return 1
	}

	switch submit.Data {
	case domain.AlreadyHaveValidLicense:
		// The server saw a valid license after all; treat as activated.
		fmt.Println("A valid license already exists for this machine.")
		return integration.ActivatorSuccessExitCode
	case domain.RequestAlreadyMade:
		fmt.Println("An activation request for this machine is already pending approval.")
	default:
		fmt.Println("Activation request created. It will be reviewed by an administrator.")
	}

	return 1
}

// resolveCredentials prefers explicit flags, then the stored blob,
// then an interactive prompt.
func resolveCredentials(store *security.CredentialStore, username, password string) (*domain.Credentials, error) {
	if username != "" && password != "" {
		return &domain.Credentials{UserName: username, Password: password}, nil
	}

	stored, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to read stored credentials: %w", err)
	}
	if stored != nil {
		return stored, nil
	}

	reader := bufio.NewReader(os.Stdin)
	if username == "" {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if password == "" {
		fmt.Print("Password: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	return &domain.Credentials{UserName: username, Password: password}, nil
}
