package cmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/illarion/cipherbox/internal/config"
	"github.com/illarion/cipherbox/internal/crypto"
	"github.com/illarion/cipherbox/internal/envelope"
	"github.com/illarion/cipherbox/internal/keyring"
	"github.com/illarion/cipherbox/internal/security"
	"github.com/illarion/cipherbox/internal/storage"
	"github.com/illarion/cipherbox/internal/vault"
)

// EnvPassword supplies the vault password without prompting.
const EnvPassword = "CIPHERBOX_PASSWORD"

// PasswordSource tells where a password came from.
type PasswordSource int

const (
	SourcePrompt PasswordSource = iota
	SourceEnv
	SourceKeyring
)

var (
	settings = config.Default()
	logger   = zap.NewNop()
)

// Configure sets the config and logger used by every command.
func Configure(cfg *config.Config, l *zap.Logger) {
	if cfg != nil {
		settings = cfg
	}
	if l != nil {
		logger = l
	}
}

// openVault opens the vault in the current directory or exits.
func openVault() *vault.Vault {
	v, err := vault.New(".",
		vault.WithFile(settings.VaultFile),
		vault.WithRemixIterations(settings.RemixIterations),
		vault.WithLogger(logger),
	)
	if err != nil {
		HandleError(err)
	}
	return v
}

func keyStore() *keyring.Store {
	return keyring.New(settings.Keyring.Service)
}

// ReadPassword reads a password from the terminal without echoing
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter new password: ")
	if err != nil {
		return nil, err
	}

	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		crypto.ClearBytes(password1)
		return nil, err
	}
	defer crypto.ClearBytes(password2)

	if !crypto.ConstantTimeCompare(password1, password2) {
		crypto.ClearBytes(password1)
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password1) == 0 {
		return nil, fmt.Errorf("password must not be empty")
	}
	return password1, nil
}

// GetPasswordFromEnv returns a copy of CIPHERBOX_PASSWORD, or nil.
func GetPasswordFromEnv() []byte {
	password := os.Getenv(EnvPassword)
	if password == "" {
		return nil
	}
	return []byte(password)
}

// GetPassword retrieves password from environment or prompts user.
// The caller is responsible for calling crypto.ClearBytes on the result.
func GetPassword(prompt string) ([]byte, error) {
	if password := GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return ReadPassword(prompt)
}

// GetPasswordWithRetry tries the environment, then the keyring entry for
// vaultID, then the terminal. A keyring password rejected by verify is
// reported as stale and the user is prompted instead.
func GetPasswordWithRetry(prompt, vaultID string, verify func([]byte) error) ([]byte, PasswordSource, error) {
	if password := GetPasswordFromEnv(); password != nil {
		return password, SourceEnv, nil
	}

	if settings.Keyring.Enabled && vaultID != "" {
		password, err := keyStore().GetPassword(vaultID)
		if err == nil {
			verr := verify(password)
			if verr == nil {
				return password, SourceKeyring, nil
			}
			crypto.ClearBytes(password)
			if !errors.Is(verr, vault.ErrWrongPassword) {
				return nil, SourceKeyring, verr
			}
			fmt.Fprintln(os.Stderr, "Keyring password is stale, please enter it again")
		} else if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("keyring lookup failed", zap.Error(err))
		}
	}

	password, err := ReadPassword(prompt)
	if err != nil {
		return nil, SourcePrompt, err
	}
	return password, SourcePrompt, nil
}

// unlockPassword fetches a verified password for v or exits.
func unlockPassword(v *vault.Vault) []byte {
	vaultID, _ := v.VaultID()
	password, _, err := GetPasswordWithRetry("Enter password: ", vaultID, v.VerifyPassword)
	if err != nil {
		HandleError(err)
	}
	return password
}

// GetPasswordForInit checks the environment first, then prompts with
// confirmation.
func GetPasswordForInit() ([]byte, error) {
	if password := GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	return ReadPasswordConfirm()
}

// Fatalf prints an error and exits.
func Fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// HandleError handles common errors consistently
func HandleError(err error) {
	name := settings.VaultFile
	switch {
	case errors.Is(err, vault.ErrNotInitialized):
		fmt.Fprintf(os.Stderr, "Error: no %s vault in this directory\n", name)
		fmt.Fprintf(os.Stderr, "Run 'cipherbox init' first\n")
	case errors.Is(err, vault.ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s already exists in this directory\n", name)
		fmt.Fprintf(os.Stderr, "Use 'cipherbox status' to see current state\n")
	case errors.Is(err, vault.ErrWrongPassword):
		fmt.Fprintf(os.Stderr, "Error: wrong password\n")
	case errors.Is(err, vault.ErrSecretNotFound):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Use 'cipherbox ls' to list stored secrets\n")
	case errors.Is(err, security.ErrPathEscapes), errors.Is(err, security.ErrAbsolutePath):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Paths must stay inside the vault directory\n")
	case errors.Is(err, storage.ErrLocked):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Another cipherbox command is using the vault, try again\n")
	case errors.Is(err, envelope.ErrUnsupportedType):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Supported values: integers, floats, strings, lists and objects\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
