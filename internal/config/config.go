package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/illarion/cipherbox/internal/crypto"
)

const (
	// DefaultFile is the config file looked up in the working directory.
	DefaultFile = "cipherbox.toml"

	// DefaultVaultFile is the vault file name inside the working directory.
	DefaultVaultFile = ".cipherbox"

	DefaultRemixIterations = 1000
	DefaultLogLevel        = "off"
	DefaultKeyringService  = "cipherbox"
)

// Environment variables read by ApplyEnvOverrides and Load.
const (
	EnvConfig          = "CIPHERBOX_CONFIG"
	EnvVaultFile       = "CIPHERBOX_VAULT_FILE"
	EnvCipher          = "CIPHERBOX_CIPHER"
	EnvKDFIterations   = "CIPHERBOX_KDF_ITERATIONS"
	EnvRemixIterations = "CIPHERBOX_REMIX_ITERATIONS"
	EnvLogLevel        = "CIPHERBOX_LOG_LEVEL"
	EnvKeyring         = "CIPHERBOX_KEYRING"
)

// Config holds the settings shared by every command.
type Config struct {
	VaultFile       string        `toml:"vault_file" validate:"required,excludesall=/\\"`
	Cipher          string        `toml:"cipher" validate:"required,vaultcipher"`
	KDFIterations   int           `toml:"kdf_iterations" validate:"gt=0,max=4294967295"`
	RemixIterations int           `toml:"remix_iterations" validate:"gt=0,max=4294967295"`
	LogLevel        string        `toml:"log_level" validate:"oneof=off debug info warn error"`
	Keyring         KeyringConfig `toml:"keyring"`
}

// KeyringConfig controls the OS keyring integration.
type KeyringConfig struct {
	Enabled bool   `toml:"enabled"`
	Service string `toml:"service" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
	})
	// Vault keys are remixed per secret, which needs a 256-bit cipher.
	_ = v.RegisterValidation("vaultcipher", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		if !crypto.IsSupportedCipher(id) {
			return false
		}
		size, err := crypto.KeySize(id)
		return err == nil && size == 32
	})
	return v
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		VaultFile:       DefaultVaultFile,
		Cipher:          crypto.DefaultCipher,
		KDFIterations:   crypto.DefaultIters,
		RemixIterations: DefaultRemixIterations,
		LogLevel:        DefaultLogLevel,
		Keyring: KeyringConfig{
			Enabled: true,
			Service: DefaultKeyringService,
		},
	}
}

// Load reads .env (if any), then the TOML file named by CIPHERBOX_CONFIG or
// cipherbox.toml in dir, then applies environment overrides and validates.
// A missing default file is not an error; a missing explicit one is.
func Load(dir string) (*Config, error) {
	envFile := filepath.Join(dir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()

	path, explicit := os.Getenv(EnvConfig), true
	if path == "" {
		path, explicit = filepath.Join(dir, DefaultFile), false
	}

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys not known to Config are rejected.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills zero-valued fields from Default.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.VaultFile == "" {
		c.VaultFile = defaults.VaultFile
	}
	if c.Cipher == "" {
		c.Cipher = defaults.Cipher
	}
	if c.KDFIterations == 0 {
		c.KDFIterations = defaults.KDFIterations
	}
	if c.RemixIterations == 0 {
		c.RemixIterations = defaults.RemixIterations
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Keyring.Service == "" {
		c.Keyring.Service = defaults.Keyring.Service
	}
}

// ApplyEnvOverrides applies CIPHERBOX_* variables on top of the file values.
func (c *Config) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvVaultFile); v != "" {
		c.VaultFile = v
	}
	if v := os.Getenv(EnvCipher); v != "" {
		c.Cipher = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvKDFIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvKDFIterations, err)
		}
		c.KDFIterations = n
	}
	if v := os.Getenv(EnvRemixIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRemixIterations, err)
		}
		c.RemixIterations = n
	}
	if v := os.Getenv(EnvKeyring); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvKeyring, err)
		}
		c.Keyring.Enabled = b
	}
	return nil
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make(ValidateErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		errs = append(errs, ValidationError{Field: field, Message: message(fe)})
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must be set"
	case "excludesall":
		return fmt.Sprintf("must be a plain file name, got %q", fe.Value())
	case "vaultcipher":
		return fmt.Sprintf("unsupported cipher %q, vaults need a 256-bit cipher", fe.Value())
	case "gt":
		return "must be positive"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("invalid level %q, must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
