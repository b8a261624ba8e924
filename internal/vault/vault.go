package vault

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/illarion/cipherbox/internal/crypto"
	"github.com/illarion/cipherbox/internal/envelope"
	"github.com/illarion/cipherbox/internal/git"
	"github.com/illarion/cipherbox/internal/security"
	"github.com/illarion/cipherbox/internal/storage"
)

const (
	VaultFile              = ".cipherbox"
	FilePermSecure         = 0600 // Exported files: owner rw only
	DefaultRemixIterations = 1000
	MaxNameLength          = 256
	passwordCheck          = "cipherbox-password-check"
)

var (
	ErrNotInitialized = errors.New("vault not initialized")
	ErrAlreadyExists  = errors.New("vault already exists")
	ErrWrongPassword  = errors.New("wrong password")
	ErrSecretNotFound = errors.New("secret not found")
	ErrInvalidName    = errors.New("invalid secret name")

	ErrInvalidIterations = errors.New("iteration count out of range")
)

// Vault is a password-protected store of named, typed secrets kept in a
// single bbolt file. Each secret is encrypted under its own key, remixed
// from the master key with the secret's name.
type Vault struct {
	dir       string
	path      string
	validator *security.PathValidator
	remix     int
	registry  *envelope.Registry
	logger    *zap.Logger
}

// Option configures a Vault.
type Option func(*Vault)

// WithFile overrides the vault file name inside the directory.
func WithFile(name string) Option {
	return func(v *Vault) {
		if name != "" {
			v.path = filepath.Join(v.dir, name)
		}
	}
}

// WithRemixIterations sets the per-secret key derivation cost recorded by
// Init. Existing vaults keep the value they were created with.
func WithRemixIterations(n int) Option {
	return func(v *Vault) {
		if n > 0 {
			v.remix = n
		}
	}
}

// WithRegistry resolves caller-supplied composites on Get.
func WithRegistry(r *envelope.Registry) Option {
	return func(v *Vault) { v.registry = r }
}

// WithLogger sets the operation logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Vault) {
		if l != nil {
			v.logger = l
		}
	}
}

// New creates a Vault rooted at dir. The vault file is not opened until an
// operation needs it.
func New(dir string, opts ...Option) (*Vault, error) {
	validator, err := security.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}

	v := &Vault{
		dir:       validator.Dir(),
		validator: validator,
		remix:     DefaultRemixIterations,
		logger:    zap.NewNop(),
	}
	v.path = filepath.Join(v.dir, VaultFile)
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(zap.String("vault", v.path))
	return v, nil
}

// Close releases resources held by the Vault
func (v *Vault) Close() error {
	if v.validator != nil {
		return v.validator.Close()
	}
	return nil
}

// Path returns the vault file path.
func (v *Vault) Path() string { return v.path }

// FileName returns the vault file name relative to its directory.
func (v *Vault) FileName() string { return filepath.Base(v.path) }

// open opens an existing vault file
func (v *Vault) open() (*storage.Storage, error) {
	if _, err := os.Stat(v.path); err != nil {
		return nil, ErrNotInitialized
	}
	db, err := storage.Open(v.path)
	if err != nil {
		return nil, err
	}
	if ok, err := db.IsInitialized(); err != nil || !ok {
		db.Close()
		return nil, ErrNotInitialized
	}
	return db, nil
}

// ValidateName checks a secret name: non-empty printable UTF-8 of at most
// MaxNameLength bytes.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, MaxNameLength)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("%w: %q contains unprintable characters", ErrInvalidName, name)
		}
	}
	return nil
}

// Init creates a new vault file. An empty cipherID selects
// crypto.DefaultCipher and kdfIterations <= 0 selects crypto.DefaultIters.
func (v *Vault) Init(password []byte, cipherID string, kdfIterations int) error {
	if _, err := os.Stat(v.path); err == nil {
		return ErrAlreadyExists
	}
	if cipherID == "" {
		cipherID = crypto.DefaultCipher
	}
	if err := checkVaultCipher(cipherID); err != nil {
		return err
	}

	// Both counts are stored as uint32.
	if int64(kdfIterations) > math.MaxUint32 {
		return fmt.Errorf("%w: kdf iterations %d", ErrInvalidIterations, kdfIterations)
	}
	if int64(v.remix) > math.MaxUint32 {
		return fmt.Errorf("%w: remix iterations %d", ErrInvalidIterations, v.remix)
	}

	kdf, err := crypto.NewKDF(kdfIterations)
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}

	master, err := v.masterCipher(password, kdf, cipherID)
	if err != nil {
		return err
	}
	defer master.Destroy()

	check, err := master.Encrypt(passwordCheck, false)
	if err != nil {
		return fmt.Errorf("failed to encrypt password check: %w", err)
	}

	db, err := storage.Open(v.path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	err = db.Initialize(storage.Params{
		Salt:            kdf.Salt,
		Iterations:      uint32(kdf.Iterations),
		RemixIterations: uint32(v.remix),
		Cipher:          cipherID,
		Check:           check,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	v.logger.Info("vault initialized", zap.String("cipher", cipherID), zap.Int("kdf_iterations", kdf.Iterations))
	return nil
}

// checkVaultCipher rejects ciphers whose keys cannot be remixed into
// per-secret keys of the same size.
func checkVaultCipher(cipherID string) error {
	if !crypto.IsSupportedCipher(cipherID) {
		return fmt.Errorf("%w: %q", crypto.ErrUnsupportedCipher, cipherID)
	}
	size, err := crypto.KeySize(cipherID)
	if err != nil {
		return err
	}
	if size != 32 {
		return fmt.Errorf("%w: vault ciphers need a 256-bit key, %s has %d bits",
			crypto.ErrUnsupportedKeySizeForRemix, cipherID, size*8)
	}
	return nil
}

func (v *Vault) masterCipher(password []byte, kdf *crypto.KDF, cipherID string) (*crypto.Cipher, error) {
	size, err := crypto.KeySize(cipherID)
	if err != nil {
		return nil, err
	}
	key := kdf.DeriveKey(password, size)
	defer crypto.ClearBytes(key)

	return crypto.New(key,
		crypto.WithCipher(cipherID),
		crypto.WithRegistry(v.registry),
		crypto.WithLogger(v.logger),
	)
}

// session is an unlocked vault: the open database plus the master cipher.
type session struct {
	db     *storage.Storage
	master *crypto.Cipher
	remix  int
}

func (s *session) close() {
	if s.master != nil {
		s.master.Destroy()
	}
	s.db.Close()
}

// unlock opens the vault and verifies password against the stored check
func (v *Vault) unlock(password []byte) (*session, error) {
	if password == nil {
		return nil, ErrWrongPassword
	}
	db, err := v.open()
	if err != nil {
		return nil, err
	}

	s, err := v.unlockDB(db, password)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (v *Vault) unlockDB(db *storage.Storage, password []byte) (*session, error) {
	salt, err := db.GetSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to get salt: %w", err)
	}
	iterations, err := db.GetIterations()
	if err != nil {
		return nil, fmt.Errorf("failed to get iterations: %w", err)
	}
	remix, err := db.GetRemixIterations()
	if err != nil {
		return nil, fmt.Errorf("failed to get remix iterations: %w", err)
	}
	cipherID, err := db.GetCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher: %w", err)
	}

	master, err := v.masterCipher(password, &crypto.KDF{Salt: salt, Iterations: int(iterations)}, cipherID)
	if err != nil {
		return nil, err
	}

	check, err := db.GetCheck()
	if err != nil {
		master.Destroy()
		return nil, ErrWrongPassword
	}
	got, err := master.Decrypt(check, false)
	if err != nil {
		master.Destroy()
		return nil, ErrWrongPassword
	}
	if s, ok := got.AsString(); !ok || !crypto.ConstantTimeCompare([]byte(s), []byte(passwordCheck)) {
		master.Destroy()
		return nil, ErrWrongPassword
	}

	return &session{db: db, master: master, remix: int(remix)}, nil
}

// secretCipher derives the per-secret cipher for name
func (v *Vault) secretCipher(master *crypto.Cipher, remix int, name string) (*crypto.Cipher, error) {
	key, err := master.RemixKey([]byte(name), remix)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(key)

	return crypto.New(key,
		crypto.WithCipher(master.Config().CipherID()),
		crypto.WithRegistry(v.registry),
		crypto.WithLogger(v.logger),
	)
}

// seal encrypts value for name and builds its index entry
func (v *Vault) seal(s *session, name string, value any) (storage.IndexEntry, []byte, error) {
	val, err := envelope.ValueOf(value)
	if err != nil {
		return storage.IndexEntry{}, nil, err
	}

	c, err := v.secretCipher(s.master, s.remix, name)
	if err != nil {
		return storage.IndexEntry{}, nil, err
	}
	defer c.Destroy()

	ct, err := c.Encrypt(val, false)
	if err != nil {
		return storage.IndexEntry{}, nil, fmt.Errorf("failed to encrypt %s: %w", name, err)
	}

	entry := storage.IndexEntry{
		Name:    name,
		Kind:    val.Kind().String(),
		Size:    len(ct),
		Updated: time.Now().UTC(),
	}
	if val.Kind() == envelope.KindComposite {
		entry.Shape = val.Shape().String()
	}
	return entry, ct, nil
}

// openSecret decrypts the secret stored under name
func (v *Vault) openSecret(s *session, name string) (envelope.Value, error) {
	ct, err := s.db.GetSecret(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return envelope.Value{}, fmt.Errorf("%w: %s", ErrSecretNotFound, name)
		}
		return envelope.Value{}, err
	}

	c, err := v.secretCipher(s.master, s.remix, name)
	if err != nil {
		return envelope.Value{}, err
	}
	defer c.Destroy()

	val, err := c.Decrypt(ct, false)
	if err != nil {
		return envelope.Value{}, fmt.Errorf("failed to decrypt %s: %w", name, err)
	}
	return val, nil
}

// Put encrypts value and stores it under name, replacing any previous value.
func (v *Vault) Put(ctx context.Context, password []byte, name string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	s, err := v.unlock(password)
	if err != nil {
		return err
	}
	defer s.close()

	entry, ct, err := v.seal(s, name, value)
	if err != nil {
		return err
	}
	if prev, err := s.db.GetEntry(name); err == nil && prev != nil {
		entry.ExportPath = prev.ExportPath
	}

	if err := s.db.PutSecret(entry, ct); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}

	v.logger.Info("secret stored", zap.String("name", name), zap.String("kind", entry.Kind))
	return nil
}

// Get decrypts the secret stored under name.
func (v *Vault) Get(ctx context.Context, password []byte, name string) (envelope.Value, error) {
	if err := ctx.Err(); err != nil {
		return envelope.Value{}, err
	}
	if err := ValidateName(name); err != nil {
		return envelope.Value{}, err
	}

	s, err := v.unlock(password)
	if err != nil {
		return envelope.Value{}, err
	}
	defer s.close()

	val, err := v.openSecret(s, name)
	if err != nil {
		return envelope.Value{}, err
	}
	v.logger.Debug("secret read", zap.String("name", name))
	return val, nil
}

// Remove deletes the named secrets. Either all of them are removed or,
// if one is missing, none is.
func (v *Vault) Remove(ctx context.Context, password []byte, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			return err
		}
	}

	s, err := v.unlock(password)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.db.RemoveSecrets(names...); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrSecretNotFound, err)
		}
		return err
	}

	v.logger.Info("secrets removed", zap.Strings("names", names))
	return nil
}

// List returns the index entries of all secrets (no password required)
func (v *Vault) List(ctx context.Context) ([]storage.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.GetEntries()
}

// Status contains vault status information
type Status struct {
	Path            string
	Cipher          string
	KDFIterations   uint32
	RemixIterations uint32
	Created         time.Time
	Modified        time.Time
	VaultID         string
	Secrets         []storage.IndexEntry
	TotalSize       int
	Exported        []string
	GitStatus       *git.GitStatus
}

// Status returns the current status (no password required)
func (v *Vault) Status(ctx context.Context) (*Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	st := &Status{Path: v.path}
	// Missing values are reported as zero rather than failing status.
	st.Cipher, _ = db.GetCipher()
	st.KDFIterations, _ = db.GetIterations()
	st.RemixIterations, _ = db.GetRemixIterations()
	st.Created, _ = db.GetCreated()
	st.Modified, _ = db.GetModified()
	st.VaultID, _ = db.GetVaultID()

	entries, err := db.GetEntries()
	if err != nil {
		return nil, err
	}
	st.Secrets = entries

	for _, e := range entries {
		st.TotalSize += e.Size
		if e.ExportPath == "" {
			continue
		}
		// Tampered index entries are skipped.
		if p, err := v.validator.ValidateExistingPath(e.ExportPath); err == nil {
			st.Exported = append(st.Exported, p)
		}
	}

	gs, err := git.CheckGitIntegration(v.dir, v.FileName(), st.Exported)
	if err == nil && gs.IsRepo {
		st.GitStatus = gs
	}

	return st, nil
}

// ChangePassword re-encrypts every secret under a key derived from next.
// The KDF iteration count is kept; the salt is replaced.
func (v *Vault) ChangePassword(current, next []byte) error {
	if len(next) == 0 {
		return errors.New("new password must not be empty")
	}

	s, err := v.unlock(current)
	if err != nil {
		return err
	}
	defer s.close()

	// Decrypt everything before touching the database.
	var names []string
	values := make(map[string]envelope.Value)
	err = s.db.ForEachSecret(func(name string, _ []byte) error {
		names = append(names, name)
		return nil
	})
	if err != nil {
		return err
	}
	for _, name := range names {
		val, err := v.openSecret(s, name)
		if err != nil {
			return err
		}
		values[name] = val
	}

	iterations, err := s.db.GetIterations()
	if err != nil {
		return err
	}
	kdf, err := crypto.NewKDF(int(iterations))
	if err != nil {
		return fmt.Errorf("failed to create new KDF: %w", err)
	}
	newMaster, err := v.masterCipher(next, kdf, s.master.Config().CipherID())
	if err != nil {
		return err
	}
	defer newMaster.Destroy()

	rekeyed := &session{db: s.db, master: newMaster, remix: s.remix}
	secrets := make(map[string][]byte, len(values))
	for name, val := range values {
		_, ct, err := v.seal(rekeyed, name, val)
		if err != nil {
			return fmt.Errorf("failed to re-encrypt %s: %w", name, err)
		}
		secrets[name] = ct
	}

	check, err := newMaster.Encrypt(passwordCheck, false)
	if err != nil {
		return fmt.Errorf("failed to encrypt password check: %w", err)
	}

	if err := s.db.Rekey(kdf.Salt, uint32(kdf.Iterations), check, secrets); err != nil {
		return fmt.Errorf("failed to store re-encrypted vault: %w", err)
	}

	v.logger.Info("password changed", zap.Int("secrets", len(secrets)))
	return nil
}

// Compact compacts the database to reclaim space freed by removed secrets.
func (v *Vault) Compact() error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Compact(); err != nil {
		return err
	}
	v.logger.Info("vault compacted")
	return nil
}

// VaultID retrieves the vault ID from storage
func (v *Vault) VaultID() (string, error) {
	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetVaultID()
}

// GetOrCreateVaultID retrieves the existing vault ID or generates a new one
func (v *Vault) GetOrCreateVaultID() (string, error) {
	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	return db.GetOrCreateVaultID()
}

// VerifyPassword checks if the password is correct for this vault
func (v *Vault) VerifyPassword(password []byte) error {
	s, err := v.unlock(password)
	if err != nil {
		return err
	}
	s.close()
	return nil
}

// HMAC computes a keyed digest of data with the vault's master key.
func (v *Vault) HMAC(password []byte, algo string, data []byte) ([]byte, error) {
	s, err := v.unlock(password)
	if err != nil {
		return nil, err
	}
	defer s.close()

	return s.master.HMAC(algo, data)
}

// PBKDF2 derives bytes from data, salted with the vault's master key.
func (v *Vault) PBKDF2(password []byte, algo string, data []byte, iterations int) ([]byte, error) {
	s, err := v.unlock(password)
	if err != nil {
		return nil, err
	}
	defer s.close()

	return s.master.PBKDF2(algo, data, iterations)
}
