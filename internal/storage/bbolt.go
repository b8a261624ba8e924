package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // KDF params, cipher id, timestamps - unencrypted
	IndexBucket   = []byte("index")   // Secret names and sizes for ls/status - unencrypted
	SecretsBucket = []byte("secrets") // Framed ciphertext per secret
	PrivateBucket = []byte("private") // Encrypted password check
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigRemix    = []byte("remix_iterations")
	ConfigCipher   = []byte("cipher")
	ConfigVaultID  = []byte("vault_id")

	PrivateCheck = []byte("check")
)

// FormatVersion is written to the config bucket on Initialize.
const FormatVersion = "1"

var (
	ErrNotInitialized = errors.New("vault not initialized")
	ErrNotFound       = errors.New("secret not found")
)

// Params is everything Initialize writes besides timestamps.
type Params struct {
	Salt            []byte
	Iterations      uint32
	RemixIterations uint32
	Cipher          string
	Check           []byte
}

// IndexEntry is the public, unencrypted description of one secret.
type IndexEntry struct {
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Shape      string    `json:"shape,omitempty"`
	Size       int       `json:"size"`
	Updated    time.Time `json:"updated"`
	ExportPath string    `json:"exportPath,omitempty"`
}

// Storage provides BBolt-based storage for a cipherbox vault
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a vault database, waiting up to
// DefaultBackOffOpts.MaxElapsedTime for another process to release it.
func Open(path string) (*Storage, error) {
	return OpenWithBackOff(path, DefaultBackOffOpts)
}

// OpenWithBackOff is Open with an explicit lock retry budget.
func OpenWithBackOff(path string, opts BackOffOpts) (*Storage, error) {
	db, err := openBolt(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

func timestamp() []byte {
	b, _ := time.Now().UTC().MarshalBinary()
	return b
}

func iterBytes(n uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, n)
}

// Initialize creates the bucket structure and stores the vault parameters
// in a single transaction
func (s *Storage) Initialize(p Params) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, SecretsBucket, PrivateBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		now := timestamp()
		for _, kv := range []struct{ k, v []byte }{
			{ConfigVersion, []byte(FormatVersion)},
			{ConfigCreated, now},
			{ConfigModified, now},
			{ConfigSalt, p.Salt},
			{ConfigIters, iterBytes(p.Iterations)},
			{ConfigRemix, iterBytes(p.RemixIterations)},
			{ConfigCipher, []byte(p.Cipher)},
		} {
			if err := config.Put(kv.k, kv.v); err != nil {
				return err
			}
		}

		return tx.Bucket(PrivateBucket).Put(PrivateCheck, p.Check)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// bucket returns the named bucket or ErrNotInitialized
func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("%w: %s bucket missing", ErrNotInitialized, name)
	}
	return b, nil
}

// configValue copies a config value out of the transaction
func (s *Storage) configValue(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config, err := bucket(tx, ConfigBucket)
		if err != nil {
			return err
		}
		v := config.Get(key)
		if v == nil {
			return fmt.Errorf("%s not found", key)
		}
		value = append([]byte(nil), v...)
		return nil
	})
	return value, err
}

// GetSalt retrieves the KDF salt
func (s *Storage) GetSalt() ([]byte, error) {
	return s.configValue(ConfigSalt)
}

// GetIterations retrieves the KDF iterations
func (s *Storage) GetIterations() (uint32, error) {
	return s.uint32Value(ConfigIters)
}

// GetRemixIterations retrieves the iteration count used to derive
// per-secret keys
func (s *Storage) GetRemixIterations() (uint32, error) {
	return s.uint32Value(ConfigRemix)
}

func (s *Storage) uint32Value(key []byte) (uint32, error) {
	v, err := s.configValue(key)
	if err != nil {
		return 0, err
	}
	if len(v) != 4 {
		return 0, fmt.Errorf("%s value is %d bytes", key, len(v))
	}
	return binary.BigEndian.Uint32(v), nil
}

// GetCipher retrieves the vault's cipher id
func (s *Storage) GetCipher() (string, error) {
	id, err := s.configValue(ConfigCipher)
	return string(id), err
}

// GetCreated retrieves the creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	return s.timeValue(ConfigCreated)
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	return s.timeValue(ConfigModified)
}

func (s *Storage) timeValue(key []byte) (time.Time, error) {
	var t time.Time
	data, err := s.configValue(key)
	if err != nil {
		return t, err
	}
	return t, t.UnmarshalBinary(data)
}

// GetCheck retrieves the encrypted password check
func (s *Storage) GetCheck() ([]byte, error) {
	var check []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		private, err := bucket(tx, PrivateBucket)
		if err != nil {
			return err
		}
		v := private.Get(PrivateCheck)
		if v == nil {
			return fmt.Errorf("password check not found")
		}
		check = append([]byte(nil), v...)
		return nil
	})
	return check, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Storage) GetVaultID() (string, error) {
	id, err := s.configValue(ConfigVaultID)
	return string(id), err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Storage) GetOrCreateVaultID() (string, error) {
	var vaultID string
	err := s.db.Update(func(tx *bolt.Tx) error {
		config, err := bucket(tx, ConfigBucket)
		if err != nil {
			return err
		}
		if v := config.Get(ConfigVaultID); v != nil {
			vaultID = string(v)
			return nil
		}
		vaultID = uuid.NewString()
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", fmt.Errorf("failed to get vault ID: %w", err)
	}
	return vaultID, nil
}

// PutSecret stores ciphertext and its index entry together
func (s *Storage) PutSecret(entry IndexEntry, ciphertext []byte) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		secrets, err := bucket(tx, SecretsBucket)
		if err != nil {
			return err
		}
		index, err := bucket(tx, IndexBucket)
		if err != nil {
			return err
		}
		if err := secrets.Put([]byte(entry.Name), ciphertext); err != nil {
			return err
		}
		if err := index.Put([]byte(entry.Name), data); err != nil {
			return err
		}
		return tx.Bucket(ConfigBucket).Put(ConfigModified, timestamp())
	})
}

// GetSecret retrieves the ciphertext stored under name
func (s *Storage) GetSecret(name string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		secrets, err := bucket(tx, SecretsBucket)
		if err != nil {
			return err
		}
		v := secrets.Get([]byte(name))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// RemoveSecrets deletes every named secret or none of them
func (s *Storage) RemoveSecrets(names ...string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		secrets, err := bucket(tx, SecretsBucket)
		if err != nil {
			return err
		}
		index := tx.Bucket(IndexBucket)
		for _, name := range names {
			if secrets.Get([]byte(name)) == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			if err := secrets.Delete([]byte(name)); err != nil {
				return err
			}
			if err := index.Delete([]byte(name)); err != nil {
				return err
			}
		}
		return tx.Bucket(ConfigBucket).Put(ConfigModified, timestamp())
	})
}

// GetEntry returns a single index entry, or nil if the name is unknown
func (s *Storage) GetEntry(name string) (*IndexEntry, error) {
	var entry *IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index, err := bucket(tx, IndexBucket)
		if err != nil {
			return err
		}
		data := index.Get([]byte(name))
		if data == nil {
			return nil
		}
		entry = &IndexEntry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// GetEntries returns all index entries ordered by name
func (s *Storage) GetEntries() ([]IndexEntry, error) {
	var entries []IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		index, err := bucket(tx, IndexBucket)
		if err != nil {
			return err
		}
		return index.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("bad index entry %q: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// SetExportPath records where a secret was last exported
func (s *Storage) SetExportPath(name, path string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		index, err := bucket(tx, IndexBucket)
		if err != nil {
			return err
		}
		data := index.Get([]byte(name))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		var entry IndexEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		entry.ExportPath = path
		updated, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return index.Put([]byte(name), updated)
	})
}

// ForEachSecret calls fn with every stored ciphertext. The slice passed to
// fn is only valid for the duration of the call.
func (s *Storage) ForEachSecret(fn func(name string, ciphertext []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		secrets, err := bucket(tx, SecretsBucket)
		if err != nil {
			return err
		}
		return secrets.ForEach(func(k, v []byte) error {
			return fn(string(k), v)
		})
	})
}

// Rekey replaces the KDF parameters, the password check and every secret's
// ciphertext in a single transaction. secrets must cover exactly the
// currently stored names.
func (s *Storage) Rekey(salt []byte, iterations uint32, check []byte, secrets map[string][]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config, err := bucket(tx, ConfigBucket)
		if err != nil {
			return err
		}
		blobs, err := bucket(tx, SecretsBucket)
		if err != nil {
			return err
		}

		if n := blobs.Stats().KeyN; n != len(secrets) {
			return fmt.Errorf("rekey covers %d of %d secrets", len(secrets), n)
		}
		for name, ct := range secrets {
			if blobs.Get([]byte(name)) == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			if err := blobs.Put([]byte(name), ct); err != nil {
				return err
			}
		}

		if err := config.Put(ConfigSalt, salt); err != nil {
			return err
		}
		if err := config.Put(ConfigIters, iterBytes(iterations)); err != nil {
			return err
		}
		if err := config.Put(ConfigModified, timestamp()); err != nil {
			return err
		}
		return tx.Bucket(PrivateBucket).Put(PrivateCheck, check)
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// Space freed by removed secrets is only reclaimed this way.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath)
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
