package vault

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/illarion/cipherbox/internal/crypto"
	"github.com/illarion/cipherbox/internal/envelope"
)

// Render returns the bytes written by Export: strings verbatim, anything
// else as its text rendering followed by a newline.
func Render(val envelope.Value) []byte {
	if b, ok := val.AsBytes(); ok {
		return b
	}
	return []byte(envelope.Format(val) + "\n")
}

// Export decrypts name and writes it to path inside the vault directory.
// The normalized path is recorded in the index and returned.
func (v *Vault) Export(ctx context.Context, password []byte, name, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	rel, err := v.validator.ValidateAndNormalize(path)
	if err != nil {
		return "", err
	}
	if rel == v.FileName() {
		return "", fmt.Errorf("refusing to overwrite the vault file %s", rel)
	}

	s, err := v.unlock(password)
	if err != nil {
		return "", err
	}
	defer s.close()

	val, err := v.openSecret(s, name)
	if err != nil {
		return "", err
	}

	data := Render(val)
	defer crypto.ClearBytes(data)
	if err := v.validator.WriteFileInRoot(rel, data, FilePermSecure); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", rel, err)
	}

	if err := s.db.SetExportPath(name, rel); err != nil {
		return "", fmt.Errorf("failed to record export path: %w", err)
	}

	v.logger.Info("secret exported", zap.String("name", name), zap.String("path", rel))
	return rel, nil
}

// Import reads path inside the vault directory and stores its contents as
// a string secret under name.
func (v *Vault) Import(ctx context.Context, password []byte, name, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := v.validator.ValidateAndNormalize(path)
	if err != nil {
		return err
	}

	data, err := v.validator.ReadFileInRoot(rel)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}
	defer crypto.ClearBytes(data)

	if err := v.Put(ctx, password, name, envelope.Bytes(data)); err != nil {
		return err
	}
	v.logger.Info("secret imported", zap.String("name", name), zap.String("path", rel))
	return nil
}
