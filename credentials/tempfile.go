package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	log "github.com/sirupsen/logrus"
)

// WithTransientKeyFile writes key to a uniquely named temporary file
// readable only by the current user, calls fn with the file path and
// removes the file when fn returns or panics.
//
// Every call gets its own file so concurrent signing requests never
// share or delete each other's key material.
func WithTransientKeyFile(key []byte, fn func(path string) error) error {
	// os.CreateTemp opens the file with mode 0600
	fd, err := os.CreateTemp("", "walletpass_key_*.pem")
	if err != nil {
		return fmt.Errorf("credentials: failed to create transient key file: %w", err)
	}
	path := fd.Name()
	defer func() {
		rmErr := os.Remove(path)
		if rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			log.Errorf("credentials: failed to remove transient key file %q: %v", path, rmErr)
		}
	}()

	_, err = fd.Write(key)
	if closeErr := fd.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("credentials: failed to write transient key file: %w", err)
	}
	return fn(path)
}
