package formats

import (
	"fmt"
	"regexp"
	"time"
)

// AuthIDFormat is a regex for the format hawk IDs must follow
const AuthIDFormat = `^[a-zA-Z0-9][a-zA-Z0-9-_]{0,63}$`

var authIDRe = regexp.MustCompile(AuthIDFormat)

// Authorization is HAWK credentials and permitted signer IDs to use
type Authorization struct {
	ID                    string        `yaml:"id"`
	Key                   string        `yaml:"key"`
	Signers               []string      `yaml:"signers"`
	HawkTimestampValidity time.Duration `yaml:"hawktimestampvalidity"`
}

// Validate checks the format of the hawk ID, that a key is set and
// that every signer ID is well formed
func (auth Authorization) Validate() error {
	if !authIDRe.MatchString(auth.ID) {
		return fmt.Errorf("authorization ID %q does not match the permitted format %q", auth.ID, AuthIDFormat)
	}
	if auth.Key == "" {
		return fmt.Errorf("authorization %q has an empty key", auth.ID)
	}
	for _, signerID := range auth.Signers {
		if err := ValidateSignerID(signerID); err != nil {
			return fmt.Errorf("authorization %q: %w", auth.ID, err)
		}
	}
	return nil
}
