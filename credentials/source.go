// Package credentials loads the PKCS#12 containers and intermediate
// certificates used to sign passes from inline configuration, the local
// filesystem or a remote secret store.
package credentials // import "github.com/evently/walletpass/credentials"

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ErrCredentialNotFound is returned when no source yields a container
var ErrCredentialNotFound = errors.New("credentials: no PKCS#12 container found")

// Source describes where the signing material of a signer lives. Each
// kind of material is looked up inline first, then on the local
// filesystem, then by name in the remote store.
type Source struct {
	// P12Base64 is a base64 encoded PKCS#12 container
	P12Base64 string `json:"p12base64,omitempty"`
	// P12Path is the path of a PKCS#12 container on disk
	P12Path string `json:"p12path,omitempty"`
	// P12Name is the name of the container in the remote store
	P12Name string `json:"p12name,omitempty"`
	// Password decrypts the container
	Password string `json:"password,omitempty"`

	// WWDRPEM is the intermediate certificate as PEM text
	WWDRPEM string `json:"wwdrpem,omitempty"`
	// WWDRPath is the path of a PEM or DER intermediate certificate
	WWDRPath string `json:"wwdrpath,omitempty"`
	// WWDRName is the name of the intermediate in the remote store
	WWDRName string `json:"wwdrname,omitempty"`
	// BundledWWDR falls back to the built-in Apple WWDR G3 certificate
	BundledWWDR bool `json:"bundledwwdr,omitempty"`

	// Location of the remote store, s3://bucket/prefix/ or file:///dir/
	Location string `json:"location,omitempty"`
}

// Loader retrieves signing material from the sources of a Source
type Loader struct {
	remote Retriever
}

// NewLoader returns a Loader. A nil Retriever disables remote lookups.
func NewLoader(remote Retriever) *Loader {
	return &Loader{remote: remote}
}

// LoadContainer returns the raw PKCS#12 container bytes
func (l *Loader) LoadContainer(ctx context.Context, src Source) ([]byte, error) {
	var reasons []string

	if src.P12Base64 != "" {
		data, err := decodeBase64Blob(src.P12Base64)
		if err == nil {
			return data, nil
		}
		reasons = append(reasons, fmt.Sprintf("inline: %v", err))
	}
	if src.P12Path != "" {
		data, err := os.ReadFile(src.P12Path)
		if err == nil && len(data) > 0 {
			return data, nil
		}
		reasons = append(reasons, fmt.Sprintf("file %q: %v", src.P12Path, err))
	}
	if src.P12Name != "" {
		data, err := l.fetch(ctx, src.P12Name)
		if err == nil {
			// secret stores often hold the container as base64 text
			if decoded, decErr := decodeBase64Blob(string(data)); decErr == nil {
				return decoded, nil
			}
			return data, nil
		}
		reasons = append(reasons, fmt.Sprintf("remote %q: %v", src.P12Name, err))
	}
	if len(reasons) == 0 {
		return nil, ErrCredentialNotFound
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, strings.Join(reasons, "; "))
}

// LoadIntermediate returns the DER encoding of the intermediate
// certificate, or nil when none is configured. The DER is not parsed as
// a certificate here: it is embedded verbatim in signatures.
func (l *Loader) LoadIntermediate(ctx context.Context, src Source) ([]byte, error) {
	var errs []error

	if src.WWDRPEM != "" {
		der, err := certificateDER([]byte(src.WWDRPEM))
		if err == nil {
			return der, nil
		}
		errs = append(errs, fmt.Errorf("inline intermediate: %w", err))
	}
	if src.WWDRPath != "" {
		data, err := os.ReadFile(src.WWDRPath)
		if err == nil {
			data, err = certificateDER(data)
			if err == nil {
				return data, nil
			}
		}
		errs = append(errs, fmt.Errorf("intermediate file %q: %w", src.WWDRPath, err))
	}
	if src.WWDRName != "" {
		data, err := l.fetch(ctx, src.WWDRName)
		if err == nil {
			data, err = certificateDER(data)
			if err == nil {
				return data, nil
			}
		}
		errs = append(errs, fmt.Errorf("remote intermediate %q: %w", src.WWDRName, err))
	}
	if src.BundledWWDR {
		for _, err := range errs {
			log.Warnf("credentials: falling back to bundled WWDR certificate: %v", err)
		}
		return BundledWWDR()
	}
	return nil, errors.Join(errs...)
}

func (l *Loader) fetch(ctx context.Context, name string) ([]byte, error) {
	if l.remote == nil {
		return nil, fmt.Errorf("no remote store configured")
	}
	return l.remote.Get(ctx, name)
}

// decodeBase64Blob decodes base64 text that may carry quoting, line
// wrapping or a missing padding
func decodeBase64Blob(s string) ([]byte, error) {
	s = whitespaceRe.ReplaceAllString(printableASCII(stripQuoting(s)), "")
	if s == "" {
		return nil, fmt.Errorf("empty base64 input")
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return data, nil
}

// certificateDER accepts PEM text, possibly mangled, or raw DER and
// returns the DER bytes of the first certificate
func certificateDER(data []byte) ([]byte, error) {
	if len(data) > 0 && data[0] == 0x30 && !bytes.Contains(data, []byte("-----BEGIN")) {
		return data, nil
	}
	normalized, err := NormalizePEM(string(data), "CERTIFICATE")
	if err != nil {
		return nil, err
	}
	rest := normalized
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, fmt.Errorf("no CERTIFICATE PEM block found")
		}
		if block.Type == "CERTIFICATE" {
			return block.Bytes, nil
		}
	}
}
