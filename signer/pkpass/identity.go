package pkpass

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/credentials"
	"github.com/evently/walletpass/signer"
)

// SigningIdentity is the key and certificates passes are signed with
type SigningIdentity struct {
	PrivateKey  crypto.Signer
	Certificate *x509.Certificate

	// Intermediate is the DER encoding of the certificate that issued
	// Certificate. It is embedded in signatures verbatim and may use
	// algorithms the x509 package cannot parse. Nil signs leaf-only.
	Intermediate []byte
}

// IdentityLoader derives a signing identity from its sources
type IdentityLoader func(ctx context.Context) (*SigningIdentity, error)

// IdentityCache holds the signing identity of a signer once loaded.
// Failed loads are not cached, so every call after a failure retries.
// Concurrent loads on a cold cache may all run, the last one wins: they
// derive equivalent identities from the same sources.
type IdentityCache struct {
	load IdentityLoader

	mu       sync.RWMutex
	identity *SigningIdentity
}

// NewIdentityCache returns an empty cache populated by load
func NewIdentityCache(load IdentityLoader) *IdentityCache {
	return &IdentityCache{load: load}
}

// Get returns the cached identity or loads it
func (c *IdentityCache) Get(ctx context.Context) (*SigningIdentity, error) {
	c.mu.RLock()
	id := c.identity
	c.mu.RUnlock()
	if id != nil {
		return id, nil
	}

	id, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.identity = id
	c.mu.Unlock()
	return id, nil
}

// Reset drops the cached identity so the next Get reloads it
func (c *IdentityCache) Reset() {
	c.mu.Lock()
	c.identity = nil
	c.mu.Unlock()
}

// NewIdentityLoader returns a loader reading the signing material of a
// signer configuration: the PEM key and certificate when configured,
// the PKCS#12 container of its credentials otherwise. A configured
// intermediate replaces the one found in the container; when none can
// be loaded signing proceeds leaf-only.
func NewIdentityLoader(conf signer.Configuration, loader *credentials.Loader) IdentityLoader {
	return func(ctx context.Context) (*SigningIdentity, error) {
		var (
			id  *SigningIdentity
			err error
		)
		if conf.PrivateKey != "" && conf.Certificate != "" {
			id, err = identityFromPEM(conf.PrivateKey, conf.Certificate)
		} else {
			var container []byte
			container, err = loader.LoadContainer(ctx, conf.Credentials)
			if err != nil {
				return nil, err
			}
			id, err = ExtractIdentity(container, conf.Credentials.Password)
		}
		if err != nil {
			return nil, err
		}

		intermediate, err := loader.LoadIntermediate(ctx, conf.Credentials)
		switch {
		case err != nil:
			log.WithFields(log.Fields{"signer": conf.ID}).Warnf("pkpass: failed to load intermediate certificate: %v", err)
		case intermediate != nil:
			id.Intermediate = intermediate
		}
		if id.Intermediate == nil {
			log.WithFields(log.Fields{"signer": conf.ID}).Warn("pkpass: no intermediate certificate available, passes will be signed leaf-only")
		}
		return id, nil
	}
}

// identityFromPEM parses a PEM key and certificate, tolerating the
// quoting and wrapping damage of secrets passed through environments
func identityFromPEM(keyPEM, certPEM string) (*SigningIdentity, error) {
	normalizedKey, err := credentials.NormalizePEM(keyPEM, "PRIVATE KEY")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	key, err := signer.ParsePrivateKey(normalizedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	normalizedCert, err := credentials.NormalizePEM(certPEM, "CERTIFICATE")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	var certs []*x509.Certificate
	rest := normalizedCert
	for {
		var der []byte
		der, rest = nextCertificate(rest)
		if der == nil {
			break
		}
		cert, err := parseCertificateDER(der)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
		}
		certs = append(certs, cert)
	}
	id, err := identityFromContents(&containerContents{key: key, certs: certs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return id, nil
}

// nextCertificate returns the DER of the next CERTIFICATE block of a
// PEM input and the remaining input, nil when there is none
func nextCertificate(data []byte) ([]byte, []byte) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, data
		}
		if block.Type == "CERTIFICATE" {
			return block.Bytes, data
		}
	}
}
