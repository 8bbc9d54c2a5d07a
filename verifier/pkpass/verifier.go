// Package pkpass verifies the structure and signature of .pkpass archives
package pkpass // import "github.com/evently/walletpass/verifier/pkpass"

import (
	"bytes"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.mozilla.org/pkcs7"

	pkpasssigner "github.com/evently/walletpass/signer/pkpass"
)

// ErrInvalidArchive is wrapped by every verification failure
var ErrInvalidArchive = errors.New("pkpass: invalid pass archive")

// Result describes a verified archive
type Result struct {
	// Signer is the certificate the manifest was signed with
	Signer *x509.Certificate

	// Chain holds every certificate embedded in the signature
	Chain []*x509.Certificate

	// SigningTime is the signing time attribute, zero when absent
	SigningTime time.Time

	// Files lists the members covered by the manifest, sorted
	Files []string
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArchive, fmt.Sprintf(format, args...))
}

// VerifyArchive checks that every member of a pass archive is flat and
// covered exactly once by the manifest with a matching SHA-1 digest, and
// that the signature is a valid detached signature of the manifest by a
// single signer. When roots is set the signer must chain to one of them.
func VerifyArchive(archive []byte, roots *x509.CertPool) (*Result, error) {
	members, err := pkpasssigner.Unpack(archive)
	if err != nil {
		return nil, invalid("%v", err)
	}
	var (
		manifestData, signature []byte
		contents                = make(map[string][]byte, len(members))
	)
	for _, m := range members {
		if m.Name == "" || strings.ContainsAny(m.Name, "/\\") {
			return nil, invalid("member %q is not a flat file name", m.Name)
		}
		if _, ok := contents[m.Name]; ok || (m.Name == pkpasssigner.ManifestName && manifestData != nil) || (m.Name == pkpasssigner.SignatureName && signature != nil) {
			return nil, invalid("duplicate member %q", m.Name)
		}
		switch m.Name {
		case pkpasssigner.ManifestName:
			manifestData = m.Data
		case pkpasssigner.SignatureName:
			signature = m.Data
		default:
			contents[m.Name] = m.Data
		}
	}
	if manifestData == nil {
		return nil, invalid("missing %s", pkpasssigner.ManifestName)
	}
	if signature == nil {
		return nil, invalid("missing %s", pkpasssigner.SignatureName)
	}

	manifest, err := pkpasssigner.ParseManifest(manifestData)
	if err != nil {
		return nil, invalid("%v", err)
	}
	result := &Result{}
	for name, data := range contents {
		want, ok := manifest[name]
		if !ok {
			return nil, invalid("member %q is not in the manifest", name)
		}
		sum := sha1.Sum(data)
		if !strings.EqualFold(want, hex.EncodeToString(sum[:])) {
			return nil, invalid("digest of %q does not match the manifest", name)
		}
		result.Files = append(result.Files, name)
	}
	for name := range manifest {
		if _, ok := contents[name]; !ok {
			return nil, invalid("manifest lists missing member %q", name)
		}
	}
	sort.Strings(result.Files)

	p7, err := pkcs7.Parse(signature)
	if err != nil {
		return nil, invalid("failed to parse signature: %v", err)
	}
	if len(p7.Content) != 0 && !bytes.Equal(p7.Content, manifestData) {
		return nil, invalid("signature embeds content other than the manifest")
	}
	p7.Content = manifestData
	if len(p7.Signers) != 1 {
		return nil, invalid("expected one signer, found %d", len(p7.Signers))
	}
	var digest []byte
	if err := p7.UnmarshalSignedAttribute(pkcs7.OIDAttributeMessageDigest, &digest); err != nil {
		return nil, invalid("failed to read message digest: %v", err)
	}
	manifestSum := sha1.Sum(manifestData)
	if !bytes.Equal(digest, manifestSum[:]) {
		return nil, invalid("message digest does not match the SHA-1 of the manifest")
	}
	if roots != nil {
		err = p7.VerifyWithChain(roots)
	} else {
		err = p7.Verify()
	}
	if err != nil {
		return nil, invalid("signature verification failed: %v", err)
	}
	// signing time is optional
	_ = p7.UnmarshalSignedAttribute(pkcs7.OIDAttributeSigningTime, &result.SigningTime)

	result.Signer = p7.GetOnlySigner()
	result.Chain = p7.Certificates
	return result, nil
}
