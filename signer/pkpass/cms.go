package pkpass

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"encoding/asn1"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mozilla.org/pkcs7"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// SignManifest returns a detached CMS SignedData signature of the
// manifest, DER encoded. The SignedData carries the leaf certificate
// followed by the intermediate when it is well-formed, and a single
// SignerInfo signing the content type, signing time and SHA-1 message
// digest attributes.
func SignManifest(manifest []byte, id *SigningIdentity, signingTime time.Time) ([]byte, error) {
	if id == nil || id.PrivateKey == nil || id.Certificate == nil {
		return nil, fmt.Errorf("%w: incomplete signing identity", ErrInvalidCredential)
	}
	sigAlg, err := signatureAlgorithmFor(id.PrivateKey.Public())
	if err != nil {
		return nil, err
	}

	digest := sha1.Sum(manifest)
	attrs, err := signedAttributes(digest[:], signingTime)
	if err != nil {
		return nil, err
	}
	// the signature covers the attributes encoded as an explicit SET OF
	toSign := cryptobyte.NewBuilder(nil)
	toSign.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
		for _, a := range attrs {
			b.AddBytes(a)
		}
	})
	signedBytes, err := toSign.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to encode signed attributes: %w", err)
	}
	attrsDigest := sha1.Sum(signedBytes)
	signature, err := id.PrivateKey.Sign(rand.Reader, attrsDigest[:], crypto.SHA1)
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to sign manifest: %w", err)
	}

	certs := [][]byte{id.Certificate.Raw}
	switch {
	case id.Intermediate == nil:
	case !isDERSequence(id.Intermediate):
		log.Warn("pkpass: intermediate certificate is not valid DER, signing leaf-only")
	default:
		certs = append(certs, id.Intermediate)
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(contentInfo *cryptobyte.Builder) {
		contentInfo.AddASN1ObjectIdentifier(pkcs7.OIDSignedData)
		contentInfo.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(explicit *cryptobyte.Builder) {
			explicit.AddASN1(cryptobyte_asn1.SEQUENCE, func(sd *cryptobyte.Builder) {
				sd.AddASN1Int64(1)
				sd.AddASN1(cryptobyte_asn1.SET, func(algs *cryptobyte.Builder) {
					addDigestAlgorithm(algs)
				})
				// detached: the encapsulated content info has no content
				sd.AddASN1(cryptobyte_asn1.SEQUENCE, func(encap *cryptobyte.Builder) {
					encap.AddASN1ObjectIdentifier(pkcs7.OIDData)
				})
				sd.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(set *cryptobyte.Builder) {
					for _, c := range certs {
						set.AddBytes(c)
					}
				})
				sd.AddASN1(cryptobyte_asn1.SET, func(infos *cryptobyte.Builder) {
					infos.AddASN1(cryptobyte_asn1.SEQUENCE, func(si *cryptobyte.Builder) {
						si.AddASN1Int64(1)
						si.AddASN1(cryptobyte_asn1.SEQUENCE, func(ias *cryptobyte.Builder) {
							ias.AddBytes(id.Certificate.RawIssuer)
							ias.AddASN1BigInt(id.Certificate.SerialNumber)
						})
						addDigestAlgorithm(si)
						si.AddASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed(), func(set *cryptobyte.Builder) {
							for _, a := range attrs {
								set.AddBytes(a)
							}
						})
						si.AddASN1(cryptobyte_asn1.SEQUENCE, func(alg *cryptobyte.Builder) {
							alg.AddASN1ObjectIdentifier(sigAlg.oid)
							if sigAlg.nullParams {
								alg.AddASN1NULL()
							}
						})
						si.AddASN1OctetString(signature)
					})
				})
			})
		})
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to encode signed data: %w", err)
	}
	return der, nil
}

type signatureAlgorithm struct {
	oid        asn1.ObjectIdentifier
	nullParams bool
}

func signatureAlgorithmFor(pub crypto.PublicKey) (signatureAlgorithm, error) {
	switch pub.(type) {
	case *rsa.PublicKey:
		return signatureAlgorithm{pkcs7.OIDEncryptionAlgorithmRSA, true}, nil
	case *ecdsa.PublicKey:
		return signatureAlgorithm{pkcs7.OIDDigestAlgorithmECDSASHA1, false}, nil
	default:
		return signatureAlgorithm{}, fmt.Errorf("%w: unsupported signing key type %T", ErrInvalidCredential, pub)
	}
}

func addDigestAlgorithm(b *cryptobyte.Builder) {
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(alg *cryptobyte.Builder) {
		alg.AddASN1ObjectIdentifier(pkcs7.OIDDigestAlgorithmSHA1)
		alg.AddASN1NULL()
	})
}

// signedAttributes returns the DER encoded attributes in SET OF order
func signedAttributes(digest []byte, signingTime time.Time) ([][]byte, error) {
	encodedTime, err := asn1.Marshal(signingTime.UTC())
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to encode signing time: %w", err)
	}
	values := []struct {
		oid   asn1.ObjectIdentifier
		value func(*cryptobyte.Builder)
	}{
		{pkcs7.OIDAttributeContentType, func(b *cryptobyte.Builder) { b.AddASN1ObjectIdentifier(pkcs7.OIDData) }},
		{pkcs7.OIDAttributeSigningTime, func(b *cryptobyte.Builder) { b.AddBytes(encodedTime) }},
		{pkcs7.OIDAttributeMessageDigest, func(b *cryptobyte.Builder) { b.AddASN1OctetString(digest) }},
	}
	attrs := make([][]byte, 0, len(values))
	for _, v := range values {
		b := cryptobyte.NewBuilder(nil)
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(attr *cryptobyte.Builder) {
			attr.AddASN1ObjectIdentifier(v.oid)
			attr.AddASN1(cryptobyte_asn1.SET, v.value)
		})
		der, err := b.Bytes()
		if err != nil {
			return nil, fmt.Errorf("pkpass: failed to encode attribute %s: %w", v.oid, err)
		}
		attrs = append(attrs, der)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return bytes.Compare(attrs[i], attrs[j]) < 0
	})
	return attrs, nil
}

// isDERSequence reports whether der is exactly one DER SEQUENCE
func isDERSequence(der []byte) bool {
	var (
		input = cryptobyte.String(der)
		seq   cryptobyte.String
	)
	return input.ReadASN1Element(&seq, cryptobyte_asn1.SEQUENCE) && input.Empty()
}
