package pkpass

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

var (
	oidDataContentType = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidKeyBag          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 1}
	oidCertBag         = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 3}
	oidX509Certificate = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 22, 1}
)

// containerContents is what a strategy found in a PKCS#12 container.
// When candidates is set, the leaf certificate is searched among those
// first.
type containerContents struct {
	key        crypto.PrivateKey
	certs      []*x509.Certificate
	candidates []*x509.Certificate
}

// extractionStrategy decodes a PKCS#12 container one way
type extractionStrategy struct {
	name    string
	extract func(container []byte, password string) (*containerContents, error)
}

// extractionStrategies are tried in order, the first success wins.
// Containers in the wild disagree on how they store the private key.
var extractionStrategies = []extractionStrategy{
	{"shrouded key bag", extractShroudedKeyBag},
	{"plain key bag", extractPlainKeyBag},
	{"friendly name", extractByFriendlyName},
}

// ExtractIdentity decodes a PKCS#12 container and returns the private
// key with its end-entity certificate. A CA certificate of the container
// that issued the leaf is kept as the intermediate.
func ExtractIdentity(container []byte, password string) (*SigningIdentity, error) {
	if len(container) == 0 {
		return nil, fmt.Errorf("%w: empty container", ErrInvalidCredential)
	}
	var failures []string
	for _, strategy := range extractionStrategies {
		contents, err := strategy.extract(container, password)
		if err == nil {
			var id *SigningIdentity
			id, err = identityFromContents(contents)
			if err == nil {
				log.Debugf("pkpass: extracted signing identity %q with the %s strategy", id.Certificate.Subject.CommonName, strategy.name)
				return id, nil
			}
		}
		failures = append(failures, strategy.name+": "+err.Error())
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, strings.Join(failures, "; "))
}

// extractShroudedKeyBag decodes password encrypted key bags
func extractShroudedKeyBag(container []byte, password string) (*containerContents, error) {
	key, leaf, caCerts, err := gop12.DecodeChain(container, password)
	if err != nil {
		return nil, err
	}
	certs := append([]*x509.Certificate{leaf}, caCerts...)
	for i, c := range certs {
		certs[i], err = rederiveCertificate(c)
		if err != nil {
			return nil, err
		}
	}
	return &containerContents{key: key, certs: certs}, nil
}

// extractPlainKeyBag walks the unencrypted contents of the container
// looking for an unencrypted key bag and certificate bags
func extractPlainKeyBag(container []byte, _ string) (*containerContents, error) {
	var (
		pfx, authSafe, authSafeContent, safes cryptobyte.String
		version                               int64
		contentType                           asn1.ObjectIdentifier
	)
	input := cryptobyte.String(container)
	if !input.ReadASN1(&pfx, cryptobyte_asn1.SEQUENCE) ||
		!pfx.ReadASN1Integer(&version) ||
		!pfx.ReadASN1(&authSafe, cryptobyte_asn1.SEQUENCE) ||
		!authSafe.ReadASN1ObjectIdentifier(&contentType) {
		return nil, errors.New("malformed PFX structure")
	}
	if version != 3 {
		return nil, fmt.Errorf("unsupported PFX version %d", version)
	}
	if !contentType.Equal(oidDataContentType) {
		return nil, errors.New("PFX authenticated safe is not of type data")
	}
	if !authSafe.ReadASN1(&authSafeContent, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) ||
		!authSafeContent.ReadASN1(&safes, cryptobyte_asn1.OCTET_STRING) {
		return nil, errors.New("malformed PFX authenticated safe")
	}
	var authenticatedSafe cryptobyte.String
	if !safes.ReadASN1(&authenticatedSafe, cryptobyte_asn1.SEQUENCE) {
		return nil, errors.New("malformed authenticated safe sequence")
	}

	contents := &containerContents{}
	var skipped int
	for !authenticatedSafe.Empty() {
		var (
			ci, explicit, bags cryptobyte.String
			ciType             asn1.ObjectIdentifier
		)
		if !authenticatedSafe.ReadASN1(&ci, cryptobyte_asn1.SEQUENCE) ||
			!ci.ReadASN1ObjectIdentifier(&ciType) {
			return nil, errors.New("malformed authenticated safe content info")
		}
		if !ciType.Equal(oidDataContentType) {
			// encrypted safe contents are handled by the other strategies
			skipped++
			continue
		}
		if !ci.ReadASN1(&explicit, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) ||
			!explicit.ReadASN1(&bags, cryptobyte_asn1.OCTET_STRING) {
			return nil, errors.New("malformed safe contents")
		}
		if err := readSafeBags(bags, contents); err != nil {
			return nil, err
		}
	}
	if contents.key == nil {
		return nil, fmt.Errorf("no unencrypted key bag found (%d encrypted safe contents skipped)", skipped)
	}
	return contents, nil
}

// readSafeBags reads the key and certificate bags of a SafeContents
func readSafeBags(der cryptobyte.String, contents *containerContents) error {
	var safeContents cryptobyte.String
	if !der.ReadASN1(&safeContents, cryptobyte_asn1.SEQUENCE) {
		return errors.New("malformed safe contents sequence")
	}
	for !safeContents.Empty() {
		var (
			bag, value cryptobyte.String
			bagID      asn1.ObjectIdentifier
		)
		if !safeContents.ReadASN1(&bag, cryptobyte_asn1.SEQUENCE) ||
			!bag.ReadASN1ObjectIdentifier(&bagID) ||
			!bag.ReadASN1(&value, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
			return errors.New("malformed safe bag")
		}
		switch {
		case bagID.Equal(oidKeyBag):
			var keyInfo cryptobyte.String
			if !value.ReadASN1Element(&keyInfo, cryptobyte_asn1.SEQUENCE) {
				return errors.New("malformed key bag")
			}
			key, err := parseBagKey(keyInfo)
			if err != nil {
				return err
			}
			if contents.key == nil {
				contents.key = key
			}
		case bagID.Equal(oidCertBag):
			var (
				certBag, certValue, certDER cryptobyte.String
				certType                    asn1.ObjectIdentifier
			)
			if !value.ReadASN1(&certBag, cryptobyte_asn1.SEQUENCE) ||
				!certBag.ReadASN1ObjectIdentifier(&certType) ||
				!certBag.ReadASN1(&certValue, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) ||
				!certValue.ReadASN1(&certDER, cryptobyte_asn1.OCTET_STRING) {
				return errors.New("malformed certificate bag")
			}
			if !certType.Equal(oidX509Certificate) {
				continue
			}
			cert, err := parseCertificateDER(certDER)
			if err != nil {
				return err
			}
			contents.certs = append(contents.certs, cert)
		}
	}
	return nil
}

// extractByFriendlyName decodes every bag of the container as PEM and
// pairs the key with the certificates sharing its localKeyId or
// friendlyName attribute
func extractByFriendlyName(container []byte, password string) (*containerContents, error) {
	blocks, err := gop12.ToPEM(container, password)
	if err != nil {
		return nil, err
	}
	type indexedKey struct {
		key   crypto.PrivateKey
		index string
	}
	var (
		keys     []indexedKey
		contents = &containerContents{}
		byIndex  = make(map[string][]*x509.Certificate)
	)
	for _, block := range blocks {
		index := block.Headers["localKeyId"]
		if index == "" {
			index = block.Headers["friendlyName"]
		}
		switch {
		case strings.HasSuffix(block.Type, "PRIVATE KEY"):
			key, err := parseBagKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			keys = append(keys, indexedKey{key, index})
		case block.Type == "CERTIFICATE":
			cert, err := parseCertificateDER(block.Bytes)
			if err != nil {
				return nil, err
			}
			contents.certs = append(contents.certs, cert)
			if index != "" {
				byIndex[index] = append(byIndex[index], cert)
			}
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("no private key bag found")
	}
	// prefer a key with an attribute naming its certificate
	chosen := keys[0]
	for _, k := range keys {
		if k.index != "" && len(byIndex[k.index]) > 0 {
			chosen = k
			break
		}
	}
	contents.key = chosen.key
	if chosen.index != "" {
		contents.candidates = byIndex[chosen.index]
	}
	return contents, nil
}

// parseBagKey parses the private key of a key bag. Bags hold PKCS#8
// in the standard, but some producers store bare PKCS#1 or SEC1 keys.
func parseBagKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := rsaKeyFromParameters(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("private key bag is neither PKCS#8, PKCS#1 nor SEC1")
}

// rsaKeyFromParameters rebuilds an RSA private key from the raw
// parameters of a PKCS#1 RSAPrivateKey structure
func rsaKeyFromParameters(der []byte) (*rsa.PrivateKey, error) {
	var (
		input   = cryptobyte.String(der)
		seq     cryptobyte.String
		version int64
		e       int64
	)
	n, d, p, q := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	dp, dq, qinv := new(big.Int), new(big.Int), new(big.Int)
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) ||
		!seq.ReadASN1Integer(&version) ||
		!seq.ReadASN1Integer(n) ||
		!seq.ReadASN1Integer(&e) ||
		!seq.ReadASN1Integer(d) ||
		!seq.ReadASN1Integer(p) ||
		!seq.ReadASN1Integer(q) ||
		!seq.ReadASN1Integer(dp) ||
		!seq.ReadASN1Integer(dq) ||
		!seq.ReadASN1Integer(qinv) {
		return nil, errors.New("malformed RSA private key parameters")
	}
	if version != 0 {
		return nil, errors.New("multi-prime RSA keys are not supported")
	}
	if n.Sign() <= 0 || d.Sign() <= 0 || p.Sign() <= 0 || q.Sign() <= 0 || e < 3 || e > 1<<31-1 {
		return nil, errors.New("invalid RSA private key parameters")
	}
	key := &rsa.PrivateKey{
		PublicKey: rsa.PublicKey{N: n, E: int(e)},
		D:         d,
		Primes:    []*big.Int{p, q},
		Precomputed: rsa.PrecomputedValues{
			Dp:   dp,
			Dq:   dq,
			Qinv: qinv,
		},
	}
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent RSA private key parameters: %w", err)
	}
	one := big.NewInt(1)
	wantQinv := new(big.Int).ModInverse(q, p)
	if wantQinv == nil ||
		dp.Cmp(new(big.Int).Mod(d, new(big.Int).Sub(p, one))) != 0 ||
		dq.Cmp(new(big.Int).Mod(d, new(big.Int).Sub(q, one))) != 0 ||
		qinv.Cmp(wantQinv) != 0 {
		return nil, errors.New("inconsistent RSA CRT parameters")
	}
	key.Precompute()
	return key, nil
}

// identityFromContents pairs the key with exactly one end-entity
// certificate holding its public key
func identityFromContents(contents *containerContents) (*SigningIdentity, error) {
	signer, ok := contents.key.(crypto.Signer)
	if !ok || signer == nil {
		return nil, fmt.Errorf("private key of type %T cannot sign", contents.key)
	}
	leaf, err := findLeaf(signer.Public(), contents.candidates)
	if err != nil || leaf == nil {
		leaf, err = findLeaf(signer.Public(), contents.certs)
	}
	if err != nil {
		return nil, err
	}
	if leaf == nil {
		return nil, errors.New("no certificate matches the private key")
	}
	id := &SigningIdentity{PrivateKey: signer, Certificate: leaf}
	for _, c := range contents.certs {
		if !bytes.Equal(c.Raw, leaf.Raw) && bytes.Equal(c.RawSubject, leaf.RawIssuer) {
			id.Intermediate = c.Raw
			break
		}
	}
	return id, nil
}

// findLeaf returns the single distinct certificate whose public key is
// pub, nil when there is none
func findLeaf(pub crypto.PublicKey, certs []*x509.Certificate) (*x509.Certificate, error) {
	var leaf *x509.Certificate
	for _, c := range certs {
		if c == nil || !publicKeysEqual(pub, c.PublicKey) {
			continue
		}
		if leaf != nil && !bytes.Equal(leaf.Raw, c.Raw) {
			return nil, errors.New("more than one certificate matches the private key")
		}
		leaf = c
	}
	return leaf, nil
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	ea, ok := a.(equaler)
	return ok && ea.Equal(b)
}

// parseCertificateDER parses a certificate, re-deriving from the raw
// ASN.1 whatever the x509 package could not represent
func parseCertificateDER(der []byte) (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		cert, rawErr := reparseCertificate(der)
		if rawErr != nil {
			return nil, fmt.Errorf("failed to parse certificate: %v; raw reparse: %w", err, rawErr)
		}
		return cert, nil
	}
	return rederiveCertificate(cert)
}

// rederiveCertificate fills in the signature metadata of a certificate
// parsed without it
func rederiveCertificate(cert *x509.Certificate) (*x509.Certificate, error) {
	if cert.SignatureAlgorithm != x509.UnknownSignatureAlgorithm && len(cert.Signature) > 0 {
		return cert, nil
	}
	raw, err := reparseCertificate(cert.Raw)
	if err != nil {
		return nil, err
	}
	c := *cert
	c.Signature = raw.Signature
	if c.SignatureAlgorithm == x509.UnknownSignatureAlgorithm {
		c.SignatureAlgorithm = raw.SignatureAlgorithm
	}
	return &c, nil
}

// signatureAlgorithms maps signature OIDs to the x509 constants
var signatureAlgorithms = []struct {
	oid asn1.ObjectIdentifier
	alg x509.SignatureAlgorithm
}{
	{asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 5}, x509.SHA1WithRSA},
	{asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 11}, x509.SHA256WithRSA},
	{asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 12}, x509.SHA384WithRSA},
	{asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 13}, x509.SHA512WithRSA},
	{asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 1}, x509.ECDSAWithSHA1},
	{asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 2}, x509.ECDSAWithSHA256},
	{asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 3}, x509.ECDSAWithSHA384},
	{asn1.ObjectIdentifier{1, 2, 840, 10045, 4, 3, 4}, x509.ECDSAWithSHA512},
	{asn1.ObjectIdentifier{1, 3, 101, 112}, x509.PureEd25519},
}

// reparseCertificate reads the fields needed to sign with and embed a
// certificate directly from its DER encoding
func reparseCertificate(der []byte) (*x509.Certificate, error) {
	var (
		input                         = cryptobyte.String(der)
		certSeq, tbs, sigAlg, tbsBody cryptobyte.String
		issuer, subject, spki         cryptobyte.String
		validity                      cryptobyte.String
		sigOID                        asn1.ObjectIdentifier
		sigBits                       asn1.BitString
		serial                        = new(big.Int)
	)
	if !input.ReadASN1(&certSeq, cryptobyte_asn1.SEQUENCE) ||
		!certSeq.ReadASN1Element(&tbs, cryptobyte_asn1.SEQUENCE) ||
		!certSeq.ReadASN1(&sigAlg, cryptobyte_asn1.SEQUENCE) ||
		!sigAlg.ReadASN1ObjectIdentifier(&sigOID) ||
		!certSeq.ReadASN1BitString(&sigBits) {
		return nil, errors.New("malformed certificate")
	}
	tbsRaw := []byte(tbs)
	if !tbs.ReadASN1(&tbsBody, cryptobyte_asn1.SEQUENCE) ||
		!tbsBody.SkipOptionalASN1(cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) ||
		!tbsBody.ReadASN1Integer(serial) ||
		!tbsBody.SkipASN1(cryptobyte_asn1.SEQUENCE) ||
		!tbsBody.ReadASN1Element(&issuer, cryptobyte_asn1.SEQUENCE) ||
		!tbsBody.ReadASN1(&validity, cryptobyte_asn1.SEQUENCE) ||
		!tbsBody.ReadASN1Element(&subject, cryptobyte_asn1.SEQUENCE) ||
		!tbsBody.ReadASN1Element(&spki, cryptobyte_asn1.SEQUENCE) {
		return nil, errors.New("malformed TBSCertificate")
	}
	notBefore, err := readValidityTime(&validity)
	if err != nil {
		return nil, err
	}
	notAfter, err := readValidityTime(&validity)
	if err != nil {
		return nil, err
	}
	pub, err := x509.ParsePKIXPublicKey(spki)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate public key: %w", err)
	}
	cert := &x509.Certificate{
		Raw:                     der,
		RawTBSCertificate:       tbsRaw,
		RawSubjectPublicKeyInfo: spki,
		RawSubject:              subject,
		RawIssuer:               issuer,
		Signature:               sigBits.RightAlign(),
		SerialNumber:            serial,
		NotBefore:               notBefore,
		NotAfter:                notAfter,
		PublicKey:               pub,
	}
	for _, a := range signatureAlgorithms {
		if a.oid.Equal(sigOID) {
			cert.SignatureAlgorithm = a.alg
			break
		}
	}
	switch pub.(type) {
	case *rsa.PublicKey:
		cert.PublicKeyAlgorithm = x509.RSA
	case *ecdsa.PublicKey:
		cert.PublicKeyAlgorithm = x509.ECDSA
	case ed25519.PublicKey:
		cert.PublicKeyAlgorithm = x509.Ed25519
	}
	return cert, nil
}

func readValidityTime(s *cryptobyte.String) (time.Time, error) {
	var t time.Time
	switch {
	case s.PeekASN1Tag(cryptobyte_asn1.UTCTime):
		if !s.ReadASN1UTCTime(&t) {
			return t, errors.New("malformed certificate validity UTCTime")
		}
	case s.PeekASN1Tag(cryptobyte_asn1.GeneralizedTime):
		if !s.ReadASN1GeneralizedTime(&t) {
			return t, errors.New("malformed certificate validity GeneralizedTime")
		}
	default:
		return t, errors.New("unsupported certificate validity time format")
	}
	return t, nil
}
