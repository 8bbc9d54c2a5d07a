package pkpass

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"sync"
	"testing"
	"time"

	gop12 "software.sslmate.com/src/go-pkcs12"
)

const testPassword = "walletpass-test"

// testPKI is a CA and a pass type certificate it issued
type testPKI struct {
	caKey   *rsa.PrivateKey
	ca      *x509.Certificate
	leafKey *rsa.PrivateKey
	leaf    *x509.Certificate
}

var (
	sharedPKI     *testPKI
	sharedPKIOnce sync.Once
)

// getTestPKI returns the PKI shared by the tests of the package, RSA
// key generation being too slow to repeat in every test
func getTestPKI(t *testing.T) *testPKI {
	t.Helper()
	sharedPKIOnce.Do(func() {
		caKey, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate CA key: %v", err)
		}
		leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("failed to generate leaf key: %v", err)
		}
		ca := makeCertificate(t, "Test WWDR CA", big.NewInt(1), true, &caKey.PublicKey, nil, caKey)
		leaf := makeCertificate(t, "Pass Type ID: pass.com.example.test", big.NewInt(4242), false, &leafKey.PublicKey, ca, caKey)
		sharedPKI = &testPKI{caKey: caKey, ca: ca, leafKey: leafKey, leaf: leaf}
	})
	if sharedPKI == nil {
		t.Fatal("test PKI initialization failed")
	}
	return sharedPKI
}

func makeCertificate(t *testing.T, cn string, serial *big.Int, isCA bool, pub crypto.PublicKey, parent *x509.Certificate, parentKey crypto.Signer) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Evently Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if isCA {
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	} else {
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageAny}
	}
	if parent == nil {
		parent = tmpl
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parent, pub, parentKey)
	if err != nil {
		t.Fatalf("failed to create certificate %q: %v", cn, err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate %q: %v", cn, err)
	}
	return cert
}

// container returns a password protected PKCS#12 of the leaf and CA
func (p *testPKI) container(t *testing.T) []byte {
	t.Helper()
	pfx, err := gop12.Modern.Encode(p.leafKey, p.leaf, []*x509.Certificate{p.ca}, testPassword)
	if err != nil {
		t.Fatalf("failed to encode PKCS#12 container: %v", err)
	}
	return pfx
}

func (p *testPKI) containerBase64(t *testing.T) string {
	return base64.StdEncoding.EncodeToString(p.container(t))
}

func (p *testPKI) identity() *SigningIdentity {
	return &SigningIdentity{
		PrivateKey:   p.leafKey,
		Certificate:  p.leaf,
		Intermediate: p.ca.Raw,
	}
}

func (p *testPKI) roots() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(p.ca)
	return pool
}

func (p *testPKI) keyPEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(p.leafKey)}))
}

func (p *testPKI) leafPEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.leaf.Raw}))
}

func (p *testPKI) caPEM() string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.ca.Raw}))
}

// newECDSAIdentity returns a self-signed P-256 identity
func newECDSAIdentity(t *testing.T) *SigningIdentity {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ecdsa key: %v", err)
	}
	cert := makeCertificate(t, "Pass Type ID: pass.com.example.ec", big.NewInt(7), false, &key.PublicKey, nil, key)
	return &SigningIdentity{PrivateKey: key, Certificate: cert}
}
