// Command genpki generates a development certification authority and
// a Pass Type ID certificate issued by it, to configure a walletpass
// signer without Apple issued credentials.
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"time"

	gop12 "software.sslmate.com/src/go-pkcs12"
)

// oidUserID is the subject attribute carrying the pass type identifier
var oidUserID = asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}

type options struct {
	passType string
	team     string
	org      string
	password string
	validity time.Duration
}

// devPKI is a generated CA and pass type certificate
type devPKI struct {
	caCert   *x509.Certificate
	leafKey  *rsa.PrivateKey
	leafCert *x509.Certificate
}

func main() {
	var (
		opts   options
		outDir string
	)
	flag.StringVar(&opts.passType, "pass-type", "pass.com.evently.dev", "pass type identifier of the certificate")
	flag.StringVar(&opts.team, "team", "ABCDE12345", "team identifier of the certificate")
	flag.StringVar(&opts.org, "org", "Evently Dev", "organization of the certificate")
	flag.StringVar(&opts.password, "password", "walletpass", "password of the PKCS#12 container")
	flag.DurationVar(&opts.validity, "validity", 365*24*time.Hour, "validity of the pass type certificate")
	flag.StringVar(&outDir, "out", ".", "directory to write the PKI to")
	flag.Parse()

	pki, err := generate(opts, time.Now())
	if err != nil {
		log.Fatal(err)
	}
	files, err := pki.files(opts.password)
	if err != nil {
		log.Fatal(err)
	}
	for name, data := range files {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, data, 0600); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s\n", path)
	}
}

// generate creates the CA and the pass type certificate, both valid
// from now on
func generate(opts options, now time.Time) (*devPKI, error) {
	caKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	caTpl := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject: pkix.Name{
			CommonName:         opts.org + " WWDR Certification Authority",
			Organization:       []string{opts.org},
			OrganizationalUnit: []string{"Development"},
		},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(10, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTpl, caTpl, caKey.Public(), caKey)
	if err != nil {
		return nil, fmt.Errorf("create ca failed: %w", err)
	}
	caCert, err := x509.ParseCertificate(caDER)
	if err != nil {
		return nil, err
	}

	leafKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	leafTpl := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano() + 1),
		Subject: pkix.Name{
			CommonName:         "Pass Type ID: " + opts.passType,
			Organization:       []string{opts.org},
			OrganizationalUnit: []string{opts.team},
			ExtraNames:         []pkix.AttributeTypeAndValue{{Type: oidUserID, Value: opts.passType}},
		},
		NotBefore:   now,
		NotAfter:    now.Add(opts.validity),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTpl, caCert, leafKey.Public(), caKey)
	if err != nil {
		return nil, fmt.Errorf("create pass type certificate failed: %w", err)
	}
	leafCert, err := x509.ParseCertificate(leafDER)
	if err != nil {
		return nil, err
	}

	// verify the chain
	roots := x509.NewCertPool()
	roots.AddCert(caCert)
	_, err = leafCert.Verify(x509.VerifyOptions{
		Roots:       roots,
		CurrentTime: now,
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to verify pass type certificate chain: %w", err)
	}
	return &devPKI{caCert: caCert, leafKey: leafKey, leafCert: leafCert}, nil
}

// files returns the PEM and PKCS#12 encodings of the PKI by file name
func (p *devPKI) files(password string) (map[string][]byte, error) {
	keyDER, err := x509.MarshalPKCS8PrivateKey(p.leafKey)
	if err != nil {
		return nil, err
	}
	pfx, err := gop12.Modern.Encode(p.leafKey, p.leafCert, []*x509.Certificate{p.caCert}, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode PKCS#12 container: %w", err)
	}
	return map[string][]byte{
		"wwdr.pem":     pemEncode("CERTIFICATE", p.caCert.Raw),
		"pass.pem":     pemEncode("CERTIFICATE", p.leafCert.Raw),
		"pass-key.pem": pemEncode("PRIVATE KEY", keyDER),
		"pass.p12":     pfx,
	}, nil
}

func pemEncode(blockType string, der []byte) []byte {
	var buf bytes.Buffer
	pem.Encode(&buf, &pem.Block{Type: blockType, Bytes: der})
	return buf.Bytes()
}
