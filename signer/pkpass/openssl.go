package pkpass

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os/exec"

	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/credentials"
)

// opensslBinary is the command invoked in openssl mode
var opensslBinary = "openssl"

// SignManifestWithOpenSSL produces the detached signature of the
// manifest with `openssl smime`. The key and leaf are written to a
// transient file for the duration of the command.
func SignManifestWithOpenSSL(ctx context.Context, manifest []byte, id *SigningIdentity) ([]byte, error) {
	if id == nil || id.PrivateKey == nil || id.Certificate == nil {
		return nil, fmt.Errorf("%w: incomplete signing identity", ErrInvalidCredential)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(id.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal private key: %v", ErrInvalidCredential, err)
	}
	var signerPEM bytes.Buffer
	pem.Encode(&signerPEM, &pem.Block{Type: "CERTIFICATE", Bytes: id.Certificate.Raw})
	pem.Encode(&signerPEM, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	var signature []byte
	err = credentials.WithTransientKeyFile(signerPEM.Bytes(), func(signerPath string) error {
		args := []string{"smime", "-sign", "-binary", "-md", "sha1",
			"-outform", "DER", "-signer", signerPath}
		if id.Intermediate == nil || !isDERSequence(id.Intermediate) {
			log.Warn("pkpass: no usable intermediate certificate, openssl signing leaf-only")
			signature, err = runOpenSSL(ctx, manifest, args)
			return err
		}
		intermediatePEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: id.Intermediate})
		return credentials.WithTransientKeyFile(intermediatePEM, func(intermediatePath string) error {
			signature, err = runOpenSSL(ctx, manifest, append(args, "-certfile", intermediatePath))
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return signature, nil
}

func runOpenSSL(ctx context.Context, manifest []byte, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, opensslBinary, args...)
	cmd.Stdin = bytes.NewReader(manifest)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pkpass: openssl failed to sign manifest: %w\n%s", err, stderr.String())
	}
	log.Debugf("pkpass: openssl produced a %d bytes signature", stdout.Len())
	return stdout.Bytes(), nil
}
