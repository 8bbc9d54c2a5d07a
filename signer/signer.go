// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package signer // import "github.com/evently/walletpass/signer"

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/credentials"
	"github.com/evently/walletpass/pass"
)

// Configuration defines the parameters of a signer
type Configuration struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Mode string `json:"mode"`

	// PrivateKey and Certificate are PEM encoded alternatives to a
	// PKCS#12 container in Credentials
	PrivateKey  string `json:"privatekey,omitempty"`
	Certificate string `json:"certificate,omitempty"`

	// Credentials locates the PKCS#12 container and the intermediate
	// certificate of the signer
	Credentials credentials.Source `json:"credentials,omitempty"`

	PassTypeIdentifier string `json:"passtypeidentifier"`
	TeamIdentifier     string `json:"teamidentifier"`
	OrganizationName   string `json:"organizationname"`
	Description        string `json:"description,omitempty"`

	// Theme overrides the default pass colors
	Theme pass.Theme `json:"theme,omitempty"`

	// AssetsDir holds icon and logo images replacing the placeholders
	AssetsDir string `json:"assetsdir,omitempty"`

	// DisableImageResize ships PNG event images unmodified instead of
	// cropping and scaling them
	DisableImageResize bool `json:"disableimageresize,omitempty"`

	// ImageFetchTimeout bounds event image downloads
	ImageFetchTimeout time.Duration `json:"imagefetchtimeout,omitempty"`

	// UploadLocation is an optional s3:// or file:// URL where signed
	// passes are published
	UploadLocation string `json:"uploadlocation,omitempty"`
}

// Identity returns the pass identity fields of the configuration
func (cfg *Configuration) Identity() pass.Identity {
	return pass.Identity{
		PassTypeIdentifier: cfg.PassTypeIdentifier,
		TeamIdentifier:     cfg.TeamIdentifier,
		OrganizationName:   cfg.OrganizationName,
		Description:        cfg.Description,
	}
}

// Sanitize returns a copy of the configuration without secrets, safe
// to log or return to clients
func (cfg *Configuration) Sanitize() Configuration {
	c := *cfg
	c.PrivateKey = ""
	c.Credentials.P12Base64 = ""
	c.Credentials.Password = ""
	return c
}

// Signer is an interface to a configurable issuer of digital signatures
type Signer interface {
	Config() Configuration
}

// SignedPass is a packaged and signed pass archive
type SignedPass struct {
	SerialNumber string
	Archive      []byte
}

// PassSigner is an interface to a signer able to issue signed passes
// for tickets
type PassSigner interface {
	SignPass(ctx context.Context, ticket pass.Ticket) (*SignedPass, error)
}

// ParsePrivateKey takes a PEM blocks are returns a crypto.PrivateKey
// It tries to parse as many known key types as possible before failing and
// returning all the errors it encountered.
func ParsePrivateKey(keyPEMBlock []byte) (key crypto.PrivateKey, err error) {
	var (
		keyDERBlock       *pem.Block
		skippedBlockTypes []string
	)
	for {
		keyDERBlock, keyPEMBlock = pem.Decode(keyPEMBlock)
		if keyDERBlock == nil {
			if len(skippedBlockTypes) == 1 && skippedBlockTypes[0] == "CERTIFICATE" {
				return nil, errors.New("signer: found a certificate rather than a key in the PEM for the private key")
			}
			return nil, fmt.Errorf("signer: failed to find PEM block with type ending in \"PRIVATE KEY\" in key input after skipping PEM blocks of the following types: %v", skippedBlockTypes)
		}
		if strings.HasSuffix(keyDERBlock.Type, "PRIVATE KEY") {
			break
		}
		skippedBlockTypes = append(skippedBlockTypes, keyDERBlock.Type)
	}
	// PKCS#1 for RSA, PKCS#8 for anything, SEC1 for ECDSA
	if key, err = x509.ParsePKCS1PrivateKey(keyDERBlock.Bytes); err == nil {
		return key, nil
	}
	var savedErr []string
	savedErr = append(savedErr, "pkcs1: "+err.Error())
	if key, err = x509.ParsePKCS8PrivateKey(keyDERBlock.Bytes); err == nil {
		switch key := key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey:
			return key, nil
		}
		err = errors.Errorf("unsupported key type %T", key)
	}
	savedErr = append(savedErr, "pkcs8: "+err.Error())

	if key, err = x509.ParseECPrivateKey(keyDERBlock.Bytes); err == nil {
		return key, nil
	}
	savedErr = append(savedErr, "ecdsa: "+err.Error())

	return nil, errors.New("failed to parse private key, make sure to use PKCS1 for RSA and PKCS8 for ECDSA. errors: " + strings.Join(savedErr, ";;; "))
}

// ParseCertificate returns the first certificate of a PEM input
func ParseCertificate(certPEMBlock []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, certPEMBlock = pem.Decode(certPEMBlock)
		if block == nil {
			return nil, errors.New("signer: no CERTIFICATE PEM block found")
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, errors.Wrap(err, "signer: failed to parse certificate")
		}
		return cert, nil
	}
}

// StatsClient is a helper for sending statsd stats with the relevant
// tags for the signer and error handling
type StatsClient struct {
	// signerTags is the list of tags identifying the signer
	signerTags []string

	// stats is the statsd client for reporting metrics
	stats statsd.ClientInterface
}

// NewStatsClient makes a new stats client
func NewStatsClient(signerConfig Configuration, stats statsd.ClientInterface) (*StatsClient, error) {
	if stats == nil {
		return nil, errors.Errorf("signer: statsd client is nil. Could not create StatsClient for signer %s", signerConfig.ID)
	}
	return &StatsClient{
		stats: stats,
		signerTags: []string{
			fmt.Sprintf("walletpass-signer-id:%s", signerConfig.ID),
			fmt.Sprintf("walletpass-signer-type:%s", signerConfig.Type),
			fmt.Sprintf("walletpass-signer-mode:%s", signerConfig.Mode),
		},
	}, nil
}

// SendGauge checks for a statsd client and when one is present sends
// a statsd gauge with the given name, int value cast to float64, tags
// for the signer, and sampling rate of 1
func (s *StatsClient) SendGauge(name string, value int) {
	if s == nil || s.stats == nil {
		log.Debugf("signer: statsd client is nil. Could not send gauge %s with value %v", name, value)
		return
	}
	err := s.stats.Gauge(name, float64(value), s.signerTags, 1)
	if err != nil {
		log.Warnf("Error sending gauge %s: %s", name, err)
	}
}

// SendHistogram checks for a statsd client and when one is present
// sends a statsd histogram with the given name, time.Duration value
// converted to ms, cast to float64, tags for the signer, and sampling
// rate of 1
func (s *StatsClient) SendHistogram(name string, value time.Duration) {
	if s == nil || s.stats == nil {
		log.Debugf("signer: statsd client is nil. Could not send histogram %s with value %s", name, value)
		return
	}
	err := s.stats.Histogram(name, float64(value/time.Millisecond), s.signerTags, 1)
	if err != nil {
		log.Warnf("Error sending histogram %s: %s", name, err)
	}
}

// Incr increments a counter tagged with the signer
func (s *StatsClient) Incr(name string) {
	if s == nil || s.stats == nil {
		return
	}
	if err := s.stats.Incr(name, s.signerTags, 1); err != nil {
		log.Warnf("Error sending counter %s: %s", name, err)
	}
}
