// Package pkpass issues signed wallet passes: it extracts a signing
// identity from a PKCS#12 container, builds the pass content of a
// ticket, signs its manifest with a detached CMS signature and packs
// everything in a .pkpass archive.
package pkpass // import "github.com/evently/walletpass/signer/pkpass"

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/evently/walletpass/credentials"
	"github.com/evently/walletpass/pass"
	"github.com/evently/walletpass/signer"
)

const (
	// Type of this signer is "pkpass"
	Type = "pkpass"

	// ModeNative builds the CMS signature in process
	ModeNative = "native"

	// ModeOpenSSL shells out to `openssl smime` to sign the manifest
	ModeOpenSSL = "openssl"
)

var (
	// ErrInvalidCredential is returned when the signing material cannot
	// be decoded or does not contain a usable key and certificate
	ErrInvalidCredential = errors.New("pkpass: invalid signing credential")

	// ErrPackaging is returned when the archive cannot be written
	ErrPackaging = errors.New("pkpass: failed to package pass")
)

// Dependencies are the collaborators of a signer. All are optional.
type Dependencies struct {
	// Finder resolves ticket codes and events
	Finder pass.RecordFinder

	// Images fetches event images, defaults to an http fetcher
	Images pass.ImageFetcher

	// Remote retrieves named credentials, defaults to a retriever for
	// the configured credentials location
	Remote credentials.Retriever

	// Identity replaces the identity cache of the signer
	Identity *IdentityCache

	// Publisher replaces the publisher of the configured upload location
	Publisher *Publisher

	Stats *signer.StatsClient

	// Now returns the signing time, defaults to time.Now
	Now func() time.Time
}

// PKPassSigner issues signed passes for tickets
type PKPassSigner struct {
	signer.Configuration

	builder   *pass.Builder
	identity  *IdentityCache
	publisher *Publisher
	stats     *signer.StatsClient
	now       func() time.Time
}

// New initializes a pass signer from a configuration
func New(ctx context.Context, conf signer.Configuration, deps Dependencies) (s *PKPassSigner, err error) {
	if conf.Type != Type {
		return nil, fmt.Errorf("pkpass: invalid type %q, must be %q", conf.Type, Type)
	}
	if conf.ID == "" {
		return nil, fmt.Errorf("pkpass: missing signer ID in signer configuration")
	}
	switch conf.Mode {
	case ModeNative, ModeOpenSSL:
	case "":
		conf.Mode = ModeNative
	default:
		return nil, fmt.Errorf("pkpass: unknown signer mode %q, must be %q or %q", conf.Mode, ModeNative, ModeOpenSSL)
	}
	if conf.PassTypeIdentifier == "" || conf.TeamIdentifier == "" {
		return nil, fmt.Errorf("pkpass: missing pass type or team identifier in signer %q", conf.ID)
	}
	if conf.OrganizationName == "" {
		return nil, fmt.Errorf("pkpass: missing organization name in signer %q", conf.ID)
	}
	hasPEM := conf.PrivateKey != "" && conf.Certificate != ""
	hasP12 := conf.Credentials.P12Base64 != "" || conf.Credentials.P12Path != "" || conf.Credentials.P12Name != ""
	if !hasPEM && !hasP12 {
		return nil, fmt.Errorf("pkpass: missing signing credentials in signer %q", conf.ID)
	}
	if err = conf.Theme.Validate(); err != nil {
		return nil, err
	}

	s = &PKPassSigner{
		Configuration: conf,
		stats:         deps.Stats,
		now:           deps.Now,
		identity:      deps.Identity,
		publisher:     deps.Publisher,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.identity == nil {
		remote := deps.Remote
		if remote == nil {
			remote, err = credentials.NewRetriever(ctx, conf.Credentials.Location)
			if err != nil {
				return nil, fmt.Errorf("pkpass: failed to initialize credentials retriever: %w", err)
			}
		}
		s.identity = NewIdentityCache(NewIdentityLoader(conf, credentials.NewLoader(remote)))
	}
	if s.publisher == nil && conf.UploadLocation != "" {
		s.publisher, err = NewPublisher(ctx, conf.UploadLocation)
		if err != nil {
			return nil, err
		}
	}

	assets, err := pass.LoadDefaultAssets(conf.AssetsDir)
	if err != nil {
		return nil, fmt.Errorf("pkpass: failed to load default assets: %w", err)
	}
	images := deps.Images
	if images == nil {
		images = pass.NewHTTPImageFetcher(conf.ImageFetchTimeout, false)
	}
	s.builder = &pass.Builder{
		Identity:     conf.Identity(),
		Theme:        conf.Theme,
		Finder:       deps.Finder,
		Images:       images,
		ResizeImages: !conf.DisableImageResize,
		Assets:       assets,
	}
	return s, nil
}

// Config returns the configuration of the signer without its secrets
func (s *PKPassSigner) Config() signer.Configuration {
	return s.Configuration.Sanitize()
}

// Warm loads the signing identity ahead of the first request
func (s *PKPassSigner) Warm(ctx context.Context) error {
	_, err := s.identity.Get(ctx)
	return err
}

// SignPass builds, signs and packages the pass of a ticket
func (s *PKPassSigner) SignPass(ctx context.Context, ticket pass.Ticket) (*signer.SignedPass, error) {
	var (
		req   issuance
		start = time.Now()
	)
	fail := func(err error) (*signer.SignedPass, error) {
		s.stats.Incr("pkpass.failed")
		fields := log.Fields{"signer": s.ID}
		var serr *StageError
		if errors.As(err, &serr) {
			fields["stage"] = serr.Stage.String()
		}
		log.WithContext(ctx).WithFields(fields).Error(err)
		return nil, err
	}

	id, err := s.identity.Get(ctx)
	if err = req.advance(StageCredentialsReady, err); err != nil {
		return fail(err)
	}

	buildStart := time.Now()
	doc, assets, err := s.builder.Build(ctx, ticket)
	var docJSON []byte
	if err == nil {
		docJSON, err = doc.Marshal()
	}
	if err = req.advance(StageContentBuilt, err); err != nil {
		return fail(err)
	}
	s.stats.SendHistogram("pkpass.build_duration", time.Since(buildStart))
	files := make([]pass.AssetFile, 0, len(assets)+1)
	files = append(files, pass.AssetFile{Name: pass.DocumentName, Data: docJSON})
	files = append(files, assets...)

	manifest, err := MakeManifest(files)
	if err = req.advance(StageManifestComputed, err); err != nil {
		return fail(err)
	}

	signStart := time.Now()
	var signature []byte
	if s.Mode == ModeOpenSSL {
		signature, err = SignManifestWithOpenSSL(ctx, manifest, id)
	} else {
		signature, err = SignManifest(manifest, id, s.now())
	}
	if err = req.advance(StageSigned, err); err != nil {
		return fail(err)
	}
	s.stats.SendHistogram("pkpass.sign_duration", time.Since(signStart))

	archive, err := Pack(files, manifest, signature)
	if err = req.advance(StagePackaged, err); err != nil {
		return fail(err)
	}

	if s.publisher != nil && !publishingSkipped(ctx) {
		if err := s.publisher.Publish(ctx, doc.SerialNumber, archive); err != nil {
			log.WithContext(ctx).WithFields(log.Fields{"signer": s.ID, "serial": doc.SerialNumber}).Warnf("pkpass: failed to publish pass: %v", err)
		}
	}
	if err = req.advance(StageDone, nil); err != nil {
		return fail(err)
	}
	s.stats.SendHistogram("pkpass.total_duration", time.Since(start))
	s.stats.SendGauge("pkpass.archive_size", len(archive))
	return &signer.SignedPass{SerialNumber: doc.SerialNumber, Archive: archive}, nil
}
