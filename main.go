// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru"
	"github.com/mozilla-services/yaml"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.mozilla.org/mozlogrus"

	"github.com/evently/walletpass/credentials"
	"github.com/evently/walletpass/database"
	"github.com/evently/walletpass/formats"
	"github.com/evently/walletpass/pass"
	"github.com/evently/walletpass/signer"
	"github.com/evently/walletpass/signer/pkpass"
)

func init() {
	// initialize the logger
	mozlogrus.Enable("walletpass")
}

// configuration loads a yaml file that contains the configuration of walletpass
type configuration struct {
	Server struct {
		Listen         string
		NonceCacheSize int
		IdleTimeout    time.Duration
		ReadTimeout    time.Duration
		WriteTimeout   time.Duration
	}
	Statsd struct {
		Addr      string
		Namespace string
		Buflen    int
	}
	Database struct {
		database.Config `yaml:",inline"`
		Enabled         bool
	}
	// LookupCacheSize is the number of ticket code and event lookups
	// kept in memory, zero disables the cache
	LookupCacheSize int
	Signers         []signer.Configuration
	Authorizations  []formats.Authorization
	Monitoring      formats.Authorization
}

// passSigner is a configured signer able to issue passes
type passSigner interface {
	signer.Signer
	signer.PassSigner
}

// walletpass is the main handler of the API
type walletpass struct {
	stats       statsd.ClientInterface
	db          *database.Handler
	finder      pass.RecordFinder
	signers     []passSigner
	auths       authBackend
	nonces      *lru.Cache
	debug       bool
	signerIndex map[string]int
	monitor     *monitor
}

func main() {
	args := os.Args[1:]
	conf, listen, debug := parseArgsAndLoadConfig(args)
	if err := setRuntimeConfig(os.Environ()); err != nil {
		log.Fatalf("failed to set runtime config: %v", err)
	}
	run(conf, listen, debug)
}

func parseArgsAndLoadConfig(args []string) (conf configuration, listen string, debug bool) {
	var (
		cfgFile     string
		logLevel    string
		showVersion bool
		port        string
		err         error
		fset        = flag.NewFlagSet("walletpass", flag.ContinueOnError)
	)

	fset.StringVar(&cfgFile, "c", "walletpass.yaml", "Path to configuration file")
	fset.StringVar(&port, "p", "", "Port to listen on. Overrides the listen var from the config file")
	fset.StringVar(&logLevel, "l", "", "Set the logging level. Optional defaulting to info. Options: debug, info, warning, error, fatal, panic")
	fset.BoolVar(&showVersion, "V", false, "Show build version and exit")
	fset.BoolVar(&debug, "D", false, "Print debug logs")
	if err = fset.Parse(args); err != nil {
		log.Fatal(err)
	}

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	switch logLevel {
	case "":
		if debug {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.InfoLevel)
		}
	case "debug":
		log.SetLevel(log.DebugLevel)
		debug = true
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	case "fatal":
		log.SetLevel(log.FatalLevel)
	case "panic":
		log.SetLevel(log.PanicLevel)
	default:
		log.Fatalf("unknown log level %q", logLevel)
		return
	}
	if debug && log.GetLevel() != log.DebugLevel {
		log.Fatalf("debug flag -D conflicts with log level %q", logLevel)
		return
	}

	err = conf.loadFromFile(cfgFile)
	if err != nil {
		log.Fatal(err)
	}

	listen = conf.Server.Listen
	if port != "" {
		listen = "0.0.0.0:" + port
	}
	return
}

func run(conf configuration, listen string, debug bool) {
	var (
		ag  *walletpass
		err error
		ctx = context.Background()
	)

	ag, err = newWalletpass(conf.Server.NonceCacheSize)
	if err != nil {
		log.Fatal(err)
	}
	if debug {
		ag.enableDebug()
	}

	if err = ag.addStats(conf); err != nil {
		log.Fatal(err)
	}

	if conf.Database.Enabled {
		err = ag.addDB(conf)
		if err != nil {
			log.Fatal(err)
		}
		if conf.Database.MonitorPollInterval > 0 {
			go ag.db.Monitor(conf.Database.MonitorPollInterval, make(chan bool))
		}
		dbAuths, err := ag.db.GetAuthorizations(ctx)
		if err != nil {
			log.Fatalf("failed to load authorizations from the database: %v", err)
		}
		conf.Authorizations = append(conf.Authorizations, dbAuths...)
	}
	if err = ag.addFinder(conf.LookupCacheSize); err != nil {
		log.Fatal(err)
	}

	// initialize signers from the configuration
	// and store them into the walletpass handler
	if err = ag.addSigners(ctx, conf.Signers); err != nil {
		log.Fatalf("failed to add signers: %v", err)
	}
	if err = ag.addAuthorizations(conf.Authorizations); err != nil {
		log.Fatal(err)
	}
	if conf.Monitoring.Key != "" {
		if err = ag.auths.addMonitoringAuth(&conf.Monitoring); err != nil {
			log.Fatal(err)
		}
	}
	if err = ag.makeSignerIndex(); err != nil {
		log.Fatal(err)
	}
	ag.startMonitoring(ctx, monitorInterval)

	if debug {
		fmt.Println(ag.authorizationsSummary())
	}

	router := ag.newRouter()
	if debug {
		addProfilerHandlers(router)
	}

	server := &http.Server{
		IdleTimeout:  conf.Server.IdleTimeout,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
		Addr:         listen,
		Handler: handleMiddlewares(
			router,
			setRequestID(),
			setRequestStartTime(),
			setResponseHeaders(),
			logRequest(),
		),
	}
	log.Infof("starting walletpass API on %s", listen)
	err = server.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

// newRouter registers the routes of the API
func (a *walletpass) newRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/__heartbeat__", statsMiddleware(a.handleHeartbeat, "http.nonapi.heartbeat", a.stats)).Methods("GET")
	router.HandleFunc("/__lbheartbeat__", statsMiddleware(handleLBHeartbeat, "http.nonapi.lbheartbeat", a.stats)).Methods("GET")
	router.HandleFunc("/__version__", statsMiddleware(handleVersion, "http.nonapi.version", a.stats)).Methods("GET")
	router.HandleFunc("/__monitor__", statsMiddleware(a.handleMonitor, "http.nonapi.monitor", a.stats)).Methods("GET")
	router.HandleFunc("/sign/pass", apiStatsMiddleware(a.handleSignPass, "http.api.sign/pass", a.stats)).Methods("POST")
	return router
}

// loadFromFile reads a configuration from a local file, decrypting
// it with sops when it carries sops metadata
func (c *configuration) loadFromFile(path string) error {
	var (
		data, confData []byte
		confSHA        [32]byte
		err            error
	)
	data, err = os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try to decrypt the conf using sops or load it as plaintext.
	// If the configuration is not encrypted with sops, the error
	// sops.MetadataNotFound will be returned, in which case we
	// ignore it and continue loading the conf.
	confData, err = decrypt.Data(data, "yaml")
	if err != nil {
		if err == sops.MetadataNotFound {
			// not an encrypted file
			confData = data
		} else {
			return errors.Wrap(err, "failed to load sops encrypted configuration")
		}
	}

	err = yaml.Unmarshal(confData, &c)
	if err != nil {
		return err
	}
	confSHA = sha256.Sum256(confData)
	log.Infof("loaded config with sha256 %x", confSHA)
	return nil
}

// newWalletpass creates an instance of walletpass with an lru cache
// of nonces, an empty auth backend and a no-op stats client
func newWalletpass(cachesize int) (a *walletpass, err error) {
	if cachesize < 1 {
		cachesize = 1024
	}
	a = new(walletpass)
	a.auths = newInMemoryAuthBackend()
	a.nonces, err = lru.New(cachesize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create nonce cache")
	}
	a.stats = &statsd.NoOpClient{}
	a.monitor = newMonitor()
	return a, nil
}

// enableDebug enables debug logging
func (a *walletpass) enableDebug() {
	a.debug = true
}

// addDB connects to the database that resolves ticket codes and
// events and may hold signing credentials
func (a *walletpass) addDB(conf configuration) error {
	db, err := database.Connect(conf.Database.Config)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("failed to initialize database connection, unknown error")
	}
	a.db = db
	log.Infof("database connection established to %s", conf.Database.Host)
	return nil
}

// addFinder sets the record finder of the signers to the database,
// behind an lru cache when cacheSize is positive
func (a *walletpass) addFinder(cacheSize int) error {
	if a.db == nil {
		return nil
	}
	a.finder = a.db
	if cacheSize > 0 {
		finder, err := pass.NewCachingFinder(a.db, cacheSize)
		if err != nil {
			return err
		}
		a.finder = finder
	}
	return nil
}

// addSigners initializes each signer specified in the configuration
// and loads its signing identity
func (a *walletpass) addSigners(ctx context.Context, signerConfs []signer.Configuration) error {
	sids := make(map[string]bool)
	for _, signerConf := range signerConfs {
		// forbid signers with the same ID
		if _, exists := sids[signerConf.ID]; exists {
			return fmt.Errorf("duplicate signer ID %q is not permitted", signerConf.ID)
		}
		sids[signerConf.ID] = true
		if err := formats.ValidateSignerID(signerConf.ID); err != nil {
			return err
		}
		if err := formats.ValidatePassIdentity(signerConf.PassTypeIdentifier, signerConf.TeamIdentifier); err != nil {
			return errors.Wrapf(err, "invalid signer %q", signerConf.ID)
		}

		statsClient, err := signer.NewStatsClient(signerConf, a.stats)
		if err != nil {
			return errors.Wrapf(err, "failed to add signer stats client %q", signerConf.ID)
		}
		deps := pkpass.Dependencies{
			Finder: a.finder,
			Stats:  statsClient,
		}
		// credentials named without a location of their own are read
		// from the database
		if a.db != nil && signerConf.Credentials.Location == "" {
			deps.Remote = a.db.Credentials()
		}

		var s passSigner
		switch signerConf.Type {
		case pkpass.Type:
			s, err = pkpass.New(ctx, signerConf, deps)
			if err != nil {
				return errors.Wrapf(err, "failed to add signer %q", signerConf.ID)
			}
		default:
			return fmt.Errorf("unknown signer type %q", signerConf.Type)
		}
		if w, ok := s.(interface{ Warm(context.Context) error }); ok {
			if err := w.Warm(ctx); err != nil {
				return errors.Wrapf(err, "failed to load signing identity of signer %q", signerConf.ID)
			}
		}
		a.signers = append(a.signers, s)
		log.Infof("added signer %q of type %q in mode %q", signerConf.ID, signerConf.Type, s.Config().Mode)
	}
	return nil
}

// compile-time check the pass signer fits the signer list
var _ passSigner = (*pkpass.PKPassSigner)(nil)

// the credentials store of the database serves named containers
var _ credentials.Retriever = (*database.CredentialStore)(nil)
