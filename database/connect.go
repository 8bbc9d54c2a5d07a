// Package database reads ticket and event records, signing credentials
// and hawk authorizations from postgres
package database // import "github.com/evently/walletpass/database"

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mozilla.org/mozlogrus"

	// lib/pq is the postgres driver
	_ "github.com/lib/pq"

	"github.com/pkg/errors"
)

// DSNEnvVar overrides the connection parameters of a Config
const DSNEnvVar = "WALLETPASS_DB_DSN"

func init() {
	// initialize the logger
	mozlogrus.Enable("walletpass")
}

// Handler handles a database connection
type Handler struct {
	*sql.DB
}

// Config holds the parameters to connect to a database
type Config struct {
	Name                string
	User                string
	Password            string
	Host                string
	SSLMode             string
	SSLRootCert         string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	MonitorPollInterval time.Duration
}

// dsn returns the connection string of the configuration, or the
// value of WALLETPASS_DB_DSN when it is set
func (config Config) dsn() string {
	if dsn := os.Getenv(DSNEnvVar); dsn != "" {
		return dsn
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(config.User, config.Password),
		Host:   config.Host,
		Path:   "/" + config.Name,
	}
	q := url.Values{}
	q.Set("sslmode", config.SSLMode)
	if config.SSLRootCert != "" {
		q.Set("sslrootcert", config.SSLRootCert)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect creates a database connection and returns a handler
func Connect(config Config) (*Handler, error) {
	dbfd, err := sql.Open("postgres", config.dsn())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}
	if config.MaxOpenConns > 0 {
		dbfd.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		dbfd.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		dbfd.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	return &Handler{dbfd}, nil
}

// CheckConnectionContext runs a test query against the database and
// returns an error if it fails
func (db *Handler) CheckConnectionContext(ctx context.Context) error {
	var one uint
	err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	if err != nil {
		return errors.Wrap(err, "Database connection failed")
	}
	if one != 1 {
		return errors.Errorf("Apparently the database doesn't know the meaning of one anymore")
	}
	return nil
}

// Monitor queries the database every pollInterval until it gets a
// quit signal logging an error when the test query fails. It can be
// used in a goroutine to check when the database becomes unavailable.
func (db *Handler) Monitor(pollInterval time.Duration, quit chan bool) {
	log.Infof("starting DB monitor polling every %s", pollInterval)
	for {
		select {
		case <-time.After(pollInterval):
			err := db.CheckConnectionContext(context.Background())
			if err != nil {
				log.Error(err)
			}
		case <-quit:
			log.Info("Shutting down DB monitor")
			return
		}
	}
}
