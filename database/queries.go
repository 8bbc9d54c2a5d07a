package database // import "github.com/evently/walletpass/database"

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/evently/walletpass/formats"
	"github.com/evently/walletpass/pass"
)

// maxRecords caps the rows returned by FindAllByField
const maxRecords = 100

// identifierRe matches the table and column names accepted in lookups
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

func quoteIdentifier(name string) (string, error) {
	if !identifierRe.MatchString(name) {
		return "", errors.Errorf("invalid sql identifier %q", name)
	}
	return pq.QuoteIdentifier(name), nil
}

// lookupQuery returns a select of the rows of table where field equals $1
func lookupQuery(table, field string, limit int) (string, error) {
	qtable, err := quoteIdentifier(table)
	if err != nil {
		return "", err
	}
	qfield, err := quoteIdentifier(field)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE %s = $1 LIMIT %d", qtable, qfield, limit), nil
}

// scanRecords reads every row as a column name to value map. Text and
// numeric columns come back from the driver as bytes and are returned
// as strings.
func scanRecords(rows *sql.Rows) ([]pass.Record, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}
	var recs []pass.Record
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		rec := make(pass.Record, len(columns))
		for i, column := range columns {
			switch v := values[i].(type) {
			case []byte:
				rec[column] = string(v)
			default:
				rec[column] = v
			}
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error after iterating over rows")
	}
	return recs, nil
}

// FindByField returns the first row of table whose field equals value,
// or pass.ErrRecordNotFound
func (db *Handler) FindByField(ctx context.Context, table, field string, value interface{}) (pass.Record, error) {
	query, err := lookupQuery(table, field, 1)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select from %s by %s", table, field)
	}
	defer rows.Close()
	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, pass.ErrRecordNotFound
	}
	return recs[0], nil
}

// FindAllByField returns up to a hundred rows of table whose field
// equals value. No match is not an error.
func (db *Handler) FindAllByField(ctx context.Context, table, field string, value interface{}) ([]pass.Record, error) {
	query, err := lookupQuery(table, field, maxRecords)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select from %s by %s", table, field)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// CredentialStore retrieves named signing credentials, PKCS#12
// containers or PEM certificates, from the signing_credentials table
type CredentialStore struct {
	db *Handler
}

// Credentials returns a credentials.Retriever backed by the database
func (db *Handler) Credentials() *CredentialStore {
	return &CredentialStore{db: db}
}

// Get returns the content of the credential called name
func (c *CredentialStore) Get(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx, `SELECT data FROM signing_credentials WHERE name = $1`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("credential %q not found in database", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select credential %q", name)
	}
	return data, nil
}

// PutCredential inserts or replaces the credential called name
func (db *Handler) PutCredential(ctx context.Context, name string, data []byte) error {
	_, err := db.ExecContext(ctx, `INSERT INTO signing_credentials(name, data, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`, name, data)
	if err != nil {
		return errors.Wrapf(err, "failed to store credential %q", name)
	}
	return nil
}

const selectAuths = `SELECT
hawk_credentials.id as hawk_id,
hawk_credentials.secret as hawk_secret,
EXTRACT(EPOCH FROM hawk_credentials.validity) as hawk_validity,
array_agg(signers.id ORDER BY authorizations.id) AS signer_ids
FROM
authorizations
INNER JOIN hawk_credentials ON authorizations.credential_id = hawk_credentials.id
INNER JOIN signers ON authorizations.signer_id = signers.id
GROUP BY hawk_credentials.id`

// GetAuthorizations returns the hawk credentials and validity and any authorized signer IDs
func (db *Handler) GetAuthorizations(ctx context.Context) (auths []formats.Authorization, err error) {
	rows, err := db.QueryContext(ctx, selectAuths)
	if err != nil {
		err = errors.Wrapf(err, "Error selecting auths")
		return
	}
	defer rows.Close()
	for rows.Next() {
		var (
			auth    formats.Authorization
			seconds float64
		)
		if err = rows.Scan(&auth.ID, &auth.Key, &seconds, pq.Array(&auth.Signers)); err != nil {
			err = errors.Wrapf(err, "Error scanning auth row")
			return
		}
		auth.HawkTimestampValidity = time.Duration(seconds) * time.Second
		auths = append(auths, auth)
	}
	if err = rows.Err(); err != nil {
		err = errors.Wrapf(err, "Error after iterating over auth rows")
		return
	}
	return
}

// InsertAuthorization validates and inserts a hawk credential w/
// validity, its authorized signer IDs, and the permissions to access
// the signers for the creds
func (db *Handler) InsertAuthorization(ctx context.Context, auth formats.Authorization) (err error) {
	if err = auth.Validate(); err != nil {
		return err
	}
	var tx *sql.Tx
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		err = errors.Wrap(err, "failed to create transaction")
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO hawk_credentials(id, secret, validity)
				VALUES ($1, $2, make_interval(secs => $3))`, auth.ID, auth.Key, auth.HawkTimestampValidity.Seconds())
	if err != nil {
		tx.Rollback()
		err = errors.Wrapf(err, "failed to insert hawk creds for id %s", auth.ID)
		return err
	}
	for _, signerID := range auth.Signers {
		_, err = tx.ExecContext(ctx, `INSERT INTO signers(id) VALUES ($1) ON CONFLICT DO NOTHING`, signerID)
		if err != nil {
			tx.Rollback()
			err = errors.Wrapf(err, "failed to insert signer id %s", signerID)
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO authorizations(credential_id, signer_id) VALUES ($1, $2)`, auth.ID, signerID)
		if err != nil {
			tx.Rollback()
			err = errors.Wrapf(err, "failed to insert signer id %s", signerID)
			return err
		}
	}

	err = tx.Commit()
	if err != nil {
		err = errors.Wrap(err, "failed to commit transaction in database")
		tx.Rollback()
		return err
	}
	return
}
