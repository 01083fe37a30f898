// Package libsql provides a storage driver backed by a libSQL database,
// either a local file or a remote Turso endpoint. The SQL surface is
// identical to the sqlite backend, so this wraps it over a libsql
// connection.
package libsql

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/go-libsql"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/storage/sqlite"
)

// Driver implements storage.Driver against a libSQL database.
type Driver struct {
	*sqlite.SQLiteDriver
}

// NewDriver connects to the database at url and migrates the schema.
// The url can be a "file:" path or a "libsql://" endpoint; authToken,
// when set, is appended as the authToken query parameter.
func NewDriver(url, authToken string, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connStr := url
	if authToken != "" {
		sep := "?"
		if strings.Contains(connStr, "?") {
			sep = "&"
		}
		connStr += sep + "authToken=" + authToken
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening libsql database: %w", err)
	}

	inner, err := sqlite.NewWithDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Auth tokens ride in the query string; log without it.
	logger.Info("libsql storage driver initialized",
		zap.String("url", strings.SplitN(url, "?", 2)[0]))
	return &Driver{SQLiteDriver: inner}, nil
}
