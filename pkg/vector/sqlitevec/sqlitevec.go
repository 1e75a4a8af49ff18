// Package sqlitevec provides an embedded vector.Driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db         *sql.DB
	dimensions uint
	logger     *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	// Required.
	Dimensions uint
}

// NewDriver opens (or creates) the database and its tables.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, errors.New("database path is required")
	}

	if c.Dimensions == 0 {
		return nil, errors.New("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Each new connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	// vec0 virtual tables are keyed by integer rowids, so chunk ids and
	// payloads live in a companion table sharing the rowid.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			text TEXT NOT NULL,
			document_id TEXT NOT NULL,
			url TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(embedding float[%d] distance_metric=cosine)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger = logger.With("component", "sqlitevec")
	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Save upserts chunks in one transaction. An empty slice opens no
// transaction.
func (d *Driver) Save(ctx context.Context, chunks []vector.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return d.classify("begin", err)
	}
	defer tx.Rollback()

	for _, c := range chunks {
		if err := d.upsert(ctx, tx, c); err != nil {
			return d.classify("save", fmt.Errorf("chunk %s: %w", c.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return d.classify("commit", err)
	}

	d.logger.Debug("saved chunks to sqlite-vec", "count", len(chunks))
	return nil
}

func (d *Driver) upsert(ctx context.Context, tx *sql.Tx, c vector.Chunk) error {
	var url sql.NullString
	if c.URL != "" {
		url = sql.NullString{String: c.URL, Valid: true}
	}
	embBlob := serializeFloat32(c.Vector)

	var rowID int64
	err := tx.QueryRowContext(ctx,
		`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, c.ID,
	).Scan(&rowID)

	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx,
			`UPDATE vec_chunks SET text = ?, document_id = ?, url = ? WHERE rowid = ?`,
			c.Text, c.DocumentID, url, rowID,
		); err != nil {
			return fmt.Errorf("updating chunk: %w", err)
		}

		// vec0 does not support UPDATE
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			`INSERT INTO vec_chunks(chunk_id, text, document_id, url) VALUES (?, ?, ?, ?)`,
			c.ID, c.Text, c.DocumentID, url,
		)
		if err != nil {
			return fmt.Errorf("inserting chunk: %w", err)
		}

		rowID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid: %w", err)
		}
	default:
		return fmt.Errorf("checking for existing chunk: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vec_embeddings(rowid, embedding) VALUES (?, ?)`,
		rowID, embBlob,
	); err != nil {
		return fmt.Errorf("inserting embedding: %w", err)
	}
	return nil
}

// Search finds the topK chunks nearest to query.
func (d *Driver) Search(ctx context.Context, query vector.Vector, topK int) ([]vector.Chunk, error) {
	if err := vector.ValidateTopK(topK); err != nil {
		return nil, err
	}

	// KNN via vec0 MATCH, joined back to the payload table.
	rows, err := d.db.QueryContext(ctx, `
		SELECT c.chunk_id, c.text, c.document_id, c.url
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, serializeFloat32(query), topK)
	if err != nil {
		return nil, d.classify("search", err)
	}
	defer rows.Close()

	chunks := make([]vector.Chunk, 0, topK)
	for rows.Next() {
		var (
			c   vector.Chunk
			url sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Text, &c.DocumentID, &url); err != nil {
			return nil, d.classify("scan", err)
		}
		c.URL = url.String
		c.Vector = query
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, d.classify("search", err)
	}

	d.logger.Debug("searched sqlite-vec", "top_k", topK, "results", len(chunks))
	return chunks, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// classify maps database failures onto the store taxonomy. SQLite engine
// errors are store-internal.
func (d *Driver) classify(op string, err error) *coreerr.Error {
	var (
		sqliteErr  sqlite3.Error
		classified *coreerr.Error
	)
	switch {
	case coreerr.IsTimeout(err):
		classified = coreerr.Wrap(vector.StoreErrors.Timeout, err)
	case errors.As(err, &sqliteErr):
		classified = coreerr.Wrap(vector.StoreErrors.Classify(500, ""), err)
	default:
		classified = vector.StoreErrors.FromTransport(err)
	}

	d.logger.Warn("sqlite-vec query failed",
		"op", op,
		"kind", classified.Kind.String(),
		"error", err,
	)
	return classified
}

var _ vector.Driver = (*Driver)(nil)
