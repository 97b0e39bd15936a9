package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/molder/pkg/jsonvalue"
	"github.com/roach88/molder/pkg/molder"
	"github.com/roach88/molder/pkg/schema"
)

// SaveSchema stores the compiled document of model under fingerprint.
// Saving the same key twice replaces the row.
func (s *Store) SaveSchema(ctx context.Context, model, fingerprint string, doc *schema.Schema) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("save schema %s: %w", model, err)
	}
	hash, err := documentHash(data)
	if err != nil {
		return fmt.Errorf("save schema %s: %w", model, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save schema %s: %w", model, err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "compiled_schemas")
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO compiled_schemas (model, fingerprint, document, document_hash, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model, fingerprint) DO UPDATE SET
			document = excluded.document,
			document_hash = excluded.document_hash,
			seq = excluded.seq
	`, model, fingerprint, string(data), hash, seq)
	if err != nil {
		return fmt.Errorf("save schema %s: %w", model, err)
	}
	return tx.Commit()
}

// LoadSchema returns the document stored for (model, fingerprint).
// A missing row, or one whose hash does not match its document, is a miss.
func (s *Store) LoadSchema(ctx context.Context, model, fingerprint string) (*schema.Schema, bool, error) {
	var document, storedHash string
	err := s.db.QueryRowContext(ctx, `
		SELECT document, document_hash
		FROM compiled_schemas
		WHERE model = ? AND fingerprint = ?
	`, model, fingerprint).Scan(&document, &storedHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load schema %s: %w", model, err)
	}

	hash, err := documentHash([]byte(document))
	if err != nil || hash != storedHash {
		return nil, false, nil
	}

	doc := &schema.Schema{}
	if err := json.Unmarshal([]byte(document), doc); err != nil {
		return nil, false, fmt.Errorf("load schema %s: %w", model, err)
	}
	return doc, true, nil
}

// SchemaEntry describes one cached document.
type SchemaEntry struct {
	Model       string
	Fingerprint string
	Seq         int64
}

// ListSchemas returns every cached document key, oldest first.
func (s *Store) ListSchemas(ctx context.Context) ([]SchemaEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, fingerprint, seq
		FROM compiled_schemas
		ORDER BY seq ASC, model COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	defer rows.Close()

	entries := []SchemaEntry{}
	for rows.Next() {
		var e SchemaEntry
		if err := rows.Scan(&e.Model, &e.Fingerprint, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	return entries, nil
}

// PruneSchemas deletes the documents of model stored under any fingerprint
// other than keep. It returns the number of rows removed.
func (s *Store) PruneSchemas(ctx context.Context, model, keep string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM compiled_schemas WHERE model = ? AND fingerprint <> ?
	`, model, keep)
	if err != nil {
		return 0, fmt.Errorf("prune schemas %s: %w", model, err)
	}
	return res.RowsAffected()
}

func documentHash(data []byte) (string, error) {
	v, err := jsonvalue.Decode(data)
	if err != nil {
		return "", err
	}
	return jsonvalue.Hash(jsonvalue.DomainSchema, v)
}

// Cache adapts a Store to molder.Cache.
type Cache struct {
	store *Store
}

var _ molder.Cache = (*Cache)(nil)

// Cache returns the molder.Cache view of the store.
func (s *Store) Cache() *Cache {
	return &Cache{store: s}
}

// Load implements molder.Cache.
func (c *Cache) Load(model, fingerprint string) (*schema.Schema, bool, error) {
	return c.store.LoadSchema(context.Background(), model, fingerprint)
}

// Store implements molder.Cache. Older fingerprints of the model are pruned.
func (c *Cache) Store(model, fingerprint string, doc *schema.Schema) error {
	ctx := context.Background()
	if err := c.store.SaveSchema(ctx, model, fingerprint, doc); err != nil {
		return err
	}
	_, err := c.store.PruneSchemas(ctx, model, fingerprint)
	return err
}
