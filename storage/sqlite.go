package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/c360studio/semcat/graph"
	"github.com/c360studio/semcat/source"

	_ "modernc.org/sqlite"
)

// SQLitePersister stores dataset partitions in a SQLite database.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a database file and prepares the schema.
func OpenSQLite(path string) (*SQLitePersister, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers; SQLite allows one at a time.
	db.SetMaxOpenConns(1)
	p, err := NewSQLitePersister(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

// NewSQLitePersister wraps an open database and runs migrations.
func NewSQLitePersister(db *sql.DB) (*SQLitePersister, error) {
	p := &SQLitePersister{db: db}
	if err := p.migrate(); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return p, nil
}

func (p *SQLitePersister) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS statements (
		dataset_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		subject TEXT NOT NULL,
		predicate TEXT NOT NULL,
		object_kind INTEGER NOT NULL,
		object_value TEXT NOT NULL,
		object_datatype TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (dataset_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_statements_subject ON statements(subject);
	CREATE TABLE IF NOT EXISTS partitions (
		dataset_id TEXT PRIMARY KEY,
		mapping_version TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS records (
		dataset_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ref TEXT NOT NULL,
		PRIMARY KEY (dataset_id, seq)
	);
	CREATE TABLE IF NOT EXISTS record_values (
		dataset_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		key TEXT NOT NULL,
		kind INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (dataset_id, seq, key)
	);`
	_, err := p.db.ExecContext(context.Background(), query)
	return err
}

// SaveDataset replaces everything stored for the dataset in one transaction.
func (p *SQLitePersister) SaveDataset(ctx context.Context, datasetID string, c Commit) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"statements", "records", "record_values", "partitions"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE dataset_id = ?`, datasetID); err != nil {
			return fmt.Errorf("clear %s of %s: %w", table, datasetID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO partitions (dataset_id, mapping_version) VALUES (?, ?)`,
		datasetID, c.MappingVersion); err != nil {
		return fmt.Errorf("insert partition: %w", err)
	}
	if err = insertStatements(ctx, tx, datasetID, c.Graph.Statements()); err != nil {
		return err
	}
	if err = insertRecords(ctx, tx, datasetID, c.Records); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertStatements(ctx context.Context, tx *sql.Tx, datasetID string, stmts []graph.Statement) error {
	insert, err := tx.PrepareContext(ctx, `INSERT INTO statements (
		dataset_id, seq, subject, predicate, object_kind, object_value, object_datatype
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = insert.Close() }()

	for i, s := range stmts {
		if _, err := insert.ExecContext(ctx, datasetID, i, s.Subject, s.Predicate,
			int(s.Object.Kind), s.Object.Value, s.Object.Datatype); err != nil {
			return fmt.Errorf("insert statement: %w", err)
		}
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, datasetID string, records []source.Record) error {
	insertRecord, err := tx.PrepareContext(ctx, `INSERT INTO records (dataset_id, seq, ref) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer func() { _ = insertRecord.Close() }()

	insertValue, err := tx.PrepareContext(ctx, `INSERT INTO record_values (
		dataset_id, seq, key, kind, value
	) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare value insert: %w", err)
	}
	defer func() { _ = insertValue.Close() }()

	for i, rec := range records {
		if _, err := insertRecord.ExecContext(ctx, datasetID, i, string(rec.Ref())); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		for _, k := range source.Keys() {
			v := rec.Get(k)
			if v.IsAbsent() {
				continue
			}
			if _, err := insertValue.ExecContext(ctx, datasetID, i, k.String(), int(v.Kind()), v.Lexical()); err != nil {
				return fmt.Errorf("insert record value: %w", err)
			}
		}
	}
	return nil
}

// LoadAll reads every stored partition.
func (p *SQLitePersister) LoadAll(ctx context.Context) (map[string]Commit, error) {
	stmts, err := p.loadStatements(ctx)
	if err != nil {
		return nil, err
	}
	records, err := p.loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := p.loadVersions(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]Commit, len(stmts))
	for id, set := range stmts {
		out[id] = Commit{
			Graph:          graph.New(set),
			Records:        records[id],
			MappingVersion: versions[id],
		}
	}
	return out, nil
}

func (p *SQLitePersister) loadStatements(ctx context.Context) (map[string][]graph.Statement, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT dataset_id, subject, predicate, object_kind, object_value, object_datatype
		FROM statements
		ORDER BY dataset_id, seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][]graph.Statement)
	for rows.Next() {
		var (
			id   string
			s    graph.Statement
			kind int
		)
		if err := rows.Scan(&id, &s.Subject, &s.Predicate, &kind, &s.Object.Value, &s.Object.Datatype); err != nil {
			return nil, err
		}
		s.Object.Kind = graph.TermKind(kind)
		out[id] = append(out[id], s)
	}
	return out, rows.Err()
}

func (p *SQLitePersister) loadVersions(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT dataset_id, mapping_version FROM partitions`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var id, version string
		if err := rows.Scan(&id, &version); err != nil {
			return nil, err
		}
		out[id] = version
	}
	return out, rows.Err()
}

type recordKey struct {
	datasetID string
	seq       int
}

func (p *SQLitePersister) loadRecords(ctx context.Context) (map[string][]source.Record, error) {
	values := make(map[recordKey]map[source.Key]source.Value)
	rows, err := p.db.QueryContext(ctx, `SELECT dataset_id, seq, key, kind, value FROM record_values`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			rk        recordKey
			name, lex string
			kind      int
		)
		if err := rows.Scan(&rk.datasetID, &rk.seq, &name, &kind, &lex); err != nil {
			return nil, err
		}
		k, ok := source.ParseKey(name)
		if !ok {
			continue
		}
		v, err := decodeValue(source.ValueKind(kind), lex)
		if err != nil {
			return nil, fmt.Errorf("record %s/%d %s: %w", rk.datasetID, rk.seq, name, err)
		}
		if values[rk] == nil {
			values[rk] = make(map[source.Key]source.Value)
		}
		values[rk][k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs, err := p.db.QueryContext(ctx, `SELECT dataset_id, seq, ref FROM records ORDER BY dataset_id, seq`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = refs.Close() }()

	out := make(map[string][]source.Record)
	for refs.Next() {
		var (
			rk  recordKey
			ref string
		)
		if err := refs.Scan(&rk.datasetID, &rk.seq, &ref); err != nil {
			return nil, err
		}
		out[rk.datasetID] = append(out[rk.datasetID], source.NewRecord(source.FileRef(ref), values[rk]))
	}
	return out, refs.Err()
}

func decodeValue(kind source.ValueKind, lex string) (source.Value, error) {
	switch kind {
	case source.KindString:
		return source.StringValue(lex), nil
	case source.KindInteger:
		n, err := strconv.ParseInt(lex, 10, 64)
		if err != nil {
			return source.Value{}, err
		}
		return source.IntValue(n), nil
	default:
		return source.Absent(), nil
	}
}

// Close closes the underlying database.
func (p *SQLitePersister) Close() error {
	return p.db.Close()
}
