package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"aromasabor/internal/schema"
)

// table holds the encoded rows of one entity. Sequence only grows, so a
// deleted id is never handed out again.
type table struct {
	Sequence int64                     `json:"sequence"`
	Rows     map[int64]json.RawMessage `json:"rows"`
}

// dbData is the whole content of the data file.
type dbData struct {
	Tables map[string]*table `json:"tables"`
}

func (d dbData) clone() dbData {
	out := dbData{Tables: make(map[string]*table, len(d.Tables))}
	for name, t := range d.Tables {
		rows := make(map[int64]json.RawMessage, len(t.Rows))
		for id, raw := range t.Rows {
			rows[id] = raw
		}
		out.Tables[name] = &table{Sequence: t.Sequence, Rows: rows}
	}
	return out
}

// JSONDatabase keeps every table in memory and rewrites the data file after
// each committed transaction. Transactions are serialized by a single write
// lock, which also makes the unique and foreign key checks below race free.
type JSONDatabase struct {
	mu       sync.RWMutex
	data     dbData
	filePath string
	registry *schema.Registry
}

// NewJSONDatabase opens the data file at filePath, creating it when missing.
// An empty filePath keeps the data in memory only.
func NewJSONDatabase(filePath string, registry *schema.Registry) (*JSONDatabase, error) {
	db := &JSONDatabase{filePath: filePath, registry: registry}
	if err := db.loadData(); err != nil {
		return nil, fmt.Errorf("load %s: %w", filePath, err)
	}
	return db, nil
}

func (db *JSONDatabase) loadData() error {
	db.data = dbData{Tables: map[string]*table{}}
	if db.filePath == "" {
		db.ensureTables()
		return nil
	}

	fileData, err := os.ReadFile(db.filePath)
	if os.IsNotExist(err) {
		db.ensureTables()
		return db.saveData()
	}
	if err != nil {
		return err
	}
	if len(fileData) > 0 {
		if err := json.Unmarshal(fileData, &db.data); err != nil {
			return err
		}
	}
	if db.data.Tables == nil {
		db.data.Tables = map[string]*table{}
	}
	db.ensureTables()
	return nil
}

func (db *JSONDatabase) ensureTables() {
	for _, e := range db.registry.Entities() {
		t, ok := db.data.Tables[e.Table]
		if !ok {
			t = &table{}
			db.data.Tables[e.Table] = t
		}
		if t.Rows == nil {
			t.Rows = map[int64]json.RawMessage{}
		}
		for id := range t.Rows {
			if id > t.Sequence {
				t.Sequence = id
			}
		}
	}
}

// saveData writes to a temporary file and renames it over the data file so a
// crash never leaves a truncated file behind.
func (db *JSONDatabase) saveData() error {
	if db.filePath == "" {
		return nil
	}
	data, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(db.filePath), filepath.Base(db.filePath)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), db.filePath)
}

func (db *JSONDatabase) Get(ctx context.Context, m schema.Model, id int64) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.get(ctx, m, id)
}

func (db *JSONDatabase) Count(ctx context.Context, e *schema.Entity, match ...Match) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.count(ctx, e, match)
}

func (db *JSONDatabase) List(ctx context.Context, e *schema.Entity, match ...Match) ([]schema.Model, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.list(ctx, e, match)
}

// Transaction holds the write lock for the whole of fn. The table state is
// restored from a snapshot when fn fails or the data file cannot be written.
func (db *JSONDatabase) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.data.clone()
	tx := &jsonTx{db: db}
	if err := fn(tx); err != nil {
		db.data = snapshot
		return err
	}
	if !tx.dirty {
		return nil
	}
	if err := db.saveData(); err != nil {
		db.data = snapshot
		return fmt.Errorf("save %s: %w", db.filePath, err)
	}
	return nil
}

func (db *JSONDatabase) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (db *JSONDatabase) Close() error {
	return nil
}

// jsonTx runs with the write lock already held.
type jsonTx struct {
	db    *JSONDatabase
	dirty bool
}

func (tx *jsonTx) Get(ctx context.Context, m schema.Model, id int64) error {
	return tx.db.get(ctx, m, id)
}

func (tx *jsonTx) Count(ctx context.Context, e *schema.Entity, match ...Match) (int64, error) {
	return tx.db.count(ctx, e, match)
}

func (tx *jsonTx) List(ctx context.Context, e *schema.Entity, match ...Match) ([]schema.Model, error) {
	return tx.db.list(ctx, e, match)
}

func (tx *jsonTx) Insert(ctx context.Context, m schema.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, t, err := tx.db.table(m.TableName())
	if err != nil {
		return err
	}
	if err := tx.db.checkWrite(e, m, 0); err != nil {
		return err
	}
	id := t.Sequence + 1
	m.SetPrimaryKey(id)
	raw, err := json.Marshal(m)
	if err != nil {
		m.SetPrimaryKey(0)
		return err
	}
	t.Sequence = id
	t.Rows[id] = raw
	tx.dirty = true
	return nil
}

func (tx *jsonTx) Update(ctx context.Context, m schema.Model) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e, t, err := tx.db.table(m.TableName())
	if err != nil {
		return err
	}
	id := m.PrimaryKey()
	if _, ok := t.Rows[id]; !ok {
		return ErrNotFound
	}
	if err := tx.db.checkWrite(e, m, id); err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	t.Rows[id] = raw
	tx.dirty = true
	return nil
}

// Delete refuses to remove a row still referenced by a required foreign key,
// like an ON DELETE RESTRICT constraint.
func (tx *jsonTx) Delete(ctx context.Context, e *schema.Entity, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, t, err := tx.db.table(e.Table)
	if err != nil {
		return err
	}
	if _, ok := t.Rows[id]; !ok {
		return ErrNotFound
	}
	for _, dep := range tx.db.registry.Dependents(e) {
		n, err := tx.db.count(ctx, dep.Entity, []Match{Eq(dep.Field.Name, id)})
		if err != nil {
			return err
		}
		if n > 0 {
			return &ForeignKeyViolation{Table: dep.Entity.Table, Column: dep.Field.Name}
		}
	}
	delete(t.Rows, id)
	tx.dirty = true
	return nil
}

func (db *JSONDatabase) table(name string) (*schema.Entity, *table, error) {
	e, ok := db.registry.Lookup(name)
	if !ok {
		return nil, nil, fmt.Errorf("unknown table %q", name)
	}
	return e, db.data.Tables[name], nil
}

// checkWrite enforces the unique indexes and foreign keys of e for m. self is
// the primary key m is stored under, zero for an insert.
func (db *JSONDatabase) checkWrite(e *schema.Entity, m schema.Model, self int64) error {
	values := m.Values()
	ctx := context.Background()

	for _, f := range e.UniqueFields() {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		n, err := db.count(ctx, e, []Match{Eq(f.Name, v), Ne(IDColumn, self)})
		if err != nil {
			return err
		}
		if n > 0 {
			return &UniqueViolation{Table: e.Table, Column: f.Name}
		}
	}

	for _, f := range e.ForeignKeys() {
		ref, ok := values[f.Name].(int64)
		if !ok || ref == 0 {
			continue
		}
		t := db.data.Tables[f.References]
		if t == nil {
			return fmt.Errorf("unknown table %q", f.References)
		}
		if _, ok := t.Rows[ref]; !ok {
			return &ForeignKeyViolation{Table: e.Table, Column: f.Name}
		}
	}
	return nil
}

func (db *JSONDatabase) get(ctx context.Context, m schema.Model, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, t, err := db.table(m.TableName())
	if err != nil {
		return err
	}
	raw, ok := t.Rows[id]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, m)
}

func (db *JSONDatabase) count(ctx context.Context, e *schema.Entity, match []Match) (int64, error) {
	var n int64
	err := db.scan(ctx, e, match, func(schema.Model) { n++ })
	return n, err
}

func (db *JSONDatabase) list(ctx context.Context, e *schema.Entity, match []Match) ([]schema.Model, error) {
	var out []schema.Model
	err := db.scan(ctx, e, match, func(m schema.Model) { out = append(out, m) })
	return out, err
}

// scan decodes the rows of e in id order and passes the matching ones to fn.
func (db *JSONDatabase) scan(ctx context.Context, e *schema.Entity, match []Match, fn func(schema.Model)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := db.data.Tables[e.Table]
	if t == nil {
		return fmt.Errorf("unknown table %q", e.Table)
	}

	ids := make([]int64, 0, len(t.Rows))
	for id := range t.Rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		m := e.New()
		if err := json.Unmarshal(t.Rows[id], m); err != nil {
			return fmt.Errorf("decode %s row %d: %w", e.Table, id, err)
		}
		if matches(m, match) {
			fn(m)
		}
	}
	return nil
}

func matches(m schema.Model, match []Match) bool {
	if len(match) == 0 {
		return true
	}
	values := m.Values()
	for _, c := range match {
		var v any
		if c.Column == IDColumn {
			v = m.PrimaryKey()
		} else {
			v = values[c.Column]
		}
		if schema.Equal(v, c.Value) == c.Not {
			return false
		}
	}
	return true
}
