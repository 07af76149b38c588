package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"aromasabor/internal/database"
	"aromasabor/internal/metrics"
	"aromasabor/internal/schema"
)

// Gateway is the only path from handlers to the store. Every mutation runs in
// one store transaction that re-checks unique values and references against
// the current state before writing.
type Gateway struct {
	store    database.Store
	registry *schema.Registry
	log      *logrus.Entry
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewGateway(store database.Store, registry *schema.Registry, log *logrus.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		store:    store,
		registry: registry,
		log:      log.WithField("component", "gateway"),
		metrics:  m,
		now:      time.Now,
	}
}

func (g *Gateway) Registry() *schema.Registry { return g.registry }

// Create stores a new record built from v and returns its id.
func (g *Gateway) Create(ctx context.Context, e *schema.Entity, v schema.Values) (int64, error) {
	m := e.New()
	m.Apply(v)
	if err := g.Insert(ctx, e, m); err != nil {
		return 0, err
	}
	return m.PrimaryKey(), nil
}

// Insert stores a prepared model. It is used directly when some members, such
// as a password hash, do not come from a form.
func (g *Gateway) Insert(ctx context.Context, e *schema.Entity, m schema.Model) (err error) {
	defer func() { g.record(e, "create", m.PrimaryKey(), err) }()

	if s, ok := m.(schema.Stamped); ok {
		s.Stamp(g.now())
	}
	err = g.store.Transaction(ctx, func(tx database.Tx) error {
		if err := g.checkWrite(ctx, tx, e, m, 0); err != nil {
			return err
		}
		return tx.Insert(ctx, m)
	})
	if err != nil {
		m.SetPrimaryKey(0)
	}
	return g.translate(e, err, false)
}

// Update applies v to the record with the given id.
func (g *Gateway) Update(ctx context.Context, e *schema.Entity, id int64, v schema.Values) (err error) {
	defer func() { g.record(e, "update", id, err) }()

	err = g.store.Transaction(ctx, func(tx database.Tx) error {
		m := e.New()
		if err := tx.Get(ctx, m, id); err != nil {
			return err
		}
		m.Apply(v)
		m.SetPrimaryKey(id)
		if err := g.checkWrite(ctx, tx, e, m, id); err != nil {
			return err
		}
		return tx.Update(ctx, m)
	})
	return g.translate(e, err, false)
}

// Delete removes the record unless a required foreign key still points at it.
func (g *Gateway) Delete(ctx context.Context, e *schema.Entity, id int64) (err error) {
	defer func() { g.record(e, "delete", id, err) }()

	err = g.store.Transaction(ctx, func(tx database.Tx) error {
		if err := tx.Get(ctx, e.New(), id); err != nil {
			return err
		}
		for _, dep := range g.registry.Dependents(e) {
			n, err := tx.Count(ctx, dep.Entity, database.Eq(dep.Field.Name, id))
			if err != nil {
				return err
			}
			if n > 0 {
				return &DependencyError{Entity: e.Name, Dependent: dep.Entity.Plural}
			}
		}
		return tx.Delete(ctx, e, id)
	})
	return g.translate(e, err, true)
}

func (g *Gateway) Get(ctx context.Context, e *schema.Entity, id int64) (schema.Model, error) {
	m := e.New()
	if err := g.store.Get(ctx, m, id); err != nil {
		return nil, g.translate(e, err, false)
	}
	return m, nil
}

func (g *Gateway) List(ctx context.Context, e *schema.Entity) ([]schema.Model, error) {
	rows, err := g.store.List(ctx, e)
	return rows, g.translate(e, err, false)
}

// ListBy returns the records of e whose field equals value.
func (g *Gateway) ListBy(ctx context.Context, e *schema.Entity, field string, value any) ([]schema.Model, error) {
	rows, err := g.store.List(ctx, e, database.Eq(field, value))
	return rows, g.translate(e, err, false)
}

// FindBy returns the single record of e whose field equals value.
func (g *Gateway) FindBy(ctx context.Context, e *schema.Entity, field string, value any) (schema.Model, error) {
	rows, err := g.ListBy(ctx, e, field, value)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (g *Gateway) Count(ctx context.Context, e *schema.Entity) (int64, error) {
	n, err := g.store.Count(ctx, e)
	return n, g.translate(e, err, false)
}

// Labels maps the ids of e to their display label.
func (g *Gateway) Labels(ctx context.Context, e *schema.Entity) (map[int64]string, error) {
	rows, err := g.List(ctx, e)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(rows))
	for _, m := range rows {
		if l, ok := m.(schema.Labeled); ok {
			out[m.PrimaryKey()] = l.Label()
		}
	}
	return out, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	return g.store.Ping(ctx)
}

// checkWrite rejects m when a unique value is taken by another row or a
// reference points at a missing row. self is m's own id, zero on create.
func (g *Gateway) checkWrite(ctx context.Context, tx database.Tx, e *schema.Entity, m schema.Model, self int64) error {
	values := m.Values()

	for _, f := range e.UniqueFields() {
		v, ok := values[f.Name]
		if !ok {
			continue
		}
		n, err := tx.Count(ctx, e, database.Eq(f.Name, v), database.Ne(database.IDColumn, self))
		if err != nil {
			return err
		}
		if n > 0 {
			return &ConflictError{Entity: e.Name, Field: f.Name}
		}
	}

	for _, f := range e.ForeignKeys() {
		ref, _ := values[f.Name].(int64)
		if ref == 0 {
			if f.Required {
				return &ReferenceError{Entity: e.Name, Field: f.Name}
			}
			continue
		}
		target, ok := g.registry.Lookup(f.References)
		if !ok {
			return &ReferenceError{Entity: e.Name, Field: f.Name}
		}
		n, err := tx.Count(ctx, target, database.Eq(database.IDColumn, ref))
		if err != nil {
			return err
		}
		if n == 0 {
			return &ReferenceError{Entity: e.Name, Field: f.Name}
		}
	}
	return nil
}

// translate maps store errors onto service errors. A foreign key rejected by
// the store means a missing reference on writes and a dependent row on delete.
func (g *Gateway) translate(e *schema.Entity, err error, deleting bool) error {
	if err == nil {
		return nil
	}
	var (
		uv *database.UniqueViolation
		fk *database.ForeignKeyViolation
	)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return ErrNotFound
	case errors.As(err, &uv):
		return &ConflictError{Entity: e.Name, Field: uv.Column}
	case errors.As(err, &fk):
		if deleting {
			return &DependencyError{Entity: e.Name, Dependent: fk.Table}
		}
		field := fk.Column
		if _, ok := e.Field(field); !ok {
			if fks := e.ForeignKeys(); len(fks) > 0 {
				field = fks[0].Name
			}
		}
		return &ReferenceError{Entity: e.Name, Field: field}
	}
	return err
}

func (g *Gateway) record(e *schema.Entity, operation string, id int64, err error) {
	entry := g.log.WithFields(logrus.Fields{"entity": e.Name, "operation": operation, "id": id})
	switch {
	case err == nil:
		g.metrics.Operation(e.Name, operation, metrics.OutcomeOK)
		entry.Info("record saved")
	case isRejection(err):
		g.metrics.Operation(e.Name, operation, metrics.OutcomeInvalid)
		entry.WithError(err).Warn("record rejected")
	default:
		g.metrics.Operation(e.Name, operation, metrics.OutcomeError)
		entry.WithError(err).Error("record operation failed")
	}
}

func isRejection(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrForeignKeyMissing) ||
		errors.Is(err, ErrDependencyExists)
}
