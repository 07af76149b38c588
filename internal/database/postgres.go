package database

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aromasabor/internal/schema"
)

// PostgreSQL error codes.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// PostgresDatabase stores records through gorm.
type PostgresDatabase struct {
	db *gorm.DB
}

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres connects to the database at dsn.
func OpenPostgres(dsn string, pool PoolConfig, log *logrus.Logger) (*PostgresDatabase, error) {
	p, err := Open(postgres.Open(dsn), log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	return p, nil
}

// Open wraps an arbitrary gorm dialector. Every write already runs inside
// Transaction, so gorm's implicit per-statement transactions are disabled.
func Open(dialector gorm.Dialector, log *logrus.Logger) (*PostgresDatabase, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(log, 200*time.Millisecond),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, err
	}
	return &PostgresDatabase{db: db}, nil
}

// Migrate creates or alters the tables of the given models.
func (p *PostgresDatabase) Migrate(ctx context.Context, models ...any) error {
	return p.db.WithContext(ctx).AutoMigrate(models...)
}

func (p *PostgresDatabase) Get(ctx context.Context, m schema.Model, id int64) error {
	return translate(p.db.WithContext(ctx).First(m, id).Error)
}

func (p *PostgresDatabase) Count(ctx context.Context, e *schema.Entity, match ...Match) (int64, error) {
	var n int64
	err := where(p.db.WithContext(ctx).Table(e.Table), match).Count(&n).Error
	return n, translate(err)
}

func (p *PostgresDatabase) List(ctx context.Context, e *schema.Entity, match ...Match) ([]schema.Model, error) {
	rows := reflect.New(reflect.SliceOf(reflect.TypeOf(e.New())))
	err := where(p.db.WithContext(ctx), match).Order(IDColumn).Find(rows.Interface()).Error
	if err != nil {
		return nil, translate(err)
	}
	slice := rows.Elem()
	out := make([]schema.Model, slice.Len())
	for i := range out {
		out[i] = slice.Index(i).Interface().(schema.Model)
	}
	return out, nil
}

func (p *PostgresDatabase) Insert(ctx context.Context, m schema.Model) error {
	return translate(p.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error)
}

func (p *PostgresDatabase) Update(ctx context.Context, m schema.Model) error {
	res := p.db.WithContext(ctx).Model(m).Select("*").Omit(IDColumn, clause.Associations).Updates(m)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDatabase) Delete(ctx context.Context, e *schema.Entity, id int64) error {
	res := p.db.WithContext(ctx).Delete(e.New(), id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresDatabase) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresDatabase{db: tx})
	})
}

func (p *PostgresDatabase) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *PostgresDatabase) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func where(q *gorm.DB, match []Match) *gorm.DB {
	for _, m := range match {
		col := clause.Column{Name: m.Column}
		if m.Not {
			q = q.Where(clause.Neq{Column: col, Value: m.Value})
		} else {
			q = q.Where(clause.Eq{Column: col, Value: m.Value})
		}
	}
	return q
}

var keyColumn = regexp.MustCompile(`^Key \(([a-z_]+)\)=`)

// translate maps driver errors onto the package's error values.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		col := detailColumn(pgErr.Detail)
		if col == "" {
			col = strings.TrimPrefix(pgErr.ConstraintName, "uq_"+pgErr.TableName+"_")
		}
		return &UniqueViolation{Table: pgErr.TableName, Column: col}
	case codeForeignKeyViolation:
		return &ForeignKeyViolation{Table: pgErr.TableName, Column: detailColumn(pgErr.Detail)}
	}
	return err
}

func detailColumn(detail string) string {
	if m := keyColumn.FindStringSubmatch(detail); m != nil {
		return m[1]
	}
	return ""
}
