package database

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/irfndi/predictarena-go/internal/database"

// TracedPool wraps a DatabasePool and records a span per statement.
type TracedPool struct {
	pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedPool wraps pool with spans from the global tracer provider.
func NewTracedPool(pool DatabasePool) *TracedPool {
	return &TracedPool{
		pool:   pool,
		tracer: otel.Tracer(tracerName),
	}
}

func (db *TracedPool) start(ctx context.Context, op, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.statement", compactSQL(sql)),
		),
	)
}

// Query executes a query that returns rows.
func (db *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "query", sql)
	defer span.End()

	rows, err := db.pool.Query(ctx, sql, args...)
	RecordDatabaseError(span, err)
	return rows, err
}

// QueryRow executes a query that returns at most one row. Scan errors are
// not visible here, so the span covers dispatch only.
func (db *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "query_row", sql)
	defer span.End()

	return db.pool.QueryRow(ctx, sql, args...)
}

// Exec executes a statement.
func (db *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "exec", sql)
	defer span.End()

	tag, err := db.pool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	RecordDatabaseError(span, err)
	return tag, err
}

// Begin starts a transaction.
func (db *TracedPool) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := db.start(ctx, "begin", "BEGIN")
	defer span.End()

	tx, err := db.pool.Begin(ctx)
	RecordDatabaseError(span, err)
	return tx, err
}

// RecordDatabaseError marks the span failed when err is a real failure.
// pgx.ErrNoRows is an expected outcome and is left unmarked.
func RecordDatabaseError(span trace.Span, err error) {
	if err == nil || err == pgx.ErrNoRows {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
