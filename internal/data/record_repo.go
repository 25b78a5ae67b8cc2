package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/target/tempguard-api/internal/core"
	"github.com/target/tempguard-api/internal/data/database"
	"github.com/target/tempguard-api/internal/data/pgxutil"
	"github.com/target/tempguard-api/internal/domain/model"
	apperrors "github.com/target/tempguard-api/internal/errors"
)

const recordsTable = "records"

var recordColumns = []string{
	"id", "shift", "location", "product_code", "product_name", "market_type", "state",
	"temp_start", "temp_middle", "temp_end", "recorded_at", "manual_date", "manual_time",
	"created_by", "created_at",
}

var recordSelect = "SELECT " + strings.Join(recordColumns, ", ") + " FROM " + recordsTable

// recordRow mirrors the records table; model.TemperatureRecord nests the readings.
type recordRow struct {
	ID          string    `db:"id"`
	Shift       string    `db:"shift"`
	Location    string    `db:"location"`
	ProductCode string    `db:"product_code"`
	ProductName string    `db:"product_name"`
	MarketType  string    `db:"market_type"`
	State       string    `db:"state"`
	TempStart   float64   `db:"temp_start"`
	TempMiddle  float64   `db:"temp_middle"`
	TempEnd     float64   `db:"temp_end"`
	RecordedAt  time.Time `db:"recorded_at"`
	ManualDate  string    `db:"manual_date"`
	ManualTime  string    `db:"manual_time"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r recordRow) toModel() *model.TemperatureRecord {
	return &model.TemperatureRecord{
		ID:          r.ID,
		Shift:       model.Shift(r.Shift),
		Location:    r.Location,
		ProductCode: r.ProductCode,
		ProductName: r.ProductName,
		MarketType:  model.MarketType(r.MarketType),
		State:       model.ProductState(r.State),
		Temperatures: model.Temperatures{
			Start:  r.TempStart,
			Middle: r.TempMiddle,
			End:    r.TempEnd,
		},
		Timestamp:  r.RecordedAt,
		ManualDate: r.ManualDate,
		ManualTime: r.ManualTime,
		CreatedBy:  r.CreatedBy,
		CreatedAt:  r.CreatedAt,
	}
}

// RecordRepo provides database operations for temperature records.
type RecordRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewRecordRepo creates a new RecordRepo with real time provider.
func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewRecordRepoWithTimeProvider creates a new RecordRepo with a custom time provider (useful for tests).
func NewRecordRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *RecordRepo {
	return &RecordRepo{DB: db, timeProvider: tp}
}

var _ core.RecordRepository = (*RecordRepo)(nil)

// Create inserts rec. An empty ID is replaced with a new UUID.
func (r *RecordRepo) Create(ctx context.Context, rec *model.TemperatureRecord) (*model.TemperatureRecord, error) {
	if rec == nil {
		return nil, errors.New("record is required")
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := r.timeProvider.Now().UTC()

	var row recordRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO records (
				id, shift, location, product_code, product_name, market_type, state,
				temp_start, temp_middle, temp_end, recorded_at, manual_date, manual_time,
				created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING `+strings.Join(recordColumns, ", "),
			id,
			string(rec.Shift),
			rec.Location,
			rec.ProductCode,
			rec.ProductName,
			string(rec.MarketType),
			string(rec.State),
			rec.Temperatures.Start,
			rec.Temperatures.Middle,
			rec.Temperatures.End,
			rec.Timestamp.UTC(),
			rec.ManualDate,
			rec.ManualTime,
			rec.CreatedBy,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[recordRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return row.toModel(), nil
}

// GetByID retrieves a record by ID.
func (r *RecordRepo) GetByID(ctx context.Context, id string) (*model.TemperatureRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("record not found")
	}
	var row recordRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, recordSelect+` WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		row, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[recordRow])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("record not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	return row.toModel(), nil
}

// Query returns records with q.From <= recorded_at < q.To that match the optional filters,
// newest first unless q.Ascending is set.
func (r *RecordRepo) Query(ctx context.Context, q core.RecordQuery) ([]*model.TemperatureRecord, error) {
	query, args := buildRecordQuery(q)

	var out []recordRow
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[recordRow])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(fmt.Errorf("query records: %w", err))
	}

	res := make([]*model.TemperatureRecord, len(out))
	for i := range out {
		res[i] = out[i].toModel()
	}
	return res, nil
}

func buildRecordQuery(q core.RecordQuery) (string, []any) {
	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}
	opts := []database.ListQueryOption{
		database.WithColumns(recordColumns...),
		database.WithOrderBy("recorded_at", dir),
		database.WithOrderBy("id", dir),
		database.WithLimit(q.Limit),
	}
	if !q.From.IsZero() {
		opts = append(opts, database.WithCondition(database.WhereCond("recorded_at", database.GreaterThanOrEqual, q.From.UTC())))
	}
	if !q.To.IsZero() {
		opts = append(opts, database.WithCondition(database.WhereCond("recorded_at", database.LessThan, q.To.UTC())))
	}
	if q.Location != "" {
		opts = append(opts, database.WithCondition(database.WhereCond("location", database.Equal, q.Location)))
	}
	if q.Shift != "" {
		opts = append(opts, database.WithCondition(database.WhereCond("shift", database.Equal, string(q.Shift))))
	}
	if q.MarketType != "" {
		opts = append(opts, database.WithCondition(database.WhereCond("market_type", database.Equal, string(q.MarketType))))
	}
	if q.ProductCode != "" {
		opts = append(opts, database.WithCondition(database.WhereCond("product_code", database.Equal, q.ProductCode)))
	}
	return database.BuildListQuery(database.NewListQueryOptions(recordsTable, opts...))
}

// Delete removes a record by ID. Unknown or malformed ids report false without error.
func (r *RecordRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return false, apperrors.MapDBError(fmt.Errorf("delete record: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteOlderThan removes every record with recorded_at < cutoff in a single transaction.
func (r *RecordRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM records WHERE recorded_at < $1`, cutoff.UTC())
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	}})
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("delete old records: %w", err))
	}
	return n, nil
}

// DeleteAll removes every record and returns how many existed, counted inside the same transaction.
func (r *RecordRepo) DeleteAll(ctx context.Context) (int64, error) {
	var n int64
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: pgxutil.SnapshotTx,
		Fn: func(tx pgx.Tx) error {
			if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			tag, err := tx.Exec(ctx, `DELETE FROM records`)
			if err != nil {
				return err
			}
			n = tag.RowsAffected()
			return nil
		},
	})
	if err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("delete all records: %w", err))
	}
	return n, nil
}

// Count returns the number of stored records.
func (r *RecordRepo) Count(ctx context.Context) (int64, error) {
	query, args := database.BuildListQuery(database.NewListQueryOptions(recordsTable, database.WithCountOnly()))
	var n int64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, apperrors.MapDBError(fmt.Errorf("count records: %w", err))
	}
	return n, nil
}
