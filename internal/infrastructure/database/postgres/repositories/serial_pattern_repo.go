package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

const patternColumns = `id, name, pattern_type, pattern_config, product_id, is_active, created_at, updated_at`

var sortColumns = map[string]string{
	serial.SortByCreatedAt: "created_at",
	serial.SortByName:      "lower(name)",
	serial.SortByID:        "id",
}

type postgresSerialPatternRepo struct {
	conn     *postgres.Connection
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresSerialPatternRepo returns a PatternRepository over the
// serial_patterns table.
func NewPostgresSerialPatternRepo(conn *postgres.Connection, log logging.Logger) serial.PatternRepository {
	return &postgresSerialPatternRepo{
		conn:     conn,
		log:      log,
		executor: conn.DB(),
	}
}

func (r *postgresSerialPatternRepo) Create(ctx context.Context, p *serial.SerialPattern) error {
	raw, err := serial.EncodeConfig(p.Config)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO serial_patterns (name, pattern_type, pattern_config, product_id, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = r.executor.QueryRowContext(ctx, query,
		p.Name, string(p.Type), string(raw), nullableID(p.ProductID), p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return r.writeError(err, p.Name, "failed to create serial pattern")
	}
	return nil
}

func (r *postgresSerialPatternRepo) Update(ctx context.Context, p *serial.SerialPattern) error {
	raw, err := serial.EncodeConfig(p.Config)
	if err != nil {
		return err
	}
	query := `
		UPDATE serial_patterns SET
			name = $2, pattern_type = $3, pattern_config = $4, product_id = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err = r.executor.QueryRowContext(ctx, query,
		p.ID, p.Name, string(p.Type), string(raw), nullableID(p.ProductID), p.IsActive,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return patternNotFound(p.ID)
		}
		return r.writeError(err, p.Name, "failed to update serial pattern")
	}
	return nil
}

func (r *postgresSerialPatternRepo) GetByID(ctx context.Context, id int64) (*serial.SerialPattern, error) {
	query := `SELECT ` + patternColumns + ` FROM serial_patterns WHERE id = $1`
	p, err := r.scanPattern(r.executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, patternNotFound(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get serial pattern")
	}
	return p, nil
}

func (r *postgresSerialPatternRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.executor.ExecContext(ctx, `DELETE FROM serial_patterns WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete serial pattern")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return patternNotFound(id)
	}
	return nil
}

func (r *postgresSerialPatternRepo) SetActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE serial_patterns SET is_active = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.executor.ExecContext(ctx, query, id, active)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update serial pattern status")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return patternNotFound(id)
	}
	return nil
}

func (r *postgresSerialPatternRepo) List(ctx context.Context, filter serial.PatternFilter, opts ...serial.QueryOption) ([]*serial.SerialPattern, int64, error) {
	o := serial.ApplyOptions(opts...)

	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProductID != nil {
		add("product_id = $%d", *filter.ProductID)
	}
	if filter.ActiveOnly {
		add("is_active = $%d", true)
	}
	if filter.Type != "" {
		add("pattern_type = $%d", string(filter.Type))
	}
	if kw := strings.TrimSpace(o.NameKeyword); kw != "" {
		add("name ILIKE $%d", "%"+escapeLike(kw)+"%")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM serial_patterns`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count serial patterns")
	}

	dir := "DESC"
	if o.SortAscending {
		dir = "ASC"
	}
	query := fmt.Sprintf(`SELECT %s FROM serial_patterns%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		patternColumns, where, sortColumns[o.SortField], dir, dir, len(args)+1, len(args)+2)
	args = append(args, o.Limit, o.Offset)

	patterns, err := r.queryPatterns(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return patterns, total, nil
}

func (r *postgresSerialPatternRepo) ListApplicable(ctx context.Context, productID *int64) ([]*serial.SerialPattern, error) {
	if productID == nil {
		query := `SELECT ` + patternColumns + ` FROM serial_patterns
			WHERE is_active AND product_id IS NULL
			ORDER BY created_at DESC, id DESC`
		return r.queryPatterns(ctx, query)
	}
	query := `SELECT ` + patternColumns + ` FROM serial_patterns
		WHERE is_active AND (product_id IS NULL OR product_id = $1)
		ORDER BY created_at DESC, id DESC`
	return r.queryPatterns(ctx, query, *productID)
}

func (r *postgresSerialPatternRepo) queryPatterns(ctx context.Context, query string, args ...interface{}) ([]*serial.SerialPattern, error) {
	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query serial patterns")
	}
	defer rows.Close()

	patterns := make([]*serial.SerialPattern, 0)
	for rows.Next() {
		p, err := r.scanPattern(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan serial pattern")
		}
		patterns = append(patterns, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate serial patterns")
	}
	return patterns, nil
}

// scanPattern keeps rows whose config no longer decodes; the matcher skips
// them and reports the pattern instead of failing the read.
func (r *postgresSerialPatternRepo) scanPattern(row scanner) (*serial.SerialPattern, error) {
	var (
		p         serial.SerialPattern
		typ       string
		raw       []byte
		productID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &typ, &raw, &productID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Type = serial.PatternType(typ)
	if productID.Valid {
		id := productID.Int64
		p.ProductID = &id
	}
	cfg, err := serial.DecodeStoredConfig(p.Type, raw)
	if err != nil {
		r.log.Warn("Stored serial pattern has an invalid configuration",
			logging.Int64("pattern_id", p.ID),
			logging.String("name", p.Name),
			logging.Err(err))
	}
	p.Config = cfg
	return &p, nil
}

func (r *postgresSerialPatternRepo) writeError(err error, name, msg string) error {
	if _, ok := uniqueViolation(err); ok {
		return errors.Wrap(err, errors.ErrCodePatternDuplicate, "serial pattern name already exists in this scope").
			WithDetail("name=" + name)
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

func patternNotFound(id int64) error {
	return errors.Newf(errors.ErrCodePatternNotFound, "serial pattern %d not found", id)
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

//Personal.AI order the ending
