package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/google/uuid"

	"github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

type postgresExportJobRepo struct {
	log      logging.Logger
	executor queryExecutor
}

// NewPostgresExportJobRepo returns an ExportJobRepository over serial_export_jobs.
func NewPostgresExportJobRepo(conn *postgres.Connection, log logging.Logger) serial.ExportJobRepository {
	return &postgresExportJobRepo{log: log, executor: conn.DB()}
}

func (r *postgresExportJobRepo) Create(ctx context.Context, job *serial.ExportJob) error {
	query := `
		INSERT INTO serial_export_jobs (job_id, format, status, row_count, requested_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.executor.ExecContext(ctx, query,
		job.JobID, string(job.Format), string(job.Status), job.RowCount, job.RequestedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return errors.Wrap(err, errors.ErrCodeConflict, "export job already exists")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create export job")
	}
	return nil
}

func (r *postgresExportJobRepo) Update(ctx context.Context, job *serial.ExportJob) error {
	query := `
		UPDATE serial_export_jobs SET
			status = $2, object_key = $3, error_message = $4, completed_at = $5
		WHERE job_id = $1
	`
	res, err := r.executor.ExecContext(ctx, query,
		job.JobID, string(job.Status), nullString(job.ObjectKey), nullString(job.Error), job.CompletedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update export job")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NotFound("export job not found").WithDetail("job_id=" + job.JobID.String())
	}
	return nil
}

func (r *postgresExportJobRepo) Get(ctx context.Context, id uuid.UUID) (*serial.ExportJob, error) {
	query := `
		SELECT job_id, format, status, row_count, object_key, error_message, requested_at, completed_at
		FROM serial_export_jobs WHERE job_id = $1
	`
	var (
		job                  serial.ExportJob
		format, status       string
		objectKey, errorText sql.NullString
		completedAt          sql.NullTime
	)
	err := r.executor.QueryRowContext(ctx, query, id).Scan(
		&job.JobID, &format, &status, &job.RowCount, &objectKey, &errorText, &job.RequestedAt, &completedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("export job not found").WithDetail("job_id=" + id.String())
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get export job")
	}
	job.Format = serial.ExportFormat(format)
	job.Status = serial.ExportStatus(status)
	job.ObjectKey = objectKey.String
	job.Error = errorText.String
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

//Personal.AI order the ending
