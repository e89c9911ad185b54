package serial

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

// ExportFormat is the file format of a serial export.
type ExportFormat string

const (
	ExportFormatXLSX ExportFormat = "xlsx"
	ExportFormatCSV  ExportFormat = "csv"
)

// ParseExportFormat accepts xlsx or csv in any case; empty means xlsx.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ExportFormatXLSX, nil
	case ExportFormatXLSX, ExportFormatCSV:
		return f, nil
	default:
		return "", errors.Validation("unsupported export format").WithDetail("format=" + s)
	}
}

// ContentType is the MIME type used when the export is uploaded.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// ExportStatus tracks an asynchronous export.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

// ExportJob is the persisted record of an export request.
type ExportJob struct {
	JobID       uuid.UUID    `json:"job_id"`
	Format      ExportFormat `json:"format"`
	Status      ExportStatus `json:"status"`
	RowCount    int          `json:"row_count"`
	ObjectKey   string       `json:"object_key,omitempty"`
	Error       string       `json:"error,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// NewExportJob returns a pending job with a fresh id.
func NewExportJob(format ExportFormat, rows int) *ExportJob {
	return &ExportJob{
		JobID:       uuid.New(),
		Format:      format,
		Status:      ExportPending,
		RowCount:    rows,
		RequestedAt: time.Now().UTC(),
	}
}

// Complete marks the job done with the uploaded object key.
func (j *ExportJob) Complete(objectKey string) {
	now := time.Now().UTC()
	j.Status = ExportCompleted
	j.ObjectKey = objectKey
	j.Error = ""
	j.CompletedAt = &now
}

// Fail marks the job failed with reason.
func (j *ExportJob) Fail(reason string) {
	now := time.Now().UTC()
	j.Status = ExportFailed
	j.Error = reason
	j.CompletedAt = &now
}

// ExportJobRepository persists export job state.
type ExportJobRepository interface {
	Create(ctx context.Context, job *ExportJob) error
	// Update writes status, object key, error and completion time.
	Update(ctx context.Context, job *ExportJob) error
	Get(ctx context.Context, id uuid.UUID) (*ExportJob, error)
}

//Personal.AI order the ending
