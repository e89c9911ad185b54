package serial

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainSerial "github.com/turtacn/Serial-Intelligence/internal/domain/serial"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/database/redis"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/export"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/storage/minio"
	extractor "github.com/turtacn/Serial-Intelligence/internal/intelligence/serial_extractor"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
	"github.com/turtacn/Serial-Intelligence/pkg/types/common"
)

const (
	defaultMaxExportRows = 100000
	defaultStagingTTL    = 24 * time.Hour
	exportRowsKeyPrefix  = "exports:rows:"
)

// ExportService renders serial lists to files in object storage, either
// inline or as a job handled by the worker.
type ExportService interface {
	ExportSerials(ctx context.Context, input *ExportInput) (*ExportOutput, error)
	RequestExport(ctx context.Context, input *ExportInput) (*domainSerial.ExportJob, error)
	GetExportJob(ctx context.Context, id uuid.UUID) (*ExportJobView, error)
	ProcessExportJob(ctx context.Context, id uuid.UUID) error
	HandleExportRequested(ctx context.Context, msg *common.Message) error
}

// ExportInput carries either plain serials or detailed extraction results.
// Results take precedence when both are set.
type ExportInput struct {
	Format  string
	Serials []string
	Results []extractor.ExtractedSerial
}

// ExportOutput describes an uploaded export.
type ExportOutput struct {
	ObjectKey string                    `json:"object_key"`
	Format    domainSerial.ExportFormat `json:"format"`
	RowCount  int                       `json:"row_count"`
	URL       string                    `json:"url"`
	ExpiresAt time.Time                 `json:"expires_at"`
}

// ExportJobView is a job plus a download link once it has completed.
type ExportJobView struct {
	*domainSerial.ExportJob
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ExportServiceConfig bounds exports.
type ExportServiceConfig struct {
	MaxRows    int
	StagingTTL time.Duration
}

type exportServiceImpl struct {
	store     ObjectStore
	jobs      domainSerial.ExportJobRepository
	staging   redis.Cache
	locks     Locker
	publisher EventPublisher
	metrics   *prometheus.SerialMetrics
	cfg       ExportServiceConfig
	logger    logging.Logger
}

// NewExportService creates the export service. jobs, staging, locks and
// publisher are only needed for asynchronous exports; metrics may be nil.
func NewExportService(
	store ObjectStore,
	jobs domainSerial.ExportJobRepository,
	staging redis.Cache,
	locks Locker,
	publisher EventPublisher,
	metrics *prometheus.SerialMetrics,
	cfg ExportServiceConfig,
	logger logging.Logger,
) ExportService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaultMaxExportRows
	}
	if cfg.StagingTTL <= 0 {
		cfg.StagingTTL = defaultStagingTTL
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &exportServiceImpl{
		store:     store,
		jobs:      jobs,
		staging:   staging,
		locks:     locks,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.Named("export_service"),
	}
}

func (s *exportServiceImpl) prepare(input *ExportInput) (domainSerial.ExportFormat, []export.Row, error) {
	if input == nil {
		return "", nil, errors.Validation("export input is required")
	}
	format, err := domainSerial.ParseExportFormat(input.Format)
	if err != nil {
		return "", nil, err
	}

	var rows []export.Row
	if len(input.Results) > 0 {
		rows = make([]export.Row, len(input.Results))
		for i, r := range input.Results {
			conf := r.Confidence
			rows[i] = export.Row{Serial: r.Serial, Confidence: &conf, Pattern: r.Pattern, Source: string(r.Source)}
		}
	} else {
		rows = export.SerialRows(input.Serials)
	}
	if len(rows) == 0 {
		return "", nil, errors.Validation("nothing to export: serials or results are required")
	}
	if len(rows) > s.cfg.MaxRows {
		return "", nil, errors.Newf(errors.ErrCodeCapacityExceeded,
			"export of %d rows exceeds the maximum of %d", len(rows), s.cfg.MaxRows)
	}
	return format, rows, nil
}

// render encodes rows and uploads them under a key derived from id.
func (s *exportServiceImpl) render(ctx context.Context, id uuid.UUID, format domainSerial.ExportFormat, rows []export.Row) (string, error) {
	if s.store == nil {
		return "", errors.New(errors.ErrCodeServiceUnavailable, "export storage is not configured")
	}
	enc, err := export.NewEncoder(format)
	if err != nil {
		return "", err
	}
	data, err := enc.Encode(rows)
	if err != nil {
		return "", err
	}
	key := minio.ObjectKey("serials-"+id.String()+enc.Extension(), time.Now())
	_, err = s.store.Upload(ctx, &minio.UploadRequest{
		ObjectKey:   key,
		Data:        data,
		ContentType: format.ContentType(),
		Metadata:    map[string]string{"export-id": id.String()},
	})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeExportFailed, "failed to store export")
	}
	return key, nil
}

func (s *exportServiceImpl) ExportSerials(ctx context.Context, input *ExportInput) (*ExportOutput, error) {
	format, rows, err := s.prepare(input)
	if err != nil {
		return nil, err
	}
	key, err := s.render(ctx, uuid.New(), format, rows)
	if err != nil {
		s.metrics.RecordExport(string(format), prometheus.StatusError)
		return nil, err
	}
	url, expires, err := s.store.PresignedURL(ctx, key)
	if err != nil {
		s.metrics.RecordExport(string(format), prometheus.StatusError)
		return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "failed to sign export link")
	}
	s.metrics.RecordExport(string(format), prometheus.StatusSuccess)
	s.logger.Info("Serial export stored",
		logging.String("object_key", key),
		logging.Int("rows", len(rows)))
	return &ExportOutput{ObjectKey: key, Format: format, RowCount: len(rows), URL: url, ExpiresAt: expires}, nil
}

func (s *exportServiceImpl) asyncReady() error {
	if s.jobs == nil || s.staging == nil || s.publisher == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "asynchronous exports are not configured")
	}
	return nil
}

func rowsKey(id uuid.UUID) string { return exportRowsKeyPrefix + id.String() }

// RequestExport stages the rows, records a pending job and announces it.
func (s *exportServiceImpl) RequestExport(ctx context.Context, input *ExportInput) (*domainSerial.ExportJob, error) {
	if err := s.asyncReady(); err != nil {
		return nil, err
	}
	format, rows, err := s.prepare(input)
	if err != nil {
		return nil, err
	}

	job := domainSerial.NewExportJob(format, len(rows))
	if err := s.staging.Set(ctx, rowsKey(job.JobID), rows, s.cfg.StagingTTL); err != nil {
		return nil, err
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		s.dropStaged(ctx, job.JobID)
		return nil, err
	}

	err = s.publisher.PublishEvent(ctx, kafka.TopicExportRequested, kafka.EventExportRequested, job.JobID.String(),
		kafka.ExportRequestedPayload{
			JobID:       job.JobID.String(),
			Format:      string(format),
			RowCount:    job.RowCount,
			RequestedAt: job.RequestedAt,
		})
	if err != nil {
		job.Fail("export could not be queued")
		if uerr := s.jobs.Update(ctx, job); uerr != nil {
			s.logger.Error("Failed to mark export job failed", logging.String("job_id", job.JobID.String()), logging.Err(uerr))
		}
		s.dropStaged(ctx, job.JobID)
		return nil, errors.Wrap(err, errors.ErrCodeMessageQueueError, "failed to queue export")
	}

	s.logger.Info("Serial export queued",
		logging.String("job_id", job.JobID.String()),
		logging.Int("rows", job.RowCount))
	return job, nil
}

func (s *exportServiceImpl) GetExportJob(ctx context.Context, id uuid.UUID) (*ExportJobView, error) {
	if s.jobs == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "asynchronous exports are not configured")
	}
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &ExportJobView{ExportJob: job}
	if job.Status == domainSerial.ExportCompleted && job.ObjectKey != "" {
		url, expires, err := s.store.PresignedURL(ctx, job.ObjectKey)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeExportFailed, "failed to sign export link")
		}
		view.URL, view.ExpiresAt = url, &expires
	}
	return view, nil
}

// ProcessExportJob renders a pending job. It is idempotent: a job that is
// locked by another worker or no longer pending is left alone. Render
// failures are recorded on the job and not returned.
func (s *exportServiceImpl) ProcessExportJob(ctx context.Context, id uuid.UUID) error {
	if err := s.asyncReady(); err != nil {
		return err
	}
	log := s.logger.With(logging.String("job_id", id.String()))

	if s.locks != nil {
		lock := s.locks.NewLock("export:" + id.String())
		ok, err := lock.TryLock(ctx)
		if err != nil {
			return err
		}
		if !ok {
			log.Info("Export job is being processed elsewhere")
			return nil
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to release export lock", logging.Err(err))
			}
		}()
	}

	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warn("Export job not found, dropping request")
			return nil
		}
		return err
	}
	if job.Status != domainSerial.ExportPending {
		log.Debug("Export job already finished", logging.String("status", string(job.Status)))
		return nil
	}

	var rows []export.Row
	if err := s.staging.Get(ctx, rowsKey(id), &rows); err != nil {
		if err != redis.ErrCacheMiss {
			return err
		}
		return s.finish(ctx, job, "", errors.New(errors.ErrCodeExportFailed, "staged rows expired"))
	}

	key, err := s.render(ctx, id, job.Format, rows)
	return s.finish(ctx, job, key, err)
}

func (s *exportServiceImpl) finish(ctx context.Context, job *domainSerial.ExportJob, key string, renderErr error) error {
	if renderErr != nil {
		job.Fail(renderErr.Error())
		s.metrics.RecordExport(string(job.Format), prometheus.StatusError)
		s.logger.Error("Serial export failed",
			logging.String("job_id", job.JobID.String()),
			logging.Err(renderErr))
	} else {
		job.Complete(key)
		s.metrics.RecordExport(string(job.Format), prometheus.StatusSuccess)
		s.logger.Info("Serial export completed",
			logging.String("job_id", job.JobID.String()),
			logging.String("object_key", key))
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return err
	}
	s.dropStaged(ctx, job.JobID)
	return nil
}

func (s *exportServiceImpl) dropStaged(ctx context.Context, id uuid.UUID) {
	if err := s.staging.Delete(ctx, rowsKey(id)); err != nil {
		s.logger.Warn("Failed to drop staged export rows", logging.String("job_id", id.String()), logging.Err(err))
	}
}

// HandleExportRequested is the consumer handler for TopicExportRequested.
func (s *exportServiceImpl) HandleExportRequested(ctx context.Context, msg *common.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		return err
	}
	var payload kafka.ExportRequestedPayload
	if err := env.DecodePayload(&payload); err != nil {
		return err
	}
	id, err := uuid.Parse(payload.JobID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeValidation, "invalid export job id")
	}
	return s.ProcessExportJob(ctx, id)
}

//Personal.AI order the ending
