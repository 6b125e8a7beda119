package poller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"api-poller/core/apperr"
	"api-poller/core/config"
	"api-poller/core/fetch"
	"api-poller/core/logger"
	"api-poller/core/metrics"
	"api-poller/core/paging"
	"api-poller/core/utils"
	"api-poller/feature/constituents"
	"api-poller/feature/poller/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LineItemSink receives the records of fetched pages.
type LineItemSink interface {
	ProcessLineItem(ctx context.Context, item constituents.LineItem) (*constituents.LineItemResult, error)
}

// Service drives poller runs: planning, progress reporting, page fetches and
// the continuation decision.
type Service struct {
	db       *gorm.DB
	client   *fetch.Client
	archive  *Archive
	sink     LineItemSink
	logger   *zap.Logger
	cfg      config.Poller
	validate *validator.Validate

	now   func() time.Time
	newID func() string
}

// NewService creates a new poller service.
func NewService(db *gorm.DB, client *fetch.Client, archive *Archive, sink LineItemSink, logger *zap.Logger, cfg config.Poller) *Service {
	return &Service{
		db:       db,
		client:   client,
		archive:  archive,
		sink:     sink,
		logger:   logger,
		cfg:      cfg,
		validate: utils.NewValidator(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Prepare checks the data source, reads its record count and plans a batch.
func (s *Service) Prepare(ctx context.Context, req PrepareRequest) (*PrepareResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, requestError(err)
	}
	src := req.Source
	maxPageSize := req.MaxPageSize
	if maxPageSize == 0 {
		maxPageSize = s.cfg.MaxPageSize
	}

	l := logger.WithJob(s.logger, src.ClientID, "", "")
	l.Info("Starting poller run")

	adapter, err := fetch.ForSource(src, s.client)
	if err != nil {
		return nil, err
	}
	if _, err := adapter.HealthCheck(ctx, src); err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	total := paging.UnknownCount
	meta, err := adapter.MetaData(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("metadata call failed: %w", err)
	}
	if meta != nil && meta.Status == http.StatusOK {
		if total, err = fetch.RecordCount(meta.Body, src.Meta.RecordSizeJSONPath); err != nil {
			return nil, err
		}
	}

	now := s.now()
	batch, err := paging.Plan(paging.PlanRequest{
		ClientID:      src.ClientID,
		Total:         total,
		MaxPageSize:   maxPageSize,
		RetentionDays: s.cfg.RetentionDays,
		MetaAvailable: src.Meta.Available,
		Now:           now,
		NewID:         s.newID,
	})
	if err != nil {
		return nil, err
	}

	runs := &ExecutionInfo{
		ClientID:      src.ClientID,
		Workflow:      models.Workflow,
		ExecutionName: "1",
		ExecutionID:   s.newID(),
		Status:        paging.ExecutionStarted,
		LastUpdateTS:  now,
	}

	ref := BatchRef{
		ID:            batch.ID,
		NumberOfJobs:  batch.NumberOfJobs,
		PurgeAt:       batch.PurgeAt,
		MetaAvailable: batch.MetaAvailable,
		TotalRecords:  batch.TotalRecords,
		MaxPageSize:   maxPageSize,
	}
	tasks := make([]Task, 0, len(batch.Jobs))
	for _, job := range batch.Jobs {
		tasks = append(tasks, Task{
			Source: src,
			Batch:  ref,
			Job:    JobRef{ID: job.ID, StartIndex: job.StartIndex},
			State:  job.State,
			Runs:   runs,
		})
	}

	metrics.BatchesPlanned.WithLabelValues(strconv.FormatBool(total.Known)).Inc()
	l.Info("Batch planned",
		zap.String("batch_id", batch.ID),
		zap.Int("jobs", batch.NumberOfJobs),
		zap.Int64("total_records", batch.TotalRecords),
		zap.Bool("meta_available", batch.MetaAvailable),
	)
	return &PrepareResult{Batch: batch, Tasks: tasks}, nil
}

// ReportBatch records the state of the last task as batch progress and
// execution status. On batch creation it also decides the incremental sync
// window of every task.
func (s *Service) ReportBatch(ctx context.Context, tasks []Task) ([]Task, error) {
	if len(tasks) == 0 {
		return nil, apperr.Invalid("tasks", "at least one task is required")
	}
	last := tasks[len(tasks)-1]
	l := logger.WithJob(s.logger, last.ClientID, last.Batch.ID, "")
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Batch{
			ID:        s.newID(),
			ClientID:  last.ClientID,
			BatchID:   last.Batch.ID,
			TotalJobs: last.Batch.NumberOfJobs,
			Status:    string(last.State),
			BatchType: last.Batch.MetaAvailable,
			CreatedAt: now,
			PurgeAt:   s.purgeAt(now),
		}
		if err := tx.Create(&row).Error; err != nil {
			return apperr.Collaborator("insert batch progress", err)
		}

		if last.Runs != nil {
			exec := models.WorkflowExecution{
				ID:            s.newID(),
				ClientID:      last.Runs.ClientID,
				Workflow:      last.Runs.Workflow,
				ExecutionName: last.Runs.ExecutionName,
				ExecutionID:   last.Runs.ExecutionID,
				Status:        paging.ExecutionStatus(last.State),
				LastUpdateTS:  last.Runs.LastUpdateTS,
			}
			if err := tx.Create(&exec).Error; err != nil {
				return apperr.Collaborator("insert workflow execution", err)
			}
		}

		if !s.cfg.AllowLastEdit {
			for i := range tasks {
				tasks[i].LastEdit = nil
			}
			return nil
		}
		if last.State != paging.StateBatchCreated || last.LastEdit != nil {
			return nil
		}

		lastRun, err := lastCompletedRun(ctx, tx, last.ClientID)
		if err != nil {
			return apperr.Collaborator("find last completed run", err)
		}
		if lastRun == nil {
			return nil
		}
		l.Debug("Restricting fetch to records edited since last run", zap.Time("last_edit", *lastRun))
		for i := range tasks {
			tasks[i].LastEdit = lastRun
		}
		return nil
	})
	if err != nil {
		l.Error("Batch report failed", zap.Error(err))
		return nil, err
	}
	return tasks, nil
}

// ReportJob records the current state of one job.
func (s *Service) ReportJob(ctx context.Context, t Task) (Task, error) {
	now := s.now()
	row := models.Job{
		ID:        s.newID(),
		ClientID:  t.ClientID,
		BatchID:   t.Batch.ID,
		JobID:     t.Job.ID,
		JobIndex:  t.Job.StartIndex,
		TotalJobs: t.Batch.NumberOfJobs,
		Status:    string(t.State),
		CreatedAt: now,
		PurgeAt:   s.purgeAt(now),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		logger.WithJob(s.logger, t.ClientID, t.Batch.ID, t.Job.ID).Error("Job report failed", zap.Error(err))
		return t, apperr.Collaborator("insert job progress", err)
	}
	return t, nil
}

// NextJob decides the state of a job after its page came back.
func (s *Service) NextJob(t Task) (Task, error) {
	l := logger.WithJob(s.logger, t.ClientID, t.Batch.ID, t.Job.ID)

	tr, err := paging.Next(paging.PageOutcome{
		MetaAvailable:     t.Batch.MetaAvailable,
		Returned:          t.Job.RecordsSize,
		PreferredPageSize: t.PageSize(),
		StartIndex:        t.Job.StartIndex,
		NumberOfJobs:      t.Batch.NumberOfJobs,
	})
	if apperr.IsValidation(err) {
		l.Warn("Invalid task", zap.Error(err))
		return t, err
	}
	t.State = tr.State
	t.Job.StartIndex = tr.NextStartIndex
	metrics.Pages.WithLabelValues(string(tr.State)).Inc()

	if err != nil {
		l.Error("Invalid records size", zap.Error(err))
		return t, err
	}
	l.Debug("Job state decided", zap.String("state", string(tr.State)), zap.Int("start_index", tr.NextStartIndex))
	return t, nil
}

// FetchJob fetches the page of t, archives it and hands every record to the
// line item sink. The returned task carries the page size for NextJob.
// Rejected line items are counted; a line item that could not be stored
// fails the page with its CollaboratorError.
func (s *Service) FetchJob(ctx context.Context, t Task) (*FetchResult, error) {
	l := logger.WithJob(s.logger, t.ClientID, t.Batch.ID, t.Job.ID).With(zap.Int("start_index", t.Job.StartIndex))

	adapter, err := fetch.ForSource(t.Source, s.client)
	if err != nil {
		return nil, err
	}
	page, err := adapter.FetchPage(ctx, t.Source, fetch.PageRequest{
		StartIndex: t.Job.StartIndex,
		PageSize:   t.PageSize(),
		LastEdit:   t.LastEdit,
	})
	if err != nil {
		l.Error("Page fetch failed", zap.Error(err))
		return nil, err
	}

	metrics.RecordsFetched.Add(float64(len(page.Records)))
	t.Job.RecordsSize = len(page.Records)
	result := &FetchResult{Task: t}

	if result.ArchiveKey, err = s.archive.Put(ctx, t, page.Raw); err != nil {
		l.Warn("Page not archived", zap.Error(err))
	}

	for _, rec := range page.Records {
		item, err := toLineItem(rec, t)
		if err == nil {
			_, err = s.sink.ProcessLineItem(ctx, item)
		}
		if apperr.IsCollaborator(err) {
			l.Error("Line item not stored", zap.String("external_id", item.ExternalID), zap.Error(err))
			return nil, fmt.Errorf("page %d: %w", t.Job.StartIndex, err)
		}
		if err != nil {
			result.Failed++
			l.Warn("Line item rejected", zap.Error(err))
			continue
		}
		result.Processed++
	}

	l.Info("Page processed",
		zap.Int("records", len(page.Records)),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// ArchivedPage returns the raw body of an archived page.
func (s *Service) ArchivedPage(ctx context.Context, clientID, batchID string, startIndex int) ([]byte, error) {
	if startIndex < 1 {
		return nil, apperr.Invalid("page", fmt.Sprintf("must be at least 1, got %d", startIndex))
	}
	return s.archive.Get(ctx, clientID, batchID, startIndex)
}

// Purge removes expired batch and job progress together with the archived
// pages of expired batches. Workflow executions are kept.
func (s *Service) Purge(ctx context.Context) (*PurgeResult, error) {
	now := s.now()
	result := &PurgeResult{}

	var expired []models.Batch
	err := s.db.WithContext(ctx).
		Select("client_id", "batch_id").
		Where("purge_at < ?", now).
		Group("client_id, batch_id").
		Find(&expired).Error
	if err != nil {
		return nil, apperr.Collaborator("list expired batches", err)
	}

	for _, b := range expired {
		n, err := s.archive.RemoveBatch(ctx, b.ClientID, b.BatchID)
		result.ArchivedPages += n
		if err != nil {
			return result, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("purge_at < ?", now).Delete(&models.Job{})
		if res.Error != nil {
			return res.Error
		}
		result.Jobs = res.RowsAffected

		res = tx.Where("purge_at < ?", now).Delete(&models.Batch{})
		if res.Error != nil {
			return res.Error
		}
		result.Batches = res.RowsAffected
		return nil
	})
	if err != nil {
		return result, apperr.Collaborator("purge progress", err)
	}

	s.logger.Info("Purged expired poller progress",
		zap.Int64("batches", result.Batches),
		zap.Int64("jobs", result.Jobs),
		zap.Int("archived_pages", result.ArchivedPages),
	)
	return result, nil
}

func (s *Service) purgeAt(now time.Time) time.Time {
	days := s.cfg.RetentionDays
	if days <= 0 {
		days = paging.DefaultRetentionDays
	}
	return now.AddDate(0, 0, days)
}

// lastCompletedRun returns when the last completed poller run of a client
// started, or nil.
func lastCompletedRun(ctx context.Context, db *gorm.DB, clientID string) (*time.Time, error) {
	var exec models.WorkflowExecution
	err := db.WithContext(ctx).
		Where("status = ? AND workflow = ? AND client_id = ?", paging.ExecutionCompleted, models.Workflow, clientID).
		Order("last_update_ts DESC").
		First(&exec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts := exec.LastUpdateTS.UTC()
	return &ts, nil
}

// requestError turns validator errors into a ValidationError naming the
// first failing field.
func requestError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperr.Invalid(fe.Namespace(), fmt.Sprintf("failed %q rule", fe.Tag()))
	}
	return apperr.Invalid("request", err.Error())
}
