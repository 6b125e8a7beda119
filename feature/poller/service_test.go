package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"api-poller/core/apperr"
	"api-poller/core/config"
	"api-poller/core/database"
	"api-poller/core/fetch"
	"api-poller/core/paging"
	"api-poller/core/secrets"
	"api-poller/core/storage/mocks"
	"api-poller/feature/constituents"
	"api-poller/feature/poller/models"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type stubCreds struct{}

func (stubCreds) Credentials(context.Context, string, string, bool) (secrets.Credentials, error) {
	return secrets.Credentials{Key: "key", Secret: "secret"}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	items []constituents.LineItem
	fail  map[string]bool
	// down makes every line item fail as if the store were unreachable.
	down bool
}

func (s *recordingSink) ProcessLineItem(_ context.Context, item constituents.LineItem) (*constituents.LineItemResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, apperr.Collaborator("save constituent", errors.New("database is down"))
	}
	if s.fail[item.ExternalID] {
		return nil, errors.New("rejected")
	}
	s.items = append(s.items, item)
	return &constituents.LineItemResult{}, nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// sourceServer serves total employees in pages. A negative total breaks
// the health check.
func sourceServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if total < 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	})
	mux.HandleFunc("/meta", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"total": total})
	})
	mux.HandleFunc("/busy", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"message": "upstream busy"})
	})
	mux.HandleFunc("/employees", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
		items := []map[string]any{}
		for i := (page - 1) * size; i < page*size && i < total; i++ {
			items = append(items, map[string]any{
				"external_id": fmt.Sprintf("x%d", i),
				"full_name":   fmt.Sprintf("Person %d", i),
				"employee_no": i,
			})
		}
		writeJSON(w, map[string]any{"items": items})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testSource(url string, metaAvailable bool) fetch.Source {
	return fetch.Source{
		ClientID: "c1",
		Healthcheck: fetch.Endpoint{
			Available: true, FetchType: fetch.TypeREST, AuthType: fetch.AuthBearer,
			BaseURL: url, Path: "/health", HealthyJSONPath: "ok",
		},
		Meta: fetch.Endpoint{
			Available: metaAvailable, AuthType: fetch.AuthBearer,
			BaseURL: url, Path: "/meta", RecordSizeJSONPath: "total", PreferPageSize: 2,
		},
		Data: fetch.Endpoint{
			Available: true, AuthType: fetch.AuthBearer,
			BaseURL: url, Path: "/employees", RecordsJSONPath: "items",
		},
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestService(t *testing.T, cfg config.Poller, archive *Archive) (*Service, *gorm.DB, *recordingSink) {
	t.Helper()
	db := setupTestDB(t)
	sink := &recordingSink{}
	client := fetch.NewClient(stubCreds{}, "test", 5*time.Second)

	svc := NewService(db, client, archive, sink, zap.NewNop(), cfg)
	svc.now = func() time.Time { return testNow }
	var seq atomic.Int64
	svc.newID = func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }
	return svc, db, sink
}

func defaultConfig() config.Poller {
	return config.Poller{MaxPageSize: 2, RetentionDays: 14, Concurrency: 2}
}

func TestPrepare_KnownTotal(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, _, _ := newTestService(t, defaultConfig(), nil)

	res, err := svc.Prepare(context.Background(), PrepareRequest{Source: testSource(srv.URL, true)})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Batch.NumberOfJobs)
	assert.EqualValues(t, 5, res.Batch.TotalRecords)
	assert.Equal(t, testNow.AddDate(0, 0, 14), res.Batch.PurgeAt)
	require.Len(t, res.Tasks, 3)
	for i, task := range res.Tasks {
		assert.Equal(t, i+1, task.Job.StartIndex)
		assert.Equal(t, paging.StateBatchCreated, task.State)
		assert.Equal(t, res.Batch.ID, task.Batch.ID)
		assert.True(t, task.Batch.MetaAvailable)
		require.NotNil(t, task.Runs)
		assert.Equal(t, "poller", task.Runs.Workflow)
		assert.Equal(t, paging.ExecutionStarted, task.Runs.Status)
	}
	assert.Same(t, res.Tasks[0].Runs, res.Tasks[2].Runs)
}

func TestPrepare_MaxPageSizeOverride(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, _, _ := newTestService(t, defaultConfig(), nil)

	res, err := svc.Prepare(context.Background(), PrepareRequest{Source: testSource(srv.URL, true), MaxPageSize: 10})
	require.NoError(t, err)
	assert.Len(t, res.Tasks, 1)
	assert.Equal(t, 10, res.Tasks[0].PageSize())
}

func TestPrepare_UnknownTotal(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, _, _ := newTestService(t, defaultConfig(), nil)

	res, err := svc.Prepare(context.Background(), PrepareRequest{Source: testSource(srv.URL, false)})
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	assert.EqualValues(t, -1, res.Batch.TotalRecords)
	assert.False(t, res.Tasks[0].Batch.MetaAvailable)
	assert.Equal(t, 2, res.Tasks[0].PageSize())
}

func TestPrepare_Failures(t *testing.T) {
	t.Run("unhealthy source", func(t *testing.T) {
		srv := sourceServer(t, -1)
		svc, _, _ := newTestService(t, defaultConfig(), nil)

		_, err := svc.Prepare(context.Background(), PrepareRequest{Source: testSource(srv.URL, true)})
		require.Error(t, err)
		var collab *apperr.CollaboratorError
		assert.ErrorAs(t, err, &collab)
	})

	t.Run("missing client id", func(t *testing.T) {
		svc, _, _ := newTestService(t, defaultConfig(), nil)

		src := testSource("http://unused", true)
		src.ClientID = ""
		_, err := svc.Prepare(context.Background(), PrepareRequest{Source: src})
		require.Error(t, err)
		assert.True(t, apperr.IsValidation(err))
		assert.Contains(t, err.Error(), "client_id")
	})

	t.Run("unknown fetch type", func(t *testing.T) {
		svc, _, _ := newTestService(t, defaultConfig(), nil)

		src := testSource("http://unused", true)
		src.Healthcheck.FetchType = "soap"
		_, err := svc.Prepare(context.Background(), PrepareRequest{Source: src})
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestReportBatch(t *testing.T) {
	lastRun := testNow.Add(-24 * time.Hour)

	seed := func(t *testing.T, db *gorm.DB) {
		require.NoError(t, db.Create(&models.WorkflowExecution{
			ID: "w-old", ClientID: "c1", Workflow: "poller", ExecutionID: "e0",
			Status: paging.ExecutionCompleted, LastUpdateTS: lastRun.Add(-time.Hour),
		}).Error)
		require.NoError(t, db.Create(&models.WorkflowExecution{
			ID: "w-last", ClientID: "c1", Workflow: "poller", ExecutionID: "e1",
			Status: paging.ExecutionCompleted, LastUpdateTS: lastRun,
		}).Error)
		require.NoError(t, db.Create(&models.WorkflowExecution{
			ID: "w-other", ClientID: "c2", Workflow: "poller", ExecutionID: "e2",
			Status: paging.ExecutionCompleted, LastUpdateTS: testNow,
		}).Error)
	}

	tasks := func() []Task {
		runs := &ExecutionInfo{ClientID: "c1", Workflow: "poller", ExecutionName: "1", ExecutionID: "e3", LastUpdateTS: testNow}
		return []Task{
			{Source: fetch.Source{ClientID: "c1"}, Batch: BatchRef{ID: "b1", NumberOfJobs: 2}, Job: JobRef{StartIndex: 1}, State: paging.StateBatchCreated, Runs: runs},
			{Source: fetch.Source{ClientID: "c1"}, Batch: BatchRef{ID: "b1", NumberOfJobs: 2}, Job: JobRef{StartIndex: 2}, State: paging.StateBatchCreated, Runs: runs},
		}
	}

	t.Run("incremental sync from last completed run", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.AllowLastEdit = true
		svc, db, _ := newTestService(t, cfg, nil)
		seed(t, db)

		out, err := svc.ReportBatch(context.Background(), tasks())
		require.NoError(t, err)
		for _, task := range out {
			require.NotNil(t, task.LastEdit)
			assert.True(t, lastRun.Equal(*task.LastEdit))
		}

		var batch models.Batch
		require.NoError(t, db.Where("batch_id = ?", "b1").First(&batch).Error)
		assert.Equal(t, "onBatchCreated", batch.Status)
		assert.Equal(t, 2, batch.TotalJobs)

		var exec models.WorkflowExecution
		require.NoError(t, db.Where("execution_id = ?", "e3").First(&exec).Error)
		assert.Equal(t, paging.ExecutionStarted, exec.Status)
	})

	t.Run("full sync when not allowed", func(t *testing.T) {
		svc, db, _ := newTestService(t, defaultConfig(), nil)
		seed(t, db)

		in := tasks()
		in[1].LastEdit = &lastRun
		out, err := svc.ReportBatch(context.Background(), in)
		require.NoError(t, err)
		for _, task := range out {
			assert.Nil(t, task.LastEdit)
		}
	})

	t.Run("completed run", func(t *testing.T) {
		svc, db, _ := newTestService(t, defaultConfig(), nil)

		in := tasks()[:1]
		in[0].State = paging.StateEmptyLastRequest
		_, err := svc.ReportBatch(context.Background(), in)
		require.NoError(t, err)

		var exec models.WorkflowExecution
		require.NoError(t, db.Where("execution_id = ?", "e3").First(&exec).Error)
		assert.Equal(t, paging.ExecutionCompleted, exec.Status)
	})

	t.Run("no tasks", func(t *testing.T) {
		svc, _, _ := newTestService(t, defaultConfig(), nil)
		_, err := svc.ReportBatch(context.Background(), nil)
		assert.True(t, apperr.IsValidation(err))
	})
}

func TestNextJob(t *testing.T) {
	svc, _, _ := newTestService(t, defaultConfig(), nil)
	lazy := Task{
		Source: fetch.Source{Meta: fetch.Endpoint{PreferPageSize: 2}},
		Batch:  BatchRef{NumberOfJobs: 1, MaxPageSize: 100},
		Job:    JobRef{StartIndex: 1},
	}

	full := lazy
	full.Job.RecordsSize = 2
	next, err := svc.NextJob(full)
	require.NoError(t, err)
	assert.Equal(t, paging.StateFilledLastRequest, next.State)
	assert.Equal(t, 2, next.Job.StartIndex)

	short := lazy
	short.Job.RecordsSize = 1
	next, err = svc.NextJob(short)
	require.NoError(t, err)
	assert.Equal(t, paging.StateEmptyLastRequest, next.State)

	over := lazy
	over.Job.RecordsSize = 3
	next, err = svc.NextJob(over)
	require.ErrorIs(t, err, apperr.ErrProtocolViolation)
	assert.Equal(t, paging.StateFailed, next.State)
}

func TestRun_LazySource(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, db, sink := newTestService(t, defaultConfig(), nil)

	res, err := svc.Run(context.Background(), PrepareRequest{Source: testSource(srv.URL, false)})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Jobs)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 5, res.Processed)
	assert.Equal(t, 5, sink.count())
	for _, state := range res.States {
		assert.Equal(t, paging.StateEmptyLastRequest, state)
	}

	var statuses []string
	require.NoError(t, db.Model(&models.Job{}).Order("job_index, created_at").Pluck("status", &statuses).Error)
	assert.Contains(t, statuses, "onFilledLastRequest")
	assert.Contains(t, statuses, "onEmptyLastRequest")

	var execs []models.WorkflowExecution
	require.NoError(t, db.Find(&execs).Error)
	require.Len(t, execs, 2)
	got := []string{execs[0].Status, execs[1].Status}
	assert.ElementsMatch(t, []string{paging.ExecutionStarted, paging.ExecutionCompleted}, got)
}

func TestRun_PlannedSource(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, db, sink := newTestService(t, defaultConfig(), nil)
	sink.fail = map[string]bool{"x3": true}

	res, err := svc.Run(context.Background(), PrepareRequest{Source: testSource(srv.URL, true)})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Jobs)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 1, res.Failed)
	for _, state := range res.States {
		assert.Equal(t, paging.StateFetchedAllPayloads, state)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, item := range sink.items {
		assert.Equal(t, "c1", item.ClientID)
		assert.Equal(t, res.BatchID, item.BatchID)
		assert.NotEmpty(t, item.JobID)
	}

	var batches int64
	require.NoError(t, db.Model(&models.Batch{}).Where("batch_id = ?", res.BatchID).Count(&batches).Error)
	assert.EqualValues(t, 2, batches)
}

func TestRun_FetchFailure(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, db, _ := newTestService(t, defaultConfig(), nil)

	src := testSource(srv.URL, false)
	src.Data.Path = "/missing"
	_, err := svc.Run(context.Background(), PrepareRequest{Source: src})
	require.Error(t, err)

	var failed int64
	require.NoError(t, db.Model(&models.Job{}).Where("status = ?", "Failed").Count(&failed).Error)
	assert.EqualValues(t, 1, failed)

	var unknown int64
	require.NoError(t, db.Model(&models.WorkflowExecution{}).Where("status = ?", paging.ExecutionUnknown).Count(&unknown).Error)
	assert.EqualValues(t, 1, unknown)
}

func TestRun_StoreFailure(t *testing.T) {
	srv := sourceServer(t, 5)
	cfg := defaultConfig()
	cfg.AllowLastEdit = true
	svc, db, sink := newTestService(t, cfg, nil)
	sink.down = true

	res, err := svc.Run(context.Background(), PrepareRequest{Source: testSource(srv.URL, false)})
	require.Error(t, err)
	assert.True(t, apperr.IsCollaborator(err))
	assert.Contains(t, err.Error(), "database is down")
	assert.Zero(t, res.Processed)

	var completed int64
	require.NoError(t, db.Model(&models.WorkflowExecution{}).Where("status = ?", paging.ExecutionCompleted).Count(&completed).Error)
	assert.Zero(t, completed)

	lastRun, err := lastCompletedRun(context.Background(), db, "c1")
	require.NoError(t, err)
	assert.Nil(t, lastRun)

	var failed int64
	require.NoError(t, db.Model(&models.Job{}).Where("status = ?", "Failed").Count(&failed).Error)
	assert.EqualValues(t, 1, failed)
}

func TestFetchJob_StoreFailure(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, _, sink := newTestService(t, defaultConfig(), nil)
	sink.down = true

	task := Task{
		Source: testSource(srv.URL, true),
		Batch:  BatchRef{ID: "b1", NumberOfJobs: 3, MetaAvailable: true, MaxPageSize: 2},
		Job:    JobRef{ID: "j1", StartIndex: 1},
		State:  paging.StateBatchCreated,
	}

	res, err := svc.FetchJob(context.Background(), task)
	require.Error(t, err)
	assert.Nil(t, res)
	var collab *apperr.CollaboratorError
	require.ErrorAs(t, err, &collab)
	assert.Equal(t, "save constituent", collab.Op)
}

func TestRun_MissingRecordsPath(t *testing.T) {
	srv := sourceServer(t, 5)
	svc, db, sink := newTestService(t, defaultConfig(), nil)

	src := testSource(srv.URL, false)
	src.Data.Path = "/busy"
	res, err := svc.Run(context.Background(), PrepareRequest{Source: src})
	require.Error(t, err)
	assert.True(t, apperr.IsCollaborator(err))
	assert.Zero(t, sink.count())
	for _, state := range res.States {
		assert.Equal(t, paging.StateFailed, state)
	}

	var completed int64
	require.NoError(t, db.Model(&models.WorkflowExecution{}).Where("status = ?", paging.ExecutionCompleted).Count(&completed).Error)
	assert.Zero(t, completed)
}

func TestNextJob_InvalidTask(t *testing.T) {
	svc, _, _ := newTestService(t, defaultConfig(), nil)
	task := Task{
		Batch: BatchRef{ID: "b1", NumberOfJobs: 1},
		Job:   JobRef{ID: "j1", StartIndex: 1},
		State: paging.StateBatchCreated,
	}

	next, err := svc.NextJob(task)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, task, next)
}

func TestFetchJob_Archives(t *testing.T) {
	srv := sourceServer(t, 5)

	mockClient := new(mocks.Client)
	mockClient.On("PutObject", mock.Anything, "pages", "pages/c1/b1/000002.json", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	svc, _, sink := newTestService(t, defaultConfig(), NewArchive(mockClient, "pages"))
	task := Task{
		Source: testSource(srv.URL, true),
		Batch:  BatchRef{ID: "b1", NumberOfJobs: 3, MetaAvailable: true, MaxPageSize: 2},
		Job:    JobRef{ID: "j2", StartIndex: 2},
		State:  paging.StateBatchCreated,
	}

	res, err := svc.FetchJob(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "pages/c1/b1/000002.json", res.ArchiveKey)
	assert.Equal(t, 2, res.Task.Job.RecordsSize)
	assert.Equal(t, 2, sink.count())
	mockClient.AssertExpectations(t)
}

func TestPurge(t *testing.T) {
	mockClient := new(mocks.Client)
	objects := make(chan minio.ObjectInfo, 2)
	objects <- minio.ObjectInfo{Key: "pages/c1/b-old/000001.json"}
	objects <- minio.ObjectInfo{Key: "pages/c1/b-old/000002.json"}
	close(objects)
	mockClient.On("ListObjects", mock.Anything, "pages", mock.MatchedBy(func(o minio.ListObjectsOptions) bool {
		return o.Prefix == "pages/c1/b-old/"
	})).Return((<-chan minio.ObjectInfo)(objects)).Once()

	removeErrs := make(chan minio.RemoveObjectError)
	close(removeErrs)
	mockClient.On("RemoveObjects", mock.Anything, "pages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			for range args.Get(2).(<-chan minio.ObjectInfo) {
			}
		}).
		Return((<-chan minio.RemoveObjectError)(removeErrs))

	svc, db, _ := newTestService(t, defaultConfig(), NewArchive(mockClient, "pages"))

	expired := testNow.Add(-time.Hour)
	fresh := testNow.Add(time.Hour)
	require.NoError(t, db.Create(&[]models.Batch{
		{ID: "1", ClientID: "c1", BatchID: "b-old", PurgeAt: expired},
		{ID: "2", ClientID: "c1", BatchID: "b-old", PurgeAt: expired},
		{ID: "3", ClientID: "c1", BatchID: "b-new", PurgeAt: fresh},
	}).Error)
	require.NoError(t, db.Create(&[]models.Job{
		{ID: "1", ClientID: "c1", BatchID: "b-old", PurgeAt: expired},
		{ID: "2", ClientID: "c1", BatchID: "b-new", PurgeAt: fresh},
	}).Error)

	res, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Batches)
	assert.EqualValues(t, 1, res.Jobs)
	assert.Equal(t, 2, res.ArchivedPages)

	var left int64
	require.NoError(t, db.Model(&models.Batch{}).Count(&left).Error)
	assert.EqualValues(t, 1, left)
	mockClient.AssertExpectations(t)
}

func TestToLineItem(t *testing.T) {
	task := Task{Source: fetch.Source{ClientID: "c1"}, Batch: BatchRef{ID: "b1"}, Job: JobRef{ID: "j1"}}

	item, err := toLineItem(map[string]any{
		"external_id":      json.Number("42"),
		"external_emp_id":  "E42",
		"active":           "false",
		"is_accreditation": true,
		"mapped_type":      "fa",
	}, task)
	require.NoError(t, err)
	assert.Equal(t, "42", item.ExternalID)
	assert.Equal(t, "c1", item.ClientID)
	assert.Equal(t, "b1", item.BatchID)
	assert.Equal(t, "j1", item.JobID)
	require.NotNil(t, item.Active)
	assert.False(t, *item.Active)
	assert.True(t, bool(item.IsAccreditation))
	assert.Equal(t, "fa", *item.MappedType)

	_, err = toLineItem(map[string]any{"external_id": map[string]any{"nested": true}}, task)
	assert.True(t, apperr.IsValidation(err))
}
