package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gewnthar/grbwatch/config"
	"github.com/gewnthar/grbwatch/database"
	"github.com/gewnthar/grbwatch/models"
	"github.com/gewnthar/grbwatch/notifier"
	"github.com/gewnthar/grbwatch/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardSink struct{ n int }

func (d *discardSink) Post(context.Context, models.NotificationPayload) error {
	d.n++
	return nil
}

func newUpdater(t *testing.T, stored []string, remote []string) *services.Updater {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swift_bat.dat")
	if stored != nil {
		table := &models.AlertTable{}
		for _, id := range stored {
			table.Append(models.Alert{Trig: id})
		}
		require.NoError(t, database.WriteEvents(path, table))
	}
	sink := &discardSink{}
	return &services.Updater{
		EventsFile: path,
		Fetch: func(ctx context.Context) (*models.AlertTable, error) {
			table := &models.AlertTable{}
			for _, id := range remote {
				table.Append(models.Alert{Trig: id})
			}
			return table, nil
		},
		NewNotifier:     func(ctx context.Context) (notifier.Notifier, error) { return sink, nil },
		Enricher:        &services.Enricher{LightCurveURL: "sw0%s000msb.jpeg"},
		DuplicatePolicy: config.DuplicatePolicySkip,
	}
}

func TestUpdateHandler(t *testing.T) {
	u := newUpdater(t, []string{"1"}, []string{"1", "2", "3"})

	rec := httptest.NewRecorder()
	UpdateHandler(u)(rec, httptest.NewRequest(http.MethodPost, "/api/admin/update", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res services.UpdateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Notified)

	rec = httptest.NewRecorder()
	UpdateHandler(u)(rec, httptest.NewRequest(http.MethodGet, "/api/admin/update", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestUpdateHandlerErrors(t *testing.T) {
	missing := newUpdater(t, nil, []string{"1"})
	rec := httptest.NewRecorder()
	UpdateHandler(missing)(rec, httptest.NewRequest(http.MethodPost, "/api/admin/update", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	failing := newUpdater(t, []string{"1"}, nil)
	failing.Fetch = func(ctx context.Context) (*models.AlertTable, error) {
		return nil, errors.New("status code 502")
	}
	rec = httptest.NewRecorder()
	UpdateHandler(failing)(rec, httptest.NewRequest(http.MethodPost, "/api/admin/update", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "502")

	rec = httptest.NewRecorder()
	HealthHandler(failing)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestEventsHandler(t *testing.T) {
	u := newUpdater(t, []string{"30", "10", "20"}, nil)

	rec := httptest.NewRecorder()
	EventsHandler(u.EventsFile)(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int            `json:"count"`
		Alerts []models.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	require.Len(t, body.Alerts, 2)
	assert.Equal(t, "20", body.Alerts[0].Trig)
	assert.Equal(t, "30", body.Alerts[1].Trig)

	rec = httptest.NewRecorder()
	EventsHandler(u.EventsFile)(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	EventsHandler(filepath.Join(t.TempDir(), "none.dat"))(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	u := newUpdater(t, []string{"1"}, []string{"1"})

	rec := httptest.NewRecorder()
	HealthHandler(u)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	_, err := u.UpdateEvents(context.Background())
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	HealthHandler(u)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Contains(t, rec.Body.String(), `"last_update"`)
}

func TestHealthHandlerDoesNotWaitForRunningCycle(t *testing.T) {
	u := newUpdater(t, []string{"1"}, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	u.Fetch = func(ctx context.Context) (*models.AlertTable, error) {
		close(started)
		<-release
		return &models.AlertTable{}, nil
	}

	cycleDone := make(chan error, 1)
	go func() {
		_, err := u.UpdateEvents(context.Background())
		cycleDone <- err
	}()
	<-started

	healthDone := make(chan int, 1)
	go func() {
		rec := httptest.NewRecorder()
		HealthHandler(u)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		healthDone <- rec.Code
	}()

	select {
	case code := <-healthDone:
		assert.Equal(t, http.StatusOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("health request blocked while an update cycle was running")
	}

	close(release)
	require.NoError(t, <-cycleDone)
}
