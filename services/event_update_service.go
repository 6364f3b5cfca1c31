// grbwatch/services/event_update_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gewnthar/grbwatch/config"
	"github.com/gewnthar/grbwatch/database"
	"github.com/gewnthar/grbwatch/metrics"
	"github.com/gewnthar/grbwatch/models"
	"github.com/gewnthar/grbwatch/notifier"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "services")

// FetchFunc returns the current remote alert table.
type FetchFunc func(ctx context.Context) (*models.AlertTable, error)

// NotifierFactory builds the chat sink. It is called at most once per cycle
// and only when the cycle has a new alert.
type NotifierFactory func(ctx context.Context) (notifier.Notifier, error)

// ArchiveFunc stores newly seen alerts in a secondary archive.
type ArchiveFunc func(alerts []models.Alert) error

// UpdateResult summarizes one update cycle.
type UpdateResult struct {
	Fetched      int       `json:"fetched"`
	New          int       `json:"new"`
	Notified     int       `json:"notified"`
	Skipped      int       `json:"skipped"`
	StoreMissing bool      `json:"store_missing"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Updater runs the fetch, diff, notify and persist cycle against one event
// store. Cycles are serialized.
type Updater struct {
	EventsFile      string
	Fetch           FetchFunc
	NewNotifier     NotifierFactory
	Enricher        *Enricher
	DuplicatePolicy string
	Archive         ArchiveFunc // nil disables archiving
	Metrics         *metrics.Recorder

	mu sync.Mutex // held for a whole cycle

	resultMu sync.RWMutex
	last     UpdateResult
	lastErr  error
}

// UpdateEvents runs one cycle. A missing event store is logged and reported
// in the result without fetching. Any fetch, enrichment or chat failure
// aborts the cycle before the store is rewritten.
func (u *Updater) UpdateEvents(ctx context.Context) (UpdateResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	start := time.Now()
	res, stored, err := u.runCycle(ctx)
	res.FinishedAt = time.Now()
	u.resultMu.Lock()
	u.last, u.lastErr = res, err
	u.resultMu.Unlock()

	u.Metrics.ObserveCycle(metrics.Cycle{
		Fetched:  res.Fetched,
		New:      res.New,
		Notified: res.Notified,
		Skipped:  res.Skipped,
		Stored:   stored,
		Err:      err,
	}, time.Since(start))
	return res, err
}

// LastResult returns the outcome of the most recent finished cycle. It does
// not wait for a cycle in progress.
func (u *Updater) LastResult() (UpdateResult, error) {
	u.resultMu.RLock()
	defer u.resultMu.RUnlock()
	return u.last, u.lastErr
}

func (u *Updater) runCycle(ctx context.Context) (UpdateResult, int, error) {
	var res UpdateResult

	log.Infof("Loading events file %s", u.EventsFile)
	stored, err := database.ReadEvents(u.EventsFile)
	if err != nil {
		if errors.Is(err, database.ErrEventsFileNotFound) {
			log.Warnf("Could not find events file: %s", u.EventsFile)
			res.StoreMissing = true
			return res, 0, nil
		}
		return res, 0, err
	}

	fetched, err := u.Fetch(ctx)
	if err != nil {
		return res, len(stored.Alerts), fmt.Errorf("failed to fetch alert listing: %w", err)
	}
	res.Fetched = len(fetched.Alerts)

	fresh := NewAlerts(TriggerIDs(stored), fetched)
	res.New = len(fresh)
	if len(fresh) == 0 {
		log.Infof("No new alerts among %d fetched", res.Fetched)
		return res, len(stored.Alerts), nil
	}

	var sink notifier.Notifier
	handled := make(map[string]bool, len(fresh))
	for _, alert := range fresh {
		if handled[alert.Trig] {
			continue
		}
		handled[alert.Trig] = true

		if sink == nil {
			if sink, err = u.NewNotifier(ctx); err != nil {
				return res, len(stored.Alerts), fmt.Errorf("failed to set up notifier: %w", err)
			}
		}

		payload, err := u.Enricher.BuildPayload(fetched, alert.Trig)
		if err != nil {
			if errors.Is(err, ErrAmbiguousTrigger) && u.DuplicatePolicy != config.DuplicatePolicyFail {
				log.Warnf("Skipping notification: %v", err)
				res.Skipped++
				continue
			}
			return res, len(stored.Alerts), err
		}

		if err := sink.Post(ctx, payload); err != nil {
			u.Metrics.NotificationFailed()
			return res, len(stored.Alerts), err
		}
		res.Notified++
	}

	stored.AddColumns(fetched.ExtraColumns...)
	stored.Append(fresh...)
	if err := database.WriteEvents(u.EventsFile, stored); err != nil {
		return res, len(stored.Alerts) - len(fresh), err
	}
	log.Infof("Wrote %d new alerts to %s (%d total)", len(fresh), u.EventsFile, len(stored.Alerts))

	if u.Archive != nil {
		if err := u.Archive(fresh); err != nil {
			log.Errorf("Alert archive update failed: %v", err)
		}
	}
	return res, len(stored.Alerts), nil
}
