// grbwatch/database/archive_store.go
package database

import (
	"encoding/json"
	"fmt"

	"github.com/gewnthar/grbwatch/models"
)

const createAlertsTable = `
	CREATE TABLE IF NOT EXISTS grb_alerts (
		trig         BIGINT       NOT NULL PRIMARY KEY,
		trigger_date VARCHAR(16)  NOT NULL DEFAULT '',
		trigger_time VARCHAR(16)  NOT NULL DEFAULT '',
		bat_ra       VARCHAR(32)  NOT NULL DEFAULT '',
		bat_dec      VARCHAR(32)  NOT NULL DEFAULT '',
		xrt_ra       VARCHAR(32)  NOT NULL DEFAULT '',
		xrt_dec      VARCHAR(32)  NOT NULL DEFAULT '',
		extra_json   TEXT         NULL,
		first_seen_at TIMESTAMP   NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`

func ensureSchema() error {
	if _, err := DB.Exec(createAlertsTable); err != nil {
		return fmt.Errorf("failed to create grb_alerts table: %w", err)
	}
	return nil
}

// ArchiveAlerts upserts alerts into grb_alerts inside one transaction.
func ArchiveAlerts(alerts []models.Alert) error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	if len(alerts) == 0 {
		return nil
	}

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for alert archive: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO grb_alerts (
			trig, trigger_date, trigger_time, bat_ra, bat_dec, xrt_ra, xrt_dec, extra_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			trigger_date = VALUES(trigger_date),
			trigger_time = VALUES(trigger_time),
			bat_ra = VALUES(bat_ra),
			bat_dec = VALUES(bat_dec),
			xrt_ra = VALUES(xrt_ra),
			xrt_dec = VALUES(xrt_dec),
			extra_json = VALUES(extra_json)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare alert archive statement: %w", err)
	}
	defer stmt.Close()

	for _, alert := range alerts {
		args, err := archiveArgs(alert)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to archive trigger %s: %w", alert.Trig, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert archive transaction: %w", err)
	}
	log.Infof("Archived %d alerts to grb_alerts", len(alerts))
	return nil
}

// archiveArgs maps an alert to the INSERT placeholders of ArchiveAlerts.
func archiveArgs(alert models.Alert) ([]interface{}, error) {
	trig, err := alert.TriggerNumber()
	if err != nil {
		return nil, err
	}
	var extra interface{}
	if len(alert.Extra) > 0 {
		b, err := json.Marshal(alert.Extra)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extra columns for trigger %s: %w", alert.Trig, err)
		}
		extra = string(b)
	}
	return []interface{}{
		trig, alert.Date, alert.Time, alert.BATRA, alert.BATDec, alert.XRTRA, alert.XRTDec, extra,
	}, nil
}
