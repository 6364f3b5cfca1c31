// grbwatch/services/enrich.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gewnthar/grbwatch/astro"
	"github.com/gewnthar/grbwatch/models"
)

var (
	ErrAlertNotFound    = errors.New("trigger not found in fetched table")
	ErrAmbiguousTrigger = errors.New("trigger matches more than one fetched row")
)

const sexagesimalPrecision = 2

// Enricher derives the display fields posted for one alert.
type Enricher struct {
	SourceURL     string
	LightCurveURL string // %s is replaced by the trigger id
	Dust          astro.ReddeningMap
}

// BuildPayload finds the single row of table with the given trigger id and
// renders its notification fields. Coordinates are converted only when both
// components of a frame are present; malformed values are returned as errors.
func (e *Enricher) BuildPayload(table *models.AlertTable, trig string) (models.NotificationPayload, error) {
	matches := table.Find(trig)
	switch len(matches) {
	case 0:
		return models.NotificationPayload{}, fmt.Errorf("trigger %s: %w", trig, ErrAlertNotFound)
	case 1:
	default:
		return models.NotificationPayload{}, fmt.Errorf("trigger %s (%d rows): %w", trig, len(matches), ErrAmbiguousTrigger)
	}
	alert := matches[0]

	p := models.NotificationPayload{
		Trig:          trig,
		SourceURL:     e.SourceURL,
		Date:          alert.Date,
		Time:          alert.Time,
		BATRA:         alert.BATRA,
		BATDec:        alert.BATDec,
		XRTRA:         alert.XRTRA,
		XRTDec:        alert.XRTDec,
		LightCurveURL: strings.ReplaceAll(e.LightCurveURL, "%s", trig),
	}

	if alert.HasBATPosition() {
		ra, dec, err := parsePosition(alert.BATRA, alert.BATDec)
		if err != nil {
			return models.NotificationPayload{}, fmt.Errorf("failed to parse BAT position of trigger %s: %w", trig, err)
		}
		p.BATRA = astro.FormatHMS(ra, sexagesimalPrecision)
		p.BATDec = astro.FormatDMS(dec, sexagesimalPrecision)

		l, b := astro.EquatorialToGalactic(ra, dec)
		p.GalacticL = fmt.Sprintf("%7.4f", l)
		p.GalacticB = fmt.Sprintf("%7.4f", b)

		if e.Dust != nil {
			av, err := astro.Extinction(e.Dust, ra, dec)
			if err != nil {
				return models.NotificationPayload{}, fmt.Errorf("failed to look up extinction for trigger %s: %w", trig, err)
			}
			p.Extinction = fmt.Sprintf("%7.3f", av)
		}
	}

	if alert.HasXRTPosition() {
		ra, dec, err := parsePosition(alert.XRTRA, alert.XRTDec)
		if err != nil {
			return models.NotificationPayload{}, fmt.Errorf("failed to parse XRT position of trigger %s: %w", trig, err)
		}
		p.XRTRA = astro.FormatHMS(ra, sexagesimalPrecision)
		p.XRTDec = astro.FormatDMS(dec, sexagesimalPrecision)
	}

	return p, nil
}

func parsePosition(raText, decText string) (ra, dec float64, err error) {
	if ra, err = astro.ParseRA(raText); err != nil {
		return 0, 0, err
	}
	if dec, err = astro.ParseDec(decText); err != nil {
		return 0, 0, err
	}
	return ra, dec, nil
}
