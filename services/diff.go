// grbwatch/services/diff.go
package services

import "github.com/gewnthar/grbwatch/models"

// TriggerIDs returns the identifiers already held in the event store.
func TriggerIDs(stored *models.AlertTable) map[string]struct{} {
	if stored == nil {
		return map[string]struct{}{}
	}
	return stored.TriggerIDs()
}

// NewAlerts returns the fetched rows whose trigger id is not in storedIDs, in
// fetched order. Repeated ids in the fetched table are all returned.
func NewAlerts(storedIDs map[string]struct{}, fetched *models.AlertTable) []models.Alert {
	if fetched == nil {
		return nil
	}
	var out []models.Alert
	for _, a := range fetched.Alerts {
		if _, ok := storedIDs[a.Trig]; !ok {
			out = append(out, a)
		}
	}
	return out
}
