package services

import (
	"sitestatus/internal/models"
	"time"
)

// ForecastTimeKey identifies a forecast report; reports sharing it are
// duplicates.
const ForecastTimeKey = "utc_long_form"

var forecastLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseForecastTime reads a report time. Values without a zone are UTC.
func ParseForecastTime(s string) (time.Time, bool) {
	for _, layout := range forecastLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MergeForecast concatenates existing and incoming reports, drops reports
// without a parseable time or older than now-retention, and keeps the first
// report seen for each time identifier.
func MergeForecast(existing, incoming []models.Value, now time.Time, retention time.Duration) []models.Value {
	cutoff := now.Add(-retention)
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.Value, 0, len(existing)+len(incoming))

	keep := func(report models.Value) {
		id, ok := forecastID(report)
		if !ok {
			return
		}
		at, ok := ParseForecastTime(id)
		if !ok || at.Before(cutoff) {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, report.Clone())
	}

	for _, report := range existing {
		keep(report)
	}
	for _, report := range incoming {
		keep(report)
	}
	return out
}

func forecastID(report models.Value) (string, bool) {
	m, ok := report.AsMap()
	if !ok {
		return "", false
	}
	v, ok := m.Get(ForecastTimeKey)
	if !ok {
		return "", false
	}
	return v.AsString()
}

func forecastReports(status *models.Map) []models.Value {
	v, ok := status.Get(models.StatusTypeForecast)
	if !ok {
		return nil
	}
	reports, _ := v.AsList()
	return reports
}
