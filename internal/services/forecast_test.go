package services

import (
	"sitestatus/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func report(at, text string) models.Value {
	return models.Object(models.MapOf(ForecastTimeKey, at, "forecast", text))
}

func reportIDs(t *testing.T, reports []models.Value) []string {
	t.Helper()
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		id, ok := forecastID(r)
		require.True(t, ok)
		ids = append(ids, id)
	}
	return ids
}

func TestParseForecastTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		ok       bool
	}{
		{"rfc3339", "2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"offset", "2024-05-01T12:00:00+02:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"naive T", "2024-05-01T10:00:00.5", time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC), true},
		{"naive space", "2024-05-01 10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), true},
		{"garbage", "tomorrow", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseForecastTime(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.expected.Equal(got), got)
			}
		})
	}
}

func TestMergeForecast_FirstSeenWins(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	existing := []models.Value{report("2024-05-01T10:00:00", "old")}
	incoming := []models.Value{
		report("2024-05-01T10:00:00", "new"),
		report("2024-05-01T11:00:00", "later"),
	}

	out := MergeForecast(existing, incoming, now, 96*time.Hour)

	require.Len(t, out, 2)
	assert.Equal(t, []string{"2024-05-01T10:00:00", "2024-05-01T11:00:00"}, reportIDs(t, out))
	first, _ := out[0].AsMap()
	text, _ := first.Get("forecast")
	s, _ := text.AsString()
	assert.Equal(t, "old", s)
}

func TestMergeForecast_DropsExpiredAndUnparseable(t *testing.T) {
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	incoming := []models.Value{
		report("2024-05-01T00:00:00", "too old"),
		report("2024-05-09T00:00:00", "fresh"),
		report("not a time", "bad"),
		models.String("not a report"),
		models.Object(models.MapOf("forecast", "no time")),
	}

	out := MergeForecast(nil, incoming, now, 96*time.Hour)

	assert.Equal(t, []string{"2024-05-09T00:00:00"}, reportIDs(t, out))
}

func TestMergeForecast_RetentionBoundaryInclusive(t *testing.T) {
	now := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	out := MergeForecast(nil, []models.Value{report("2024-05-01T00:00:00Z", "edge")}, now, 96*time.Hour)
	assert.Len(t, out, 1)
}

func TestMergeForecast_Empty(t *testing.T) {
	out := MergeForecast(nil, nil, time.Now(), time.Hour)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
