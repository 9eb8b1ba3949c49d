package models

import json "github.com/goccy/go-json"

const (
	StatusTypeDevice    = "device"
	StatusTypeWeather   = "weather"
	StatusTypeEnclosure = "enclosure"
	StatusTypeForecast  = "forecast"
)

const (
	TopicSiteStatus  = "sitestatus"
	TopicPhaseStatus = "phase_status"
)

// StatusEntry is the persisted row for one (site, statusType) key.
type StatusEntry struct {
	Site              string `json:"site"`
	StatusType        string `json:"statusType"`
	Status            *Map   `json:"status"`
	ServerTimestampMs int64  `json:"server_timestamp_ms"`
}

type WriteResult struct {
	Site              string `json:"site"`
	StatusType        string `json:"statusType"`
	ServerTimestampMs int64  `json:"server_timestamp_ms"`
}

type DeleteResult struct {
	Site       string `json:"site"`
	StatusType string `json:"statusType"`
	Removed    bool   `json:"removed"`
	Error      string `json:"error,omitempty"`
}

type CombinedStatus struct {
	Site                    string           `json:"site"`
	Status                  *Map             `json:"status"`
	StatusTimestampsMs      map[string]int64 `json:"status_timestamps_ms"`
	LatestStatusTimestampMs int64            `json:"latest_status_timestamp_ms"`
}

type StatusAge struct {
	StatusAgeS float64 `json:"status_age_s"`
}

// OpenStatusView is the per-site rollup: one age entry per statusType plus
// an optional wx_ok flag derived from the weather row.
type OpenStatusView struct {
	Types map[string]StatusAge
	WxOk  *bool
}

func (v OpenStatusView) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(v.Types)+1)
	for k, age := range v.Types {
		out[k] = age
	}
	if v.WxOk != nil {
		out["wx_ok"] = *v.WxOk
	}
	return json.Marshal(out)
}

type Subscriber struct {
	ConnectionID string `json:"ConnectionID"`
	Site         string `json:"site"`
	Timestamp    int64  `json:"timestamp"`
	Expiration   int64  `json:"expiration"`
	TimestampISO string `json:"timestamp_iso"`
}

type PhaseStatus struct {
	Site      string `json:"site"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
	TTL       int64  `json:"ttl"`
}

// DeliveryTask is the delivery queue message. It carries the key only; the
// worker re-reads the current status when sending.
type DeliveryTask struct {
	Connections []string `json:"connections"`
	Site        string   `json:"site"`
	StatusType  string   `json:"status_type"`
}

type StreamMessage struct {
	Topic string `json:"topic"`
	Site  string `json:"site"`
	Data  any    `json:"data"`
}
