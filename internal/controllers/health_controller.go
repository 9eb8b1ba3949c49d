package controllers

import (
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"sitestatus/internal/gateway"
	"sitestatus/internal/storage"
	"time"
)

type HealthController struct {
	db        storage.Database
	gateway   *gateway.WebsocketGateway
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Connections   int     `json:"connections"`
	Error         string  `json:"error,omitempty"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		Connections:   hc.gateway.Count(),
	}
	code := http.StatusOK
	if err := hc.db.Ping(); err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(db storage.Database, gw *gateway.WebsocketGateway) *HealthController {
	return &HealthController{
		db:        db,
		gateway:   gw,
		startTime: time.Now(),
	}
}
