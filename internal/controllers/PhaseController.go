package controllers

import (
	json "github.com/goccy/go-json"
	"net/http"
	"sitestatus/internal/providers"
	"sitestatus/internal/services"
	"strconv"
	"time"
)

type PhaseController struct {
	logger  providers.Logger
	service services.PhaseStatusServiceInterface
}

func NewPhaseController(logger providers.Logger, service services.PhaseStatusServiceInterface) *PhaseController {
	return &PhaseController{
		logger:  logger,
		service: service,
	}
}

type postPhaseRequest struct {
	Site    *string `json:"site"`
	Message *string `json:"message"`
}

func (pc *PhaseController) PostPhase(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload postPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if payload.Site == nil || payload.Message == nil {
		writeError(w, http.StatusBadRequest, services.ErrMissingKey.Error()+": site, message")
		return
	}

	phase, err := pc.service.Post(r.Context(), *payload.Site, *payload.Message)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phase)
}

func (pc *PhaseController) GetPhase(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var maxAge time.Duration
	if raw := q.Get("max_age_seconds"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds <= 0 {
			writeError(w, http.StatusBadRequest, "max_age_seconds must be a positive number")
			return
		}
		maxAge = time.Duration(seconds * float64(time.Second))
	}

	var maxItems int
	if raw := q.Get("max_items"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_items must be a positive integer")
			return
		}
		maxItems = n
	}

	phases, err := pc.service.Recent(r.Context(), r.PathValue("site"), maxAge, maxItems)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phases)
}

func (pc *PhaseController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	logType := providers.GetLogTypeByRequestType(r.Method)
	if status >= http.StatusInternalServerError {
		pc.logger.Errorf(logType, "%s %s failed: %s", r.Method, r.URL.Path, err)
		writeError(w, status, "Internal Server Error")
		return
	}
	writeError(w, status, err.Error())
}
