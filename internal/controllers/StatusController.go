package controllers

import (
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"net/http"
	"sitestatus/internal/models"
	"sitestatus/internal/providers"
	"sitestatus/internal/services"
)

const (
	maxRequestBodySize = 1 << 20 // 1 MB
	openStatusCacheKey = "status:open"
)

type StatusController struct {
	logger  providers.Logger
	service services.StatusServiceInterface
	cache   providers.CacheProviderInterface
}

func NewStatusController(logger providers.Logger, service services.StatusServiceInterface, cache providers.CacheProviderInterface) *StatusController {
	return &StatusController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

type postStatusRequest struct {
	StatusType *string     `json:"statusType"`
	Status     *models.Map `json:"status"`
}

func (sc *StatusController) serveFromCacheOrCompute(w http.ResponseWriter, r *http.Request, cacheKey string, compute func() (any, error)) {
	if data, ok := sc.cache.Get(cacheKey); ok {
		writeRaw(w, http.StatusOK, data)
		return
	}

	result, err := compute()
	if err != nil {
		sc.fail(w, r, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		sc.fail(w, r, err)
		return
	}

	sc.cache.Set(cacheKey, gson)
	writeRaw(w, http.StatusOK, gson)
}

func (sc *StatusController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	logType := providers.GetLogTypeByRequestType(r.Method)
	if status >= http.StatusInternalServerError {
		sc.logger.Errorf(logType, "%s %s failed: %s", r.Method, r.URL.Path, err)
		writeError(w, status, "Internal Server Error")
		return
	}
	sc.logger.Debugf(logType, "%s %s rejected: %s", r.Method, r.URL.Path, err)
	writeError(w, status, err.Error())
}

func (sc *StatusController) PostStatus(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload postStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if payload.StatusType == nil {
		sc.fail(w, r, fmt.Errorf("%w: statusType", services.ErrMissingKey))
		return
	}
	if payload.Status == nil {
		sc.fail(w, r, fmt.Errorf("%w: status", services.ErrMissingKey))
		return
	}

	result, err := sc.service.Post(r.Context(), r.PathValue("site"), *payload.StatusType, payload.Status)
	if err != nil {
		sc.fail(w, r, err)
		return
	}
	sc.cache.Del(openStatusCacheKey)
	writeJSON(w, http.StatusOK, result)
}

func (sc *StatusController) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := sc.service.Get(r.Context(), r.PathValue("site"), r.PathValue("status_type"))
	if err != nil {
		sc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (sc *StatusController) GetCompleteStatus(w http.ResponseWriter, r *http.Request) {
	combined, err := sc.service.GetCombined(r.Context(), r.PathValue("site"))
	if err != nil {
		sc.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, combined)
}

func (sc *StatusController) ClearSite(w http.ResponseWriter, r *http.Request) {
	results, err := sc.service.ClearSite(r.Context(), r.PathValue("site"))
	if err != nil {
		sc.fail(w, r, err)
		return
	}
	sc.cache.Del(openStatusCacheKey)
	writeJSON(w, http.StatusOK, map[string]any{"items_removed": results})
}

func (sc *StatusController) GetOpenStatus(w http.ResponseWriter, r *http.Request) {
	sc.serveFromCacheOrCompute(w, r, openStatusCacheKey, func() (any, error) {
		return sc.service.GetAllOpenStatus(r.Context())
	})
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingKey),
		errors.Is(err, services.ErrEmptySite),
		errors.Is(err, services.ErrEmptyStatusType),
		errors.Is(err, services.ErrEmptyConnection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	writeRaw(w, status, gson)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	gson, _ := json.Marshal(map[string]string{"error": msg})
	writeRaw(w, status, gson)
}
