package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trip-integrity-service/internal/http/middleware"
	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/service"
)

type Handler struct {
	tripService     *service.TripService
	sweepService    *service.SweepService
	auditService    *service.AuditService
	baselineService *service.BaselineService
	log             zerolog.Logger
}

func NewHandler(
	tripService *service.TripService,
	sweepService *service.SweepService,
	auditService *service.AuditService,
	baselineService *service.BaselineService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		tripService:     tripService,
		sweepService:    sweepService,
		auditService:    auditService,
		baselineService: baselineService,
		log:             log,
	}
}

func (h *Handler) principal(c *gin.Context) (model.Principal, bool) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("principal missing"))
		return model.Principal{}, false
	}
	return principal, true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var (
		correctness *service.CorrectnessViolation
		conflict    *service.ConflictError
		dependent   *service.DependentDataError
	)
	switch {
	case errors.As(err, &correctness):
		body := errorResponse(err.Error())
		body["stage"] = correctness.Stage
		body["trip_id"] = correctness.TripID
		body["findings"] = correctness.Findings
		c.JSON(http.StatusUnprocessableEntity, body)
	case errors.As(err, &conflict):
		body := errorResponse(err.Error())
		body["trip_id"] = conflict.TripID
		body["conflicts"] = conflict.Conflicts
		c.JSON(http.StatusConflict, body)
	case errors.As(err, &dependent):
		body := errorResponse(err.Error())
		body["trip_id"] = dependent.TripID
		body["dependent_trip_ids"] = dependent.DependentTripIDs
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func parseOptionalUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	return &id, nil
}

func parseOptionalTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("invalid " + key + ": expected RFC3339")
	}
	return &ts, nil
}

func parsePaging(c *gin.Context) (limit, offset int) {
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

type responseEnvelope struct {
	Data interface{} `json:"data"`
}

func successResponse(data interface{}) responseEnvelope {
	return responseEnvelope{Data: data}
}

func errorResponse(msg string) gin.H {
	return gin.H{"error": msg}
}
