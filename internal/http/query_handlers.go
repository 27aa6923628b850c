package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/service"
)

func parseSweepQuery(c *gin.Context) (service.SweepQuery, error) {
	var (
		q   service.SweepQuery
		err error
	)
	if q.VehicleID, err = parseOptionalUUID(c, "vehicle_id"); err != nil {
		return q, err
	}
	if q.DriverID, err = parseOptionalUUID(c, "driver_id"); err != nil {
		return q, err
	}
	if q.DateFrom, err = parseOptionalTime(c, "date_from"); err != nil {
		return q, err
	}
	if q.DateTo, err = parseOptionalTime(c, "date_to"); err != nil {
		return q, err
	}
	q.Limit, q.Offset = parsePaging(c)
	return q, nil
}

func (h *Handler) findOverlaps(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	q, err := parseSweepQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	records, err := h.sweepService.FindOverlaps(c.Request.Context(), principal, q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": records}))
}

func (h *Handler) findOdometerGaps(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseUUIDParam(c, "vehicleId")
	if !ok {
		return
	}

	records, err := h.sweepService.FindOdometerGaps(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": records}))
}

func (h *Handler) findAnomalies(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	q, err := parseSweepQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	buckets, err := h.sweepService.FindAnomalies(c.Request.Context(), principal, q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": buckets}))
}

func (h *Handler) detectChainBreaks(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	breaks, err := h.sweepService.DetectChainBreaks(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": breaks}))
}

func (h *Handler) entityAuditTrail(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	limit, _ := parsePaging(c)

	entries, err := h.auditService.GetEntityAuditTrail(c.Request.Context(), principal, c.Param("type"), c.Param("id"), limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": entries}))
}

func (h *Handler) searchAudit(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var (
		opts service.AuditSearchOptions
		err  error
	)
	for _, v := range splitCSV(c.Query("operation_type")) {
		opts.OperationTypes = append(opts.OperationTypes, model.AuditOperation(v))
	}
	for _, v := range splitCSV(c.Query("severity")) {
		opts.Severities = append(opts.Severities, model.Severity(v))
	}
	opts.EntityTypes = splitCSV(c.Query("entity_type"))
	opts.EntityID = c.Query("entity_id")
	opts.Search = c.Query("search")
	if opts.DateFrom, err = parseOptionalTime(c, "date_from"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if opts.DateTo, err = parseOptionalTime(c, "date_to"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	opts.Limit, opts.Offset = parsePaging(c)

	page, err := h.auditService.SearchAuditTrail(c.Request.Context(), principal, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(page))
}

func (h *Handler) auditRollups(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	from, err := parseOptionalTime(c, "date_from")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	to, err := parseOptionalTime(c, "date_to")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	rollups, err := h.auditService.Rollups(c.Request.Context(), principal, from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": rollups}))
}
