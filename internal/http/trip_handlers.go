package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/service"
)

type tripRequest struct {
	TripSerialNumber   string          `json:"trip_serial_number"`
	VehicleID          string          `json:"vehicle_id" binding:"required"`
	DriverID           *string         `json:"driver_id"`
	TripStartDate      time.Time       `json:"trip_start_date" binding:"required"`
	TripEndDate        time.Time       `json:"trip_end_date" binding:"required"`
	StartKm            float64         `json:"start_km"`
	EndKm              float64         `json:"end_km"`
	RefuelingDone      bool            `json:"refueling_done"`
	FuelQuantity       float64         `json:"fuel_quantity"`
	FuelRatePerLiter   float64         `json:"fuel_rate_per_liter"`
	FuelEfficiencyKmpl *float64        `json:"fuel_efficiency_kmpl"`
	FuelExpense        decimal.Decimal `json:"fuel_expense"`
	DriverExpense      decimal.Decimal `json:"driver_expense"`
	TollExpense        decimal.Decimal `json:"toll_expense"`
	OtherExpense       decimal.Decimal `json:"other_expense"`
	BreakdownExpense   decimal.Decimal `json:"breakdown_expense"`
	MiscExpense        decimal.Decimal `json:"misc_expense"`
	TripType           string          `json:"trip_type"`
}

func (r tripRequest) toTrip() (model.Trip, string) {
	vehicleID, err := uuid.Parse(strings.TrimSpace(r.VehicleID))
	if err != nil {
		return model.Trip{}, "invalid vehicle_id"
	}
	trip := model.Trip{
		TripSerialNumber:   strings.TrimSpace(r.TripSerialNumber),
		VehicleID:          vehicleID,
		TripStartDate:      r.TripStartDate,
		TripEndDate:        r.TripEndDate,
		StartKm:            r.StartKm,
		EndKm:              r.EndKm,
		RefuelingDone:      r.RefuelingDone,
		FuelQuantity:       r.FuelQuantity,
		FuelRatePerLiter:   r.FuelRatePerLiter,
		FuelEfficiencyKmpl: r.FuelEfficiencyKmpl,
		FuelExpense:        r.FuelExpense,
		DriverExpense:      r.DriverExpense,
		TollExpense:        r.TollExpense,
		OtherExpense:       r.OtherExpense,
		BreakdownExpense:   r.BreakdownExpense,
		MiscExpense:        r.MiscExpense,
		TripType:           model.TripType(strings.ToLower(strings.TrimSpace(r.TripType))),
	}
	if r.DriverID != nil && strings.TrimSpace(*r.DriverID) != "" {
		driverID, err := uuid.Parse(strings.TrimSpace(*r.DriverID))
		if err != nil {
			return model.Trip{}, "invalid driver_id"
		}
		trip.DriverID = &driverID
	}
	return trip, ""
}

func bindTrip(c *gin.Context) (model.Trip, bool) {
	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return model.Trip{}, false
	}
	trip, msg := req.toTrip()
	if msg != "" {
		c.JSON(http.StatusBadRequest, errorResponse(msg))
		return model.Trip{}, false
	}
	return trip, true
}

func (h *Handler) createTrip(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	trip, ok := bindTrip(c)
	if !ok {
		return
	}

	result, err := h.tripService.ValidateAndCommitTrip(c.Request.Context(), principal, trip, service.WriteInsert, service.WriteOptions{})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse(result))
}

func (h *Handler) updateTrip(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	trip, ok := bindTrip(c)
	if !ok {
		return
	}
	trip.ID = id

	result, err := h.tripService.ValidateAndCommitTrip(c.Request.Context(), principal, trip, service.WriteUpdate, service.WriteOptions{})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) deleteTrip(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	opts := service.WriteOptions{Reason: strings.TrimSpace(c.Query("reason"))}
	if raw := strings.TrimSpace(c.Query("hard")); raw != "" {
		hard, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid hard flag"))
			return
		}
		opts.HardDelete = hard
	}

	result, err := h.tripService.ValidateAndCommitTrip(c.Request.Context(), principal, model.Trip{ID: id}, service.WriteDelete, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) validateTrip(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	trip, ok := bindTrip(c)
	if !ok {
		return
	}
	if raw := strings.TrimSpace(c.Query("trip_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid trip_id"))
			return
		}
		trip.ID = id
	}

	report, err := h.tripService.ValidateTrip(c.Request.Context(), principal, trip)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(report))
}

func (h *Handler) checkAvailability(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var q service.AvailabilityQuery
	var err error
	if q.VehicleID, err = parseOptionalUUID(c, "vehicle_id"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if q.DriverID, err = parseOptionalUUID(c, "driver_id"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	if q.ExcludeTripID, err = parseOptionalUUID(c, "exclude_trip_id"); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	start, err := parseOptionalTime(c, "start")
	if err != nil || start == nil {
		c.JSON(http.StatusBadRequest, errorResponse("start is required (RFC3339)"))
		return
	}
	end, err := parseOptionalTime(c, "end")
	if err != nil || end == nil {
		c.JSON(http.StatusBadRequest, errorResponse("end is required (RFC3339)"))
		return
	}
	q.Window = model.TimeWindow{Start: *start, End: *end}

	availability, err := h.tripService.CheckAvailability(c.Request.Context(), principal, q)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(availability))
}

func (h *Handler) previewCascade(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var change service.ProposedChange
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	affected, err := h.tripService.PreviewCascadeImpact(c.Request.Context(), principal, id, change)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": affected}))
}

func (h *Handler) rebuildChain(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	segments, err := h.tripService.RebuildMileageChain(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"items": segments}))
}

func (h *Handler) recomputeBaseline(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	vehicleID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	baseline, err := h.baselineService.RecomputeBaseline(c.Request.Context(), principal, vehicleID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(baseline))
}
