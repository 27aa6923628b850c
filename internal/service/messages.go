package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"trip-integrity-service/internal/model"
)

const (
	StageRange      = "range"
	StageContinuity = "continuity"
	StageOverlap    = "overlap"
	StageChain      = "chain"
	StageDelete     = "delete"
	StagePersist    = "persist"
)

// Finding codes double as anomaly sweep bucket names.
const (
	CodeNegativeDistance      = "negative_distance"
	CodeNegativeOdometer      = "negative_odometer"
	CodeExcessiveDistance     = "excessive_distance"
	CodeAbsoluteDistance      = "absolute_distance_exceeded"
	CodeNonPositiveDuration   = "non_positive_duration"
	CodeExcessiveDuration     = "excessive_duration"
	CodeExcessiveSpeed        = "excessive_speed"
	CodeImplausibleEfficiency = "implausible_efficiency"
	CodeExcessiveFuel         = "excessive_fuel"
	CodeNegativeFuel          = "negative_fuel"
	CodeNegativeExpense       = "negative_expense"

	CodeShortDistance       = "short_distance"
	CodeLongDuration        = "long_duration"
	CodeHighSpeed           = "high_speed"
	CodePoorEfficiency      = "poor_efficiency"
	CodeHighEfficiency      = "high_efficiency"
	CodeEfficiencyDeviation = "efficiency_deviation"
	CodeLargeFuelExpense    = "large_fuel_expense"
	CodeLargeDriverExpense  = "large_driver_expense"
	CodeLargeTollExpense    = "large_toll_expense"

	CodeMaintenanceTrip  = "maintenance_trip"
	CodeTestTrip         = "test_trip"
	CodeRefuelingOnly    = "refueling_only_trip"
	CodeLongHaulTrip     = "long_haul_trip"
	CodeRangeWithinLimit = "within_limits"

	CodeNegativeGap      = "negative_odometer_gap"
	CodeSuccessorOverrun = "successor_odometer_overrun"
	CodeLargeGap         = "large_odometer_gap"
	CodeContinuityOK     = "odometer_continuous"

	CodeVehicleConflict = "vehicle_conflict"
	CodeDriverConflict  = "driver_conflict"
	CodeNoConflicts     = "no_conflicts"

	CodeChainBreak    = "chain_break"
	CodeSoftDeleted   = "soft_deleted"
	CodeHardDeleted   = "hard_deleted"
	CodeConvertedSoft = "converted_to_soft_delete"
	CodeDependents    = "dependent_trips"

	CodeWriteConflict = "write_conflict"
)

func rangeMessage(code string, value, threshold float64) string {
	switch code {
	case CodeNegativeDistance:
		return fmt.Sprintf("Negative distance: end_km is %.1f km below start_km", -value)
	case CodeNegativeOdometer:
		return fmt.Sprintf("Odometer reading %.1f km is negative", value)
	case CodeExcessiveDistance:
		return fmt.Sprintf("Distance %.1f km exceeds the %.0f km ceiling for this trip type", value, threshold)
	case CodeAbsoluteDistance:
		return fmt.Sprintf("Distance %.1f km exceeds the absolute maximum of %.0f km", value, threshold)
	case CodeNonPositiveDuration:
		return "Trip end date must be after its start date"
	case CodeExcessiveDuration:
		return fmt.Sprintf("Duration %.1f h exceeds the %.0f h ceiling for this trip type", value, threshold)
	case CodeExcessiveSpeed:
		return fmt.Sprintf("Average speed %.1f km/h exceeds the %.0f km/h maximum", value, threshold)
	case CodeImplausibleEfficiency:
		return fmt.Sprintf("Fuel efficiency %.2f km/L is outside the plausible range", value)
	case CodeExcessiveFuel:
		return fmt.Sprintf("Fuel quantity %.1f L exceeds the %.0f L maximum", value, threshold)
	case CodeNegativeFuel:
		return fmt.Sprintf("Fuel value %.2f must not be negative", value)
	case CodeShortDistance:
		return fmt.Sprintf("Very short trip of %.1f km", value)
	case CodeLongDuration:
		return fmt.Sprintf("Long trip duration of %.1f h (warning above %.0f h)", value, threshold)
	case CodeHighSpeed:
		return fmt.Sprintf("High average speed of %.1f km/h (warning above %.0f km/h)", value, threshold)
	case CodePoorEfficiency:
		return fmt.Sprintf("Poor fuel efficiency of %.2f km/L (warning below %.0f km/L)", value, threshold)
	case CodeHighEfficiency:
		return fmt.Sprintf("Unusually high fuel efficiency of %.2f km/L (warning above %.0f km/L)", value, threshold)
	case CodeEfficiencyDeviation:
		return fmt.Sprintf("Fuel efficiency %.2f km/L deviates from the vehicle baseline of %.2f km/L", value, threshold)
	case CodeLongHaulTrip:
		return fmt.Sprintf("Long-haul trip of %.1f km, extended limits applied", value)
	case CodeTestTrip:
		return fmt.Sprintf("Test trip of %.1f km", value)
	case CodeRefuelingOnly:
		return fmt.Sprintf("Refueling-only trip of %.1f km", value)
	case CodeMaintenanceTrip:
		if value == 0 {
			return "Maintenance trip with zero distance"
		}
		return fmt.Sprintf("Maintenance trip of %.1f km", value)
	case CodeRangeWithinLimit:
		return "All values within limits"
	}
	return code
}

func expenseMessage(code, field string, value, threshold float64) string {
	if code == CodeNegativeExpense {
		return fmt.Sprintf("%s must not be negative (got %.2f)", humanField(field), value)
	}
	return fmt.Sprintf("Large %s of %.2f (warning above %.0f)", humanField(field), value, threshold)
}

func humanField(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func negativeGapMessage(pred model.Trip, startKm float64) string {
	return fmt.Sprintf("start_km %.1f is below end_km %.1f of preceding trip %s", startKm, pred.EndKm, pred.TripSerialNumber)
}

func successorOverrunMessage(succ model.Trip, endKm float64) string {
	return fmt.Sprintf("end_km %.1f exceeds start_km %.1f of following trip %s", endKm, succ.StartKm, succ.TripSerialNumber)
}

func largeGapMessage(gap float64, other model.Trip, before bool) string {
	if before {
		return fmt.Sprintf("Odometer gap of %.1f km after trip %s", gap, other.TripSerialNumber)
	}
	return fmt.Sprintf("Odometer gap of %.1f km before trip %s", gap, other.TripSerialNumber)
}

func conflictMessage(c model.Conflict) string {
	kind := "Vehicle"
	if c.Kind == model.ConflictKindDriver {
		kind = "Driver"
	}
	return fmt.Sprintf("%s conflict with trip %s (%s to %s): %s, %.0f min overlap",
		kind,
		c.Trip.TripSerialNumber,
		c.Trip.Window.Start.Format("2006-01-02 15:04"),
		c.Trip.Window.End.Format("2006-01-02 15:04"),
		c.OverlapType,
		c.OverlapMinutes,
	)
}

func dependentDataMessage(tripID uuid.UUID, dependents []uuid.UUID) string {
	ids := make([]string, 0, len(dependents))
	for _, id := range dependents {
		ids = append(ids, id.String())
	}
	return fmt.Sprintf("refueling trip %s bounds the mileage chain of %d dependent trips: %s",
		tripID, len(dependents), strings.Join(ids, ", "))
}

func overlapRemediation(t model.OverlapType) string {
	switch t {
	case model.OverlapExactDuplicate:
		return "Duplicate entry: soft-delete one of the two trips"
	case model.OverlapNewContainedInExisting, model.OverlapExistingContainedInNew:
		return "One trip lies inside the other: merge them or correct the shorter trip's times"
	default:
		return "Adjust the end time of the earlier trip or the start time of the later trip"
	}
}

func chainBreakDetail(reason model.ChainBreakReason, seg model.MileageSegment) string {
	switch reason {
	case model.ChainBreakNonIncreasingOdometer:
		return fmt.Sprintf("Odometer does not increase between refuelings (%.1f to %.1f km)", seg.StartOdometerKm, seg.EndOdometerKm)
	case model.ChainBreakNoFuel:
		return fmt.Sprintf("No fuel recorded across %.1f km between refuelings", seg.DistanceKm)
	case model.ChainBreakDeletedTrips:
		return "Deleted trips left an odometer gap between refuelings that was never repaired"
	case model.ChainBreakOdometerDiscontinuity:
		return "Odometer readings are discontinuous between refuelings"
	case model.ChainBreakImplausibleEfficiency:
		if seg.Kmpl != nil {
			return fmt.Sprintf("Tank-to-tank efficiency %.2f km/L is implausible", *seg.Kmpl)
		}
	}
	return string(reason)
}

var anomalyRecommendations = map[string]string{
	CodeNegativeDistance:      "Swap or re-enter the start and end odometer readings",
	CodeNegativeOdometer:      "Re-enter the odometer readings from the trip sheet",
	CodeExcessiveDistance:     "Verify the odometer readings or reclassify the trip as long haul",
	CodeAbsoluteDistance:      "Split the trip or correct the odometer readings",
	CodeNonPositiveDuration:   "Correct the trip start and end dates",
	CodeExcessiveDuration:     "Split the trip or reclassify it as long haul",
	CodeExcessiveSpeed:        "Check the trip times and odometer readings for typos",
	CodeImplausibleEfficiency: "Re-check the fuel quantity and distance",
	CodeExcessiveFuel:         "Verify the fuel receipt",
	CodeNegativeFuel:          "Re-enter the fuel values from the receipt",
	CodeNegativeExpense:       "Re-enter the expense amounts",
	CodeShortDistance:         "Confirm the trip or tag it as maintenance or test",
	CodeLongDuration:          "Confirm the duration with the driver log",
	CodeHighSpeed:             "Review the trip times with the driver",
	CodePoorEfficiency:        "Inspect the vehicle and the fuel records",
	CodeHighEfficiency:        "Check for a missing refueling entry",
	CodeEfficiencyDeviation:   "Compare against recent refuelings for this vehicle",
	CodeLargeFuelExpense:      "Verify the fuel expense against the receipt",
	CodeLargeDriverExpense:    "Verify the driver expense with supporting documents",
	CodeLargeTollExpense:      "Verify the toll receipts",
	CodeNegativeGap:           "Correct the odometer readings of the adjacent trips",
	CodeLargeGap:              "Look for a missing trip between the two entries",
}

func anomalyRecommendation(code string) string {
	if rec, ok := anomalyRecommendations[code]; ok {
		return rec
	}
	return "Review the affected trips"
}
