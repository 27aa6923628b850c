package service

import (
	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
)

type RangeOutcome string

const (
	RangeOK        RangeOutcome = "ok"
	RangeEdgeCase  RangeOutcome = "edge_case"
	RangeWarning   RangeOutcome = "warning"
	RangeRejection RangeOutcome = "rejection"
)

type RangeResult struct {
	Outcome  RangeOutcome   `json:"outcome"`
	EdgeCase string         `json:"edge_case,omitempty"`
	Findings model.Findings `json:"findings"`
}

// RangeValidator is a pure function of one trip record and, optionally, the vehicle baseline.
type RangeValidator struct {
	cfg config.IntegrityConfig
}

func NewRangeValidator(cfg config.IntegrityConfig) *RangeValidator {
	return &RangeValidator{cfg: cfg}
}

const minBaselineConfidence = 0.5

func (v *RangeValidator) Validate(trip model.Trip, baseline *model.FuelEfficiencyBaseline) RangeResult {
	c := v.cfg
	var findings model.Findings
	add := func(code string, severity model.Severity, field string, value, threshold float64) {
		findings = append(findings, model.Finding{
			Stage:     StageRange,
			Code:      code,
			Severity:  severity,
			Message:   rangeMessage(code, value, threshold),
			Field:     field,
			Value:     floatPtr(value),
			Threshold: floatPtr(threshold),
		})
	}

	distance := trip.DistanceKm()
	hours := trip.DurationHours()
	edge := v.edgeCase(trip)

	// rejections: no exemption applies
	if trip.StartKm < 0 {
		add(CodeNegativeOdometer, model.SeverityError, "start_km", trip.StartKm, 0)
	}
	if distance < 0 {
		add(CodeNegativeDistance, model.SeverityError, "end_km", distance, 0)
	}
	if distance > c.AbsoluteMaxDistanceKm {
		add(CodeAbsoluteDistance, model.SeverityError, "end_km", distance, c.AbsoluteMaxDistanceKm)
	} else if ceiling := v.distanceCeiling(trip); distance > ceiling {
		add(CodeExcessiveDistance, model.SeverityError, "end_km", distance, ceiling)
	}
	if hours <= 0 {
		add(CodeNonPositiveDuration, model.SeverityError, "trip_end_date", hours, 0)
	} else if ceiling := v.durationCeiling(trip); hours > ceiling {
		add(CodeExcessiveDuration, model.SeverityError, "trip_end_date", hours, ceiling)
	} else if warn := v.durationWarning(trip); hours > warn {
		add(CodeLongDuration, model.SeverityWarning, "trip_end_date", hours, warn)
	}

	if hours > 0 && distance > c.SpeedCheckMinDistanceKm {
		speed := trip.AverageSpeedKmh()
		switch {
		case speed > c.MaxSpeedKmh:
			add(CodeExcessiveSpeed, model.SeverityError, "trip_end_date", speed, c.MaxSpeedKmh)
		case speed >= c.HighSpeedWarnKmh:
			add(CodeHighSpeed, model.SeverityWarning, "trip_end_date", speed, c.HighSpeedWarnKmh)
		}
	}

	if trip.FuelQuantity < 0 {
		add(CodeNegativeFuel, model.SeverityError, "fuel_quantity", trip.FuelQuantity, 0)
	} else if trip.FuelQuantity > c.MaxFuelLiters {
		add(CodeExcessiveFuel, model.SeverityError, "fuel_quantity", trip.FuelQuantity, c.MaxFuelLiters)
	}
	if trip.FuelRatePerLiter < 0 {
		add(CodeNegativeFuel, model.SeverityError, "fuel_rate_per_liter", trip.FuelRatePerLiter, 0)
	}

	if kmpl := trip.FuelEfficiencyKmpl; kmpl != nil {
		switch {
		case *kmpl < c.MinEfficiencyKmpl:
			add(CodeImplausibleEfficiency, model.SeverityError, "fuel_efficiency_kmpl", *kmpl, c.MinEfficiencyKmpl)
		case *kmpl > c.MaxEfficiencyKmpl:
			add(CodeImplausibleEfficiency, model.SeverityError, "fuel_efficiency_kmpl", *kmpl, c.MaxEfficiencyKmpl)
		case edge != "":
		case *kmpl < c.LowEfficiencyWarnKmpl:
			add(CodePoorEfficiency, model.SeverityWarning, "fuel_efficiency_kmpl", *kmpl, c.LowEfficiencyWarnKmpl)
		case *kmpl > c.HighEfficiencyWarnKmpl:
			add(CodeHighEfficiency, model.SeverityWarning, "fuel_efficiency_kmpl", *kmpl, c.HighEfficiencyWarnKmpl)
		case baseline != nil && baseline.Confidence >= minBaselineConfidence && !baseline.Within(*kmpl):
			add(CodeEfficiencyDeviation, model.SeverityWarning, "fuel_efficiency_kmpl", *kmpl, baseline.BaselineKmpl)
		}
	}

	findings = append(findings, v.expenseFindings(trip)...)

	if edge == "" && distance >= 0 && distance < c.ShortDistanceWarnKm {
		add(CodeShortDistance, model.SeverityWarning, "end_km", distance, c.ShortDistanceWarnKm)
	}

	result := RangeResult{EdgeCase: edge}
	switch worst := findings.Worst(); {
	case worst.AtLeast(model.SeverityError):
		result.Outcome = RangeRejection
	case worst == model.SeverityWarning:
		result.Outcome = RangeWarning
	case edge != "":
		result.Outcome = RangeEdgeCase
	default:
		result.Outcome = RangeOK
	}

	if edge != "" {
		add(edge, model.SeverityInfo, "trip_type", distance, 0)
		findings[len(findings)-1].Threshold = nil
	} else if len(findings) == 0 {
		findings = append(findings, model.Finding{
			Stage:    StageRange,
			Code:     CodeRangeWithinLimit,
			Severity: model.SeverityInfo,
			Message:  rangeMessage(CodeRangeWithinLimit, 0, 0),
		})
	}
	result.Findings = findings
	return result
}

// edgeCase returns the finding code of the recognized edge case, empty when none applies.
func (v *RangeValidator) edgeCase(trip model.Trip) string {
	distance := trip.DistanceKm()
	switch trip.TripType {
	case model.TripTypeMaintenance:
		if distance >= 0 && distance <= v.cfg.MaintenanceMaxKm {
			return CodeMaintenanceTrip
		}
	case model.TripTypeTest:
		if distance >= 0 && distance < v.cfg.TestMaxKm {
			return CodeTestTrip
		}
	case model.TripTypeRefuelingOnly:
		if distance >= 0 && distance < v.cfg.RefuelOnlyMaxKm && trip.FuelQuantity > 0 {
			return CodeRefuelingOnly
		}
	case model.TripTypeLongHaul, model.TripTypeInterstate:
		return CodeLongHaulTrip
	}
	return ""
}

func (v *RangeValidator) distanceCeiling(trip model.Trip) float64 {
	if trip.TripType.IsLongHaul() {
		return v.cfg.LongHaulMaxDistanceKm
	}
	return v.cfg.MaxDistanceKm
}

func (v *RangeValidator) durationCeiling(trip model.Trip) float64 {
	if trip.TripType.IsLongHaul() {
		return v.cfg.LongHaulMaxDurationHours
	}
	return v.cfg.MaxDurationHours
}

func (v *RangeValidator) durationWarning(trip model.Trip) float64 {
	if trip.TripType.IsLongHaul() {
		return v.cfg.LongHaulDurationWarnHours
	}
	return v.cfg.LongDurationWarnHours
}

func (v *RangeValidator) expenseFindings(trip model.Trip) model.Findings {
	type check struct {
		field string
		code  string
		value float64
		warn  float64
		limit bool
	}
	checks := []check{
		{"fuel_expense", CodeLargeFuelExpense, trip.FuelExpense.InexactFloat64(), v.cfg.FuelExpenseWarn.InexactFloat64(), trip.FuelExpense.GreaterThan(v.cfg.FuelExpenseWarn)},
		{"driver_expense", CodeLargeDriverExpense, trip.DriverExpense.InexactFloat64(), v.cfg.DriverExpenseWarn.InexactFloat64(), trip.DriverExpense.GreaterThan(v.cfg.DriverExpenseWarn)},
		{"toll_expense", CodeLargeTollExpense, trip.TollExpense.InexactFloat64(), v.cfg.TollExpenseWarn.InexactFloat64(), trip.TollExpense.GreaterThan(v.cfg.TollExpenseWarn)},
		{"other_expense", "", trip.OtherExpense.InexactFloat64(), 0, false},
		{"breakdown_expense", "", trip.BreakdownExpense.InexactFloat64(), 0, false},
		{"misc_expense", "", trip.MiscExpense.InexactFloat64(), 0, false},
	}

	var findings model.Findings
	for _, ch := range checks {
		switch {
		case ch.value < 0:
			findings = append(findings, model.Finding{
				Stage:     StageRange,
				Code:      CodeNegativeExpense,
				Severity:  model.SeverityError,
				Message:   expenseMessage(CodeNegativeExpense, ch.field, ch.value, 0),
				Field:     ch.field,
				Value:     floatPtr(ch.value),
				Threshold: floatPtr(0),
			})
		case ch.limit:
			findings = append(findings, model.Finding{
				Stage:     StageRange,
				Code:      ch.code,
				Severity:  model.SeverityWarning,
				Message:   expenseMessage(ch.code, ch.field, ch.value, ch.warn),
				Field:     ch.field,
				Value:     floatPtr(ch.value),
				Threshold: floatPtr(ch.warn),
			})
		}
	}
	return findings
}

func floatPtr(v float64) *float64 {
	return &v
}
