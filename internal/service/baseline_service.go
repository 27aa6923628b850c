package service

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trip-integrity-service/internal/config"
	"trip-integrity-service/internal/model"
	"trip-integrity-service/internal/repository"
)

// BaselineService recomputes the per-vehicle efficiency reference out of band.
type BaselineService struct {
	store repository.Store
	cfg   config.IntegrityConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewBaselineService(store repository.Store, cfg config.IntegrityConfig, log zerolog.Logger) *BaselineService {
	return &BaselineService{store: store, cfg: cfg, log: log, now: time.Now}
}

const baselineToleranceShare = 0.15

// ComputeBaseline derives the baseline from samples, oldest first. It needs at least minSamples.
func ComputeBaseline(samples []float64, minSamples int) (model.FuelEfficiencyBaseline, bool) {
	n := len(samples)
	if n == 0 || n < minSamples {
		return model.FuelEfficiencyBaseline{}, false
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(n)

	var sq float64
	for _, s := range samples {
		sq += (s - mean) * (s - mean)
	}
	stddev := math.Sqrt(sq / float64(n))

	sizeFactor := math.Min(1, float64(n)/float64(2*minSamples))
	cv := 0.0
	if mean > 0 {
		cv = stddev / mean
	}
	confidence := sizeFactor * math.Max(0, 1-math.Min(1, cv))

	tolerance := math.Max(2*stddev, baselineToleranceShare*mean)
	return model.FuelEfficiencyBaseline{
		BaselineKmpl:  round2(mean),
		StdDevKmpl:    math.Round(stddev*1000) / 1000,
		SampleSize:    n,
		Confidence:    math.Round(confidence*1000) / 1000,
		ToleranceLow:  round2(math.Max(0, mean-tolerance)),
		ToleranceHigh: round2(mean + tolerance),
	}, true
}

func (s *BaselineService) RecomputeBaseline(ctx context.Context, principal model.Principal, vehicleID uuid.UUID) (*model.FuelEfficiencyBaseline, error) {
	if !principal.CanMaintainChains() {
		return nil, ErrPermissionDenied
	}
	if vehicleID == uuid.Nil {
		return nil, invalidInput("vehicle id is required")
	}

	var result *model.FuelEfficiencyBaseline
	keys := []string{repository.VehicleLockKey(principal.OrgID, vehicleID)}
	err := s.store.WithLocks(ctx, keys, func(tx repository.Repositories) error {
		trips, err := tx.ListVehicleTrips(ctx, principal.OrgID, vehicleID)
		if err != nil {
			return storageError("list vehicle trips", err)
		}

		samples := make([]float64, 0, len(trips))
		for _, t := range trips {
			if t.FuelEfficiencyKmpl != nil {
				samples = append(samples, *t.FuelEfficiencyKmpl)
			}
		}
		if window := s.cfg.BaselineWindow; window > 0 && len(samples) > window {
			samples = samples[len(samples)-window:]
		}

		baseline, ok := ComputeBaseline(samples, s.cfg.BaselineMinSamples)
		if !ok {
			return invalidInput("baseline needs at least %d trips with a fuel efficiency, have %d", s.cfg.BaselineMinSamples, len(samples))
		}
		baseline.OrganizationID = principal.OrgID
		baseline.VehicleID = vehicleID
		baseline.ComputedAt = s.now().UTC()

		if err := tx.SaveBaseline(ctx, &baseline); err != nil {
			return storageError("save baseline", err)
		}
		if _, err := appendDecision(ctx, tx, decision{
			orgID:      principal.OrgID,
			actorID:    principal.UserID,
			operation:  model.AuditOpBaselineRecompute,
			category:   model.AuditCategoryMaintenance,
			entityType: model.EntityTypeVehicle,
			entityID:   vehicleID.String(),
			outcome:    model.AuditDecisionRecorded,
			severity:   model.SeverityInfo,
			reason:     "Fuel efficiency baseline recomputed",
			payload: map[string]any{
				"baseline_kmpl":  baseline.BaselineKmpl,
				"sample_size":    baseline.SampleSize,
				"confidence":     baseline.Confidence,
				"tolerance_low":  baseline.ToleranceLow,
				"tolerance_high": baseline.ToleranceHigh,
			},
		}); err != nil {
			return err
		}
		result = &baseline
		return nil
	})
	if err != nil {
		return nil, storageError("recompute baseline", err)
	}

	s.log.Info().
		Str("vehicle_id", vehicleID.String()).
		Float64("baseline_kmpl", result.BaselineKmpl).
		Int("sample_size", result.SampleSize).
		Msg("fuel efficiency baseline recomputed")
	return result, nil
}
