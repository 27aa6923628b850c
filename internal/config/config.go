package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret string
}

type SerialConfig struct {
	NodeID int64
}

// IntegrityConfig holds every threshold the trip integrity engine applies.
type IntegrityConfig struct {
	LargeGapKm float64

	MaxDistanceKm         float64
	LongHaulMaxDistanceKm float64
	AbsoluteMaxDistanceKm float64

	MaxDurationHours          float64
	LongHaulMaxDurationHours  float64
	LongDurationWarnHours     float64
	LongHaulDurationWarnHours float64

	MaxSpeedKmh              float64
	HighSpeedWarnKmh         float64
	SpeedCheckMinDistanceKm  float64
	MinEfficiencyKmpl        float64
	MaxEfficiencyKmpl        float64
	LowEfficiencyWarnKmpl    float64
	HighEfficiencyWarnKmpl   float64
	MaxFuelLiters            float64
	ShortDistanceWarnKm      float64
	MaintenanceMaxKm         float64
	TestMaxKm                float64
	RefuelOnlyMaxKm          float64
	OverlapHighMinutes       float64
	BaselineMinSamples       int
	BaselineWindow           int
	ConvertBlockedHardDelete bool

	FuelExpenseWarn   decimal.Decimal
	DriverExpenseWarn decimal.Decimal
	TollExpenseWarn   decimal.Decimal
}

func DefaultIntegrity() IntegrityConfig {
	return IntegrityConfig{
		LargeGapKm:                100,
		MaxDistanceKm:             2000,
		LongHaulMaxDistanceKm:     3000,
		AbsoluteMaxDistanceKm:     3000,
		MaxDurationHours:          48,
		LongHaulMaxDurationHours:  72,
		LongDurationWarnHours:     36,
		LongHaulDurationWarnHours: 60,
		MaxSpeedKmh:               120,
		HighSpeedWarnKmh:          100,
		SpeedCheckMinDistanceKm:   10,
		MinEfficiencyKmpl:         1,
		MaxEfficiencyKmpl:         50,
		LowEfficiencyWarnKmpl:     3,
		HighEfficiencyWarnKmpl:    30,
		MaxFuelLiters:             500,
		ShortDistanceWarnKm:       5,
		MaintenanceMaxKm:          5,
		TestMaxKm:                 10,
		RefuelOnlyMaxKm:           15,
		OverlapHighMinutes:        60,
		BaselineMinSamples:        10,
		BaselineWindow:            50,
		FuelExpenseWarn:           decimal.NewFromInt(30000),
		DriverExpenseWarn:         decimal.NewFromInt(5000),
		TollExpenseWarn:           decimal.NewFromInt(2000),
	}
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Serial      SerialConfig
	Integrity   IntegrityConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Serial: SerialConfig{
			NodeID: v.GetInt64("SERIAL_NODE_ID"),
		},
		Integrity: loadIntegrity(v),
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7090
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if !v.IsSet("SERIAL_NODE_ID") {
		cfg.Serial.NodeID = 1
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadIntegrity starts from the defaults and overrides only the keys that are set.
func loadIntegrity(v *viper.Viper) IntegrityConfig {
	cfg := DefaultIntegrity()

	floats := map[string]*float64{
		"INTEGRITY_LARGE_GAP_KM":                  &cfg.LargeGapKm,
		"INTEGRITY_MAX_DISTANCE_KM":               &cfg.MaxDistanceKm,
		"INTEGRITY_LONG_HAUL_MAX_DISTANCE_KM":     &cfg.LongHaulMaxDistanceKm,
		"INTEGRITY_ABSOLUTE_MAX_DISTANCE_KM":      &cfg.AbsoluteMaxDistanceKm,
		"INTEGRITY_MAX_DURATION_HOURS":            &cfg.MaxDurationHours,
		"INTEGRITY_LONG_HAUL_MAX_DURATION_HOURS":  &cfg.LongHaulMaxDurationHours,
		"INTEGRITY_LONG_DURATION_WARN_HOURS":      &cfg.LongDurationWarnHours,
		"INTEGRITY_LONG_HAUL_DURATION_WARN_HOURS": &cfg.LongHaulDurationWarnHours,
		"INTEGRITY_MAX_SPEED_KMH":                 &cfg.MaxSpeedKmh,
		"INTEGRITY_HIGH_SPEED_WARN_KMH":           &cfg.HighSpeedWarnKmh,
		"INTEGRITY_SPEED_CHECK_MIN_DISTANCE_KM":   &cfg.SpeedCheckMinDistanceKm,
		"INTEGRITY_MIN_EFFICIENCY_KMPL":           &cfg.MinEfficiencyKmpl,
		"INTEGRITY_MAX_EFFICIENCY_KMPL":           &cfg.MaxEfficiencyKmpl,
		"INTEGRITY_LOW_EFFICIENCY_WARN_KMPL":      &cfg.LowEfficiencyWarnKmpl,
		"INTEGRITY_HIGH_EFFICIENCY_WARN_KMPL":     &cfg.HighEfficiencyWarnKmpl,
		"INTEGRITY_MAX_FUEL_LITERS":               &cfg.MaxFuelLiters,
		"INTEGRITY_SHORT_DISTANCE_WARN_KM":        &cfg.ShortDistanceWarnKm,
		"INTEGRITY_MAINTENANCE_MAX_KM":            &cfg.MaintenanceMaxKm,
		"INTEGRITY_TEST_MAX_KM":                   &cfg.TestMaxKm,
		"INTEGRITY_REFUEL_ONLY_MAX_KM":            &cfg.RefuelOnlyMaxKm,
		"INTEGRITY_OVERLAP_HIGH_MINUTES":          &cfg.OverlapHighMinutes,
	}
	for key, target := range floats {
		if v.IsSet(key) {
			*target = v.GetFloat64(key)
		}
	}

	if v.IsSet("INTEGRITY_BASELINE_MIN_SAMPLES") {
		cfg.BaselineMinSamples = v.GetInt("INTEGRITY_BASELINE_MIN_SAMPLES")
	}
	if v.IsSet("INTEGRITY_BASELINE_WINDOW") {
		cfg.BaselineWindow = v.GetInt("INTEGRITY_BASELINE_WINDOW")
	}
	cfg.ConvertBlockedHardDelete = v.GetBool("INTEGRITY_CONVERT_BLOCKED_HARD_DELETE")

	money := map[string]*decimal.Decimal{
		"INTEGRITY_FUEL_EXPENSE_WARN":   &cfg.FuelExpenseWarn,
		"INTEGRITY_DRIVER_EXPENSE_WARN": &cfg.DriverExpenseWarn,
		"INTEGRITY_TOLL_EXPENSE_WARN":   &cfg.TollExpenseWarn,
	}
	for key, target := range money {
		if !v.IsSet(key) {
			continue
		}
		if d, err := decimal.NewFromString(v.GetString(key)); err == nil {
			*target = d
		}
	}

	return cfg
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Serial.NodeID < 0 || cfg.Serial.NodeID > 1023 {
		return fmt.Errorf("SERIAL_NODE_ID must be between 0 and 1023")
	}
	return cfg.Integrity.Validate()
}

// Validate rejects threshold sets whose warning bands fall outside their rejection bands.
func (c IntegrityConfig) Validate() error {
	switch {
	case c.LargeGapKm <= 0:
		return fmt.Errorf("INTEGRITY_LARGE_GAP_KM must be positive")
	case c.MaxDistanceKm <= 0 || c.LongHaulMaxDistanceKm < c.MaxDistanceKm:
		return fmt.Errorf("INTEGRITY_LONG_HAUL_MAX_DISTANCE_KM must be at least INTEGRITY_MAX_DISTANCE_KM")
	case c.AbsoluteMaxDistanceKm < c.LongHaulMaxDistanceKm:
		return fmt.Errorf("INTEGRITY_ABSOLUTE_MAX_DISTANCE_KM must be at least INTEGRITY_LONG_HAUL_MAX_DISTANCE_KM")
	case c.MaxDurationHours <= 0 || c.LongHaulMaxDurationHours < c.MaxDurationHours:
		return fmt.Errorf("INTEGRITY_LONG_HAUL_MAX_DURATION_HOURS must be at least INTEGRITY_MAX_DURATION_HOURS")
	case c.LongDurationWarnHours > c.MaxDurationHours:
		return fmt.Errorf("INTEGRITY_LONG_DURATION_WARN_HOURS must not exceed INTEGRITY_MAX_DURATION_HOURS")
	case c.LongHaulDurationWarnHours > c.LongHaulMaxDurationHours:
		return fmt.Errorf("INTEGRITY_LONG_HAUL_DURATION_WARN_HOURS must not exceed INTEGRITY_LONG_HAUL_MAX_DURATION_HOURS")
	case c.HighSpeedWarnKmh > c.MaxSpeedKmh:
		return fmt.Errorf("INTEGRITY_HIGH_SPEED_WARN_KMH must not exceed INTEGRITY_MAX_SPEED_KMH")
	case c.MinEfficiencyKmpl < 0 || c.MaxEfficiencyKmpl <= c.MinEfficiencyKmpl:
		return fmt.Errorf("INTEGRITY_MAX_EFFICIENCY_KMPL must exceed INTEGRITY_MIN_EFFICIENCY_KMPL")
	case c.LowEfficiencyWarnKmpl < c.MinEfficiencyKmpl || c.HighEfficiencyWarnKmpl > c.MaxEfficiencyKmpl ||
		c.LowEfficiencyWarnKmpl > c.HighEfficiencyWarnKmpl:
		return fmt.Errorf("efficiency warning band must sit inside the efficiency rejection band")
	case c.MaxFuelLiters <= 0:
		return fmt.Errorf("INTEGRITY_MAX_FUEL_LITERS must be positive")
	case c.BaselineMinSamples < 2 || c.BaselineWindow < c.BaselineMinSamples:
		return fmt.Errorf("INTEGRITY_BASELINE_WINDOW must be at least INTEGRITY_BASELINE_MIN_SAMPLES (minimum 2)")
	}
	return nil
}
