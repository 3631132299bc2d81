package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultMedicalServices is the service catalog used when MEDICAL_SERVICES
// is not set.
var DefaultMedicalServices = []string{
	"Internal Medicine",
	"General Surgery",
	"Pediatrics",
	"Cardiology",
	"Neurology",
	"Psychiatry",
	"Radiology",
	"Rehabilitation",
}

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	LogLevel        string   `mapstructure:"LOG_LEVEL"`
	BedCount        int      `mapstructure:"BED_COUNT"`
	MedicalServices []string `mapstructure:"MEDICAL_SERVICES"`
	RateLimitRPS    float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `mapstructure:"RATE_LIMIT_BURST"`
	CensusSchedule  string   `mapstructure:"CENSUS_SCHEDULE"`
	ReportScope     string   `mapstructure:"REPORT_SCOPE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BED_COUNT", 300)
	v.SetDefault("MEDICAL_SERVICES", strings.Join(DefaultMedicalServices, ","))
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CENSUS_SCHEDULE", "@every 15m")
	v.SetDefault("REPORT_SCOPE", "all")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("BED_COUNT")
	v.BindEnv("MEDICAL_SERVICES")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("CENSUS_SCHEDULE")
	v.BindEnv("REPORT_SCOPE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.MedicalServices == nil {
		cfg.MedicalServices = strings.Split(v.GetString("MEDICAL_SERVICES"), ",")
	}
	cfg.MedicalServices = cleanList(cfg.MedicalServices)
	cfg.ReportScope = strings.ToLower(strings.TrimSpace(cfg.ReportScope))
	// viper skips empty env vars, but an empty schedule disables the census.
	if schedule, ok := os.LookupEnv("CENSUS_SCHEDULE"); ok {
		cfg.CensusSchedule = schedule
	}
	cfg.CensusSchedule = strings.TrimSpace(cfg.CensusSchedule)

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Level returns the zerolog level for LOG_LEVEL, falling back to info when it
// is empty.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// CensusEnabled reports whether the periodic census job should run.
func (c *Config) CensusEnabled() bool {
	return c.CensusSchedule != ""
}

// Validate checks that the configuration is usable before anything is
// started.
func (c *Config) Validate() error {
	if c.BedCount <= 0 {
		return fmt.Errorf("BED_COUNT must be positive, got %d", c.BedCount)
	}
	if len(c.MedicalServices) == 0 {
		return fmt.Errorf("MEDICAL_SERVICES must name at least one service")
	}
	seen := make(map[string]bool, len(c.MedicalServices))
	for _, s := range c.MedicalServices {
		if seen[s] {
			return fmt.Errorf("MEDICAL_SERVICES lists %q twice", s)
		}
		seen[s] = true
	}
	if c.ReportScope != "all" && c.ReportScope != "occupied" {
		return fmt.Errorf("REPORT_SCOPE must be \"all\" or \"occupied\", got %q", c.ReportScope)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.CensusEnabled() {
		if _, err := cron.ParseStandard(c.CensusSchedule); err != nil {
			return fmt.Errorf("CENSUS_SCHEDULE %q: %w", c.CensusSchedule, err)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
