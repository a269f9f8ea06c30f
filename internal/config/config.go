package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wegman-software/osmmaps-go/internal/closer"
	"github.com/wegman-software/osmmaps-go/internal/geo"
)

// BBox represents a geographic bounding box
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
	IsSet                          bool
}

// Contains checks if a point is within the bounding box
func (b *BBox) Contains(lat, lon float64) bool {
	if !b.IsSet {
		return true
	}
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Bounds converts the box to geo bounds; unset boxes give empty bounds
func (b *BBox) Bounds() geo.Bounds {
	if b == nil || !b.IsSet {
		return geo.EmptyBounds()
	}
	return geo.NewBounds(
		geo.LatLon{Lat: b.MinLat, Lon: b.MinLon},
		geo.LatLon{Lat: b.MaxLat, Lon: b.MaxLon})
}

// ParseBBox parses a bbox string in format "minlon,minlat,maxlon,maxlat"
func ParseBBox(s string) (*BBox, error) {
	if s == "" {
		return &BBox{IsSet: false}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values: minlon,minlat,maxlon,maxlat")
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	bbox := &BBox{
		MinLon: coords[0],
		MinLat: coords[1],
		MaxLon: coords[2],
		MaxLat: coords[3],
		IsSet:  true,
	}

	if bbox.MinLon > bbox.MaxLon {
		return nil, fmt.Errorf("minlon (%f) must be <= maxlon (%f)", bbox.MinLon, bbox.MaxLon)
	}
	if bbox.MinLat > bbox.MaxLat {
		return nil, fmt.Errorf("minlat (%f) must be <= maxlat (%f)", bbox.MinLat, bbox.MaxLat)
	}

	return bbox, nil
}

// ParseLatLon parses "lat,lon"
func ParseLatLon(s string) (geo.LatLon, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return geo.LatLon{}, fmt.Errorf("point must be lat,lon: %q", s)
	}
	var p geo.LatLon
	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return geo.LatLon{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	if p.Lon, err = strconv.ParseFloat(strings.TrimSpace(lon), 64); err != nil {
		return geo.LatLon{}, fmt.Errorf("invalid longitude %q: %w", lon, err)
	}
	return p, nil
}

// Config holds the global configuration. Keys in the YAML config file and
// OSMMAPS_* environment variables use the mapstructure names.
type Config struct {
	// Input settings
	BBoxString string `mapstructure:"bbox"`
	BBox       *BBox  `mapstructure:"-"` // overrides the input's bounds when set

	// Output settings
	OutputDir      string `mapstructure:"output_dir"`
	Projection     int    `mapstructure:"projection"` // Target SRID (4326 or 3857)
	StyleFile      string `mapstructure:"style"`
	ClassifyScript string `mapstructure:"classify_script"`

	// Database settings
	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBName     string `mapstructure:"db_name"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBSchema   string `mapstructure:"db_schema"`

	// Processing settings
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`

	// Closer settings
	Direction           string  `mapstructure:"direction"`
	MaxBoundaryDistance float64 `mapstructure:"max_boundary_distance"` // metres, 0 for no limit
	Coastline           bool    `mapstructure:"coastline"`

	// Logging and metrics
	Verbose         bool          `mapstructure:"verbose"`
	LogFile         string        `mapstructure:"log_file"`
	MetricsInterval time.Duration `mapstructure:"metrics_interval"`
	MetricsTextfile string        `mapstructure:"metrics_textfile"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		OutputDir:       "./osm_data",
		Projection:      4326,
		DBHost:          "localhost",
		DBPort:          5432,
		DBName:          "osm",
		DBUser:          "postgres",
		DBSchema:        "public",
		Workers:         runtime.NumCPU(),
		BatchSize:       10000,
		Direction:       "cw",
		Coastline:       true,
		MetricsInterval: 30 * time.Second,
	}
}

func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("bbox", c.BBoxString)
	v.SetDefault("output_dir", c.OutputDir)
	v.SetDefault("projection", c.Projection)
	v.SetDefault("style", c.StyleFile)
	v.SetDefault("classify_script", c.ClassifyScript)
	v.SetDefault("db_host", c.DBHost)
	v.SetDefault("db_port", c.DBPort)
	v.SetDefault("db_name", c.DBName)
	v.SetDefault("db_user", c.DBUser)
	v.SetDefault("db_password", c.DBPassword)
	v.SetDefault("db_schema", c.DBSchema)
	v.SetDefault("workers", c.Workers)
	v.SetDefault("batch_size", c.BatchSize)
	v.SetDefault("direction", c.Direction)
	v.SetDefault("max_boundary_distance", c.MaxBoundaryDistance)
	v.SetDefault("coastline", c.Coastline)
	v.SetDefault("verbose", c.Verbose)
	v.SetDefault("log_file", c.LogFile)
	v.SetDefault("metrics_interval", c.MetricsInterval)
	v.SetDefault("metrics_textfile", c.MetricsTextfile)
}

// Load merges, from lowest to highest priority, DefaultConfig, the YAML file
// at path (optional; "" searches ./osmmaps.yaml), OSMMAPS_* environment
// variables and any flags in flags that were set on the command line. Flag
// names map to keys by replacing "-" with "_".
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("osmmaps")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("OSMMAPS")
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	bbox, err := ParseBBox(cfg.BBoxString)
	if err != nil {
		return nil, err
	}
	cfg.BBox = bbox
	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser,
	)
	if c.DBPassword != "" {
		connStr += fmt.Sprintf(" password=%s", c.DBPassword)
	}
	return connStr
}

// CloserDirection parses the configured closing direction
func (c *Config) CloserDirection() (closer.Direction, error) {
	return closer.ParseDirection(c.Direction)
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Projection != 4326 && c.Projection != 3857 {
		return fmt.Errorf("unsupported projection %d (want 4326 or 3857)", c.Projection)
	}
	if c.MaxBoundaryDistance < 0 {
		return fmt.Errorf("max boundary distance must not be negative")
	}
	if _, err := c.CloserDirection(); err != nil {
		return err
	}
	return nil
}
