package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"codeberg.org/mutker/obsctl/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultAPIBaseURL      = "http://localhost:8000/api"
	DefaultWeatherURL      = "https://api.open-meteo.com/v1/forecast"
	DefaultInterval        = 10 * time.Second
	DefaultWeatherInterval = 60 * time.Second
	DefaultRequestTimeout  = 5 * time.Second
	DefaultLatitude        = -33.8559799094
	DefaultLongitude       = 151.20666584
	DefaultTimezone        = "Australia/Sydney"
	DefaultListen          = ":8080"
	DefaultSettingsDB      = "/var/lib/obsctl/settings.db"
	DefaultLogLevel        = "info"

	defaultEnvPrefix  = "OBSCTL"
	defaultConfigFile = "/etc/obsctl.toml"
)

type Config struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	WeatherURL      string        `mapstructure:"weather_url"`
	Interval        time.Duration `mapstructure:"interval"`
	WeatherInterval time.Duration `mapstructure:"weather_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	Latitude        float64       `mapstructure:"latitude"`
	Longitude       float64       `mapstructure:"longitude"`
	Timezone        string        `mapstructure:"timezone"`
	Listen          string        `mapstructure:"listen"`
	SettingsDB      string        `mapstructure:"settings_db"`
	GeometryPreset  string        `mapstructure:"geometry_preset"`
	LogLevel        string        `mapstructure:"log_level"`
	PIDFile         string        `mapstructure:"pid_file"`

	location *time.Location
}

// Load reads configuration from defaults, the config file, the environment
// and the process command line.
func Load(opts ...Option) (*Config, error) {
	return LoadArgs(os.Args[1:], opts...)
}

// LoadArgs is Load with an explicit argument list.
func LoadArgs(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("obsctl", pflag.ContinueOnError)
	flags.String("config", "", "Path to config file")
	flags.String("api-base-url", DefaultAPIBaseURL, "Control server base URL")
	flags.Duration("interval", DefaultInterval, "Telemetry polling interval")
	flags.Duration("weather-interval", DefaultWeatherInterval, "Minimum time between weather fetches")
	flags.Duration("request-timeout", DefaultRequestTimeout, "Per-request timeout")
	flags.Float64("latitude", DefaultLatitude, "Site latitude in degrees")
	flags.Float64("longitude", DefaultLongitude, "Site longitude in degrees")
	flags.String("listen", DefaultListen, "Dashboard listen address")
	flags.String("settings-db", DefaultSettingsDB, "Path to the geometry settings database")
	flags.String("geometry-preset", "", "TOML geometry preset used when no settings are stored")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	flags.String("pid-file", "", "Path to the PID file")

	if err := flags.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Only flags explicitly set on the command line override file values
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	configPath := o.configPath
	if path, _ := flags.GetString("config"); path != "" {
		configPath = path
	}
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_base_url", DefaultAPIBaseURL)
	v.SetDefault("weather_url", DefaultWeatherURL)
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("weather_interval", DefaultWeatherInterval)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("latitude", DefaultLatitude)
	v.SetDefault("longitude", DefaultLongitude)
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("listen", DefaultListen)
	v.SetDefault("settings_db", DefaultSettingsDB)
	v.SetDefault("geometry_preset", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("pid_file", filepath.Join(os.TempDir(), "obsctl.pid"))
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil
		}
		v.SetConfigFile(defaultConfigFile)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks value ranges and resolves the site time zone
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.WeatherInterval < 0 || c.RequestTimeout <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, struct {
			WeatherInterval time.Duration
			RequestTimeout  time.Duration
		}{c.WeatherInterval, c.RequestTimeout})
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return errFactory.WithData(errors.ErrInvalidLocation, struct {
			Latitude  float64
			Longitude float64
		}{c.Latitude, c.Longitude})
	}

	level := LogLevel(strings.ToLower(c.LogLevel))
	if level == "warn" {
		level = LogLevelWarning
	}
	if !level.IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}
	c.LogLevel = level.String()

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errFactory.Wrap(errors.ErrInvalidConfig, err).WithData(c.Timezone)
	}
	c.location = loc

	return nil
}

// Location returns the site time zone, falling back to local time
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func (c *Config) GetAPIBaseURL() string             { return c.APIBaseURL }
func (c *Config) GetInterval() time.Duration        { return c.Interval }
func (c *Config) GetWeatherInterval() time.Duration { return c.WeatherInterval }
func (c *Config) GetLocation() (lat, lon float64)   { return c.Latitude, c.Longitude }
func (c *Config) GetLogLevel() string               { return c.LogLevel }
