package config

import (
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	ONSAD  ONSADConfig  `yaml:"onsad" mapstructure:"onsad"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ImportConfig locates council datasets and sets per-council defaults.
type ImportConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	CouncilsFile  string `yaml:"councils_file" mapstructure:"councils_file"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
	DefaultSRID   int    `yaml:"default_srid" mapstructure:"default_srid"`
	KMLSRID       int    `yaml:"kml_srid" mapstructure:"kml_srid"`
	StationsName  string `yaml:"stations_name" mapstructure:"stations_name"`
	DistrictsName string `yaml:"districts_name" mapstructure:"districts_name"`
	CSVDelimiter  string `yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
}

// ONSADConfig configures the ONS Address Directory bulk load.
type ONSADConfig struct {
	Table     string `yaml:"table" mapstructure:"table"`
	Pattern   string `yaml:"pattern" mapstructure:"pattern"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// ServerConfig configures the read API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("POLLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "polling.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("import.data_dir", "data")
	v.SetDefault("import.councils_file", "councils.yaml")
	v.SetDefault("import.temp_dir", "")
	v.SetDefault("import.default_srid", 27700)
	v.SetDefault("import.kml_srid", 4326)
	v.SetDefault("import.stations_name", "polling_places")
	v.SetDefault("import.districts_name", "polling_districts")
	v.SetDefault("import.csv_delimiter", ",")
	v.SetDefault("onsad.table", "addressbase_onsad")
	v.SetDefault("onsad.pattern", "onsad_*.csv")
	v.SetDefault("onsad.batch_size", 50000)
	v.SetDefault("server.port", 8080)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "import":
		problems = append(problems, c.validateStore()...)
		if c.Import.DataDir == "" {
			problems = append(problems, "import.data_dir is required")
		}
		if c.Import.DefaultSRID <= 0 {
			problems = append(problems, "import.default_srid must be > 0")
		}
		if c.Import.KMLSRID <= 0 {
			problems = append(problems, "import.kml_srid must be > 0")
		}
		if c.Import.StationsName == "" || c.Import.DistrictsName == "" {
			problems = append(problems, "import.stations_name and import.districts_name are required")
		}
		if d := c.Import.CSVDelimiter; d != "tab" && d != `\t` && utf8.RuneCountInString(d) != 1 {
			problems = append(problems, "import.csv_delimiter must be a single character")
		}
	case "onsad":
		if c.Store.Driver != "postgres" {
			problems = append(problems, "onsad loads require store.driver=postgres")
		}
		problems = append(problems, c.validateStore()...)
		if c.ONSAD.Table == "" {
			problems = append(problems, "onsad.table is required")
		}
	case "serve":
		problems = append(problems, c.validateStore()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
	case "store":
		problems = append(problems, c.validateStore()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required for postgres"}
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return []string{"store.sqlite_path is required for sqlite"}
		}
	default:
		return []string{"store.driver must be postgres or sqlite"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
