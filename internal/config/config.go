package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	SIDRA  SIDRAConfig  `yaml:"sidra" mapstructure:"sidra"`
	Malha  MalhaConfig  `yaml:"malha" mapstructure:"malha"`
	Fetch  FetchConfig  `yaml:"fetch" mapstructure:"fetch"`
	Report ReportConfig `yaml:"report" mapstructure:"report"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SIDRAConfig configures the IBGE SIDRA aggregates client.
type SIDRAConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Table    int    `yaml:"table" mapstructure:"table"`
	Variable int    `yaml:"variable" mapstructure:"variable"`
	Period   string `yaml:"period" mapstructure:"period"`
}

// MalhaConfig configures municipal boundary acquisition.
type MalhaConfig struct {
	Source  string `yaml:"source" mapstructure:"source"` // "api" or "ftp"
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Quality string `yaml:"quality" mapstructure:"quality"` // minima, intermediaria, maxima
	FTPURL  string `yaml:"ftp_url" mapstructure:"ftp_url"`
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// FetchConfig configures HTTP fetch behavior.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ReportConfig configures report rendering.
type ReportConfig struct {
	OutDir      string `yaml:"out_dir" mapstructure:"out_dir"`
	Precision   int    `yaml:"precision" mapstructure:"precision"`
	PaletteFile string `yaml:"palette_file" mapstructure:"palette_file"`
	MapWidth    int    `yaml:"map_width" mapstructure:"map_width"`
	MapHeight   int    `yaml:"map_height" mapstructure:"map_height"`
	PageSize    int    `yaml:"page_size" mapstructure:"page_size"`
}

// ServerConfig configures the report server.
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
	v.SetEnvPrefix("CENSOMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "censomap.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("sidra.base_url", "https://apisidra.ibge.gov.br")
	v.SetDefault("sidra.table", 9605)
	v.SetDefault("sidra.variable", 93)
	v.SetDefault("sidra.period", "2022")
	v.SetDefault("malha.source", "api")
	v.SetDefault("malha.base_url", "https://servicodados.ibge.gov.br/api/v3/malhas")
	v.SetDefault("malha.quality", "minima")
	v.SetDefault("malha.ftp_url", "ftp://geoftp.ibge.gov.br/organizacao_do_territorio/malhas_territoriais/malhas_municipais/municipio_2022/Brasil/BR/BR_Municipios_2022.zip")
	v.SetDefault("malha.temp_dir", "/tmp/censomap")
	v.SetDefault("fetch.user_agent", "censomap/1.0")
	v.SetDefault("fetch.timeout_secs", 120)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("report.out_dir", "out")
	v.SetDefault("report.precision", 2)
	v.SetDefault("report.map_width", 960)
	v.SetDefault("report.map_height", 920)
	v.SetDefault("report.page_size", 25)

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
