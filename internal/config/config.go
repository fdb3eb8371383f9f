package config

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// GameConfig holds the classroom-game tuning knobs.
type GameConfig struct {
	StartingBalance  int64  `mapstructure:"starting_balance"`
	MinFundingGoal   int64  `mapstructure:"min_funding_goal"`
	MinForceInvest   int64  `mapstructure:"min_force_invest"`
	TeacherPassword  string `mapstructure:"teacher_password"`
	OperatorPassword string `mapstructure:"operator_password"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

var (
	appConfig *Config
	once      sync.Once
)

// Load reads configuration from the given file path (e.g. "config.yaml").
// If path is empty it defaults to "config.yaml" in the working directory.
// Environment variables prefixed with EEL_ override file values.
func Load(path string) (*Config, error) {
	var err error
	once.Do(func() {
		v := viper.New()

		if path == "" {
			v.SetConfigName("config")
			v.SetConfigType("yaml")
			v.AddConfigPath(".")
		} else {
			v.SetConfigFile(path)
		}

		v.SetEnvPrefix("EEL")
		v.AutomaticEnv()

		v.SetDefault("server.address", "0.0.0.0")
		v.SetDefault("server.port", 8080)
		v.SetDefault("database.path", "data/eelpool.db")
		v.SetDefault("jwt.expire_hours", 24)
		v.SetDefault("game.starting_balance", 10000)
		v.SetDefault("game.min_funding_goal", 1000)
		v.SetDefault("game.min_force_invest", 1000)

		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("read config: %w", err)
			return
		}

		var c Config
		if err = v.Unmarshal(&c); err != nil {
			err = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		appConfig = &c
	})

	if err != nil {
		return nil, err
	}
	return appConfig, nil
}

// Get returns the loaded global configuration. Call Load once at startup.
func Get() *Config {
	return appConfig
}
