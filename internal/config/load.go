package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (prefix REELCHEF_, dots as underscores) take
// precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("llm.provider", "llamacpp")
	v.SetDefault("llm.server_url", "http://llm:6998")
	v.SetDefault("llm.response_timeout_seconds", 600)
	v.SetDefault("extractor.base_url", "http://extractor:9000")
	v.SetDefault("scheduler.queue_size", 100)
	v.SetDefault("scheduler.recent_tasks", 50)

	// Keys without a meaningful default still need to be known to viper so
	// AutomaticEnv can populate them during Unmarshal.
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "")
	v.SetDefault("llm.system_prompt_path", "")
	v.SetDefault("mealie.base_url", "")
	v.SetDefault("mealie.token", "")

	// Optional config file in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables: REELCHEF_MEALIE_BASE_URL, REELCHEF_LLM_SERVER_URL, ...
	v.SetEnvPrefix("REELCHEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
