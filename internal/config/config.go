package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Mealie    MealieConfig    `mapstructure:"mealie"    validate:"required"`
	Extractor ExtractorConfig `mapstructure:"extractor" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// LLMConfig contains all inference backend related settings.
type LLMConfig struct {
	// Provider selects the generation backend.
	Provider string `mapstructure:"provider" validate:"required,oneof=llamacpp gemini"`

	// ServerURL is the base URL of the llama.cpp server (llamacpp provider).
	ServerURL string `mapstructure:"server_url" validate:"required_if=Provider llamacpp,omitempty,url"`

	// ResponseTimeoutSeconds bounds a single chat completion call.
	ResponseTimeoutSeconds int `mapstructure:"response_timeout_seconds" validate:"required,gt=0"`

	// GeminiAPIKey and ModelName configure the gemini provider.
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	ModelName    string `mapstructure:"model_name"     validate:"required_if=Provider gemini"`

	// SystemPromptPath optionally overrides the compiled-in system prompt.
	SystemPromptPath string `mapstructure:"system_prompt_path"`
}

// MealieConfig contains the recipe store connection settings. Both fields
// are required at startup: a missing store endpoint or token is a fatal
// configuration error, surfaced before any task is accepted.
type MealieConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	Token   string `mapstructure:"token"    validate:"required"`
}

// ExtractorConfig contains the connection settings for the external
// fetch-and-transcribe service.
type ExtractorConfig struct {
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
}

// SchedulerConfig contains the task queue settings.
type SchedulerConfig struct {
	// QueueSize caps the number of pending tasks accepted before Submit
	// starts rejecting.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// RecentTasks bounds how many terminal tasks are retained for the
	// status view.
	RecentTasks int `mapstructure:"recent_tasks" validate:"gte=0"`
}
