package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	DashScope DashScopeConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DashScopeConfig holds the generation provider endpoints and tuning.
type DashScopeConfig struct {
	APIKey         string
	ImageModel     string
	ImageEndpoint  string
	VideoT2VModel  string
	VideoI2VModel  string
	VideoEndpoint  string
	TaskEndpoint   string
	PollInterval   time.Duration
	PollDeadline   time.Duration
	RequestTimeout time.Duration
}

type PipelineConfig struct {
	ProjectsDir    string
	MaxRunning     int
	WorkerInterval time.Duration
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("DASHSCOPE_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("dashscope.api_key", "DASHSCOPE_API_KEY")
	_ = viper.BindEnv("dashscope.image_model", "IMAGE_MODEL")
	_ = viper.BindEnv("dashscope.image_endpoint", "IMAGE_ENDPOINT")
	_ = viper.BindEnv("dashscope.video_t2v_model", "VIDEO_T2V_MODEL")
	_ = viper.BindEnv("dashscope.video_i2v_model", "VIDEO_I2V_MODEL")
	_ = viper.BindEnv("dashscope.video_endpoint", "VIDEO_ENDPOINT")
	_ = viper.BindEnv("dashscope.task_endpoint", "TASK_ENDPOINT")
	_ = viper.BindEnv("dashscope.poll_interval_sec", "POLL_INTERVAL_SEC")
	_ = viper.BindEnv("dashscope.poll_deadline_sec", "POLL_DEADLINE_SEC")
	_ = viper.BindEnv("dashscope.request_timeout_sec", "REQUEST_TIMEOUT_SEC")
	_ = viper.BindEnv("pipeline.projects_dir", "PROJECTS_DIR")
	_ = viper.BindEnv("pipeline.max_running", "MAX_RUNNING")
	_ = viper.BindEnv("pipeline.worker_interval_ms", "WORKER_INTERVAL_MS")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")

	// DashScope defaults
	viper.SetDefault("dashscope.image_model", "wanx2.1-t2i-turbo")
	viper.SetDefault("dashscope.image_endpoint",
		"https://dashscope.aliyuncs.com/api/v1/services/aigc/text2image/image-synthesis")
	viper.SetDefault("dashscope.video_t2v_model", "wanx2.1-t2v-turbo")
	viper.SetDefault("dashscope.video_i2v_model", "wanx2.1-i2v-turbo")
	viper.SetDefault("dashscope.video_endpoint",
		"https://dashscope.aliyuncs.com/api/v1/services/aigc/text2video/video-synthesis")
	viper.SetDefault("dashscope.task_endpoint", "https://dashscope.aliyuncs.com/api/v1/tasks")
	viper.SetDefault("dashscope.poll_interval_sec", 5)
	viper.SetDefault("dashscope.poll_deadline_sec", 600)
	viper.SetDefault("dashscope.request_timeout_sec", 30)

	// Pipeline defaults
	viper.SetDefault("pipeline.projects_dir", "./projects")
	viper.SetDefault("pipeline.max_running", 1)
	viper.SetDefault("pipeline.worker_interval_ms", 500)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		DashScope: DashScopeConfig{
			APIKey:         viper.GetString("dashscope.api_key"),
			ImageModel:     viper.GetString("dashscope.image_model"),
			ImageEndpoint:  viper.GetString("dashscope.image_endpoint"),
			VideoT2VModel:  viper.GetString("dashscope.video_t2v_model"),
			VideoI2VModel:  viper.GetString("dashscope.video_i2v_model"),
			VideoEndpoint:  viper.GetString("dashscope.video_endpoint"),
			TaskEndpoint:   viper.GetString("dashscope.task_endpoint"),
			PollInterval:   time.Duration(viper.GetInt("dashscope.poll_interval_sec")) * time.Second,
			PollDeadline:   time.Duration(viper.GetInt("dashscope.poll_deadline_sec")) * time.Second,
			RequestTimeout: time.Duration(viper.GetInt("dashscope.request_timeout_sec")) * time.Second,
		},
		Pipeline: PipelineConfig{
			ProjectsDir:    viper.GetString("pipeline.projects_dir"),
			MaxRunning:     viper.GetInt("pipeline.max_running"),
			WorkerInterval: time.Duration(viper.GetInt("pipeline.worker_interval_ms")) * time.Millisecond,
		},
	}

	return cfg, nil
}
