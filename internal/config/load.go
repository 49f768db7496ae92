package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// VISIONGW_QUEUE_BACKEND for queue.backend.
const EnvPrefix = "VISIONGW"

// defaults lists every key so that AutomaticEnv can populate keys that have
// no file value. Empty strings mark optional keys.
var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.result_timeout":   "0s",
	"server.shutdown_timeout": "10s",
	"server.max_upload_bytes": 32 << 20,

	"aws.region":   "us-east-1",
	"aws.endpoint": "",

	"queue.backend":            "sqs",
	"queue.request_queue":      "",
	"queue.response_queue":     "",
	"queue.drain_batch_size":   10,
	"queue.drain_wait":         "1s",
	"queue.worker_wait":        "20s",
	"queue.visibility_timeout": "30s",

	"storage.backend":       "s3",
	"storage.input_bucket":  "",
	"storage.output_bucket": "",
	"storage.database_url":  "",

	"worker.input_extension": ".jpg",
	"worker.idle_delay":      "1s",
	"worker.max_idle_delay":  "30s",
	"worker.publish_retries": 3,
	"worker.temp_dir":        "",

	"classifier.backend":        "exec",
	"classifier.command":        "python3 face_recognition.py",
	"classifier.timeout":        "0s",
	"classifier.gemini_api_key": "",
	"classifier.gemini_model":   "gemini-2.0-flash",
	"classifier.prompt":         "",
	"classifier.max_retries":    3,

	"autoscaler.enabled":              true,
	"autoscaler.fleet":                "ec2",
	"autoscaler.min_instances":        0,
	"autoscaler.max_instances":        19,
	"autoscaler.scale_up_threshold":   1,
	"autoscaler.scale_down_threshold": 1,
	"autoscaler.interval":             "20s",
	"autoscaler.instance_tag":         "app-tier-instance",
	"autoscaler.instance_type":        "t2.micro",
	"autoscaler.image_id":             "",
	"autoscaler.key_name":             "",
	"autoscaler.security_group_ids":   []string{},
	"autoscaler.user_data":            "",

	"correlator.entry_ttl":     "0s",
	"correlator.reap_interval": "1m",
	"correlator.tombstone_ttl": "5m",
}

// Load reads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. An empty
// configFile looks for config.yaml in the working directory and tolerates its
// absence; an explicit path must exist.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
