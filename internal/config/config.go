package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	AWS        AWSConfig        `mapstructure:"aws"        validate:"required"`
	Queue      QueueConfig      `mapstructure:"queue"      validate:"required"`
	Storage    StorageConfig    `mapstructure:"storage"    validate:"required"`
	Worker     WorkerConfig     `mapstructure:"worker"     validate:"required"`
	Classifier ClassifierConfig `mapstructure:"classifier" validate:"required"`
	Autoscaler AutoscalerConfig `mapstructure:"autoscaler" validate:"required"`
	Correlator CorrelatorConfig `mapstructure:"correlator" validate:"required"`
}

// ServerConfig contains the HTTP gateway settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// ResultTimeout bounds how long a request waits for its result; 0 waits
	// until the client goes away
	ResultTimeout   time.Duration `mapstructure:"result_timeout"   validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes" validate:"gt=0"`
}

// AWSConfig contains settings shared by all AWS clients.
type AWSConfig struct {
	Region   string `mapstructure:"region"   validate:"required"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

// QueueConfig selects the queue transport and its polling parameters.
type QueueConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=sqs memory"`
	// RequestQueue and ResponseQueue are SQS queue names or URLs
	RequestQueue      string        `mapstructure:"request_queue"      validate:"required_if=Backend sqs"`
	ResponseQueue     string        `mapstructure:"response_queue"     validate:"required_if=Backend sqs"`
	DrainBatchSize    int           `mapstructure:"drain_batch_size"   validate:"gt=0,lte=10"`
	DrainWait         time.Duration `mapstructure:"drain_wait"         validate:"gt=0"`
	WorkerWait        time.Duration `mapstructure:"worker_wait"        validate:"gt=0"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"gt=0"`
}

// StorageConfig selects the blob backend.
type StorageConfig struct {
	Backend      string `mapstructure:"backend"       validate:"required,oneof=s3 gcs postgres memory"`
	InputBucket  string `mapstructure:"input_bucket"  validate:"required_unless=Backend memory"`
	OutputBucket string `mapstructure:"output_bucket" validate:"required_unless=Backend memory"`
	DatabaseURL  string `mapstructure:"database_url"  validate:"required_if=Backend postgres"`
}

// WorkerConfig contains the worker loop settings.
type WorkerConfig struct {
	InputExtension string        `mapstructure:"input_extension" validate:"required"`
	IdleDelay      time.Duration `mapstructure:"idle_delay"      validate:"gt=0"`
	MaxIdleDelay   time.Duration `mapstructure:"max_idle_delay"  validate:"gtefield=IdleDelay"`
	PublishRetries uint64        `mapstructure:"publish_retries"`
	TempDir        string        `mapstructure:"temp_dir"`
}

// ClassifierConfig selects and configures the classifier.
type ClassifierConfig struct {
	Backend      string        `mapstructure:"backend"        validate:"required,oneof=exec gemini"`
	Command      string        `mapstructure:"command"        validate:"required_if=Backend exec"`
	Timeout      time.Duration `mapstructure:"timeout"        validate:"gte=0"`
	GeminiAPIKey string        `mapstructure:"gemini_api_key" validate:"required_if=Backend gemini"`
	GeminiModel  string        `mapstructure:"gemini_model"   validate:"required_if=Backend gemini"`
	Prompt       string        `mapstructure:"prompt"`
	MaxRetries   uint64        `mapstructure:"max_retries"`
}

// AutoscalerConfig contains the fleet bounds and control loop settings.
type AutoscalerConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	Fleet              string        `mapstructure:"fleet"                validate:"required,oneof=ec2 local"`
	MinInstances       int           `mapstructure:"min_instances"        validate:"gte=0,ltefield=MaxInstances"`
	MaxInstances       int           `mapstructure:"max_instances"        validate:"gte=0"`
	ScaleUpThreshold   int           `mapstructure:"scale_up_threshold"   validate:"gte=0"`
	ScaleDownThreshold int           `mapstructure:"scale_down_threshold" validate:"gte=0"`
	Interval           time.Duration `mapstructure:"interval"             validate:"gt=0"`
	InstanceTag        string        `mapstructure:"instance_tag"         validate:"required"`
	InstanceType       string        `mapstructure:"instance_type"        validate:"required"`
	ImageID            string        `mapstructure:"image_id"             validate:"required_if=Enabled true Fleet ec2"`
	KeyName            string        `mapstructure:"key_name"`
	SecurityGroupIDs   []string      `mapstructure:"security_group_ids"`
	UserData           string        `mapstructure:"user_data"`
}

// CorrelatorConfig contains the result cache settings.
type CorrelatorConfig struct {
	// EntryTTL is how long an unclaimed result is cached; 0 keeps it forever
	EntryTTL     time.Duration `mapstructure:"entry_ttl"     validate:"gte=0"`
	ReapInterval time.Duration `mapstructure:"reap_interval" validate:"gt=0"`
	TombstoneTTL time.Duration `mapstructure:"tombstone_ttl" validate:"gte=0"`
}
