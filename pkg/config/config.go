package config

// VideoService definition video_service YAML structure
type VideoService struct {
	Port string `mapstructure:"port"`
	IP   string `mapstructure:"ip"`

	Storage StorageConfig  `mapstructure:"storage"`
	FFmpeg  FFmpegConfig   `mapstructure:"ffmpeg"`
	Worker  WorkerConfig   `mapstructure:"worker"`
	Upload  UploadConfig   `mapstructure:"upload"`
	Publish PublishConfig  `mapstructure:"publish"`
	Events  EventsConfig   `mapstructure:"events"`

	PostgreSQL DatabaseConfig `mapstructure:"pg"`
	RabbitMQ   RabbitMQConfig `mapstructure:"rabbitmq"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

// StorageConfig definition local blob storage root
type StorageConfig struct {
	Root string `mapstructure:"root"`
}

// FFmpegConfig definition external transcoder binaries
type FFmpegConfig struct {
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	FFprobePath string `mapstructure:"ffprobe_path"`
}

// WorkerConfig definition transcode worker pool
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// UploadConfig definition upload limits
type UploadConfig struct {
	MaxFileSizeMB int `mapstructure:"max_file_size_mb"`
}

// PublishConfig definition optional MinIO rendition publication
type PublishConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	MinIO   MinIOConfig `mapstructure:"minio"`
}

// EventsConfig definition optional Kafka job event stream
type EventsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`

	RetryInterval int `mapstructure:"retry_interval"`
	RetryCount    int `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`

	RetryInterval int `mapstructure:"retry_interval"`
	RetryCount    int `mapstructure:"retry_count"`
}

// RabbitMQConfig definition rabbitmq setting
type RabbitMQConfig struct {
	IP       string `mapstructure:"ip"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	RetryInterval int `mapstructure:"retry_interval"`
	RetryCount    int `mapstructure:"retry_count"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	RedisDB int    `mapstructure:"redis_db"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}
