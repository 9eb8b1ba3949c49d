package structures

import "time"

type Server struct {
	Host string `mapstructure:"host" yaml:"host" validate:"required"`
	Port int    `mapstructure:"port" yaml:"port" validate:"required|uint|min:1"`
}

type Tables struct {
	Status      string `mapstructure:"status" yaml:"status" validate:"required"`
	Subscribers string `mapstructure:"subscribers" yaml:"subscribers" validate:"required"`
	Phase       string `mapstructure:"phase" yaml:"phase" validate:"required"`
}

type StorageConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	InMemory   bool   `mapstructure:"inMemory" yaml:"inMemory"`
	FeedBuffer int    `mapstructure:"feedBuffer" yaml:"feedBuffer"`
	Tables     Tables `mapstructure:"tables" yaml:"tables"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	Password     string        `mapstructure:"password" yaml:"password"`
	DB           int           `mapstructure:"db" yaml:"db"`
	BlockTimeout time.Duration `mapstructure:"blockTimeout" yaml:"blockTimeout"`
}

type QueueConfig struct {
	Driver       string      `mapstructure:"driver" yaml:"driver" validate:"required|in:memory,redis"`
	Buffer       int         `mapstructure:"buffer" yaml:"buffer"`
	DeliveryName string      `mapstructure:"deliveryName" yaml:"deliveryName" validate:"required"`
	StreamName   string      `mapstructure:"streamName" yaml:"streamName" validate:"required"`
	Redis        RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type DeliveryConfig struct {
	BatchSize   int           `mapstructure:"batchSize" yaml:"batchSize" validate:"required|min:1"`
	Workers     int           `mapstructure:"workers" yaml:"workers" validate:"required|min:1"`
	SendTimeout time.Duration `mapstructure:"sendTimeout" yaml:"sendTimeout"`
}

type ForecastConfig struct {
	Retention time.Duration `mapstructure:"retention" yaml:"retention" validate:"required|min:1"`
}

type SubscribersConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"required|min:1"`
	SweepInterval time.Duration `mapstructure:"sweepInterval" yaml:"sweepInterval"`
}

type PhaseConfig struct {
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"required|min:1"`
	MaxAge   time.Duration `mapstructure:"maxAge" yaml:"maxAge"`
	MaxItems int           `mapstructure:"maxItems" yaml:"maxItems"`
}

type SnapshotConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled"`
	FilePath       string        `mapstructure:"filePath" yaml:"filePath"`
	SaveInterval   time.Duration `mapstructure:"saveInterval" yaml:"saveInterval"`
	RestoreOnStart bool          `mapstructure:"restoreOnStart" yaml:"restoreOnStart"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `mapstructure:"mode" yaml:"mode" validate:"required|uint"`
	Dir   string `mapstructure:"dir" yaml:"dir" validate:"required|unixPath"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled" yaml:"enabled"`
	Size    int           `mapstructure:"size" yaml:"size"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server            `mapstructure:"webServer" yaml:"webServer"`
	Storage     StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Queue       QueueConfig       `mapstructure:"queue" yaml:"queue"`
	Delivery    DeliveryConfig    `mapstructure:"delivery" yaml:"delivery"`
	Forecast    ForecastConfig    `mapstructure:"forecast" yaml:"forecast"`
	Subscribers SubscribersConfig `mapstructure:"subscribers" yaml:"subscribers"`
	Phase       PhaseConfig       `mapstructure:"phase" yaml:"phase"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot" yaml:"snapshot"`
	Logger      LoggerConfig      `mapstructure:"logger" yaml:"logger"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
}
