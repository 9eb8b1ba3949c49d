package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"sitestatus/internal/structures"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	if flags.EnvFile != "" {
		if err := godotenv.Load(flags.EnvFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("unable to load env file %s: %w", flags.EnvFile, err)
		}
	}

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	setDefaults(v)

	v.BindEnv("logger.level", "SITESTATUS_LOG_LEVEL")
	v.BindEnv("webServer.port", "SITESTATUS_PORT")
	v.BindEnv("storage.path", "SITESTATUS_STORAGE_PATH")
	v.BindEnv("queue.driver", "SITESTATUS_QUEUE_DRIVER")
	v.BindEnv("queue.redis.addr", "SITESTATUS_REDIS_ADDR")
	v.BindEnv("queue.redis.password", "SITESTATUS_REDIS_PASSWORD")
	v.BindEnv("delivery.workers", "SITESTATUS_DELIVERY_WORKERS")
	v.BindEnv("cache.enabled", "SITESTATUS_CACHE_ENABLED")
	v.BindEnv("metrics.enabled", "SITESTATUS_METRICS_ENABLED")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SiteStatus"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8080)
	v.SetDefault("storage.feedBuffer", 1024)
	v.SetDefault("storage.tables.status", "site-status")
	v.SetDefault("storage.tables.subscribers", "status-subscribers")
	v.SetDefault("storage.tables.phase", "phase-status")
	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.buffer", 1024)
	v.SetDefault("queue.deliveryName", "status-delivery")
	v.SetDefault("queue.streamName", "datastream-incoming")
	v.SetDefault("queue.redis.blockTimeout", time.Second)
	v.SetDefault("delivery.batchSize", 10)
	v.SetDefault("delivery.workers", 4)
	v.SetDefault("delivery.sendTimeout", 2*time.Second)
	v.SetDefault("forecast.retention", 96*time.Hour)
	v.SetDefault("subscribers.ttl", 24*time.Hour)
	v.SetDefault("subscribers.sweepInterval", 10*time.Minute)
	v.SetDefault("phase.ttl", 24*time.Hour)
	v.SetDefault("phase.maxAge", time.Hour)
	v.SetDefault("phase.maxItems", 1)
	v.SetDefault("snapshot.saveInterval", 5*time.Minute)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("cache.size", 16)
	v.SetDefault("cache.ttl", 2*time.Second)
}
