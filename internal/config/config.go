package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 汇总全部运行配置，来源为 config.yaml + NEWSHUB_ 前缀的环境变量覆盖
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"app"`

	Database struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"redis"`

	Upstream struct {
		BaseURL        string `mapstructure:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"upstream"`

	Sync struct {
		CronSpec          string `mapstructure:"cron_spec"`
		PageSize          int    `mapstructure:"page_size"`
		MaxPages          int    `mapstructure:"max_pages"`
		Workers           int    `mapstructure:"workers"`
		RunTimeoutSeconds int    `mapstructure:"run_timeout_seconds"`
	} `mapstructure:"sync"`
}

// UpstreamTimeout 单页拉取的超时
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// RunTimeout 整轮同步的超时，超时后在途写入跑完、剩余候选不再派发
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Sync.RunTimeoutSeconds) * time.Second
}

// Load 读取配置。没有配置文件时按默认值 + 环境变量运行。
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("NEWSHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Println("config: no config file found, using defaults and env")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: port=%s cron=%q upstream=%s", cfg.App.Port, cfg.Sync.CronSpec, cfg.Upstream.BaseURL)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "9000")
	v.SetDefault("database.dsn", "host=localhost user=newshub password=newshub dbname=newshub port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("upstream.base_url", "http://localhost:3000")
	v.SetDefault("upstream.timeout_seconds", 10)
	v.SetDefault("sync.cron_spec", "0 * * * *")
	v.SetDefault("sync.page_size", 100)
	v.SetDefault("sync.max_pages", 5)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.run_timeout_seconds", 300)
}
