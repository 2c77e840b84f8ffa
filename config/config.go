package config

import (
	"time"

	"github.com/spf13/viper"
)

// GalleryConfig 控制删除协调器的行为。
type GalleryConfig struct {
	DocumentCollection string        `mapstructure:"documentCollection" yaml:"documentCollection"`
	AssetCollection    string        `mapstructure:"assetCollection" yaml:"assetCollection"`
	RetryBudget        int           `mapstructure:"retryBudget" yaml:"retryBudget"`
	BackoffBase        time.Duration `mapstructure:"backoffBase" yaml:"backoffBase"`
	Concurrency        int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// LayoutConfig 控制瀑布流布局的列数策略。
type LayoutConfig struct {
	MinColumnWidth int           `mapstructure:"minColumnWidth" yaml:"minColumnWidth"`
	MaxColumns     int           `mapstructure:"maxColumns" yaml:"maxColumns"`
	SnapRatios     bool          `mapstructure:"snapRatios" yaml:"snapRatios"`
	ResizeDebounce time.Duration `mapstructure:"resizeDebounce" yaml:"resizeDebounce"`
}

type Config struct {
	Server struct {
		Port    string        `mapstructure:"port" yaml:"port"`
		Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	} `mapstructure:"server" yaml:"server"`

	Database struct {
		Driver string `mapstructure:"driver" yaml:"driver"`
		URI    string `mapstructure:"uri" yaml:"uri"`
		Name   string `mapstructure:"name" yaml:"name"`
	} `mapstructure:"database" yaml:"database"`

	Storage struct {
		Driver   string `mapstructure:"driver" yaml:"driver"`
		Region   string `mapstructure:"region" yaml:"region"`
		Bucket   string `mapstructure:"bucket" yaml:"bucket"`
		Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	} `mapstructure:"storage" yaml:"storage"`

	Logger struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
		Path   string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"logger" yaml:"logger"`

	Gallery GalleryConfig `mapstructure:"gallery" yaml:"gallery"`

	Index struct {
		StaleAfter time.Duration `mapstructure:"staleAfter" yaml:"staleAfter"`
	} `mapstructure:"index" yaml:"index"`

	Layout LayoutConfig `mapstructure:"layout" yaml:"layout"`

	Maintenance struct {
		WorkerCount int `mapstructure:"workerCount" yaml:"workerCount"`
	} `mapstructure:"maintenance" yaml:"maintenance"`
}

var C *Config

// LoadConfig 读取 path 目录下的 config.yaml，并把结果写入全局的 C。
func LoadConfig(path string) (err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return
	}

	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return
	}
	cfg.ApplyDefaults()
	C = &cfg
	return
}

// Default 返回一份只包含默认值的配置，测试和内存模式使用。
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 为未填写的字段补上默认值。
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mongo"
	}
	if c.Database.Name == "" {
		c.Database.Name = "gallery"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "s3"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Path == "" {
		c.Logger.Path = "logs"
	}

	g := &c.Gallery
	if g.DocumentCollection == "" {
		g.DocumentCollection = "travel_entries"
	}
	if g.AssetCollection == "" {
		g.AssetCollection = "travel_media"
	}
	if g.RetryBudget <= 0 {
		g.RetryBudget = 3
	}
	if g.BackoffBase <= 0 {
		g.BackoffBase = time.Second
	}
	if g.Concurrency <= 0 {
		g.Concurrency = 4
	}

	if c.Index.StaleAfter <= 0 {
		c.Index.StaleAfter = time.Minute
	}

	l := &c.Layout
	if l.MinColumnWidth <= 0 {
		l.MinColumnWidth = 300
	}
	if l.MaxColumns < 0 {
		l.MaxColumns = 0
	}
	if l.ResizeDebounce <= 0 {
		l.ResizeDebounce = 150 * time.Millisecond
	}
}
