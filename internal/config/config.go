package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Harvest struct {
		SourceOrigin        string `yaml:"source_origin"`
		MaxPages            int    `yaml:"max_pages"`
		Concurrency         int    `yaml:"concurrency"`
		PolitenessMS        int    `yaml:"politeness_ms"`
		FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
		UserAgent           string `yaml:"user_agent"`
		Referer             string `yaml:"referer"`
		ScheduleSeconds     int    `yaml:"schedule_seconds"` // 0 disables scheduled harvests
		ScheduleURL         string `yaml:"schedule_url"`
	} `yaml:"harvest"`

	Rates struct {
		Endpoint       string  `yaml:"endpoint"`
		Currency       string  `yaml:"currency"`
		Fallback       float64 `yaml:"fallback"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"rates"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) Politeness() time.Duration {
	return time.Duration(c.Harvest.PolitenessMS) * time.Millisecond
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Harvest.FetchTimeoutSeconds) * time.Second
}

func (c Config) RatesTimeout() time.Duration {
	return time.Duration(c.Rates.TimeoutSeconds) * time.Second
}
