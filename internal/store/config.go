package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Broker struct {
		Host               string `yaml:"host"`
		MainPort           int    `yaml:"main_port"`
		StreamPort         int    `yaml:"stream_port"`
		AppName            string `yaml:"app_name"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"broker"`
	Chart struct {
		Symbol    string `yaml:"symbol"`
		Timeframe string `yaml:"timeframe"`
		Capacity  int    `yaml:"capacity"`
	} `yaml:"chart"`
	Timeouts struct {
		RequestSeconds   int `yaml:"request_seconds"`
		KeepAliveSeconds int `yaml:"keep_alive_seconds"`
	} `yaml:"timeouts"`
	Indicators struct {
		SMAWindow int     `yaml:"sma_window"`
		BBWindow  int     `yaml:"bb_window"`
		BBStdDev  float64 `yaml:"bb_stddev"`
	} `yaml:"indicators"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) Validate() error {
	if c.Broker.Host == "" {
		return errors.New("broker.host cannot be empty")
	}
	if c.Broker.MainPort <= 0 || c.Broker.StreamPort <= 0 {
		return fmt.Errorf("broker ports must be positive, got main=%d stream=%d",
			c.Broker.MainPort, c.Broker.StreamPort)
	}
	if c.Chart.Symbol == "" {
		return errors.New("chart.symbol cannot be empty")
	}
	if c.Chart.Capacity < 2 {
		return fmt.Errorf("chart.capacity must be at least 2, got %d", c.Chart.Capacity)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Chart.Timeframe == "" {
		c.Chart.Timeframe = "M1"
	}
	if c.Chart.Capacity == 0 {
		c.Chart.Capacity = 2000
	}
	if c.Timeouts.RequestSeconds == 0 {
		c.Timeouts.RequestSeconds = 15
	}
	if c.Timeouts.KeepAliveSeconds == 0 {
		c.Timeouts.KeepAliveSeconds = 10
	}
	if c.Indicators.SMAWindow == 0 {
		c.Indicators.SMAWindow = 20
	}
	if c.Indicators.BBWindow == 0 {
		c.Indicators.BBWindow = 20
	}
	if c.Indicators.BBStdDev == 0 {
		c.Indicators.BBStdDev = 2.0
	}
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}
