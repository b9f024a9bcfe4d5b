package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the host application configuration.
type Config struct {
	Serial SerialConfig `yaml:"serial"`
	ADC    ADCConfig    `yaml:"adc"`
	Dump   DumpConfig   `yaml:"dump"`
	Plot   PlotConfig   `yaml:"plot"`
	Logger Record       `yaml:"logger"`
	Sim    SimConfig    `yaml:"sim"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ADCConfig describes the analog front end of the logger.
type ADCConfig struct {
	VRef       float32 `yaml:"vref"`       // Reference voltage (V)
	Resolution int     `yaml:"resolution"` // ADC resolution in bits
}

// DumpConfig contains dump file parameters.
type DumpConfig struct {
	File    string `yaml:"file"`
	Average int    `yaml:"average"` // Number of samples averaged per plotted point
}

// PlotConfig contains plot window parameters.
type PlotConfig struct {
	MaxPoints int     `yaml:"max_points"`
	Width     float32 `yaml:"width"`
	Height    float32 `yaml:"height"`
}

// SimConfig contains simulated logger configuration.
type SimConfig struct {
	Dir        string        `yaml:"dir"`         // Directory emulating the flash volume
	BlockSize  int           `yaml:"block_size"`  // Flash erase block size (bytes)
	BlockCount int           `yaml:"block_count"` // Number of blocks in the volume
	TimeScale  float64       `yaml:"time_scale"`  // Simulated seconds per wall clock second
	PauseFile  string        `yaml:"pause_file"`  // Sampling blocks while this file exists
	Level      float64       `yaml:"level"`       // Daylight sensor peak (V)
	NoiseLevel float64       `yaml:"noise_level"` // Sensor noise (V)
	Settle     time.Duration `yaml:"settle"`      // Delay before the first sample
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:     "COM9", // Default for Windows, "/dev/ttyACM0" on Linux
			BaudRate: 115200,
		},
		ADC: ADCConfig{
			VRef:       3.3,
			Resolution: 12,
		},
		Dump: DumpConfig{
			File:    "dumpfile.dat",
			Average: 10,
		},
		Plot: PlotConfig{
			MaxPoints: 1000,
			Width:     1000,
			Height:    500,
		},
		Logger: DefaultRecord(),
		Sim: SimConfig{
			Dir:        "flash",
			BlockSize:  4096,
			BlockCount: 352, // 1408 KiB, the flash left to the filesystem on a Pico
			TimeScale:  1,
			PauseFile:  "pause",
			Level:      2.5,
			NoiseLevel: 0.01,
			Settle:     time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Logger.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger settings: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.ADC.VRef == 0 {
		c.ADC.VRef = def.ADC.VRef
	}
	if c.ADC.Resolution == 0 {
		c.ADC.Resolution = def.ADC.Resolution
	}

	if c.Dump.File == "" {
		c.Dump.File = def.Dump.File
	}
	if c.Dump.Average <= 0 {
		c.Dump.Average = def.Dump.Average
	}

	if c.Plot.MaxPoints <= 0 {
		c.Plot.MaxPoints = def.Plot.MaxPoints
	}
	if c.Plot.Width == 0 {
		c.Plot.Width = def.Plot.Width
	}
	if c.Plot.Height == 0 {
		c.Plot.Height = def.Plot.Height
	}

	if c.Logger.EpochDate == 0 {
		c.Logger.EpochDate = def.Logger.EpochDate
	}
	if c.Logger.Interval == 0 {
		c.Logger.Interval = def.Logger.Interval
	}

	if c.Sim.Dir == "" {
		c.Sim.Dir = def.Sim.Dir
	}
	if c.Sim.BlockSize == 0 {
		c.Sim.BlockSize = def.Sim.BlockSize
	}
	if c.Sim.BlockCount == 0 {
		c.Sim.BlockCount = def.Sim.BlockCount
	}
	if c.Sim.TimeScale <= 0 {
		c.Sim.TimeScale = def.Sim.TimeScale
	}
	if c.Sim.PauseFile == "" {
		c.Sim.PauseFile = def.Sim.PauseFile
	}
	if c.Sim.Level == 0 {
		c.Sim.Level = def.Sim.Level
	}
}
