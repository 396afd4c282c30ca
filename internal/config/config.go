package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("picad.config")

type Config struct {
	BaseDir   string `env:"BASE_DIR"`
	StatePath string `env:"STATE_PATH"`
	KeyFile   string `env:"KEY_FILE"`
	SnapDir   string `env:"SNAP_DIR"`

	LCDRows    int `env:"LCD_ROWS"    envDefault:"2"`
	LCDColumns int `env:"LCD_COLUMNS" envDefault:"16"`
	PinCount   int `env:"PIN_COUNT"   envDefault:"5"`

	SPIPort      string        `env:"SPI_PORT"      envDefault:"SPI0.1"`
	InterruptPin string        `env:"INTERRUPT_PIN" envDefault:"GPIO25"`
	Debounce     time.Duration `env:"DEBOUNCE"      envDefault:"200ms"`

	CameraCommand string        `env:"CAMERA_COMMAND"`
	CameraWidth   int           `env:"CAMERA_WIDTH"   envDefault:"1024"`
	CameraHeight  int           `env:"CAMERA_HEIGHT"  envDefault:"768"`
	CameraWarmup  time.Duration `env:"CAMERA_WARMUP"  envDefault:"1s"`
	UploadMaxDim  int           `env:"UPLOAD_MAX_DIM" envDefault:"1024"`
	MaxLabels     int64         `env:"MAX_LABELS"     envDefault:"10"`
	Preview       bool          `env:"PREVIEW"`

	SoundDir      string        `env:"SOUND_DIR"`
	RecordCommand string        `env:"RECORD_COMMAND" envDefault:"arecord"`
	PlayCommand   string        `env:"PLAY_COMMAND"   envDefault:"aplay"`
	RecordLength  time.Duration `env:"RECORD_LENGTH"  envDefault:"5s"`
	LanguageCode  string        `env:"LANGUAGE_CODE"  envDefault:"en-US"`
	VoiceGender   string        `env:"VOICE_GENDER"   envDefault:"FEMALE"`

	DatabaseDSN       string `env:"DATABASE_DSN"`
	TelegramToken     string `env:"TELEGRAM_TOKEN"`
	TelegramChannelID int64  `env:"TELEGRAM_CHANNELID"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Get loads the configuration from the environment and an optional .env file
// next to the executable. Invalid configuration is fatal.
func Get() *Config {
	base := executableDir()
	if err := godotenv.Load(filepath.Join(base, ".env")); err != nil && !os.IsNotExist(err) {
		logger.Warningf("failed loading .env: %v", err)
	}

	cfg, err := Parse(env.Options{}, base)
	if err != nil {
		logger.Criticalf("invalid configuration: %v", err)
		os.Exit(1)
	}

	return cfg
}

// Parse fills a Config using opts, paths default to being relative to base.
func Parse(opts env.Options, base string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.BaseDir == "" {
		cfg.BaseDir = base
	}
	if cfg.StatePath == "" {
		cfg.StatePath = cfg.BaseDir
	}
	if cfg.KeyFile == "" {
		cfg.KeyFile = filepath.Join(cfg.BaseDir, "keyfile.json")
	}
	if cfg.SoundDir == "" {
		cfg.SoundDir = cfg.StatePath
	}
	if cfg.SnapDir == "" {
		cfg.SnapDir = filepath.Join(cfg.BaseDir, "snap")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	// the HD44780 addresses at most 4 rows
	if c.LCDRows < 1 || c.LCDRows > 4 {
		return fmt.Errorf("LCD_ROWS must be between 1 and 4, got %d", c.LCDRows)
	}
	if c.LCDColumns < 1 || c.LCDColumns > 40 {
		return fmt.Errorf("LCD_COLUMNS must be between 1 and 40, got %d", c.LCDColumns)
	}
	// port A of the expander has 8 inputs
	if c.PinCount < 1 || c.PinCount > 8 {
		return fmt.Errorf("PIN_COUNT must be between 1 and 8, got %d", c.PinCount)
	}
	if c.CameraWarmup < 0 {
		return fmt.Errorf("CAMERA_WARMUP cannot be negative, got %v", c.CameraWarmup)
	}
	if c.RecordLength <= 0 {
		return fmt.Errorf("RECORD_LENGTH must be positive, got %v", c.RecordLength)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("DEBOUNCE cannot be negative, got %v", c.Debounce)
	}
	if c.TelegramToken != "" && c.TelegramChannelID == 0 {
		return fmt.Errorf("TELEGRAM_CHANNELID is required when TELEGRAM_TOKEN is set")
	}

	return nil
}

// LoggerSpec is the loggo specification for the configured level.
func (c *Config) LoggerSpec() string {
	return "<root>=" + c.LogLevel
}

func executableDir() string {
	path, err := os.Executable()
	if err != nil {
		panic("os.Executable() failed! " + err.Error())
	}

	return filepath.Dir(path)
}
