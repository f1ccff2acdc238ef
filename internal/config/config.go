package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/menta2k/emotion-detector/pkg/audio"
	"github.com/menta2k/emotion-detector/pkg/features"
	"github.com/menta2k/emotion-detector/pkg/hf"
	"github.com/menta2k/emotion-detector/pkg/vision"
	"github.com/menta2k/emotion-detector/pkg/voice"
)

// EnvPrefix is the prefix of environment overrides, e.g. EMOTION_TEXT_BACKEND
const EnvPrefix = "EMOTION"

// Text backends
const (
	BackendHF       = "hf"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Per-backend endpoints used when text.url or text.model is left empty
const (
	DefaultOllamaURL     = "http://localhost:11435"
	DefaultOllamaModel   = "llama3.2"
	DefaultLlamaCppURL   = "http://localhost:8080"
	DefaultLlamaCppModel = "default"
)

// Config holds the application configuration
type Config struct {
	Face  FaceConfig  `json:"face" yaml:"face" mapstructure:"face"`
	Text  TextConfig  `json:"text" yaml:"text" mapstructure:"text"`
	Voice VoiceConfig `json:"voice" yaml:"voice" mapstructure:"voice"`
	GUI   GUIConfig   `json:"gui" yaml:"gui" mapstructure:"gui"`
	Log   LogConfig   `json:"log" yaml:"log" mapstructure:"log"`
}

// FaceConfig holds configuration for the face pipeline
type FaceConfig struct {
	CascadePath  string  `json:"cascade_path" yaml:"cascade_path" mapstructure:"cascade_path"`
	Device       int     `json:"device" yaml:"device" mapstructure:"device"`
	ScaleFactor  float64 `json:"scale_factor" yaml:"scale_factor" mapstructure:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors" yaml:"min_neighbors" mapstructure:"min_neighbors"`
	MinSize      int     `json:"min_size" yaml:"min_size" mapstructure:"min_size"`
	TileSize     int     `json:"tile_size" yaml:"tile_size" mapstructure:"tile_size"`
	Quality      int     `json:"quality" yaml:"quality" mapstructure:"quality"`
}

// TextConfig holds configuration for the text classifier backend
type TextConfig struct {
	Backend        string `json:"backend" yaml:"backend" mapstructure:"backend"`
	URL            string `json:"url" yaml:"url" mapstructure:"url"`
	Model          string `json:"model" yaml:"model" mapstructure:"model"`
	Token          string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// VoiceConfig holds configuration for recording and feature extraction
type VoiceConfig struct {
	SampleRate      int `json:"sample_rate" yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels        int `json:"channels" yaml:"channels" mapstructure:"channels"`
	FramesPerBuffer int `json:"frames_per_buffer" yaml:"frames_per_buffer" mapstructure:"frames_per_buffer"`
	PollIntervalMS  int `json:"poll_interval_ms" yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	NFFT            int `json:"n_fft" yaml:"n_fft" mapstructure:"n_fft"`
	HopLength       int `json:"hop_length" yaml:"hop_length" mapstructure:"hop_length"`
	NMels           int `json:"n_mels" yaml:"n_mels" mapstructure:"n_mels"`
	NMFCC           int `json:"n_mfcc" yaml:"n_mfcc" mapstructure:"n_mfcc"`
}

// GUIConfig holds configuration for the desktop window
type GUIConfig struct {
	Title           string `json:"title" yaml:"title" mapstructure:"title"`
	Width           int    `json:"width" yaml:"width" mapstructure:"width"`
	Height          int    `json:"height" yaml:"height" mapstructure:"height"`
	FrameIntervalMS int    `json:"frame_interval_ms" yaml:"frame_interval_ms" mapstructure:"frame_interval_ms"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Default returns a configuration with default values
func Default() *Config {
	dc := vision.DefaultConfig()
	fc := features.DefaultConfig()
	sc := audio.DefaultStreamConfig()
	return &Config{
		Face: FaceConfig{
			CascadePath:  "data/haarcascade_frontalface_default.xml",
			Device:       0,
			ScaleFactor:  dc.ScaleFactor,
			MinNeighbors: dc.MinNeighbors,
			MinSize:      dc.MinSize,
			TileSize:     dc.TileSize,
			Quality:      90,
		},
		Text: TextConfig{
			Backend:        BackendHF,
			TimeoutSeconds: 30,
		},
		Voice: VoiceConfig{
			SampleRate:      sc.SampleRate,
			Channels:        sc.Channels,
			FramesPerBuffer: sc.FramesPerBuffer,
			PollIntervalMS:  100,
			NFFT:            fc.NFFT,
			HopLength:       fc.HopLength,
			NMels:           fc.NMels,
			NMFCC:           fc.NMFCC,
		},
		GUI: GUIConfig{
			Title:           "Emotion Detector",
			Width:           800,
			Height:          600,
			FrameIntervalMS: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from the defaults, the optional file at path
// and EMOTION_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	base, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(base); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// token is omitted from the defaults so it has to be bound explicitly
	if err := v.BindEnv("text.token"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	config.Text = config.Text.WithBackendDefaults()
	return &config, nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(filename string) (*Config, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(filename)
}

// SaveToFile saves configuration as YAML when the extension is .yaml or .yml
// and as JSON otherwise
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Face.ScaleFactor <= 1 {
		return fmt.Errorf("face.scale_factor must be greater than 1")
	}
	if c.Face.MinNeighbors < 0 {
		return fmt.Errorf("face.min_neighbors cannot be negative")
	}
	if c.Face.MinSize < 1 || c.Face.TileSize < 1 {
		return fmt.Errorf("face.min_size and face.tile_size must be positive")
	}
	if c.Face.Quality < 1 || c.Face.Quality > 100 {
		return fmt.Errorf("face.quality must be between 1 and 100")
	}

	switch c.Text.Backend {
	case BackendHF, BackendOllama, BackendLlamaCpp:
	default:
		return fmt.Errorf("text.backend must be one of %s, %s, %s", BackendHF, BackendOllama, BackendLlamaCpp)
	}
	if c.Text.URL != "" && !strings.HasPrefix(c.Text.URL, "http://") && !strings.HasPrefix(c.Text.URL, "https://") {
		return fmt.Errorf("text.url must be an http or https URL")
	}
	if c.Text.TimeoutSeconds < 1 {
		return fmt.Errorf("text.timeout_seconds must be positive")
	}

	if c.Voice.Channels < 1 {
		return fmt.Errorf("voice.channels must be positive")
	}
	if c.Voice.FramesPerBuffer < 1 || c.Voice.PollIntervalMS < 1 {
		return fmt.Errorf("voice.frames_per_buffer and voice.poll_interval_ms must be positive")
	}
	if err := c.Voice.Features().Validate(); err != nil {
		return fmt.Errorf("voice: %w", err)
	}

	if c.GUI.Width < 1 || c.GUI.Height < 1 {
		return fmt.Errorf("gui.width and gui.height must be positive")
	}
	if c.GUI.FrameIntervalMS < 1 {
		return fmt.Errorf("gui.frame_interval_ms must be positive")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// Detection returns the face detection parameters
func (f FaceConfig) Detection() vision.DetectionConfig {
	return vision.DetectionConfig{
		ScaleFactor:  f.ScaleFactor,
		MinNeighbors: f.MinNeighbors,
		MinSize:      f.MinSize,
		TileSize:     f.TileSize,
	}
}

// WithBackendDefaults fills an empty URL or model with the defaults of the
// selected backend
func (t TextConfig) WithBackendDefaults() TextConfig {
	var url, model string
	switch t.Backend {
	case BackendHF:
		url, model = hf.DefaultBaseURL, hf.DefaultModel
	case BackendOllama:
		url, model = DefaultOllamaURL, DefaultOllamaModel
	case BackendLlamaCpp:
		url, model = DefaultLlamaCppURL, DefaultLlamaCppModel
	}
	if t.URL == "" {
		t.URL = url
	}
	if t.Model == "" {
		t.Model = model
	}
	return t
}

// Timeout returns the per-request timeout of the text backend
func (t TextConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Features returns the feature extraction parameters
func (v VoiceConfig) Features() features.Config {
	fc := features.DefaultConfig()
	fc.SampleRate = v.SampleRate
	fc.NFFT = v.NFFT
	fc.HopLength = v.HopLength
	fc.NMels = v.NMels
	fc.NMFCC = v.NMFCC
	return fc
}

// Detector returns the voice detector parameters
func (v VoiceConfig) Detector() voice.Config {
	return voice.Config{
		Stream: audio.StreamConfig{
			SampleRate:      v.SampleRate,
			Channels:        v.Channels,
			FramesPerBuffer: v.FramesPerBuffer,
		},
		PollInterval: time.Duration(v.PollIntervalMS) * time.Millisecond,
		Features:     v.Features(),
	}
}

// FrameInterval returns the camera polling period
func (g GUIConfig) FrameInterval() time.Duration {
	return time.Duration(g.FrameIntervalMS) * time.Millisecond
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.yaml"
	}
	return filepath.Join(home, ".config", "emotion-detector", "config.yaml")
}

func toMap(c *Config) (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	return m, nil
}
