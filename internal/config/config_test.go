package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if c.GUI.Title != "Emotion Detector" || c.GUI.Width != 800 || c.GUI.Height != 600 {
		t.Errorf("unexpected window defaults: %+v", c.GUI)
	}
	if c.GUI.FrameInterval() != 10*time.Millisecond {
		t.Errorf("expected 10ms frame interval, got %v", c.GUI.FrameInterval())
	}
	if c.Voice.Detector().PollInterval != 100*time.Millisecond {
		t.Errorf("expected 100ms poll interval")
	}
	d := c.Face.Detection()
	if d.ScaleFactor != 1.1 || d.MinNeighbors != 5 || d.MinSize != 30 || d.TileSize != 48 {
		t.Errorf("unexpected detection defaults: %+v", d)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Text.Backend != BackendHF || c.Voice.SampleRate != 16000 {
		t.Errorf("expected defaults, got %+v", c)
	}
	if c.Text.URL != "https://api-inference.huggingface.co" || c.Text.Model != "j-hartmann/emotion-english-distilroberta-base" {
		t.Errorf("expected Hugging Face endpoint, got %s %s", c.Text.URL, c.Text.Model)
	}
}

func TestSaveAndLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.Text.Backend = BackendOllama
	c.Text.URL = "http://localhost:11434"
	c.Face.MinSize = 40

	if err := c.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if loaded.Text.Backend != BackendOllama || loaded.Face.MinSize != 40 {
		t.Errorf("values not preserved: %+v", loaded)
	}
	if loaded.Voice.NMFCC != 13 {
		t.Errorf("untouched values should keep defaults, got n_mfcc=%d", loaded.Voice.NMFCC)
	}
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := Default()
	c.Log.Level = "debug"
	if err := c.SaveToFile(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("expected debug level, got %s", loaded.Log.Level)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("gui:\n  width: 1024\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.GUI.Width != 1024 || c.GUI.Height != 600 {
		t.Errorf("unexpected gui config: %+v", c.GUI)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("EMOTION_TEXT_BACKEND", BackendLlamaCpp)
	t.Setenv("EMOTION_TEXT_TOKEN", "secret")
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Text.Backend != BackendLlamaCpp {
		t.Errorf("expected env override, got %s", c.Text.Backend)
	}
	if c.Text.Token != "secret" {
		t.Errorf("expected token from env, got %q", c.Text.Token)
	}
}

func TestEnvBackendSwitchSelectsBackendDefaults(t *testing.T) {
	tests := []struct {
		backend string
		url     string
		model   string
	}{
		{BackendOllama, DefaultOllamaURL, DefaultOllamaModel},
		{BackendLlamaCpp, DefaultLlamaCppURL, DefaultLlamaCppModel},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			t.Setenv("EMOTION_TEXT_BACKEND", tt.backend)
			c, err := Load("")
			if err != nil {
				t.Fatal(err)
			}
			if c.Text.URL != tt.url || c.Text.Model != tt.model {
				t.Errorf("expected %s %s, got %s %s", tt.url, tt.model, c.Text.URL, c.Text.Model)
			}
			if err := c.Validate(); err != nil {
				t.Errorf("switched config should be valid: %v", err)
			}
		})
	}
}

func TestFileBackendSwitchSelectsBackendDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backend.yaml")
	if err := os.WriteFile(path, []byte("text:\n  backend: llamacpp\n"), 0644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Text.URL != DefaultLlamaCppURL {
		t.Errorf("expected llama.cpp endpoint, got %s", c.Text.URL)
	}
}

func TestExplicitURLSurvivesBackendSwitch(t *testing.T) {
	t.Setenv("EMOTION_TEXT_BACKEND", BackendOllama)
	t.Setenv("EMOTION_TEXT_URL", "http://gpu-box:11434")
	t.Setenv("EMOTION_TEXT_MODEL", "mistral")
	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.Text.URL != "http://gpu-box:11434" || c.Text.Model != "mistral" {
		t.Errorf("explicit values should win, got %s %s", c.Text.URL, c.Text.Model)
	}
}

func TestWithBackendDefaults(t *testing.T) {
	tc := TextConfig{Backend: BackendHF}.WithBackendDefaults()
	if tc.URL != "https://api-inference.huggingface.co" {
		t.Errorf("unexpected hf url: %s", tc.URL)
	}
	tc = TextConfig{Backend: "unknown"}.WithBackendDefaults()
	if tc.URL != "" || tc.Model != "" {
		t.Errorf("unknown backend should stay empty, got %+v", tc)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"scale factor", func(c *Config) { c.Face.ScaleFactor = 1 }},
		{"quality", func(c *Config) { c.Face.Quality = 0 }},
		{"backend", func(c *Config) { c.Text.Backend = "openai" }},
		{"url", func(c *Config) { c.Text.URL = "ftp://example.com" }},
		{"timeout", func(c *Config) { c.Text.TimeoutSeconds = 0 }},
		{"channels", func(c *Config) { c.Voice.Channels = 0 }},
		{"n_fft", func(c *Config) { c.Voice.NFFT = 1023 }},
		{"window", func(c *Config) { c.GUI.Width = 0 }},
		{"frame interval", func(c *Config) { c.GUI.FrameIntervalMS = 0 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	if filepath.Base(GetConfigPath()) != "config.yaml" {
		t.Errorf("unexpected config path: %s", GetConfigPath())
	}
}
