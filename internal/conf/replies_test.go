package conf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRepliesConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadRepliesConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.InitSuccess != "设置成功" {
		t.Errorf("Expected default init_success, got %q", cfg.InitSuccess)
	}
	if cfg.Persona == "" {
		t.Error("Expected non-empty default persona")
	}
}

func TestLoadRepliesConfigPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	if err := os.WriteFile(path, []byte("persona: \"你是一位诗人\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadRepliesConfig(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Persona != "你是一位诗人" {
		t.Errorf("Expected persona from file, got %q", cfg.Persona)
	}
	if cfg.InitFailure != "设置失败" {
		t.Errorf("Expected default init_failure, got %q", cfg.InitFailure)
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error without credentials")
	}

	cfg.WeChat.AppID = "id"
	cfg.WeChat.AppSecret = "secret"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error without OpenAI key")
	}

	cfg.OpenAI.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
