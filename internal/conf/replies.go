package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RepliesConfig contains the persona prompt and all user-facing reply
// strings, loaded from YAML. The account's audience is Chinese, so the
// defaults are Chinese.
type RepliesConfig struct {
	Persona     string `yaml:"persona"`
	Welcome     string `yaml:"welcome"`
	Unsupported string `yaml:"unsupported"`
	SlowNotice  string `yaml:"slow_notice"`
	AIFailure   string `yaml:"ai_failure"`
	InitSuccess string `yaml:"init_success"`
	InitFailure string `yaml:"init_failure"`
	ImageUsage  string `yaml:"image_usage"`
	ImageResult string `yaml:"image_result"` // %s = image URL
}

// LoadRepliesConfig loads reply configuration from a YAML file.
func LoadRepliesConfig(configPath string) (*RepliesConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/replies.yaml",
			"./configs/replies.yaml",
			"/etc/wechat-gpt-bridge/replies.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "replies.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		// Return default config if no file found
		fmt.Println("[Config] No replies.yaml found, using defaults")
		return DefaultRepliesConfig(), nil
	}

	fmt.Printf("[Config] Loading replies from: %s\n", loadedPath)

	var config RepliesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse replies.yaml: %w", err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *RepliesConfig) fillDefaults() {
	defaults := DefaultRepliesConfig()
	if c.Persona == "" {
		c.Persona = defaults.Persona
	}
	if c.Welcome == "" {
		c.Welcome = defaults.Welcome
	}
	if c.Unsupported == "" {
		c.Unsupported = defaults.Unsupported
	}
	if c.SlowNotice == "" {
		c.SlowNotice = defaults.SlowNotice
	}
	if c.AIFailure == "" {
		c.AIFailure = defaults.AIFailure
	}
	if c.InitSuccess == "" {
		c.InitSuccess = defaults.InitSuccess
	}
	if c.InitFailure == "" {
		c.InitFailure = defaults.InitFailure
	}
	if c.ImageUsage == "" {
		c.ImageUsage = defaults.ImageUsage
	}
	if c.ImageResult == "" {
		c.ImageResult = defaults.ImageResult
	}
}

// DefaultRepliesConfig returns the built-in reply strings.
func DefaultRepliesConfig() *RepliesConfig {
	return &RepliesConfig{
		Persona:     "你是一个乐于助人的智能助手，请用简洁友好的中文回答问题。",
		Welcome:     "感谢关注！我是接入了 AI 的聊天助手，直接发送文字即可对话，输入 /help 查看全部指令。",
		Unsupported: "抱歉，我目前只能处理文字消息。",
		SlowNotice:  "请稍等，正在努力思考中…",
		AIFailure:   "哎呀，AI 开小差了，请稍后再试。",
		InitSuccess: "设置成功",
		InitFailure: "设置失败",
		ImageUsage:  "用法：/image <描述>",
		ImageResult: "图片已生成：%s",
	}
}
