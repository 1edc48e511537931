package mock

import (
	_ "embed"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

//go:embed examples/streams.yaml
var exampleConfigYAML []byte

// Config 配置文件结构
type Config struct {
	// Delay 所有场景的默认块间延迟（如 "10ms"）
	Delay string `yaml:"delay,omitempty" json:"delay,omitempty"`

	// Scenarios 场景列表（通过 name 标识）
	Scenarios []Scenario `yaml:"scenarios" json:"scenarios"`
}

// Scenario 一次响应的剧本
//
// Chunks 按原样逐块发送，块边界可以落在帧或分隔符中间，
// 用来复现真实网络上的任意切分。
type Scenario struct {
	// Name 场景名称（必需）
	Name string `yaml:"name" json:"name"`

	// Description 说明（可选，仅用于文档）
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Status HTTP 状态码，默认 200
	Status int `yaml:"status,omitempty" json:"status,omitempty"`

	// ContentType 响应类型，默认 text/event-stream
	ContentType string `yaml:"content_type,omitempty" json:"content_type,omitempty"`

	// Chunks 依次发送的字节块
	Chunks []string `yaml:"chunks" json:"chunks"`

	// Error 传输错误消息，非空时在发送 ErrorAfter 个块后中断
	Error      string `yaml:"error,omitempty" json:"error,omitempty"`
	ErrorAfter int    `yaml:"error_after,omitempty" json:"error_after,omitempty"`

	// Delay 块间延迟（如 "5ms"），为空时使用 Config.Delay
	Delay string `yaml:"delay,omitempty" json:"delay,omitempty"`
}

// LoadConfigFile 从文件加载配置
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadConfigFromBytes(data, filepath.Ext(path))
}

// LoadConfigFromBytes 从字节数据加载配置，format 支持 yaml/yml/json
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg := &Config{}
	if err := llm.Unmarshal(data, format, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadExampleConfig 加载内嵌的示例配置
func LoadExampleConfig() (*Config, error) {
	return LoadConfigFromBytes(exampleConfigYAML, "yaml")
}

// Scenario 按名称查找场景，场景未设置延迟时继承 Config.Delay
func (c *Config) Scenario(name string) (Scenario, bool) {
	for _, s := range c.Scenarios {
		if s.Name == name {
			if s.Delay == "" {
				s.Delay = c.Delay
			}
			return s, true
		}
	}
	return Scenario{}, false
}

// Names 所有场景名称
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Scenarios))
	for _, s := range c.Scenarios {
		names = append(names, s.Name)
	}
	return names
}

func (c *Config) validate() error {
	if _, err := parseDelay(c.Delay); err != nil {
		return llm.NewConfigError("invalid delay", err)
	}

	seen := make(map[string]bool, len(c.Scenarios))
	for i, s := range c.Scenarios {
		if s.Name == "" {
			return llm.NewConfigError(fmt.Sprintf("scenario #%d has no name", i), nil)
		}
		if seen[s.Name] {
			return llm.NewConfigError(fmt.Sprintf("duplicate scenario %q", s.Name), nil)
		}
		seen[s.Name] = true

		if _, err := parseDelay(s.Delay); err != nil {
			return llm.NewConfigError(fmt.Sprintf("scenario %q: invalid delay", s.Name), err)
		}
		if s.ErrorAfter < 0 || s.ErrorAfter > len(s.Chunks) {
			return llm.NewConfigError(fmt.Sprintf("scenario %q: error_after out of range", s.Name), nil)
		}
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 场景辅助
// ═══════════════════════════════════════════════════════════════════════════

// DelayDuration 解析后的块间延迟，无效或为空时为 0
func (s Scenario) DelayDuration() time.Duration {
	d, _ := parseDelay(s.Delay)
	return d
}

// StatusCode HTTP 状态码，默认 200
func (s Scenario) StatusCode() int {
	if s.Status == 0 {
		return http.StatusOK
	}
	return s.Status
}

// Body 所有块拼接后的完整响应体
func (s Scenario) Body() string {
	n := 0
	for _, c := range s.Chunks {
		n += len(c)
	}
	b := make([]byte, 0, n)
	for _, c := range s.Chunks {
		b = append(b, c...)
	}
	return string(b)
}

// Source 按场景创建块来源
func (s Scenario) Source() *Source {
	src := NewSource(s.Chunks...).WithDelay(s.DelayDuration())
	if s.Error != "" {
		src = src.WithError(fmt.Errorf("%s", s.Error), s.ErrorAfter)
	}
	return src
}

func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
