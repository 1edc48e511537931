package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ═══════════════════════════════════════════════════════════════════════════
// 客户端配置
// ═══════════════════════════════════════════════════════════════════════════

// DefaultChunkSize 从响应体读取时单个块的默认上限
const DefaultChunkSize = 32 * 1024

// DefaultTimeout 非流式请求的默认超时
const DefaultTimeout = 120 * time.Second

// Config 客户端配置
//
// 基本用法：
//
//	cfg := &llm.Config{
//	    Type:   llm.ProviderTypeOpenAI,
//	    APIKey: "sk-xxx",
//	}
//
// 从文件加载：
//
//	cfg, err := llm.LoadConfigFile("openai.yaml")
//
// API Key 需显式提供，本包不读取环境变量。
type Config struct {
	// Provider 类型（默认 OpenAI）
	Type ProviderType `yaml:"type" json:"type"`

	APIKey       string `yaml:"api_key" json:"api_key"`
	Organization string `yaml:"organization,omitempty" json:"organization,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty" json:"base_url,omitempty"`

	// Timeout 仅作用于非流式请求；流式请求由 ctx 控制生命周期
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Headers 额外的请求头
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// ChunkSize 单次从响应体读取的最大字节数，默认 32 KiB
	ChunkSize int `yaml:"chunk_size,omitempty" json:"chunk_size,omitempty"`

	// Debug 打开请求与流的调试日志
	Debug bool `yaml:"debug,omitempty" json:"debug,omitempty"`
}

// DefaultConfig 返回默认配置，不指定类型时使用 OpenAI
func DefaultConfig(types ...ProviderType) Config {
	t := ProviderTypeOpenAI
	if len(types) > 0 {
		t = types[0]
	}
	return Config{
		Type:      t,
		BaseURL:   t.DefaultBaseURL(),
		Timeout:   DefaultTimeout,
		ChunkSize: DefaultChunkSize,
	}
}

// WithDefaults 返回补全默认值后的副本
func (c Config) WithDefaults() Config {
	if c.Type == "" {
		c.Type = ProviderTypeOpenAI
	}
	if c.BaseURL == "" {
		c.BaseURL = c.Type.DefaultBaseURL()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	return c
}

// Validate 验证配置
func (c *Config) Validate() error {
	t := c.Type
	if t == "" {
		t = ProviderTypeOpenAI
	}
	if c.BaseURL == "" && !t.IsValid() {
		return NewConfigError(fmt.Sprintf("unsupported provider type: %s", t), nil)
	}
	if t.RequiresAPIKey() && c.APIKey == "" {
		return NewConfigError("API key is required", nil)
	}
	if c.ChunkSize < 0 {
		return NewConfigError("chunk_size must not be negative", nil)
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 配置文件加载
// ═══════════════════════════════════════════════════════════════════════════

// LoadConfigFile 从 yaml/json 文件加载配置，格式由扩展名决定
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewConfigError("read config file", err)
	}
	return LoadConfigFromBytes(data, filepath.Ext(path))
}

// LoadConfigFromBytes 从字节数据加载配置
//
// format 支持 "yaml"、"yml"、"json"，允许带前导点（".yaml"）。
func LoadConfigFromBytes(data []byte, format string) (*Config, error) {
	cfg := &Config{}
	if err := Unmarshal(data, format, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Unmarshal 按格式解析 yaml/json 数据
//
// 供本包和 mock 包的配置加载共用。
func Unmarshal(data []byte, format string, out any) error {
	format = strings.TrimPrefix(strings.ToLower(format), ".")

	switch format {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, out); err != nil {
			return NewConfigError("parse YAML", err)
		}
	case "json":
		if err := json.Unmarshal(data, out); err != nil {
			return NewConfigError("parse JSON", err)
		}
	default:
		return NewConfigError(fmt.Sprintf("unsupported format: %s (expected yaml, yml, or json)", format), nil)
	}
	return nil
}
