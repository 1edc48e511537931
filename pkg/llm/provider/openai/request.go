package openai

import (
	"errors"
	"fmt"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// Completions 请求
// ═══════════════════════════════════════════════════════════════════════════

// CompletionRequest /completions 请求体
type CompletionRequest struct {
	Model            string   `json:"model"`
	Prompt           string   `json:"prompt"`
	Suffix           string   `json:"suffix,omitempty"`
	MaxTokens        int      `json:"max_tokens,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	N                int      `json:"n,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	PresencePenalty  float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64  `json:"frequency_penalty,omitempty"`
	User             string   `json:"user,omitempty"`
	Stream           bool     `json:"stream,omitempty"`
}

func (r *CompletionRequest) validate() error {
	if r == nil {
		return llm.NewRequestError("build", errors.New("request is required"))
	}
	if r.Model == "" {
		return llm.NewRequestError("build", errors.New("model is required"))
	}
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Chat Completions 请求
// ═══════════════════════════════════════════════════════════════════════════

// ChatCompletionRequest /chat/completions 请求体
type ChatCompletionRequest struct {
	Model            string            `json:"model"`
	Messages         []llm.ChatMessage `json:"messages"`
	MaxTokens        int               `json:"max_tokens,omitempty"`
	Temperature      *float64          `json:"temperature,omitempty"`
	TopP             *float64          `json:"top_p,omitempty"`
	N                int               `json:"n,omitempty"`
	Stop             []string          `json:"stop,omitempty"`
	PresencePenalty  float64           `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64           `json:"frequency_penalty,omitempty"`
	User             string            `json:"user,omitempty"`

	// ReasoningEffort 只对 Reasoning 模型发送
	ReasoningEffort ReasoningEffort `json:"reasoning_effort,omitempty"`

	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

// StreamOptions 流式选项
type StreamOptions struct {
	// IncludeUsage 在 [DONE] 之前追加一个只有 usage 的帧
	IncludeUsage bool `json:"include_usage"`
}

// build 校验并生成实际发送的请求体
//
// Reasoning 模型不接受 temperature/top_p，这两个字段会被去掉。
func (r *ChatCompletionRequest) build(stream bool) (*ChatCompletionRequest, error) {
	if r == nil {
		return nil, llm.NewRequestError("build", errors.New("request is required"))
	}
	if r.Model == "" {
		return nil, llm.NewRequestError("build", errors.New("model is required"))
	}
	if len(r.Messages) == 0 {
		return nil, llm.NewRequestError("build", errors.New("at least one message is required"))
	}
	if !r.ReasoningEffort.Valid() {
		return nil, llm.NewRequestError("build", fmt.Errorf("invalid reasoning effort %q", r.ReasoningEffort))
	}

	body := *r
	body.Stream = stream
	if !stream {
		body.StreamOptions = nil
	}

	if IsReasoningModel(body.Model) {
		body.Temperature = nil
		body.TopP = nil
	} else {
		body.ReasoningEffort = ""
	}
	return &body, nil
}

// Float 返回 v 的指针，用于 Temperature/TopP
func Float(v float64) *float64 {
	return &v
}
