package llm

import "time"

// ═══════════════════════════════════════════════════════════════════════════
// 通用结构
// ═══════════════════════════════════════════════════════════════════════════

// Usage Token 使用量
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ═══════════════════════════════════════════════════════════════════════════
// Completions
// ═══════════════════════════════════════════════════════════════════════════

// Completion /completions 的响应，流式时每一帧也是一个 Completion
type Completion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   *Usage             `json:"usage,omitempty"`
}

// CompletionChoice 单个候选
type CompletionChoice struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	Logprobs     any    `json:"logprobs,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// First 返回第一个候选
func (c *Completion) First() (CompletionChoice, bool) {
	if len(c.Choices) == 0 {
		return CompletionChoice{}, false
	}
	return c.Choices[0], true
}

// ═══════════════════════════════════════════════════════════════════════════
// Chat Completions
// ═══════════════════════════════════════════════════════════════════════════

// ChatCompletion /chat/completions 的非流式响应
type ChatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

// ChatChoice 非流式候选
type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// ChatCompletionChunk 流式 chat 的单帧
type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Created int64             `json:"created"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *Usage            `json:"usage,omitempty"`
}

// ChatChunkChoice 流式候选，Delta 只包含本帧新增的部分
type ChatChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason string    `json:"finish_reason,omitempty"`
}

// ChatDelta 流式增量
type ChatDelta struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`

	// ReasoningContent 推理内容增量 (DeepSeek R1, Kimi thinking 等)
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// ═══════════════════════════════════════════════════════════════════════════
// Fine-tune 与文件
// ═══════════════════════════════════════════════════════════════════════════

// FineTuneEvent fine-tune 任务事件，事件流中的每一帧
type FineTuneEvent struct {
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// Time 事件时间
func (e *FineTuneEvent) Time() time.Time {
	return time.Unix(e.CreatedAt, 0).UTC()
}

// TrainingData fine-tune 训练文件（JSONL）中的一行
type TrainingData struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// FileObject /files 的文件描述
type FileObject struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

// ═══════════════════════════════════════════════════════════════════════════
// Images
// ═══════════════════════════════════════════════════════════════════════════

// ImageData 图片结果，URL 与 B64JSON 二选一
type ImageData struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

// IsURL 是否为 URL 形式
func (d ImageData) IsURL() bool {
	return d.URL != ""
}
