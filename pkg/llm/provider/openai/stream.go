package openai

import (
	"context"
	"iter"
	"strings"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// ChatAccumulator 流式 chat 聚合器
//
// 把 [llm.ChatCompletionChunk] 序列按候选索引聚合为完整的 [llm.ChatCompletion]，
// 文本内容与推理内容分别累积。可以在流式传输过程中随时调用 Build 查看当前状态。
type ChatAccumulator struct {
	id       string
	model    string
	created  int64
	usage    *llm.Usage
	choices  map[int]*choiceBuffer
	maxIndex int
	chunks   int
}

type choiceBuffer struct {
	role         llm.Role
	content      strings.Builder
	reasoning    strings.Builder
	finishReason string
}

// NewChatAccumulator 创建聚合器
func NewChatAccumulator() *ChatAccumulator {
	return &ChatAccumulator{
		choices:  make(map[int]*choiceBuffer),
		maxIndex: -1,
	}
}

// Feed 增量喂入单个响应块
func (a *ChatAccumulator) Feed(chunk llm.ChatCompletionChunk) {
	a.chunks++
	if a.id == "" {
		a.id = chunk.ID
	}
	if chunk.Model != "" {
		a.model = chunk.Model
	}
	if a.created == 0 {
		a.created = chunk.Created
	}
	if chunk.Usage != nil {
		u := *chunk.Usage
		a.usage = &u
	}

	for _, c := range chunk.Choices {
		buf := a.choice(c.Index)
		if c.Delta.Role != "" {
			buf.role = c.Delta.Role
		}
		buf.content.WriteString(c.Delta.Content)
		buf.reasoning.WriteString(c.Delta.ReasoningContent)
		if c.FinishReason != "" {
			buf.finishReason = c.FinishReason
		}
	}
}

func (a *ChatAccumulator) choice(index int) *choiceBuffer {
	buf, ok := a.choices[index]
	if !ok {
		buf = &choiceBuffer{}
		a.choices[index] = buf
		a.maxIndex = max(a.maxIndex, index)
	}
	return buf
}

// Chunks 已喂入的块数
func (a *ChatAccumulator) Chunks() int {
	return a.chunks
}

// CurrentText 第一个候选当前累积的文本
func (a *ChatAccumulator) CurrentText() string {
	if buf, ok := a.choices[0]; ok {
		return buf.content.String()
	}
	return ""
}

// CurrentReasoning 第一个候选当前累积的推理内容
func (a *ChatAccumulator) CurrentReasoning() string {
	if buf, ok := a.choices[0]; ok {
		return buf.reasoning.String()
	}
	return ""
}

// Build 构建当前状态的完整响应
//
// 候选按索引排序，没有出现过的索引不会补空位。角色缺省为 assistant。
func (a *ChatAccumulator) Build() *llm.ChatCompletion {
	out := &llm.ChatCompletion{
		ID:      a.id,
		Object:  "chat.completion",
		Created: a.created,
		Model:   a.model,
		Usage:   a.usage,
	}

	for i := 0; i <= a.maxIndex; i++ {
		buf, ok := a.choices[i]
		if !ok {
			continue
		}
		role := buf.role
		if role == "" {
			role = llm.RoleAssistant
		}
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index: i,
			Message: llm.ChatMessage{
				Role:             role,
				Content:          buf.content.String(),
				ReasoningContent: buf.reasoning.String(),
			},
			FinishReason: buf.finishReason,
		})
	}
	return out
}

// ═══════════════════════════════════════════════════════════════════════════
// 便捷函数
// ═══════════════════════════════════════════════════════════════════════════

// CollectChat 读完整个流并聚合为完整响应
//
// 流以错误结束时，返回到错误为止已聚合的部分和该错误。
//
//	stream, _ := client.CreateChatCompletionStream(ctx, req)
//	defer stream.Close()
//	resp, err := openai.CollectChat(ctx, stream)
func CollectChat(ctx context.Context, stream *ChatCompletionStream) (*llm.ChatCompletion, error) {
	acc := NewChatAccumulator()
	for chunk, err := range stream.All(ctx) {
		if err != nil {
			return acc.Build(), err
		}
		acc.Feed(chunk)
	}
	return acc.Build(), nil
}

// TextDeltas 只产出第一个候选的文本增量
//
// 没有文本的帧（角色帧、finish 帧、usage 帧）被跳过，错误作为最后一项产出。
func TextDeltas(ctx context.Context, stream *ChatCompletionStream) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for chunk, err := range stream.All(ctx) {
			if err != nil {
				yield("", err)
				return
			}
			for _, c := range chunk.Choices {
				if c.Index != 0 || c.Delta.Content == "" {
					continue
				}
				if !yield(c.Delta.Content, nil) {
					return
				}
			}
		}
	}
}

// CompletionText 读完 completions 流，拼接第一个候选的文本
func CompletionText(ctx context.Context, stream *CompletionStream) (string, string, error) {
	var sb strings.Builder
	var finishReason string
	for chunk, err := range stream.All(ctx) {
		if err != nil {
			return sb.String(), finishReason, err
		}
		for _, c := range chunk.Choices {
			if c.Index != 0 {
				continue
			}
			sb.WriteString(c.Text)
			if c.FinishReason != "" {
				finishReason = c.FinishReason
			}
		}
	}
	return sb.String(), finishReason, nil
}
