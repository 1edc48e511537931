package openai

import "strings"

// 推理模型族，按名称前缀匹配：模型名等于族名，或以 "族名-" 开头。
// o1x 之类不带连字符的名字不算。
var reasoningFamilies = []string{
	"o1", "o3", "o4", "gpt-5",
	"deepseek-reasoner", "deepseek-r1",
}

// IsReasoningModel 模型是否属于推理模型族（不区分大小写）
//
// 推理模型的请求会去掉 temperature/top_p，只有它们会收到 reasoning_effort；
// 它们的流式增量带 reasoning_content，由 [ChatAccumulator] 单独累积。
func IsReasoningModel(model string) bool {
	name := strings.ToLower(model)
	for _, family := range reasoningFamilies {
		rest, ok := strings.CutPrefix(name, family)
		if ok && (rest == "" || rest[0] == '-') {
			return true
		}
	}
	return false
}

// ReasoningEffort reasoning_effort 字段的取值
type ReasoningEffort string

const (
	ReasoningEffortMinimal ReasoningEffort = "minimal"
	ReasoningEffortLow     ReasoningEffort = "low"
	ReasoningEffortMedium  ReasoningEffort = "medium"
	ReasoningEffortHigh    ReasoningEffort = "high"
)

// Valid 空值表示不发送该字段，同样有效
func (e ReasoningEffort) Valid() bool {
	switch e {
	case "", ReasoningEffortMinimal, ReasoningEffortLow, ReasoningEffortMedium, ReasoningEffortHigh:
		return true
	}
	return false
}

// IsValidReasoningEffort 同 ReasoningEffort.Valid，接受原始字符串（例如来自配置文件）
func IsValidReasoningEffort(effort string) bool {
	return ReasoningEffort(effort).Valid()
}
