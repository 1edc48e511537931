package llm

// ProviderType OpenAI 兼容服务类型
//
// 所有类型共用同一套流式协议（data: 前缀、[DONE] 终止、{"error":...} 错误对象），
// 区别只在默认 Base URL。
type ProviderType string

const (
	ProviderTypeOpenAI     ProviderType = "openai"     // OpenAI 原生 API
	ProviderTypeOpenRouter ProviderType = "openrouter" // OpenRouter
	ProviderTypeDeepSeek   ProviderType = "deepseek"   // DeepSeek
	ProviderTypeOllama     ProviderType = "ollama"     // Ollama 本地模型
	ProviderTypeGroq       ProviderType = "groq"       // Groq
	ProviderTypeMistral    ProviderType = "mistral"    // Mistral AI
	ProviderTypeMoonshot   ProviderType = "moonshot"   // 月之暗面 Kimi
)

// String 返回字符串表示
func (t ProviderType) String() string {
	return string(t)
}

// IsValid 判断是否为已知类型
func (t ProviderType) IsValid() bool {
	return t.DefaultBaseURL() != ""
}

// RequiresAPIKey Ollama 之外的服务都需要 API Key
func (t ProviderType) RequiresAPIKey() bool {
	return t != ProviderTypeOllama
}

// DefaultBaseURL 返回默认 Base URL
func (t ProviderType) DefaultBaseURL() string {
	switch t {
	case ProviderTypeOpenAI:
		return "https://api.openai.com/v1"
	case ProviderTypeOpenRouter:
		return "https://openrouter.ai/api/v1"
	case ProviderTypeDeepSeek:
		return "https://api.deepseek.com/v1"
	case ProviderTypeOllama:
		return "http://localhost:11434/v1"
	case ProviderTypeGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderTypeMistral:
		return "https://api.mistral.ai/v1"
	case ProviderTypeMoonshot:
		return "https://api.moonshot.cn/v1"
	default:
		return ""
	}
}
