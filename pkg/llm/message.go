package llm

// ═══════════════════════════════════════════════════════════════════════════
// 角色定义
// ═══════════════════════════════════════════════════════════════════════════

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ═══════════════════════════════════════════════════════════════════════════
// 消息结构
// ═══════════════════════════════════════════════════════════════════════════

// ChatMessage 对话消息
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`

	// ReasoningContent 推理模型返回的思考过程
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// SystemMessage 创建系统消息
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage 创建用户消息
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage 创建助手消息
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}
