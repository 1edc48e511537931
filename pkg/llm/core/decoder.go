package core

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 事件解码
// ═══════════════════════════════════════════════════════════════════════════

// 事件记录的字面量
const (
	DataPrefix   = "data:"  // 数据字段标记
	DoneSentinel = "[DONE]" // 正常结束标记
)

var (
	dataPrefix   = []byte(DataPrefix)
	doneSentinel = []byte(DoneSentinel)
)

// EventKind 解码结果类型
type EventKind int

const (
	EventSkip    EventKind = iota // 只有注释行的记录（keep-alive）
	EventPayload                  // 正常数据
	EventEnd                      // 收到 [DONE]
	EventError                    // 流内错误对象
)

// String 返回可读名称，也用作指标标签
func (k EventKind) String() string {
	switch k {
	case EventSkip:
		return "skip"
	case EventPayload:
		return "payload"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// DecodedEvent 单帧的解码结果，由调用方立即消费
type DecodedEvent[T any] struct {
	Kind    EventKind
	Payload T                  // Kind == EventPayload 时有效
	Err     *llm.ProtocolError // Kind == EventError 时有效
}

// DecodeEvent 把一个已修剪的事件记录解释为协议单元
//
// 判定顺序（命中即停止，不回退）：
//  1. 整帧是错误对象 {"error": {"message": ...}} → EventError
//  2. 去掉 "data:" 及其后空白，剩余等于 [DONE] → EventEnd
//  3. 剩余部分是错误对象（data: {"error": ...}）→ EventError
//  4. 剩余部分反序列化为 T → EventPayload，失败返回 *llm.DecodeError
//
// 带 error 成员但不符合错误形状的对象返回 "malformed error object" 的 *llm.DecodeError。
//
// 先判错误对象，避免把错误字段解到宽松的 T 上得到无意义的值。
func DecodeEvent[T any](frame []byte) (DecodedEvent[T], error) {
	var ev DecodedEvent[T]

	if p, ok := ParseErrorObject(frame); ok {
		ev.Kind = EventError
		ev.Err = llm.NewProtocolError(p)
		return ev, nil
	}

	data, found := extractData(frame)
	if !found {
		if isCommentOnly(frame) {
			ev.Kind = EventSkip
			return ev, nil
		}
		if hasErrorMember(frame) {
			return ev, llm.NewDecodeError("malformed error object", frame, nil)
		}
		return ev, llm.NewDecodeError("event record has no data field", frame, nil)
	}

	if bytes.Equal(data, doneSentinel) {
		ev.Kind = EventEnd
		return ev, nil
	}

	if p, ok := ParseErrorObject(data); ok {
		ev.Kind = EventError
		ev.Err = llm.NewProtocolError(p)
		return ev, nil
	}

	if hasErrorMember(data) {
		return ev, llm.NewDecodeError("malformed error object", data, nil)
	}

	if err := json.Unmarshal(data, &ev.Payload); err != nil {
		return ev, llm.NewDecodeError("decode event payload", data, err)
	}
	ev.Kind = EventPayload
	return ev, nil
}

// ParseErrorObject 判断 b 是否为错误对象并解析
//
// 错误对象：顶层 JSON 对象，其 error 成员是带字符串 message 的对象。
// 用 gjson 先探测，只有形状匹配时才完整反序列化。
func ParseErrorObject(b []byte) (llm.ErrorPayload, bool) {
	var p llm.ErrorPayload
	if len(b) == 0 || b[0] != '{' {
		return p, false
	}

	errObj := gjson.GetBytes(b, "error")
	if !errObj.IsObject() || errObj.Get("message").Type != gjson.String {
		return p, false
	}
	if !gjson.ValidBytes(b) {
		return p, false
	}
	if err := json.Unmarshal([]byte(errObj.Raw), &p); err != nil {
		return p, false
	}
	return p, true
}

// hasErrorMember 顶层 JSON 对象是否带有非 null 的 error 成员
//
// 在 ParseErrorObject 失败之后调用：命中说明服务端发了错误，只是形状不对，
// 例如 {"error":"boom"} 或缺少 message 的 {"error":{"type":"server_error"}}。
func hasErrorMember(b []byte) bool {
	if len(b) == 0 || b[0] != '{' {
		return false
	}
	v := gjson.GetBytes(b, "error")
	return v.Exists() && v.Type != gjson.Null
}

// ═══════════════════════════════════════════════════════════════════════════
// 记录内部解析
// ═══════════════════════════════════════════════════════════════════════════

// extractData 提取记录中的数据部分
//
// 记录开头的注释行（":" 开头）和 event:/id:/retry: 字段行被跳过；
// 第一条有效行必须以 "data:" 开头。之后的 "data:" 行去掉前缀后用 "\n" 连接，
// 其他行原样保留（兼容跨行的 JSON）。
func extractData(frame []byte) ([]byte, bool) {
	rest := frame
	for len(rest) > 0 {
		line, tail, _ := bytes.Cut(rest, LineDelimiter)
		if !isFieldLine(line) {
			break
		}
		rest = tail
	}

	after, ok := bytes.CutPrefix(rest, dataPrefix)
	if !ok {
		return nil, false
	}

	// 常见情况：单行 data，零复制
	if bytes.IndexByte(after, '\n') < 0 {
		return TrimASCII(after), true
	}

	var out []byte
	for i, line := range bytes.Split(after, LineDelimiter) {
		if i > 0 {
			out = append(out, '\n')
			if d, ok := bytes.CutPrefix(line, dataPrefix); ok {
				line = bytes.TrimLeft(d, asciiSpace)
			}
		}
		out = append(out, line...)
	}
	return TrimASCII(out), true
}

// isFieldLine 记录开头可以跳过的行：注释或非 data 的 SSE 字段
func isFieldLine(line []byte) bool {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return true
	}
	if line[0] == ':' {
		return true
	}
	for _, f := range [][]byte{[]byte("event:"), []byte("id:"), []byte("retry:")} {
		if bytes.HasPrefix(line, f) {
			return true
		}
	}
	return false
}

// isCommentOnly 记录是否只包含注释/字段行
func isCommentOnly(frame []byte) bool {
	for line := range bytes.SplitSeq(frame, LineDelimiter) {
		if !isFieldLine(line) {
			return false
		}
	}
	return true
}
