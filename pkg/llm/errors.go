package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ═══════════════════════════════════════════════════════════════════════════
// 错误类型
// ═══════════════════════════════════════════════════════════════════════════

// ErrorType 错误类型
type ErrorType string

const (
	ErrTypeConfig    ErrorType = "config_error"    // 配置错误
	ErrTypeRequest   ErrorType = "request_error"   // 请求构建、序列化错误
	ErrTypeHTTP      ErrorType = "http_error"      // 网络、超时等 HTTP 层错误
	ErrTypeAPI       ErrorType = "api_error"       // 非 2xx 状态码
	ErrTypeResponse  ErrorType = "response_error"  // 非流式响应解析错误
	ErrTypeStream    ErrorType = "stream_error"    // 流的使用错误
	ErrTypeTransport ErrorType = "transport_error" // 字节源读取失败（流内）
	ErrTypeProtocol  ErrorType = "protocol_error"  // 流内的错误对象
	ErrTypeDecode    ErrorType = "decode_error"    // 帧内容与预期结构不符
)

// BaseError 基础错误实现，所有具体错误都嵌入它
type BaseError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *BaseError) Unwrap() error {
	return e.Err
}

func newBase(t ErrorType, message string, err error) *BaseError {
	return &BaseError{Type: t, Message: message, Err: err}
}

// ═══════════════════════════════════════════════════════════════════════════
// 服务端错误对象
// ═══════════════════════════════════════════════════════════════════════════

// ErrorPayload 服务端返回的错误对象
//
// 出现在两个位置：
//   - 非 2xx 响应体 {"error": {...}}
//   - 流内某一帧整体就是 {"error": {...}}，代替正常数据帧
//
// type、param、code 均为可选字段。
type ErrorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Param   any    `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// CodeString 返回字符串形式的错误代码（code 可能是字符串或数字）
func (p ErrorPayload) CodeString() string {
	switch v := p.Code.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求阶段错误
// ═══════════════════════════════════════════════════════════════════════════

// ConfigError 配置错误
type ConfigError struct {
	*BaseError
}

// NewConfigError 创建配置错误
func NewConfigError(message string, err error) *ConfigError {
	return &ConfigError{BaseError: newBase(ErrTypeConfig, message, err)}
}

// RequestError 请求错误
type RequestError struct {
	*BaseError

	Stage string // "marshal", "build" 等
}

// NewRequestError 创建请求错误
func NewRequestError(stage string, err error) *RequestError {
	return &RequestError{
		BaseError: newBase(ErrTypeRequest, fmt.Sprintf("failed to %s request", stage), err),
		Stage:     stage,
	}
}

// HTTPError HTTP 层错误
type HTTPError struct {
	*BaseError
}

// NewHTTPError 创建 HTTP 错误
func NewHTTPError(message string, err error) *HTTPError {
	return &HTTPError{BaseError: newBase(ErrTypeHTTP, message, err)}
}

// APIError 非 2xx 响应
type APIError struct {
	*BaseError

	StatusCode int
	Response   string
	Provider   string
	RequestID  string
	ErrorCode  string

	// Payload 从响应体解析出的错误对象，响应体不是错误对象时为 nil
	Payload *ErrorPayload
}

// NewAPIError 创建 API 错误
func NewAPIError(statusCode int, response string) *APIError {
	return &APIError{
		BaseError:  newBase(ErrTypeAPI, fmt.Sprintf("API returned error status %d", statusCode), nil),
		StatusCode: statusCode,
		Response:   response,
	}
}

// WithProvider 设置 Provider 名称
func (e *APIError) WithProvider(provider string) *APIError {
	e.Provider = provider
	return e
}

// WithRequestID 设置请求 ID
func (e *APIError) WithRequestID(requestID string) *APIError {
	e.RequestID = requestID
	return e
}

// WithErrorCode 设置错误代码
func (e *APIError) WithErrorCode(code string) *APIError {
	e.ErrorCode = code
	return e
}

// WithPayload 附加解析后的错误对象，同时补全错误代码和消息
func (e *APIError) WithPayload(p *ErrorPayload) *APIError {
	if p == nil {
		return e
	}
	e.Payload = p
	if e.ErrorCode == "" {
		e.ErrorCode = p.CodeString()
	}
	if p.Message != "" {
		e.Message = fmt.Sprintf("API returned error status %d: %s", e.StatusCode, p.Message)
	}
	return e
}

func (e *APIError) Error() string {
	base := e.BaseError.Error()
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request_id: %s)", base, e.RequestID)
	}
	return base
}

// IsRetryable 检查错误是否可重试
//
// 本库内部从不重试，该判断留给重新发起整个请求的调用方。
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= 500 && e.StatusCode <= 504
}

// ResponseError 响应解析错误
type ResponseError struct {
	*BaseError

	Field string
}

// NewResponseError 创建响应错误
func NewResponseError(field string, err error) *ResponseError {
	return &ResponseError{
		BaseError: newBase(ErrTypeResponse, fmt.Sprintf("failed to parse response field '%s'", field), err),
		Field:     field,
	}
}

// StreamError 流的使用错误
//
// 调用方误用流时返回，例如读取已关闭的读取器，或来源为 nil。
// 与传输、协议、解码错误不同，它不来自服务端。
type StreamError struct {
	*BaseError
}

// NewStreamError 创建流式错误
func NewStreamError(message string, err error) *StreamError {
	return &StreamError{BaseError: newBase(ErrTypeStream, message, err)}
}

// ═══════════════════════════════════════════════════════════════════════════
// 流内终止错误
//
// 三种错误都会终止所在的流，流不可恢复，重试属于调用方。
// ═══════════════════════════════════════════════════════════════════════════

// TransportError 字节源返回的错误，原样包装
type TransportError struct {
	*BaseError
}

// NewTransportError 创建传输错误
func NewTransportError(err error) *TransportError {
	return &TransportError{BaseError: newBase(ErrTypeTransport, "read stream chunk", err)}
}

// ProtocolError 流内收到的错误对象
type ProtocolError struct {
	*BaseError

	Kind  string // 服务端的 error.type
	Param any
	Code  any
}

// NewProtocolError 由错误对象创建协议错误
func NewProtocolError(p ErrorPayload) *ProtocolError {
	return &ProtocolError{
		BaseError: newBase(ErrTypeProtocol, p.Message, nil),
		Kind:      p.Type,
		Param:     p.Param,
		Code:      p.Code,
	}
}

// Payload 还原为错误对象
func (e *ProtocolError) Payload() ErrorPayload {
	return ErrorPayload{Message: e.Message, Type: e.Kind, Param: e.Param, Code: e.Code}
}

// maxFrameExcerpt DecodeError 中保留的帧内容上限
const maxFrameExcerpt = 256

// DecodeError 帧内容无法解析为预期类型
type DecodeError struct {
	*BaseError

	Frame []byte // 出错帧的前 256 字节
}

// NewDecodeError 创建解码错误
func NewDecodeError(message string, frame []byte, err error) *DecodeError {
	excerpt := frame
	if len(excerpt) > maxFrameExcerpt {
		excerpt = excerpt[:maxFrameExcerpt]
	}
	return &DecodeError{
		BaseError: newBase(ErrTypeDecode, message, err),
		Frame:     append([]byte(nil), excerpt...),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误匹配函数（支持 errors.Is/As）
// ═══════════════════════════════════════════════════════════════════════════

func isType[T error](err error) bool {
	var e T
	return errors.As(err, &e)
}

// IsConfigError 检查是否为配置错误
func IsConfigError(err error) bool { return isType[*ConfigError](err) }

// IsRequestError 检查是否为请求错误
func IsRequestError(err error) bool { return isType[*RequestError](err) }

// IsHTTPError 检查是否为 HTTP 错误
func IsHTTPError(err error) bool { return isType[*HTTPError](err) }

// IsAPIError 检查是否为 API 错误
func IsAPIError(err error) bool { return isType[*APIError](err) }

// IsResponseError 检查是否为响应解析错误
func IsResponseError(err error) bool { return isType[*ResponseError](err) }

// IsStreamError 检查是否为流式错误
func IsStreamError(err error) bool { return isType[*StreamError](err) }

// IsTransportError 检查是否为传输错误
func IsTransportError(err error) bool { return isType[*TransportError](err) }

// IsProtocolError 检查是否为流内错误对象
func IsProtocolError(err error) bool { return isType[*ProtocolError](err) }

// IsDecodeError 检查是否为解码错误
func IsDecodeError(err error) bool { return isType[*DecodeError](err) }

// IsTerminalStreamError 检查是否为终止流的三类错误之一
func IsTerminalStreamError(err error) bool {
	return IsTransportError(err) || IsProtocolError(err) || IsDecodeError(err)
}

// IsRetryableError 检查错误是否可重试
func IsRetryableError(err error) bool {
	if e, ok := GetAPIError(err); ok {
		return e.IsRetryable()
	}
	return false
}

// GetAPIError 提取 APIError（如果存在）
func GetAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetProtocolError 提取 ProtocolError（如果存在）
func GetProtocolError(err error) (*ProtocolError, bool) {
	var e *ProtocolError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetStatusCode 提取 HTTP 状态码（如果是 API 错误）
func GetStatusCode(err error) int {
	if e, ok := GetAPIError(err); ok {
		return e.StatusCode
	}
	return 0
}
