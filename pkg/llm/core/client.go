package core

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/logger"
)

// 请求追踪头
const (
	HeaderClientRequestID = "X-Client-Request-Id" // 本端生成，每个请求一个 UUID
	HeaderRequestID       = "X-Request-ID"        // 服务端返回
)

// maxErrorBody 读取错误响应体的上限
const maxErrorBody = 1 << 20

// ═══════════════════════════════════════════════════════════════════════════
// 客户端选项
// ═══════════════════════════════════════════════════════════════════════════

// ClientOption BaseClient 配置选项
type ClientOption func(*BaseClient)

// WithHTTPClient 使用自定义的 http.Client（代理、TLS、测试用 Transport 等）
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *BaseClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger 设置请求和流的日志
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *BaseClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClientObserver 设置该客户端打开的所有流共用的观测者
func WithClientObserver(o Observer) ClientOption {
	return func(c *BaseClient) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRequestIDFunc 自定义 X-Client-Request-Id 的生成方式，默认 uuid.NewString
func WithRequestIDFunc(fn func() string) ClientOption {
	return func(c *BaseClient) {
		if fn != nil {
			c.newRequestID = fn
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// BaseClient 基础客户端
// ═══════════════════════════════════════════════════════════════════════════

// BaseClient 基础客户端
//
// 封装 HTTP 通信和错误处理，端点层（provider/openai）嵌入它来复用：
//   - DoJSON: 普通 JSON 请求，响应体也要经过错误对象检查
//   - OpenSource: 不解析响应体，把它作为 ChunkSource 交给流式解码核心
//
// Config.Timeout 只作用于 DoJSON；流式请求的生命周期由调用方的 ctx 决定。
//
// 使用示例：
//
//	base, err := core.NewBaseClient(&llm.Config{APIKey: "sk-xxx"})
//	if err != nil {
//	    return err
//	}
//	stream, err := core.OpenStream[llm.ChatCompletionChunk](ctx, base, http.MethodPost, "/chat/completions", req, "chat")
type BaseClient struct {
	cfg          llm.Config
	resty        *resty.Client
	plain        *resty.Client
	httpClient   *http.Client
	logger       *slog.Logger
	observer     Observer
	newRequestID func() string
}

// NewBaseClient 创建基础客户端
//
// 配置先验证再补全默认值，验证失败返回 *llm.ConfigError。
func NewBaseClient(cfg *llm.Config, opts ...ClientOption) (*BaseClient, error) {
	if cfg == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &BaseClient{
		cfg:          cfg.WithDefaults(),
		logger:       logger.FromConfig(cfg.Debug),
		observer:     NopObserver{},
		newRequestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	var r *resty.Client
	if c.httpClient != nil {
		r = resty.NewWithClient(c.httpClient)
	} else {
		r = resty.New()
	}
	r.SetBaseURL(c.cfg.BaseURL)
	r.SetHeader("Accept", "application/json")
	if c.cfg.APIKey != "" {
		r.SetAuthToken(c.cfg.APIKey)
	}
	if c.cfg.Organization != "" {
		r.SetHeader("OpenAI-Organization", c.cfg.Organization)
	}
	for k, v := range c.cfg.Headers {
		r.SetHeader(k, v)
	}
	c.resty = r
	c.plain = resty.NewWithClient(r.GetClient())

	return c, nil
}

// Config 补全默认值后的配置
func (c *BaseClient) Config() llm.Config { return c.cfg }

// Resty 底层 resty 客户端
func (c *BaseClient) Resty() *resty.Client { return c.resty }

// Logger 客户端日志
func (c *BaseClient) Logger() *slog.Logger { return c.logger }

// Close 释放底层 http.Client 中空闲的 keep-alive 连接
//
// 已打开的流不受影响，需要各自关闭；Close 之后客户端仍可继续使用。
func (c *BaseClient) Close() error {
	c.resty.GetClient().CloseIdleConnections()
	return nil
}

// StreamOptions 该客户端打开的流使用的选项
func (c *BaseClient) StreamOptions(name string) []StreamOption {
	return []StreamOption{
		WithLogger(c.logger),
		WithObserver(c.observer),
		WithName(name),
	}
}

// DoJSON 发送 JSON 请求并把响应解析到 out
//
// 流程：
//  1. 按 Config.Timeout 限制整个请求
//  2. 非 2xx 返回 *llm.APIError（附带解析出的错误对象）
//  3. 2xx 但响应体是错误对象时返回 *llm.ProtocolError
//  4. 否则反序列化到 out，失败返回 *llm.ResponseError
//
// body 为 nil 时不发送请求体；out 为 nil 时丢弃响应体。
func (c *BaseClient) DoJSON(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := c.newRequest(ctx, method, path)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return llm.NewHTTPError("request failed", err)
	}
	c.logger.Debug("response",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", resp.Time(),
	)

	raw := resp.Body()
	if resp.StatusCode() >= http.StatusBadRequest {
		return c.apiError(resp.StatusCode(), resp.Header(), raw)
	}

	if p, ok := ParseErrorObject(TrimASCII(raw)); ok {
		return llm.NewProtocolError(p)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return llm.NewResponseError("body", err)
	}
	return nil
}

// OpenSource 发送请求，把未解析的响应体作为 ChunkSource 返回
//
// 非 2xx 时读取并关闭响应体，返回 *llm.APIError。
// 调用方负责关闭返回的来源（通常交给 Stream/BufferedReader 的 Close）。
func (c *BaseClient) OpenSource(ctx context.Context, method, path string, body any) (*ReaderSource, error) {
	req := c.newRequest(ctx, method, path).SetDoNotParseResponse(true)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	return c.openResponse(resp, err, method, path)
}

// OpenURL 以 GET 打开一个绝对地址，例如图片结果中的 URL
//
// 请求不经过 Base URL，也不携带认证头和组织头。
func (c *BaseClient) OpenURL(ctx context.Context, rawURL, name string) (*BufferedReader, error) {
	resp, err := c.plain.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	src, err := c.openResponse(resp, err, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	return NewBufferedReader(src, c.StreamOptions(name)...), nil
}

// openResponse 检查未解析的响应，成功时把响应体包装为 ReaderSource
func (c *BaseClient) openResponse(resp *resty.Response, err error, method, path string) (*ReaderSource, error) {
	if err != nil {
		return nil, llm.NewHTTPError("request failed", err)
	}
	rawBody := resp.RawBody()
	c.logger.Debug("stream opened",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
	)

	if resp.StatusCode() >= http.StatusBadRequest {
		defer func() { _ = rawBody.Close() }()
		raw, _ := io.ReadAll(io.LimitReader(rawBody, maxErrorBody))
		return nil, c.apiError(resp.StatusCode(), resp.Header(), raw)
	}

	return NewReaderSource(rawBody, c.cfg.ChunkSize), nil
}

// OpenStream 发送请求并返回类型化的事件流
func OpenStream[T any](ctx context.Context, c *BaseClient, method, path string, body any, name string) (*Stream[T], error) {
	src, err := c.OpenSource(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	return NewStream[T](src, c.StreamOptions(name)...), nil
}

// OpenReader 发送请求并以 BufferedReader 暴露原始响应体
func (c *BaseClient) OpenReader(ctx context.Context, method, path, name string) (*BufferedReader, error) {
	src, err := c.OpenSource(ctx, method, path, nil)
	if err != nil {
		return nil, err
	}
	return NewBufferedReader(src, c.StreamOptions(name)...), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助方法
// ═══════════════════════════════════════════════════════════════════════════

// newRequest 创建带追踪头的请求
func (c *BaseClient) newRequest(ctx context.Context, method, path string) *resty.Request {
	id := c.newRequestID()
	c.logger.Debug("request",
		"method", method,
		"path", path,
		"client_request_id", id,
	)
	return c.resty.R().
		SetContext(ctx).
		SetHeader(HeaderClientRequestID, id)
}

// apiError 根据非 2xx 响应构造 APIError
func (c *BaseClient) apiError(status int, header http.Header, body []byte) *llm.APIError {
	apiErr := llm.NewAPIError(status, string(body)).
		WithProvider(c.cfg.Type.String())

	if requestID := header.Get(HeaderRequestID); requestID != "" {
		apiErr = apiErr.WithRequestID(requestID)
	}
	if p, ok := ParseErrorObject(TrimASCII(body)); ok {
		apiErr = apiErr.WithPayload(&p)
	}

	c.logger.Debug("api error",
		"status", status,
		"request_id", apiErr.RequestID,
		"code", apiErr.ErrorCode,
	)
	return apiErr
}
