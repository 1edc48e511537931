package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/core"
)

// ═══════════════════════════════════════════════════════════════════════════
// 流类型
// ═══════════════════════════════════════════════════════════════════════════

// CompletionStream /completions 的流式响应
type CompletionStream = core.Stream[llm.Completion]

// ChatCompletionStream /chat/completions 的流式响应
type ChatCompletionStream = core.Stream[llm.ChatCompletionChunk]

// FineTuneEventStream fine-tune 事件流
type FineTuneEventStream = core.Stream[llm.FineTuneEvent]

// ═══════════════════════════════════════════════════════════════════════════
// 客户端
// ═══════════════════════════════════════════════════════════════════════════

// Client OpenAI 兼容的 API 客户端
//
// 嵌入 [core.BaseClient] 复用 HTTP 与错误处理，每个端点只负责
// 组装请求路径和请求体，然后选择合适的解码器：
//   - 事件流端点: [core.Stream]
//   - JSONL 文件: [core.LineDecoder]
//   - 原始字节: [core.BufferedReader]
type Client struct {
	*core.BaseClient
}

// New 创建客户端
//
// 参数 cfg 必须通过 [llm.Config.Validate]，未设置的字段使用默认值。
func New(cfg *llm.Config, opts ...core.ClientOption) (*Client, error) {
	base, err := core.NewBaseClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{BaseClient: base}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Completions
// ═══════════════════════════════════════════════════════════════════════════

// CreateCompletionStream 以流式方式调用 /completions
//
// 请求体中的 Stream 字段会被强制设置为 true。
func (c *Client) CreateCompletionStream(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	body := *req
	body.Stream = true
	return core.OpenStream[llm.Completion](ctx, c.BaseClient, http.MethodPost, "/completions", &body, "completion")
}

// ═══════════════════════════════════════════════════════════════════════════
// Chat Completions
// ═══════════════════════════════════════════════════════════════════════════

// CreateChatCompletionStream 以流式方式调用 /chat/completions
//
// 配合 [CollectChat] 或 [TextDeltas] 使用：
//
//	stream, err := client.CreateChatCompletionStream(ctx, &openai.ChatCompletionRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []llm.ChatMessage{llm.UserMessage("Hello")},
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//
//	for text, err := range openai.TextDeltas(ctx, stream) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(text)
//	}
func (c *Client) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionStream, error) {
	body, err := req.build(true)
	if err != nil {
		return nil, err
	}
	return core.OpenStream[llm.ChatCompletionChunk](ctx, c.BaseClient, http.MethodPost, "/chat/completions", body, "chat")
}

// CreateChatCompletion 非流式调用 /chat/completions
//
// 2xx 响应体同样会检查错误对象，命中时返回 *llm.ProtocolError。
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*llm.ChatCompletion, error) {
	body, err := req.build(false)
	if err != nil {
		return nil, err
	}

	var out llm.ChatCompletion
	if err := c.DoJSON(ctx, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Fine-tunes 与文件
// ═══════════════════════════════════════════════════════════════════════════

// FineTuneEventStream 订阅 fine-tune 任务的事件流
func (c *Client) FineTuneEventStream(ctx context.Context, fineTuneID string) (*FineTuneEventStream, error) {
	if fineTuneID == "" {
		return nil, llm.NewRequestError("build", errors.New("fine-tune id is required"))
	}
	path := "/fine-tunes/" + url.PathEscape(fineTuneID) + "/events?stream=true"
	return core.OpenStream[llm.FineTuneEvent](ctx, c.BaseClient, http.MethodGet, path, nil, "fine-tune-events")
}

// RawFileContent 以字节形式读取文件内容
func (c *Client) RawFileContent(ctx context.Context, fileID string) (*core.BufferedReader, error) {
	if fileID == "" {
		return nil, llm.NewRequestError("build", errors.New("file id is required"))
	}
	return c.OpenReader(ctx, http.MethodGet, "/files/"+url.PathEscape(fileID)+"/content", "file-content")
}

// FileContent 把 JSONL 文件内容逐行解码为 T
//
// 泛型方法在 Go 中不可用，因此以函数形式提供：
//
//	dec, err := openai.FileContent[llm.TrainingData](ctx, client, "file-abc")
//	for row, err := range dec.All(ctx) { ... }
func FileContent[T any](ctx context.Context, c *Client, fileID string) (*core.LineDecoder[T], error) {
	r, err := c.RawFileContent(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return core.NewLineDecoder[T](r), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Images
// ═══════════════════════════════════════════════════════════════════════════

// DownloadImage 读取图片结果的原始字节
//
// URL 形式发起 GET 请求（不带认证头）；b64_json 形式在本地解码，
// 作为单个块交给 BufferedReader。
func (c *Client) DownloadImage(ctx context.Context, img llm.ImageData) (*core.BufferedReader, error) {
	if img.IsURL() {
		return c.OpenURL(ctx, img.URL, "image")
	}
	if img.B64JSON == "" {
		return nil, llm.NewRequestError("build", errors.New("image data is empty"))
	}

	data, err := base64.StdEncoding.DecodeString(img.B64JSON)
	if err != nil {
		return nil, llm.NewResponseError("b64_json", err)
	}
	return core.NewBufferedReader(core.NewBytesSource(data), c.StreamOptions("image")...), nil
}
