package core

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/provider/mock"
)

func newTestClient(t *testing.T, baseURL string, opts ...ClientOption) *BaseClient {
	t.Helper()
	c, err := NewBaseClient(&llm.Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
	}, opts...)
	require.NoError(t, err)
	return c
}

// ═══════════════════════════════════════════════════════════════════════════
// BaseClient 创建
// ═══════════════════════════════════════════════════════════════════════════

func TestNewBaseClient(t *testing.T) {
	t.Run("成功创建并补全默认值", func(t *testing.T) {
		c, err := NewBaseClient(&llm.Config{APIKey: "test-key"})

		require.NoError(t, err)
		require.NotNil(t, c.Resty())
		cfg := c.Config()
		assert.Equal(t, llm.ProviderTypeOpenAI, cfg.Type)
		assert.Equal(t, llm.ProviderTypeOpenAI.DefaultBaseURL(), cfg.BaseURL)
		assert.Equal(t, llm.DefaultTimeout, cfg.Timeout)
		assert.Equal(t, llm.DefaultChunkSize, cfg.ChunkSize)
	})

	t.Run("配置为空", func(t *testing.T) {
		c, err := NewBaseClient(nil)

		require.Error(t, err)
		assert.Nil(t, c)
		assert.True(t, llm.IsConfigError(err))
	})

	t.Run("配置验证失败", func(t *testing.T) {
		c, err := NewBaseClient(&llm.Config{}) // 空 API key

		require.Error(t, err)
		assert.Nil(t, c)
		assert.True(t, llm.IsConfigError(err))
	})

	t.Run("本地服务不需要 API key", func(t *testing.T) {
		_, err := NewBaseClient(&llm.Config{Type: llm.ProviderTypeOllama})
		assert.NoError(t, err)
	})
}

// idleCountingTransport 记录 CloseIdleConnections 的调用次数
type idleCountingTransport struct {
	http.RoundTripper
	closed int
}

func (t *idleCountingTransport) CloseIdleConnections() { t.closed++ }

func TestBaseClient_Close(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":"chatcmpl-1"}`)
	}))
	defer server.Close()

	tr := &idleCountingTransport{RoundTripper: http.DefaultTransport}
	c := newTestClient(t, server.URL, WithHTTPClient(&http.Client{Transport: tr}))

	require.NoError(t, c.Close())
	assert.Equal(t, 1, tr.closed, "释放空闲连接")

	var out llm.ChatCompletion
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/x", nil, &out), "关闭后仍可使用")
	assert.Equal(t, "chatcmpl-1", out.ID)
}

// ═══════════════════════════════════════════════════════════════════════════
// DoJSON
// ═══════════════════════════════════════════════════════════════════════════

func TestBaseClient_DoJSON(t *testing.T) {
	t.Run("成功的请求", func(t *testing.T) {
		var gotHeader http.Header
		var gotBody map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/chat/completions", r.URL.Path)
			gotHeader = r.Header.Clone()
			_ = json.NewDecoder(r.Body).Decode(&gotBody)

			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"Hi"}}]}`)
		}))
		defer server.Close()

		c, err := NewBaseClient(&llm.Config{
			APIKey:       "test-key",
			Organization: "org-1",
			BaseURL:      server.URL,
			Headers:      map[string]string{"X-Custom": "yes"},
		}, WithRequestIDFunc(func() string { return "fixed-id" }))
		require.NoError(t, err)

		var out llm.ChatCompletion
		err = c.DoJSON(context.Background(), http.MethodPost, "/chat/completions",
			map[string]any{"model": "gpt-4o-mini"}, &out)

		require.NoError(t, err)
		assert.Equal(t, "chatcmpl-1", out.ID)
		require.Len(t, out.Choices, 1)
		assert.Equal(t, "Hi", out.Choices[0].Message.Content)

		assert.Equal(t, "Bearer test-key", gotHeader.Get("Authorization"))
		assert.Equal(t, "org-1", gotHeader.Get("OpenAI-Organization"))
		assert.Equal(t, "yes", gotHeader.Get("X-Custom"))
		assert.Equal(t, "fixed-id", gotHeader.Get(HeaderClientRequestID))
		assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	})

	t.Run("默认请求 ID 是 UUID", func(t *testing.T) {
		srv := mock.NewServer(nil)
		defer srv.Close()
		srv.UseScenario("chat-completion")

		c := newTestClient(t, srv.URL)
		require.NoError(t, c.DoJSON(context.Background(), http.MethodPost, "/chat/completions", nil, nil))

		call, ok := srv.LastCall()
		require.True(t, ok)
		_, err := uuid.Parse(call.Header.Get(HeaderClientRequestID))
		assert.NoError(t, err)
	})

	t.Run("API 返回错误 (429)", func(t *testing.T) {
		srv := mock.NewServer(nil)
		defer srv.Close()
		srv.UseScenario("http-429")

		c := newTestClient(t, srv.URL)
		err := c.DoJSON(context.Background(), http.MethodPost, "/chat/completions", nil, nil)

		require.Error(t, err)
		apiErr, ok := llm.GetAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "openai", apiErr.Provider)
		assert.Equal(t, "req_http-429", apiErr.RequestID)
		assert.Equal(t, "rate_limit_exceeded", apiErr.ErrorCode)
		require.NotNil(t, apiErr.Payload)
		assert.Equal(t, "Rate limit reached for requests", apiErr.Payload.Message)
		assert.True(t, apiErr.IsRetryable())
		assert.Contains(t, apiErr.Response, "rate_limit_exceeded")
	})

	t.Run("2xx 但响应体是错误对象", func(t *testing.T) {
		srv := mock.NewServer(nil)
		defer srv.Close()
		srv.UseScenario("chat-completion-error")

		c := newTestClient(t, srv.URL)
		var out llm.ChatCompletion
		err := c.DoJSON(context.Background(), http.MethodPost, "/chat/completions", nil, &out)

		require.Error(t, err)
		pe, ok := llm.GetProtocolError(err)
		require.True(t, ok)
		assert.Equal(t, "model overloaded", pe.Message)
		assert.Equal(t, "503", pe.Payload().CodeString())
	})

	t.Run("响应体无法解析", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "<html>")
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)
		var out llm.ChatCompletion
		err := c.DoJSON(context.Background(), http.MethodGet, "/models", nil, &out)

		require.Error(t, err)
		assert.True(t, llm.IsResponseError(err))
	})

	t.Run("超时", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		c, err := NewBaseClient(&llm.Config{
			APIKey:  "test-key",
			BaseURL: server.URL,
			Timeout: 20 * time.Millisecond,
		})
		require.NoError(t, err)

		err = c.DoJSON(context.Background(), http.MethodGet, "/models", nil, nil)
		require.Error(t, err)
		assert.True(t, llm.IsHTTPError(err))
	})

	t.Run("网络错误", func(t *testing.T) {
		c := newTestClient(t, "http://127.0.0.1:1")
		err := c.DoJSON(context.Background(), http.MethodGet, "/models", nil, nil)

		require.Error(t, err)
		assert.True(t, llm.IsHTTPError(err))
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// 流式请求
// ═══════════════════════════════════════════════════════════════════════════

func TestBaseClient_OpenStream(t *testing.T) {
	srv := mock.NewServer(nil)
	defer srv.Close()

	t.Run("成功的流式请求", func(t *testing.T) {
		srv.UseScenario("chat")
		c := newTestClient(t, srv.URL)

		stream, err := OpenStream[llm.ChatCompletionChunk](context.Background(), c,
			http.MethodPost, "/chat/completions", map[string]any{"stream": true}, "chat")
		require.NoError(t, err)
		defer func() { _ = stream.Close() }()

		chunks, err := stream.Collect(context.Background())
		require.NoError(t, err)
		require.Len(t, chunks, 5)
		assert.Equal(t, llm.RoleAssistant, chunks[0].Choices[0].Delta.Role)
		assert.Equal(t, ", world", chunks[2].Choices[0].Delta.Content)
		require.NotNil(t, chunks[4].Usage)
		assert.Equal(t, int64(8), chunks[4].Usage.TotalTokens)
	})

	t.Run("流式请求返回错误状态", func(t *testing.T) {
		srv.UseScenario("http-429")
		c := newTestClient(t, srv.URL)

		stream, err := OpenStream[llm.ChatCompletionChunk](context.Background(), c,
			http.MethodPost, "/chat/completions", nil, "chat")

		require.Error(t, err)
		assert.Nil(t, stream)
		apiErr, ok := llm.GetAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Contains(t, apiErr.Response, "Rate limit reached", "错误响应体被读取")
	})

	t.Run("连接中断", func(t *testing.T) {
		srv.UseScenario("broken")
		c := newTestClient(t, srv.URL)

		stream, err := OpenStream[item](context.Background(), c, http.MethodGet, "/events", nil, "broken")
		require.NoError(t, err)

		got, err := stream.Collect(context.Background())
		assert.Len(t, got, 1)
		require.Error(t, err)
		assert.True(t, llm.IsTransportError(err))
	})

	t.Run("原始字节", func(t *testing.T) {
		srv.UseScenario("image-bytes")
		c := newTestClient(t, srv.URL)

		r, err := c.OpenReader(context.Background(), http.MethodGet, "/image.png", "image")
		require.NoError(t, err)
		defer func() { _ = r.Close() }()

		data, err := io.ReadAll(r)
		require.NoError(t, err)

		sc, _ := mustExample(t).Scenario("image-bytes")
		assert.Equal(t, sc.Body(), string(data))
	})
}

func TestBaseClient_OpenURL(t *testing.T) {
	srv := mock.NewServer(nil)
	defer srv.Close()
	srv.Route("GET /files/img.png", "image-bytes")

	c := newTestClient(t, "http://127.0.0.1:1/v1")

	r, err := c.OpenURL(context.Background(), srv.URL+"/files/img.png", "image")
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	sc, _ := mustExample(t).Scenario("image-bytes")
	assert.Equal(t, sc.Body(), string(data))

	call, ok := srv.LastCall()
	require.True(t, ok)
	assert.Equal(t, "/files/img.png", call.Path)
	assert.Empty(t, call.Header.Get("Authorization"), "绝对地址不携带认证头")

	t.Run("错误状态", func(t *testing.T) {
		_, err := c.OpenURL(context.Background(), srv.URL+"/missing", "image")
		require.Error(t, err)
		apiErr, ok := llm.GetAPIError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

type item struct {
	ID int `json:"id"`
}

func mustExample(t *testing.T) *mock.Config {
	t.Helper()
	cfg, err := mock.LoadExampleConfig()
	require.NoError(t, err)
	return cfg
}
