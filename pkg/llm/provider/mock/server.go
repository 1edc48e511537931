package mock

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// HTTP Handler
// ═══════════════════════════════════════════════════════════════════════════

// Handler 按场景逐块写出响应，每块之后立即 Flush
//
// 场景设置了 Error 时，在写完 ErrorAfter 个块后中断连接（http.ErrAbortHandler），
// 客户端读取响应体时得到传输错误。
func Handler(sc Scenario) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeScenario(w, r, sc)
	})
}

func writeScenario(w http.ResponseWriter, r *http.Request, sc Scenario) {
	ct := sc.ContentType
	if ct == "" {
		ct = "text/event-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Request-ID", "req_"+sc.Name)
	w.WriteHeader(sc.StatusCode())

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	delay := sc.DelayDuration()
	for i, c := range sc.Chunks {
		if sc.Error != "" && i == sc.ErrorAfter {
			panic(http.ErrAbortHandler)
		}
		if delay > 0 {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(delay):
			}
		}
		_, _ = io.WriteString(w, c)
		flush()
	}
	if sc.Error != "" && sc.ErrorAfter == len(sc.Chunks) {
		panic(http.ErrAbortHandler)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Mock Server
// ═══════════════════════════════════════════════════════════════════════════

// Call 一次请求的记录
type Call struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
	Time   time.Time
}

// Server 基于 httptest 的 OpenAI 兼容 Mock 服务
//
// 路由优先匹配 Route 注册的 "METHOD /path"，否则使用 UseScenario 指定的场景。
// 都没有时返回 404 和一个错误对象。所有请求都会被记录。
//
//	srv := mock.NewServer(nil) // 使用内嵌示例配置
//	defer srv.Close()
//
//	srv.UseScenario("chat")
//	client, _ := openai.New(&llm.Config{APIKey: "sk-test", BaseURL: srv.URL})
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	cfg     *Config
	routes  map[string]string
	current string
	calls   []Call
}

// NewServer 启动 Mock 服务，cfg 为 nil 时使用内嵌示例配置
func NewServer(cfg *Config) *Server {
	if cfg == nil {
		var err error
		if cfg, err = LoadExampleConfig(); err != nil {
			panic("mock: embedded example config is invalid: " + err.Error())
		}
	}
	s := &Server{cfg: cfg, routes: make(map[string]string)}
	s.Server = httptest.NewServer(s)
	return s
}

// UseScenario 指定未匹配路由时使用的场景
func (s *Server) UseScenario(name string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = name
	return s
}

// Route 为 "METHOD /path" 绑定场景，例如 Route("GET /files/file-1/content", "jsonl")
func (s *Server) Route(pattern, scenario string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[pattern] = scenario
	return s
}

// Calls 所有请求记录的副本
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount 请求次数
func (s *Server) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// LastCall 最后一次请求
func (s *Server) LastCall() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}, false
	}
	return s.calls[len(s.calls)-1], true
}

// Reset 清空请求记录
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// ServeHTTP 实现 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
		Time:   time.Now(),
	})
	name, ok := s.routes[r.Method+" "+r.URL.Path]
	if !ok {
		name = s.current
	}
	s.mu.Unlock()

	sc, found := s.cfg.Scenario(name)
	if !found {
		writeNotFound(w, name)
		return
	}
	writeScenario(w, r, sc)
}

func writeNotFound(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": "unknown mock scenario: " + name,
			"type":    "invalid_request_error",
			"code":    "scenario_not_found",
		},
	})
}
