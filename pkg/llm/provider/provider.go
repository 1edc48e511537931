// Package provider 组装完整的客户端
//
// 把配置、日志、指标和端点层串起来：
//
//	client, err := provider.Load("openai.yaml",
//	    provider.WithRegisterer(prometheus.DefaultRegisterer),
//	)
//
//	// 本地 Mock（无需网络）
//	client, srv, err := provider.LocalMock("chat")
//	defer srv.Close()
package provider

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/core"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/logger"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/metrics"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/provider/mock"
	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/provider/openai"
)

// ═══════════════════════════════════════════════════════════════════════════
// 选项
// ═══════════════════════════════════════════════════════════════════════════

// Option 组装选项
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	client     []core.ClientOption
}

// WithLogger 指定日志记录器，默认按 Config.Debug 创建
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer 注册流指标，不设置时不采集指标
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithClientOptions 追加底层客户端选项
func WithClientOptions(opts ...core.ClientOption) Option {
	return func(o *options) { o.client = append(o.client, opts...) }
}

// ═══════════════════════════════════════════════════════════════════════════
// 工厂函数
// ═══════════════════════════════════════════════════════════════════════════

// New 按配置创建客户端
func New(cfg *llm.Config, opts ...Option) (*openai.Client, error) {
	if cfg == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	l := o.logger
	if l == nil {
		l = logger.FromConfig(cfg.Debug)
	}
	clientOpts := []core.ClientOption{core.WithClientLogger(l)}

	if o.registerer != nil {
		collector, err := metrics.NewCollector(o.registerer)
		if err != nil {
			return nil, llm.NewConfigError("register metrics", err)
		}
		clientOpts = append(clientOpts, core.WithClientObserver(collector))
	}

	// 调用方的选项最后应用，可以覆盖上面的默认值
	clientOpts = append(clientOpts, o.client...)
	return openai.New(cfg, clientOpts...)
}

// Load 从 yaml/json 配置文件创建客户端
func Load(path string, opts ...Option) (*openai.Client, error) {
	cfg, err := llm.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// LocalMock 启动内嵌场景的 Mock 服务，返回连接到它的客户端
//
// scenario 为未绑定路由时使用的默认场景，调用方负责关闭服务。
func LocalMock(scenario string, opts ...Option) (*openai.Client, *mock.Server, error) {
	srv := mock.NewServer(nil).UseScenario(scenario)

	client, err := New(&llm.Config{
		Type:    llm.ProviderTypeOllama,
		BaseURL: srv.URL,
	}, opts...)
	if err != nil {
		srv.Close()
		return nil, nil, err
	}
	return client, srv, nil
}
