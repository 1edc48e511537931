// Package metrics 基于 Prometheus 的流观测实现
//
// [Collector] 实现 core.Observer，挂到客户端上即可统计所有流：
//
//	collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
//	if err != nil {
//	    return err
//	}
//	client, err := openai.New(cfg, core.WithClientObserver(collector))
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lwmacct/251215-go-pkg-openai/pkg/llm/core"
)

// Namespace 所有指标的前缀
const Namespace = "openai"

// Collector 流指标
type Collector struct {
	Chunks prometheus.Counter
	Bytes  prometheus.Counter
	Frames *prometheus.CounterVec
	Closed *prometheus.CounterVec
	Active prometheus.Gauge
}

var _ core.Observer = (*Collector)(nil)

// NewCollector 创建并注册流指标
//
// reg 为 nil 时不注册，适合只在测试中读取数值。
// 同一组指标已注册时复用已有的指标。
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		Chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "chunks_total",
			Help:      "Chunks received from stream sources",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "bytes_total",
			Help:      "Bytes received from stream sources",
		}),
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "frames_total",
			Help:      "Decoded frames by kind",
		}, []string{"kind"}),
		Closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "stream",
			Name:      "closed_total",
			Help:      "Finished streams by reason",
		}, []string{"reason"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "streams_active",
			Help:      "Streams opened and not yet finished",
		}),
	}
	if reg == nil {
		return c, nil
	}

	var err error
	c.Chunks, err = register(reg, c.Chunks)
	if err != nil {
		return nil, err
	}
	c.Bytes, err = register(reg, c.Bytes)
	if err != nil {
		return nil, err
	}
	c.Frames, err = register(reg, c.Frames)
	if err != nil {
		return nil, err
	}
	c.Closed, err = register(reg, c.Closed)
	if err != nil {
		return nil, err
	}
	c.Active, err = register(reg, c.Active)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewCollector 同 NewCollector，注册失败时 panic
func MustNewCollector(reg prometheus.Registerer) *Collector {
	c, err := NewCollector(reg)
	if err != nil {
		panic(err)
	}
	return c
}

// register 注册指标，已存在时返回已注册的实例
func register[T prometheus.Collector](reg prometheus.Registerer, m T) (T, error) {
	err := reg.Register(m)
	if err == nil {
		return m, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, err
}

// ═══════════════════════════════════════════════════════════════════════════
// core.Observer
// ═══════════════════════════════════════════════════════════════════════════

// StreamOpened 实现 core.Observer
func (c *Collector) StreamOpened() {
	c.Active.Inc()
}

// ChunkReceived 实现 core.Observer
func (c *Collector) ChunkReceived(n int) {
	c.Chunks.Inc()
	c.Bytes.Add(float64(n))
}

// FrameDecoded 实现 core.Observer
func (c *Collector) FrameDecoded(kind core.EventKind) {
	c.Frames.WithLabelValues(kind.String()).Inc()
}

// StreamClosed 实现 core.Observer
func (c *Collector) StreamClosed(reason string) {
	c.Closed.WithLabelValues(reason).Inc()
	c.Active.Dec()
}
