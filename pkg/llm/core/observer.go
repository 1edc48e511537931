package core

// Observer 流的观测钩子
//
// 所有回调都在消费者调用 Recv/Fill 的 goroutine 中同步执行，实现必须快速返回。
// metrics 包提供基于 Prometheus 的实现。
type Observer interface {
	// StreamOpened 创建了一个流或读取器，之后恰好对应一次 StreamClosed
	StreamOpened()

	// ChunkReceived 从来源收到一个 n 字节的块
	ChunkReceived(n int)

	// FrameDecoded 解码出一帧
	FrameDecoded(kind EventKind)

	// StreamClosed 流结束，reason 见 CloseReason* 常量
	StreamClosed(reason string)
}

// 流结束原因
const (
	CloseReasonDone           = "done"            // 收到 [DONE]
	CloseReasonEOF            = "eof"             // 来源结束
	CloseReasonProtocolError  = "protocol_error"  // 流内错误对象
	CloseReasonDecodeError    = "decode_error"    // 帧无法解析
	CloseReasonTransportError = "transport_error" // 来源出错
	CloseReasonClosed         = "closed"          // 调用方提前 Close
)

// NopObserver 空实现
type NopObserver struct{}

func (NopObserver) StreamOpened()          {}
func (NopObserver) ChunkReceived(int)      {}
func (NopObserver) FrameDecoded(EventKind) {}
func (NopObserver) StreamClosed(string)    {}
