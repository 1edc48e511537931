// Package core 实现增量流式解码和基础 HTTP 客户端
//
// # 分层
//
//	ChunkSource      任意切分的字节块（HTTP 响应体、内存数据、测试来源）
//	    │
//	ChunkBuffer      块列表，只在必要时复制
//	    │
//	    ├── FrameSplitter → DecodeEvent → Stream[T]      data: 事件流
//	    └── BufferedReader ──────────────→ LineDecoder[T] JSONL
//	                       └─────────────→ io.Reader      原始字节
//
// 扫描是增量的：分隔符查找从上次扫描停下的位置继续，
// 因此一个被切成许多小块的大帧总耗时与其长度成线性关系。
//
// # 拉取模型
//
// 所有读取都由调用方驱动，不启动 goroutine。Recv 只在缓冲区里没有完整帧时
// 向来源拉取；收到 [DONE] 之后不再拉取，并立即关闭来源。
//
//	stream := core.NewStream[llm.ChatCompletionChunk](src)
//	defer stream.Close()
//	for chunk, err := range stream.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(chunk.Choices[0].Delta.Content)
//	}
//
// # 帧解码顺序
//
//  1. 整帧是错误对象 → EventError
//  2. 去掉 data: 前缀；内容为 [DONE] → EventEnd
//  3. data 内容是错误对象 → EventError
//  4. 反序列化为 T，失败返回 *llm.DecodeError
//
// 只有注释行的帧（如 ": keep-alive"）被跳过。
package core
