// Package llm 定义 OpenAI 兼容 API 的配置、数据类型和错误
//
// 本包是整个模块的底层，不发起任何网络请求：
//   - [Config]: 客户端配置，支持 yaml/json 文件
//   - [ProviderType]: OpenAI 兼容服务及其默认 Base URL
//   - [ChatMessage]、[ChatCompletionChunk]、[Completion] 等请求与响应类型
//   - 分层的错误类型，见 errors.go
//
// 完整使用示例请参考 example_test.go。
//
// # 流式解码
//
// [pkg/llm/core] 把任意切分的字节块重新组装为帧并解码：
//   - core.Stream[T]: 以空行分隔的 data: 事件流，[DONE] 结束
//   - core.LineDecoder[T]: JSONL 内容
//   - core.BufferedReader: 原始字节，实现 io.Reader
//
// 流是拉取式的，只在调用方请求下一项时读取连接。
//
// # 错误
//
// 流一旦遇到下面三类错误就结束，之后的读取返回 io.EOF：
//   - [TransportError]: 来源（连接）出错
//   - [ProtocolError]: 服务端在流内发送了 {"error":{...}}
//   - [DecodeError]: 帧无法解析为目标类型
//
// 打开流之前的错误是 [ConfigError]、[RequestError]、[HTTPError] 或 [APIError]。
//
// # 包组织
//
//   - pkg/llm/core: 流式解码核心与基础 HTTP 客户端
//   - pkg/llm/provider/openai: 端点层
//   - pkg/llm/provider/mock: 测试用的块来源与 HTTP 服务
//   - pkg/llm/logger: slog 日志构建
//   - pkg/llm/metrics: Prometheus 流指标
//   - pkg/llm/provider: 组装以上各部分
package llm
