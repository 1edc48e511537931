// Package openai 提供 OpenAI 兼容 API 的端点层
//
// 本包把 HTTP 端点映射到 [core] 包中的解码器，支持 OpenAI 官方 API、
// OpenRouter、DeepSeek、本地 Ollama 等遵循同一流式协议的服务。
//
// # 概述
//
// [Client] 嵌入 [core.BaseClient]，每个端点选择一种解码方式：
//
//   - 事件流: [Client.CreateCompletionStream]、[Client.CreateChatCompletionStream]、
//     [Client.FineTuneEventStream]，返回 [core.Stream] 的别名类型
//   - JSONL 文件: [FileContent] 返回 [core.LineDecoder]
//   - 原始字节: [Client.RawFileContent]、[Client.DownloadImage] 返回 [core.BufferedReader]
//   - 非流式: [Client.CreateChatCompletion]
//
// # 快速开始
//
//	client, err := openai.New(&llm.Config{APIKey: "sk-xxx"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stream, err := client.CreateChatCompletionStream(ctx, &openai.ChatCompletionRequest{
//	    Model:    "gpt-4o-mini",
//	    Messages: []llm.ChatMessage{llm.UserMessage("Hello")},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Close()
//
//	resp, err := openai.CollectChat(ctx, stream)
//
// # 流式响应
//
// 流是拉取式的：每次 Recv 才会从连接读取数据，不启动任何 goroutine。
// [ChatAccumulator] 按候选索引聚合文本和推理内容，[TextDeltas] 只产出文本增量。
//
// # 错误处理
//
// 打开流时的非 2xx 响应返回 *llm.APIError；流内的错误对象返回 *llm.ProtocolError，
// 并结束该流。详见 [llm.IsTerminalStreamError]。
//
// # 线程安全
//
// [Client] 可以并发使用；单个流只能由一个 goroutine 读取。
package openai
