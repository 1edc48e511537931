// Package mock 提供流式解码核心和 OpenAI 客户端的测试替身
//
// 无需真实 API 即可复现各种网络切分、流内错误和传输中断。
//
// # 概述
//
//   - [Source]: 按脚本产出字节块的 core.ChunkSource，记录拉取次数
//   - [Handler]: 把一个 [Scenario] 逐块写到 HTTP 响应并 Flush
//   - [Server]: 基于 httptest 的 Mock 服务，按路由或当前场景响应并记录请求
//
// # 快速开始
//
//	src := mock.NewSource(
//	    "data: {\"id\":1}\n\n",
//	    "data: {\"id\":2}\n\nda",
//	    "ta: [DONE]\n\n",
//	)
//	stream := core.NewStream[Item](src)
//
// # 场景配置
//
// 场景可以从 YAML/JSON 加载，内嵌示例见 examples/streams.yaml：
//
//	scenarios:
//	  - name: broken
//	    chunks:
//	      - "data: {\"id\":1}\n\n"
//	    error: "connection reset by peer"
//	    error_after: 1
//
//	cfg, _ := mock.LoadExampleConfig()
//	sc, _ := cfg.Scenario("broken")
//	src := sc.Source()
//
// # Mock 服务
//
//	srv := mock.NewServer(nil)
//	defer srv.Close()
//
//	srv.UseScenario("chat").
//	    Route("GET /files/file-1/content", "training-file")
//
// # 线程安全
//
// [Source] 和 [Server] 都可以被并发访问；但同一个 Source 只应交给一个消费者。
package mock
