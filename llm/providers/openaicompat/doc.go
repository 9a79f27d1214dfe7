// Package openaicompat provides the shared chat executor for OpenAI-compatible
// endpoints.
//
// Both vendor platforms expose an OpenAI Chat Completions surface: ModelScope's
// inference API and DashScope's compatible mode. The platform packages build
// one Provider each and only set what differs (name, base URL, default model):
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "modelscope",
//	    BaseURL:      "https://api-inference.modelscope.cn/",
//	    DefaultModel: "Qwen/Qwen3-30B-A3B-Instruct-2507",
//	}, logger)
//	res, err := p.Completion(ctx, apiKey, &llm.ChatRequest{...})
package openaicompat
