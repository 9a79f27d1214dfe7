// Package modelscope 实现魔搭（ModelScope）推理 API 执行器。
//
// 对话与识图走 OpenAI 兼容的 v1/chat/completions；生图走
// v1/images/generations，同步模式直接返回 images[0].url，异步模式携带
// X-ModelScope-Async-Mode 头提交后按 v1/tasks/{id} 轮询。
package modelscope
