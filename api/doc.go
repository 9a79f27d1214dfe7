// Package api 定义 ArtSpark HTTP API 的请求与响应类型。
//
// # API 概览
//
// 所有功能接口位于 /api 下，请求体为 JSON（语音转文字为 multipart）：
//   - /api/set_key、/api/check_key 会话令牌
//   - /api/colorize-lineart、/api/creative-workshop、/api/portrait-workshop 图像功能
//   - /api/ask-question、/api/generate-ideas、/api/mood-painting 文本功能
//   - /api/gallery/explain、/api/critique-homework 鉴赏与点评
//   - /api/audio-to-text 语音转文字
//
// # 认证
//
// 除 set_key 外的 /api 接口需要会话令牌，可放在查询参数或请求头：
//
//	Authorization: Bearer <token>
//	/api/check_key?token=<token>
//
// # 响应
//
// 统一包裹为 {success, data, error, timestamp, request_id}，
// 见 handlers.Response。
package api
