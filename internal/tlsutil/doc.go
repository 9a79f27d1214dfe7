// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

// Package tlsutil 为访问魔搭、百炼的出站客户端提供统一的 TLS 加固配置
// （TLS 1.2+，仅 AEAD 密码套件）。
//
// 每个平台执行器持有一个由 SecureHTTPClient 构造的 *http.Client；
// 语音识别的 WebSocket 握手使用 WebSocketHTTPClient（HTTP/1.1，无整体超时）。
package tlsutil
