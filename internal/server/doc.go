// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

// Package server 管理 HTTP 服务器生命周期：非阻塞启动、优雅关闭与
// 系统信号等待。主 API 服务与 /metrics 服务各用一个 Manager。
package server
