// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 ArtSpark HTTP API 的请求处理器实现。

# 概述

handlers 把 HTTP 请求解码为功能调用：解析平台与模型参数、
取出会话中的魔搭 Key、调用 studio 编排层，并以统一信封写回结果。
所有 Handler 均遵循标准 net/http 接口，路由使用 Go 1.22 的方法模式。

# 核心类型

  - StudioHandler    — 图像、文本、鉴赏与语音功能接口
  - AuthHandler      — set_key 签发会话令牌，check_key 校验令牌
  - HealthHandler    — /health、/healthz、/ready、/version
  - Response         — 统一 JSON 信封（success + data + error + timestamp + request_id）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码

# 错误映射

WriteError 按 types.ErrorCode 决定状态码：INVALID_REQUEST 400，
UNAUTHORIZED 与 AUTHENTICATION 401，RATE_LIMITED 429，UPSTREAM_ERROR 502，
UPSTREAM_TIMEOUT 504，其余 500。错误自带 HTTPStatus 时优先使用。
*/
package handlers
