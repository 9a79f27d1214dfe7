// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
Package main 提供 ArtSpark 服务端程序入口。

# 概述

cmd/artspark 是儿童美术创作助手的可执行入口，提供 HTTP API 服务、
用量台账建表与统计、健康检查和版本查询等子命令。配置按
默认值、YAML 文件、ARTSPARK_ 环境变量的顺序加载。

# 核心类型

  - Server      — 主服务器，组装执行器与 Studio，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware  — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 中间件链

Recovery → RequestID → RealIP → SecurityHeaders → OTelTracing →
MetricsMiddleware → RequestLogger → CORS → RateLimiter → TokenAuth。

TokenAuth 只保护 /api/ 路径（set_key、check_key 除外），校验会话令牌后
把其中的魔搭 Key 写入 context，供功能 handler 解析平台凭证。

# 降级

Redis 不可用时翻译不缓存；数据库不可用时不记录用量。两者都不会阻止启动。
*/
package main
