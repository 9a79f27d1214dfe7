// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
包 cache 封装 go-redis 客户端，为提示词翻译等可复用的上游结果提供缓存。

# 概述

Manager 负责连接生命周期：初始化时 Ping，后台定时健康检查，Close 时停止
检查并释放连接池。所有键都带 Namespace 前缀（默认 artspark:），
由 Key 方法拼接。

# 错误语义

未命中返回 ErrCacheMiss，可用 IsCacheMiss 判断。调用方应把缓存视为可选：
任何 Redis 错误都只记录日志，随后回落到上游调用。
*/
package cache
