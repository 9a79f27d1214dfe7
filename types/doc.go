// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
Package types 提供 ArtSpark 服务的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 llm、studio、api 等上层模块
提供统一的词汇表。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - Platform          — 供应商平台选择器（modelscope / bailian）
  - Feature           — 产品功能枚举（上色、创意工坊、人像工坊等）
  - StyledIdea        — 创意灵感条目，示例图可为 null
  - ChatMessage       — 前端传入的多轮对话消息

# 错误工具链

  - AsError / GetErrorCode / IsErrorCode / IsRetryable
  - IsAuthError：凭证不可用（本地缺失或上游拒绝），批量任务据此立即中止
  - NewValidationError / NewCredentialError / NewMalformedOutputError /
    NewTimeoutError / NewUpstreamError
*/
package types
