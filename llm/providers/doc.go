// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
# 概述

包 providers 是各平台执行器的公共基础层。子包 openaicompat、modelscope、
dashscope 依赖本包完成请求发送、错误映射和 OpenAI 兼容格式转换。

# 核心函数

  - MapHTTPError — 供应商状态码映射：401/403 → AUTHENTICATION，
    429 → RATE_LIMITED，其余 → UPSTREAM_ERROR（502）
  - ReadErrorMessage — 兼容 OpenAI 与百炼两种错误体
  - TransportError — 网络失败映射，超时为 UPSTREAM_TIMEOUT
  - DoJSON — 发送 JSON 请求、映射错误、解码响应
  - ConvertMessagesToOpenAI / ToChatResult — OpenAI 兼容格式转换，
    带图片的消息转换为 image_url + text 内容片段
*/
package providers
