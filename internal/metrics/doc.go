// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
包 metrics 提供基于 Prometheus 的指标采集。

# 指标分组

  - HTTP：请求数、耗时、响应大小、限流拒绝数。
  - 上游：按平台与操作（chat、vision、image、poll、asr）统计调用数与耗时，
    以及 token 用量。
  - 异步任务：每次轮询按平台与任务状态计数。
  - 功能：按功能、平台、结果统计调用数与耗时；创意批量按条目结果计数。
  - 缓存与数据库：翻译缓存命中率、台账连接池状态。

Collector 通过 promauto 注册到传入的 Registerer，传 nil 时使用默认注册表。
*/
package metrics
