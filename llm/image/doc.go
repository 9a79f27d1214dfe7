// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
Package image 提供两个平台共用的生图基础设施。

# 异步任务

[Poller] 实现 提交 → 轮询 状态机：Submitted → Running →
{Succeeded | Failed | Timeout}。具体平台只需提供 [FetchFunc]，
把各自的状态字段映射为 [TaskStatus]。

# 尺寸

  - [AdaptiveSize]：保持宽高比，长边 1024，按 64 取整
  - [RoundTo64]：round(x/64)*64，最小 64
  - [Size]：ModelScope() 输出 "WxH"，DashScope() 输出 "W*H"

# 输入图片

[DecodeDataURL] 解析前端 base64 图片；[Source.FitForDashScope]
把尺寸放进百炼接受的 [512, 4096] 区间。
*/
package image
