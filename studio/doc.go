// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
包 studio 是多平台生成编排层，每个产品功能对应 Studio 上的一个方法。

# 概述

每个功能都是两分支调度：入口处按 AIConfig.Platform 选出一个 Backend
（魔搭或百炼各一个实现），之后所有平台差异都封装在 Backend 内部，
两个分支最终汇合到同一个返回结构：图片 URL 或结构化文本。

# 核心流程

图像类功能：

 1. 解码输入图片并读取宽高；百炼分支按 [512, 4096] 缩放。
 2. 魔搭分支需要图片 URL，先经 storage.Store 落盘。
 3. 按年龄段拼接提示词；魔搭分支经 Translator 翻译为英文。
 4. 以输入宽高比计算 1024 长边、64 取整的输出尺寸。
 5. 调用执行器（同步或提交后轮询）得到结果 URL。

文本类功能构造带年龄段的提示词后调用对话执行器，需要结构化输出时
统一经 structured.Extract 解析，解析失败返回 MALFORMED_OUTPUT。

# 批量与错误

创意灵感的示例图以 errgroup 并发生成（默认上限 5），结果按下标写回，
单条失败置为 null；凭证类错误取消整组并使整批失败。
本层不做自动重试，输入校验在任何上游调用之前完成。
*/
package studio
