// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
Package llm 定义模型调用层的规范化请求与结果类型。

# 概述

两个供应商平台（魔搭 ModelScope、百炼 DashScope）的执行器都把各自的
线协议转换成本包的几种规范形状，上层 studio 只面对这些类型：

  - [ChatRequest] / [Message]：对话与识图请求，Message.Images 承载图片输入
  - [ChatResult]：对话与识图的文本结果
  - [ImageResult]：生图、改图、人像重绘的图片 URL

# 子包

  - providers：HTTP 错误映射与各平台执行器
  - image：异步任务轮询、自适应尺寸、输入图片预处理
  - speech：Paraformer 实时语音识别
  - structured：从模型文本中提取 JSON
*/
package llm
