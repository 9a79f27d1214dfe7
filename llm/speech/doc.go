// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
包 speech 提供语音识别（STT）接入层。

# 概述

当前实现对接百炼 Paraformer 实时识别（paraformer-realtime-v2），
通过 WebSocket 双工协议把整段上传音频切成 3200 字节的帧推流，
收集带 sentence_end 的句子并拼接为最终文本。

# 协议流程

 1. 发送 run-task 指令（JSON 文本帧），声明 format、sample_rate 等参数。
 2. 等待 task-started 事件。
 3. 推送二进制音频帧。
 4. 发送 finish-task 指令。
 5. 读取 result-generated 事件直到 task-finished；task-failed 视为上游错误。

空识别结果返回错误，不会作为空字符串成功返回。
*/
package speech
