// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
包 database 管理用量台账所用的 GORM 连接与连接池。

# 概述

Open 按配置选择 postgres、mysql 或纯 Go 的 sqlite 驱动；PoolManager 负责
连接池参数、健康检查与事务封装；UsageRecorder 为每次功能调用写入一行
UsageRecord。台账只记元数据（请求 ID、功能、平台、结果、错误码、耗时），
不保存图片或 API Key。

写入失败只记录日志，不影响请求结果。
*/
package database
