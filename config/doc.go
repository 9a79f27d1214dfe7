// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

// Package config 提供 ArtSpark 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → ARTSPARK_ 前缀环境变量 的顺序叠加，
// 覆盖服务端口、两个供应商平台的默认模型与轮询预算、会话令牌、
// 图片存储、Redis 翻译缓存、用量台账数据库、日志与遥测。
package config
