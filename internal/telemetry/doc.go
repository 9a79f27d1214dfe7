// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

// Package telemetry 封装 OpenTelemetry SDK 初始化，并为功能编排提供 span
// 与调用计数。
//
// 遥测禁用时全局 Provider 保持 noop，不连接任何外部服务；FeatureTracer
// 在 noop Provider 下同样可用。
package telemetry
