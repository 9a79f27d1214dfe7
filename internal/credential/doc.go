// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

// Package credential 把入站请求解析为经过验证的平台凭证。
//
// 会话令牌是 HS256 签名的 JWT，载荷携带用户的魔搭 API Key，有效期默认 30 天。
// 令牌来源依次为查询参数 token 与 Authorization: Bearer 头。
// 令牌只签名不加密，载荷中的 Key 对持有者可见。
package credential
