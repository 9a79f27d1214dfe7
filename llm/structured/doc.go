// Package structured 从大模型的自由文本输出中提取结构化 JSON。
//
// 所有需要结构化结果的功能（创意灵感、作业点评等）共用 Extract，
// 找不到括号对或解码失败时返回 MALFORMED_OUTPUT 错误，不做静默回退。
package structured
