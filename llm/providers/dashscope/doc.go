// Package dashscope 实现阿里云百炼（DashScope）执行器。
//
// 文本对话走兼容模式 /chat/completions；识图走原生多模态接口；
// 图像编辑（wanx2.1-imageedit）、文生图（wanx2.1-t2i-turbo）与人像风格重绘
// （wanx-style-repaint-v1）都以 X-DashScope-Async: enable 提交，
// 再通过 /tasks/{id} 轮询 output.task_status。
package dashscope
