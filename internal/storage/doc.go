// Copyright (c) ArtSpark Authors.
// Licensed under the MIT License.

/*
包 storage 把上传图片落盘并生成公网可访问的 URL。

魔搭生图接口只接受图片 URL，不接受内联 base64，因此编排层在调用前先经
LocalStore.Put 把图片写到 {Dir}/uploads/{uuid}.{ext}，返回
{PublicBaseURL}/files/uploads/... 以及解码得到的宽高。Handler 以
http.FileServer 在 /files/ 下提供这些文件，供上游平台拉取。

仅接受 png、jpeg、gif、webp；其余 MIME 或无法解码的内容返回
INVALID_REQUEST，磁盘写入失败返回 STORAGE_ERROR。
*/
package storage
