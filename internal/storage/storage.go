package storage

import "mime/multipart"

// FileStorage 抽象了图片资源的存储后端。
// Delete 是幂等的：删除不存在的路径不算错误
type FileStorage interface {
	UploadFile(file *multipart.FileHeader, path string) (string, error)
	DeleteFile(path string) error
	URL(path string) string
}
