package storage

import (
	"context"
	"io"
)

// UploadResult описывает загруженный объект: ключ в бакете, публичный URL
// и ETag, возвращённый хранилищем.
type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader — объектное хранилище для пользовательских файлов
// (фото площадок). Ключ задаёт вызывающая сторона, хранилище его не меняет.
type FileUploader interface {
	// Upload записывает содержимое reader под ключом key.
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	// Delete удаляет объект; удаление отсутствующего ключа не является ошибкой.
	Delete(ctx context.Context, key string) error

	// GetPublicURL возвращает публичный URL объекта или пустую строку,
	// если URL собрать нельзя.
	GetPublicURL(key string) string
}
