package domain

import (
	"path/filepath"
	"strings"
)

// Разрешённые расширения файлов изображений
var allowedExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
}

func AllowedImageExt(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedExts[ext]
	return ok
}

// Границы пагинации списка
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampListPage нормализует limit к [1, MaxListLimit], offset — к неотрицательному.
// Репозиторий и HTTP-слой клампят одинаково: иначе одна и та же страница
// кешировалась бы под разными ключами.
func ClampListPage(limit, offset int) (int, int) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Проверка обязательных полей метаданных по ТЗ
func (m UploadMeta) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return ErrBadParams
	}
	if strings.TrimSpace(m.Description) == "" {
		return ErrBadParams
	}
	return nil
}
