// Package fingerprint считает контент-хэш загружаемого файла.
// Хэш — ключ дедупликации: одинаковые байты всегда дают одинаковый отпечаток.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum потоково считает sha256 и возвращает hex-отпечаток и число байт.
// Весь файл в памяти не держим — читаем чанками через io.Copy.
func Sum(r io.Reader) (hash string, size int64, err error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
