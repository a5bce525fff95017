package mw

import (
	"crypto/subtle"
	"net/http"
)

// RequireAPIKey проверяет общий секрет в X-API-Key строго до хендлеров.
// Сравнение — константное по времени, сам ключ в логи не попадает.
func RequireAPIKey(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":1001,"text":"unauthorized"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
