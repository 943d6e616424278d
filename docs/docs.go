// Package docs отдаёт OpenAPI-описание API для swagger UI.
package docs

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.json
var spec []byte

// Handler отдаёт /swagger/doc.json.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec)
}

// Spec возвращает копию документа.
func Spec() []byte {
	out := make([]byte, len(spec))
	copy(out, spec)
	return out
}
