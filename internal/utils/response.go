package utils

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// NDJSON streams one JSON document per line.
func NDJSON[T any](w http.ResponseWriter, statusCode int, items []T) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return err
		}
	}
	return nil
}
