package errors

import (
	"net/http"
	"testing"
)

func TestToStatusCode(t *testing.T) {
	tests := map[string]int{
		CodeNotFound:     http.StatusNotFound,
		CodeUnauthorized: http.StatusUnauthorized,
		CodeForbidden:    http.StatusForbidden,
		CodeConflict:     http.StatusConflict,
		CodeBadRequest:   http.StatusBadRequest,
		CodeUnavailable:  http.StatusServiceUnavailable,
		"something_else": http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := ToStatusCode(code); got != want {
			t.Errorf("ToStatusCode(%q) = %d, want %d", code, got, want)
		}
	}
}
