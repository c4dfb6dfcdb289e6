package httpmw

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMaxBody_UnderLimit(t *testing.T) {
	var body []byte
	handler := MaxBody(64)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read under limit: %v", err)
		}
		body = b
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small payload"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if string(body) != "small payload" {
		t.Fatalf("body = %q", body)
	}
}

func TestMaxBody_OverLimit(t *testing.T) {
	var readErr error
	handler := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Fatal("expected error reading oversized body")
	}
	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("err = %T %v, want *http.MaxBytesError", readErr, readErr)
	}
}
