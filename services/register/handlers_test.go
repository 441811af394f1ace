// Copyright (C) 2025 Adam Hlaváček
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package register

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *Handlers) {
	t.Helper()
	svc := newTestService(t)
	handlers := NewHandlers(svc)
	router := gin.New()
	RegisterRoutes(router, handlers)
	return router, handlers
}

func doRequest(router *gin.Engine, method, path, body, contentType string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleDB_WriteAndRead(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "POST", "/db/k", "value=v1&password=s", "application/x-www-form-urlencoded")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", w.Body.String())
	}

	w = doRequest(router, "GET", "/db/k?password=s", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != "v1" {
		t.Errorf("expected body 'v1', got %q", w.Body.String())
	}
}

func TestHandleDB_ReadMissing(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "GET", "/db/never-written", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	if w.Body.String() != "" {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
}

func TestHandleDB_Unauthorized(t *testing.T) {
	router, _ := setupTestRouter(t)

	doRequest(router, "POST", "/db/k", "value=v1&password=s", "application/x-www-form-urlencoded")

	w := doRequest(router, "GET", "/db/k?password=wrong", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if w.Body.String() != "unauthorized" {
		t.Errorf("expected body 'unauthorized', got %q", w.Body.String())
	}

	// No secret at all is a mismatch too once one is bound.
	w = doRequest(router, "GET", "/db/k", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestHandleDB_Append(t *testing.T) {
	router, _ := setupTestRouter(t)

	doRequest(router, "POST", "/db/k", "value=a", "application/x-www-form-urlencoded")
	w := doRequest(router, "POST", "/db/k", "value=b&append=1", "application/x-www-form-urlencoded")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = doRequest(router, "GET", "/db/k", "", "")
	if w.Body.String() != "ab" {
		t.Errorf("expected body 'ab', got %q", w.Body.String())
	}
}

func TestHandleDB_Clear(t *testing.T) {
	router, _ := setupTestRouter(t)

	doRequest(router, "POST", "/db/k", "value=v1", "application/x-www-form-urlencoded")

	w := doRequest(router, "DELETE", "/db/k", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != "v1" {
		t.Errorf("clear should report the removed value, got %q", w.Body.String())
	}

	w = doRequest(router, "GET", "/db/k", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d after clear, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandleDB_JSONBody(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "POST", "/db/k", `{"value":"v1","password":"s"}`, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	w = doRequest(router, "GET", "/db/k?password=s", "", "")
	if w.Body.String() != "v1" {
		t.Errorf("expected body 'v1', got %q", w.Body.String())
	}
}

func TestHandleDB_ItemFromFields(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "POST", "/db/", `{"item":"k","value":"v1"}`, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}

	w = doRequest(router, "GET", "/db/k", "", "")
	if w.Body.String() != "v1" {
		t.Errorf("expected body 'v1', got %q", w.Body.String())
	}
}

func TestHandleDB_MissingItem(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "GET", "/db/", "", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if w.Body.String() != "missing item" {
		t.Errorf("expected body 'missing item', got %q", w.Body.String())
	}
}

func TestMessageLogEndpoints(t *testing.T) {
	router, handlers := setupTestRouter(t)

	w := doRequest(router, "GET", "/", "", "")
	if w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("expected empty log, got %d %q", w.Code, w.Body.String())
	}

	doRequest(router, "POST", "/", "msg=hello", "application/x-www-form-urlencoded")
	doRequest(router, "GET", "/log/world", "", "")

	w = doRequest(router, "GET", "/", "", "")
	if !strings.Contains(w.Body.String(), "hello") || !strings.Contains(w.Body.String(), "world") {
		t.Errorf("expected both messages in log, got %q", w.Body.String())
	}
	if handlers.MessageLog().Len() != 2 {
		t.Errorf("expected 2 log entries, got %d", handlers.MessageLog().Len())
	}

	w = doRequest(router, "GET", "/clear", "", "")
	if w.Body.String() != "ok" {
		t.Errorf("expected 'ok', got %q", w.Body.String())
	}
	if handlers.MessageLog().Len() != 0 {
		t.Errorf("expected empty log after clear, got %d entries", handlers.MessageLog().Len())
	}
}

func TestHandleHook_WriteAndRead(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "POST", "/hook/mysecret", `{"event":"push"}`, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}

	w = doRequest(router, "GET", "/hook/mysecret", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var stored map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &stored); err != nil {
		t.Fatalf("stored hook payload is not JSON: %v", err)
	}
	if stored["event"] != "push" {
		t.Errorf("expected stored event 'push', got %v", stored["event"])
	}
	if _, ok := stored["$timestamp"]; !ok {
		t.Error("expected the stored payload to carry $timestamp")
	}
}

func TestHandleHook_MissingRead(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "GET", "/hook/unused", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if fired, ok := resp["$fired"]; !ok || fired != false {
		t.Errorf("expected {\"$fired\": false}, got %v", resp)
	}
}

func TestHandleHook_Delete(t *testing.T) {
	router, _ := setupTestRouter(t)

	doRequest(router, "POST", "/hook/mysecret", `{"n":1}`, "application/json")

	w := doRequest(router, "DELETE", "/hook/mysecret", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = doRequest(router, "GET", "/hook/mysecret", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHookItemsAreKeyedBySecret(t *testing.T) {
	router, _ := setupTestRouter(t)

	doRequest(router, "POST", "/hook/mysecret", `{"n":1}`, "application/json")

	// A different path secret addresses a different item.
	w := doRequest(router, "GET", "/hook/othersecret", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("different hook secret must address a different item, got %d", w.Code)
	}

	// The original secret still reads its own item.
	w = doRequest(router, "GET", "/hook/mysecret", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := doRequest(router, "GET", "/metrics", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "httpdb_register_operations_total") &&
		!strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("expected prometheus metrics output")
	}
}
