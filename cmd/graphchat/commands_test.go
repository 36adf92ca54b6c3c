package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
	UserID string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
			UserID: r.Header.Get("X-User-ID"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		userID:     "cli",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestChatRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/chat": `{"response":"Có 3 phòng ban.","queryType":"list-departments","conversationId":"c-1"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/api/chat", map[string]string{
		"message":        "danh sách phòng ban",
		"conversationId": "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Response       string `json:"response"`
		ConversationID string `json:"conversationId"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result.Response != "Có 3 phòng ban." || result.ConversationID != "c-1" {
		t.Errorf("result = %+v", result)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}
	if r.UserID != "cli" {
		t.Errorf("X-User-ID = %q, want cli", r.UserID)
	}

	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["message"] != "danh sách phòng ban" {
		t.Errorf("body.message = %q", body["message"])
	}
}

func TestAgentRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/agent": `{"id":"ex-1","goal":"so sánh","steps":[{"id":1,"tool":"org_stats","status":"completed"}],"finalAnswer":"xong"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/api/agent", map[string]string{"message": "so sánh"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var exec struct {
		ID    string `json:"id"`
		Steps []struct {
			Tool   string `json:"tool"`
			Status string `json:"status"`
		} `json:"steps"`
		FinalAnswer string `json:"finalAnswer"`
	}
	if err := decodeJSON(resp, &exec); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if exec.ID != "ex-1" || exec.FinalAnswer != "xong" {
		t.Errorf("execution = %+v", exec)
	}
	if len(exec.Steps) != 1 || exec.Steps[0].Tool != "org_stats" {
		t.Errorf("steps = %+v", exec.Steps)
	}
}

func TestConversationsList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/conversations": `{"conversations":[{"id":"c-1","userId":"cli","updatedAt":"2026-08-01T00:00:00Z"}]}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/api/conversations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		Conversations []struct {
			ID string `json:"id"`
		} `json:"conversations"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(result.Conversations) != 1 || result.Conversations[0].ID != "c-1" {
		t.Errorf("conversations = %+v", result.Conversations)
	}
}

func TestConversationDelete(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /api/conversations/c-2": `{"deleted":"c-2"}`,
	})

	client := ts.client()
	resp, err := client.delete(ctx, "/api/conversations/c-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]string
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if result["deleted"] != "c-2" {
		t.Errorf("deleted = %q, want c-2", result["deleted"])
	}
	if ts.requests[0].Method != "DELETE" {
		t.Errorf("method = %q", ts.requests[0].Method)
	}
}

func TestChatCommand_MissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"chat"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected error for missing args")
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	if _, err := client.get(ctx, "/health"); err == nil {
		t.Fatal("expected error for stopped server")
	} else if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/api/conversations")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	if err := decodeJSON(resp, &result); err == nil {
		t.Fatal("expected error for 401 response")
	} else if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorGreen, "test message"); got != "test message" {
		t.Errorf("colorize with noColor=true = %q, want plain text", got)
	}

	noColor = false
	if got := colorize(colorGreen, "test message"); !strings.Contains(got, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}
