package llm

import "testing"

type planOut struct {
	Goal  string `json:"goal"`
	Count int    `json:"count"`
}

func TestExtractJSON_Plain(t *testing.T) {
	var out planOut
	if err := ExtractJSON(`{"goal":"list","count":2}`, &out); err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if out.Goal != "list" || out.Count != 2 {
		t.Errorf("got %+v", out)
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	raw := "Here is the plan:\n```json\n{\"goal\":\"search\",\"count\":1}\n```\nDone."
	var out planOut
	if err := ExtractJSON(raw, &out); err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if out.Goal != "search" {
		t.Errorf("Goal = %q, want %q", out.Goal, "search")
	}
}

func TestExtractJSON_FillerAroundObject(t *testing.T) {
	raw := `Sure! {"goal":"stats","count":4} hope that helps`
	var out planOut
	if err := ExtractJSON(raw, &out); err != nil {
		t.Fatalf("ExtractJSON() error = %v", err)
	}
	if out.Count != 4 {
		t.Errorf("Count = %d, want 4", out.Count)
	}
}

func TestExtractJSON_NoObject(t *testing.T) {
	var out planOut
	if err := ExtractJSON("no json here", &out); err == nil {
		t.Error("ExtractJSON() = nil, want error")
	}
}

func TestExtractJSON_MalformedObject(t *testing.T) {
	var out planOut
	if err := ExtractJSON(`{"goal": not-valid}`, &out); err == nil {
		t.Error("ExtractJSON() = nil, want error")
	}
}
