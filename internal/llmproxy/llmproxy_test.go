package llmproxy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFromConfigRejectsEmptyAPIKey(t *testing.T) {
	_, ok := FromConfig("", "http://example.com", "gpt-4")
	if ok {
		t.Error("expected FromConfig to report not-configured for an empty api key")
	}
}

func TestFromConfigAcceptsAPIKey(t *testing.T) {
	c, ok := FromConfig("sk-test", "http://example.com/", "gpt-4")
	if !ok {
		t.Fatal("expected FromConfig to succeed")
	}
	if c.Model() != "gpt-4" {
		t.Errorf("Model() = %q, want gpt-4", c.Model())
	}
}

func TestCompleteReturnsFirstChoiceMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer auth header")
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`)
	}))
	defer srv.Close()

	c, ok := FromConfig("sk-test", srv.URL, "gpt-4")
	if !ok {
		t.Fatal("expected FromConfig to succeed")
	}

	resp, err := c.Complete(context.Background(), Request{Model: "gpt-4", Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hello there" {
		t.Errorf("Complete() = %+v, want one choice with content %q", resp, "hello there")
	}
}

func TestCompleteErrorStatusReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := FromConfig("sk-test", srv.URL, "gpt-4")
	_, err := c.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error for a non-2xx upstream response")
	}
}

func TestStreamRelaysContentDeltasAndDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, _ := FromConfig("sk-test", srv.URL, "gpt-4")

	var events []StreamEvent
	err := c.Stream(context.Background(), Request{}, func(e StreamEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3 (two deltas + done)", len(events))
	}
	if events[0].Data != "hel" || events[1].Data != "lo" {
		t.Errorf("events = %+v, want deltas \"hel\",\"lo\"", events)
	}
	if events[2].Event != "done" {
		t.Errorf("final event = %+v, want Event=done", events[2])
	}
}

func TestStreamInvalidPayloadEmitsErrorEventAndContinues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c, _ := FromConfig("sk-test", srv.URL, "gpt-4")

	var events []StreamEvent
	err := c.Stream(context.Background(), Request{}, func(e StreamEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2 (error + done)", len(events))
	}
	if events[0].Event != "error" {
		t.Errorf("events[0].Event = %q, want error", events[0].Event)
	}
	if events[1].Event != "done" {
		t.Errorf("events[1].Event = %q, want done", events[1].Event)
	}
}
