package kling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient("access", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if srv != nil {
		c.baseURL = srv.URL
		c.httpClient = srv.Client()
	}
	return c
}

func TestToken_Claims(t *testing.T) {
	c := testClient(t, nil)
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	signed, err := c.token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	parsed, err := jwt.Parse(signed, func(tok *jwt.Token) (any, error) {
		if tok.Method.Alg() != "HS256" {
			t.Errorf("alg = %q, want HS256", tok.Method.Alg())
		}
		return []byte("secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	claims := parsed.Claims.(jwt.MapClaims)
	if claims["iss"] != "access" {
		t.Errorf("iss = %v", claims["iss"])
	}
	if exp := int64(claims["exp"].(float64)); exp != fixed.Add(30*time.Minute).Unix() {
		t.Errorf("exp = %d", exp)
	}
	if nbf := int64(claims["nbf"].(float64)); nbf != fixed.Add(-5*time.Second).Unix() {
		t.Errorf("nbf = %d", nbf)
	}
}

func TestToken_CachedUntilNearExpiry(t *testing.T) {
	c := testClient(t, nil)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first, _ := c.token()

	// 28 minutes in: still >60s from expiry, token reused.
	now = now.Add(28 * time.Minute)
	second, _ := c.token()
	if first != second {
		t.Error("token should be reused before the expiry buffer")
	}

	// 29m30s in: inside the 60s buffer, token re-minted.
	now = now.Add(90 * time.Second)
	third, _ := c.token()
	if first == third {
		t.Error("token should be re-minted inside the expiry buffer")
	}
}

func TestSubmit_RequestShape(t *testing.T) {
	var captured createTaskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/videos/image2video" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") == "" {
			t.Error("missing Authorization header")
		}
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(taskEnvelope{Data: taskData{TaskID: "task-123", TaskStatus: "submitted"}})
	}))
	defer srv.Close()

	task, err := testClient(t, srv).Submit(context.Background(), provider.VideoRequest{
		Prompt:          "subtle motion, steady camera",
		SourceImage:     []byte("frame"),
		DurationSeconds: 10,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if task.ID != "task-123" || task.Status != provider.TaskQueued {
		t.Errorf("task = %+v", task)
	}
	if captured.ModelName != "kling-v2-master" || captured.Mode != "std" {
		t.Errorf("model/mode = %q/%q", captured.ModelName, captured.Mode)
	}
	if captured.Duration != "10" {
		t.Errorf("duration = %q, want \"10\"", captured.Duration)
	}
	if captured.AspectRatio != "9:16" {
		t.Errorf("aspect = %q, want default 9:16", captured.AspectRatio)
	}
	if captured.CfgScale != 0.5 {
		t.Errorf("cfg_scale = %f", captured.CfgScale)
	}
	if captured.Image == "" {
		t.Error("source image missing from request")
	}
}

func TestAwait_SucceedsAfterProcessing(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		polls++
		status := "processing"
		data := taskData{TaskID: "task-123", TaskStatus: status}
		if polls >= 3 {
			data.TaskStatus = "succeed"
			data.TaskResult.Videos = []struct {
				URL      string `json:"url"`
				Duration string `json:"duration"`
			}{{URL: "https://cdn.example/video.mp4", Duration: "5"}}
		}
		json.NewEncoder(w).Encode(taskEnvelope{Data: data})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	c.pollInterval = time.Millisecond

	result, err := c.Await(context.Background(), "task-123")
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if result.Status != provider.TaskSucceeded || result.ResultURL != "https://cdn.example/video.mp4" {
		t.Errorf("result = %+v", result)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestAwait_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(taskEnvelope{Data: taskData{TaskID: "task-123", TaskStatus: "processing"}})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	c.pollInterval = time.Millisecond
	c.maxWait = 10 * time.Millisecond

	result, err := c.Await(context.Background(), "task-123")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !pipeline.IsTimeout(err) {
		t.Errorf("error kind = %v, want timeout", pipeline.KindOf(err))
	}
	if result == nil || result.Status != provider.TaskRunning {
		t.Errorf("last poll result should accompany the timeout, got %+v", result)
	}
}

func TestAwait_TaskFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(taskEnvelope{Data: taskData{TaskID: "task-123", TaskStatus: "failed"}})
	}))
	defer srv.Close()

	c := testClient(t, srv)
	c.pollInterval = time.Millisecond

	_, err := c.Await(context.Background(), "task-123")
	if err == nil {
		t.Fatal("expected failure error")
	}
	if pipeline.KindOf(err) != pipeline.KindCapability {
		t.Errorf("kind = %v", pipeline.KindOf(err))
	}
}
