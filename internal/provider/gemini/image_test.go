package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fpang/ugc-factory/internal/pipeline"
	"github.com/fpang/ugc-factory/internal/provider"
)

func testImageClient(srv *httptest.Server) *ImageClient {
	c := NewImageClient("test-key")
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	return c
}

func TestGenerateImage_RequestShape(t *testing.T) {
	var captured imageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ModelGemini3ProImage) {
			t.Errorf("path = %q, want image model", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		resp := imageResponse{Candidates: []imageCandidate{{Content: imageContent{
			Parts: []imagePart{{InlineData: &blobData{
				MIMEType: "image/png",
				Data:     base64.StdEncoding.EncodeToString([]byte("fake-png")),
			}}},
		}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	result, err := testImageClient(srv).GenerateImage(context.Background(), provider.ImageRequest{
		Prompt:      "a woman holding the cushion",
		AspectRatio: "9:16",
		ReferenceImages: []provider.ReferenceImage{
			{Data: []byte("product-bytes"), MIMEType: "image/jpeg", Label: "Product reference"},
		},
	})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if len(result.Images) != 1 || string(result.Images[0]) != "fake-png" {
		t.Errorf("images = %v", result.Images)
	}
	if result.MIMEType != "image/png" {
		t.Errorf("mime = %q", result.MIMEType)
	}

	if captured.GenerationConfig == nil ||
		captured.GenerationConfig.ImageConfig == nil ||
		captured.GenerationConfig.ImageConfig.AspectRatio != "9:16" {
		t.Error("aspect ratio not forwarded in generation config")
	}
	if len(captured.Contents) != 1 {
		t.Fatalf("contents = %d", len(captured.Contents))
	}
	parts := captured.Contents[0].Parts
	// Label text, reference blob, then the prompt.
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	if parts[0].Text != "Product reference:" {
		t.Errorf("label part = %q", parts[0].Text)
	}
	if parts[1].InlineData == nil || parts[1].InlineData.MIMEType != "image/jpeg" {
		t.Error("reference image blob missing")
	}
	if parts[2].Text != "a woman holding the cushion" {
		t.Errorf("prompt part = %q", parts[2].Text)
	}
}

func TestGenerateImage_HTTPErrorTagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "rate limit", "code": 429}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testImageClient(srv).GenerateImage(context.Background(), provider.ImageRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error")
	}
	if pipeline.KindOf(err) != pipeline.KindCapability {
		t.Errorf("kind = %v, want capability", pipeline.KindOf(err))
	}
}

func TestGenerateImage_NoImageInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := imageResponse{Candidates: []imageCandidate{{Content: imageContent{
			Parts: []imagePart{{Text: "I cannot generate that image."}},
		}}}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	_, err := testImageClient(srv).GenerateImage(context.Background(), provider.ImageRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error when no image returned")
	}
	if !strings.Contains(err.Error(), "no image returned") {
		t.Errorf("err = %v", err)
	}
}
