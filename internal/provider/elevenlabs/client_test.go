package elevenlabs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fpang/ugc-factory/internal/provider"
)

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient("test-key")
	if err != nil {
		t.Fatal(err)
	}
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	return c
}

func TestVoices_CachedAfterFirstFetch(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Error("missing xi-api-key header")
		}
		w.Write([]byte(`{"voices": [{"voice_id": "v1", "name": "Rachel", "category": "premade", "preview_url": "https://example/p.mp3"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv)
	for i := 0; i < 3; i++ {
		voices, err := c.Voices(context.Background())
		if err != nil {
			t.Fatalf("Voices: %v", err)
		}
		if len(voices) != 1 || voices[0].ID != "v1" || voices[0].Name != "Rachel" {
			t.Errorf("voices = %+v", voices)
		}
	}
	if fetches != 1 {
		t.Errorf("fetches = %d, want 1 (catalog should be cached)", fetches)
	}
}

func TestSynthesize_DefaultsApplied(t *testing.T) {
	var captured ttsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/text-to-speech/"+DefaultVoiceID {
			t.Errorf("path = %q, want default voice", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	result, err := testClient(t, srv).Synthesize(context.Background(),
		"I thought my back pain was forever.", "", provider.VoiceSettings{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(result.Audio) != "mp3-bytes" || result.ContentType != "audio/mpeg" {
		t.Errorf("result = %+v", result)
	}
	if captured.ModelID != DefaultModelID {
		t.Errorf("model = %q", captured.ModelID)
	}
	s := captured.VoiceSettings
	if s.Stability != 0.5 || s.SimilarityBoost != 0.75 || s.Style != 0.0 || !s.UseSpeakerBoost {
		t.Errorf("settings = %+v, want defaults", s)
	}
}

func TestSynthesize_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv).Synthesize(context.Background(), "text", "v1", DefaultSettings); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestSynthesize_EmptyTextRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request should be sent for empty text")
	}))
	defer srv.Close()

	if _, err := testClient(t, srv).Synthesize(context.Background(), "", "v1", DefaultSettings); err == nil {
		t.Fatal("expected error for empty text")
	}
}
