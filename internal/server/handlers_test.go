package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/config"
	"github.com/deutschlab/wortwerk/internal/embedding"
	"github.com/deutschlab/wortwerk/internal/llm"
	"github.com/deutschlab/wortwerk/internal/models"
	"github.com/deutschlab/wortwerk/internal/store"
	"github.com/deutschlab/wortwerk/internal/transcribe"
	"github.com/deutschlab/wortwerk/internal/vocab"
)

type testEnv struct {
	server      *Server
	handler     http.Handler
	llm         *llm.MockClient
	transcriber *transcribe.MockTranscriber
}

// newTestEnv seeds a store with one A1 table and builds a server around mocks.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	mock := embedding.NewMockEmbedder(4)

	conn, err := store.Connect(root)
	if err != nil {
		t.Fatal(err)
	}
	table, err := conn.CreateTable(context.Background(), models.LevelA1.TableName())
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range []models.VocabularyEntry{
		{GermanTerm: "Regen", EnglishTranslation: "rain"},
		{GermanTerm: "Sonne", EnglishTranslation: "sun"},
		{GermanTerm: "Wolke", EnglishTranslation: "cloud"},
	} {
		vec, _ := mock.Embed(context.Background(), e.GermanTerm)
		if err := table.Insert(context.Background(), e, vec); err != nil {
			t.Fatal(err)
		}
	}
	table.Close()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Store.Root = root

	provider := embedding.NewProvider(func() (embedding.Embedder, error) {
		return mock, nil
	})
	resolver := vocab.NewResolver(root, provider)
	client := &llm.MockClient{Response: `[{"id":1}]`}
	transcriber := &transcribe.MockTranscriber{Text: "ich spiele gern fußball"}

	srv := NewServer(resolver, client, transcriber, nil, cfg, zap.NewNop())
	return &testEnv{
		server:      srv,
		handler:     srv.Router(),
		llm:         client,
		transcriber: transcriber,
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVocabularyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/vocabulary",
		models.VocabularyRequest{Query: "Regen", Level: "A1", Limit: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp models.VocabularyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Table != "A1_MINIMAL_vocabulary" || !resp.Ranked || resp.Source != "search" {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Entries) == 0 || len(resp.Entries) > 2 {
		t.Errorf("got %d entries", len(resp.Entries))
	}
}

func TestVocabularyInvalidLevel(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/vocabulary",
		models.VocabularyRequest{Query: "Regen", Level: "C1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVocabularyMissingQuery(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/vocabulary",
		models.VocabularyRequest{Level: "A1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestVocabularyTableNotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/vocabulary",
		models.VocabularyRequest{Query: "Arbeit", Level: "B2"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp struct {
		Expected   string   `json:"expected"`
		Attempted  []string `json:"attempted"`
		Discovered []string `json:"discovered"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Expected != "B2_MINIMAL_vocabulary" {
		t.Errorf("expected = %q", resp.Expected)
	}
	if len(resp.Attempted) == 0 {
		t.Error("attempted identifiers missing from diagnostics")
	}
	if len(resp.Discovered) != 1 || resp.Discovered[0] != "A1_MINIMAL_vocabulary" {
		t.Errorf("discovered = %v", resp.Discovered)
	}
}

func TestVocabularyStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	// Point the resolver at a root that no longer exists.
	provider := embedding.NewProvider(func() (embedding.Embedder, error) {
		return embedding.NewMockEmbedder(4), nil
	})
	env.server.resolver = vocab.NewResolver("/nonexistent/store", provider)

	rec := postJSON(t, env.server.Router(), "/api/v1/vocabulary",
		models.VocabularyRequest{Query: "Regen", Level: "A1"})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestGenerateListening(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/generate/listening",
		models.GenerateRequest{Topic: "Wetter", Level: "A1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want JSON passthrough", ct)
	}
	if rec.Body.String() != `[{"id":1}]` {
		t.Errorf("body = %s, want raw model output", rec.Body.String())
	}
	if len(env.llm.Prompts) != 1 {
		t.Fatalf("llm called %d times", len(env.llm.Prompts))
	}
	p := env.llm.Prompts[0]
	if !strings.Contains(p, "listening") || !strings.Contains(p, `"Regen"`) {
		t.Error("prompt missing skill or retrieved vocabulary")
	}
}

func TestGeneratePlainTextPassthrough(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Response = "Sorry, I cannot produce JSON today."
	rec := postJSON(t, env.handler, "/api/v1/generate/reading",
		models.GenerateRequest{Topic: "Wetter", Level: "A1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain for non-JSON output", ct)
	}
}

func TestGenerateMissingTopic(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/generate/writing",
		models.GenerateRequest{Level: "A1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerateLLMFailure(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Err = errors.New("upstream down")
	rec := postJSON(t, env.handler, "/api/v1/generate/speaking",
		models.GenerateRequest{Topic: "Reisen", Level: "A1"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := w.CreateFormFile(fileField, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(fileData); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestTranscribeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, nil, "file", "answer.mp3", []byte("fake audio"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["transcription"] != "ich spiele gern fußball" {
		t.Errorf("transcription = %q", resp["transcription"])
	}
	if len(env.transcriber.Paths) != 1 {
		t.Fatalf("transcriber called %d times", len(env.transcriber.Paths))
	}
	if !strings.HasSuffix(env.transcriber.Paths[0], ".mp3") {
		t.Errorf("temp file %q should keep the extension", env.transcriber.Paths[0])
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, map[string]string{"other": "x"}, "wrong", "a.mp3", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestValidateSpeaking(t *testing.T) {
	env := newTestEnv(t)
	env.llm.Response = `{"task_completed":true,"is_acceptable":true,"score_out_of_10":8}`
	task := `{"question":"Was machst du am Wochenende?"}`
	body, ct := multipartBody(t, map[string]string{"speaking_task": task}, "file", "answer.wav", []byte("fake audio"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate/speaking", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(env.llm.Prompts) != 1 {
		t.Fatalf("llm called %d times", len(env.llm.Prompts))
	}
	p := env.llm.Prompts[0]
	if !strings.Contains(p, "Was machst du am Wochenende?") {
		t.Error("evaluation prompt missing the task")
	}
	if !strings.Contains(p, "ich spiele gern fußball") {
		t.Error("evaluation prompt missing the transcript")
	}
}

func TestValidateSpeakingRejectsBadTask(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartBody(t, map[string]string{"speaking_task": "not json"}, "file", "a.mp3", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/validate/speaking", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestEventsRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/events", models.Event{
		EventType: "exercise_completed",
		EventData: map[string]any{"score": 7},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var accepted struct {
		Message string         `json:"message"`
		Data    []models.Event `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil {
		t.Fatal(err)
	}
	if len(accepted.Data) != 1 || accepted.Data[0].EventID == "" {
		t.Errorf("accepted = %+v, want one event with an assigned id", accepted)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	listRec := httptest.NewRecorder()
	env.handler.ServeHTTP(listRec, req)
	var list struct {
		Data []models.Event `json:"data"`
	}
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].EventType != "exercise_completed" {
		t.Errorf("list = %+v", list)
	}
}

func TestEventsRequireType(t *testing.T) {
	env := newTestEnv(t)
	rec := postJSON(t, env.handler, "/api/v1/events", models.Event{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["store_root"] == "" {
		t.Error("store_root missing from status")
	}
}
