package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/models"
	"github.com/deutschlab/wortwerk/internal/prompt"
	"github.com/deutschlab/wortwerk/internal/store"
	"github.com/deutschlab/wortwerk/internal/vocab"
)

// maxUploadBytes caps speaking-response uploads at 25 MB, the Whisper limit.
const maxUploadBytes = 25 << 20

// handleGenerate returns the generation handler for one skill. All four
// endpoints share the flow: fetch vocabulary for the topic, build the skill's
// prompt, complete it, and relay the model output.
func (s *Server) handleGenerate(skill models.Skill) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Topic == "" {
			s.respondError(w, http.StatusBadRequest, "topic is required")
			return
		}
		if req.Level == "" {
			req.Level = string(models.LevelA1)
		}
		level := models.Level(req.Level)
		s.logger.Debug("generate request",
			zap.String("skill", string(skill)),
			zap.String("topic", req.Topic),
			zap.String("level", req.Level))

		result, err := s.resolver.FetchVocabulary(r.Context(), req.Topic, level, vocab.DefaultLimit)
		if err != nil {
			s.respondVocabError(w, err)
			return
		}
		if !result.Ranked {
			s.logger.Warn("generating from unranked vocabulary",
				zap.String("skill", string(skill)),
				zap.String("source", result.Source))
		}

		var p string
		switch skill {
		case models.SkillListening:
			p = prompt.Listening(req.Topic, level, result.Entries, req.ItemIDStart, req.PreferType)
		case models.SkillReading:
			p = prompt.Reading(req.Topic, level, result.Entries, req.ItemIDStart, req.PreferType)
		case models.SkillWriting:
			p = prompt.Writing(req.Topic, level, result.Entries, req.ItemIDStart, req.TaskType)
		case models.SkillSpeaking:
			p = prompt.Speaking(req.Topic, level, result.Entries, req.ItemIDStart, req.InteractionType)
		default:
			s.respondError(w, http.StatusInternalServerError, "unknown skill")
			return
		}

		content, err := s.llm.Complete(r.Context(), p)
		if err != nil {
			s.logger.Error("generation failed", zap.String("skill", string(skill)), zap.Error(err))
			s.respondError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.respondModelContent(w, content)
	}
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	var req models.VocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	result, err := s.resolver.FetchVocabulary(r.Context(), req.Query, models.Level(req.Level), req.Limit)
	if err != nil {
		s.respondVocabError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VocabularyResponse{
		Table:   result.Table,
		Ranked:  result.Ranked,
		Source:  result.Source,
		Entries: result.Entries,
	})
}

// respondVocabError maps resolver errors onto HTTP statuses. Table-not-found
// responses include the full resolution diagnostics.
func (s *Server) respondVocabError(w http.ResponseWriter, err error) {
	var notFound *vocab.TableNotFoundError
	switch {
	case errors.Is(err, vocab.ErrInvalidLevel):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, vocab.ErrStoreUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &notFound):
		attempts := make([]map[string]string, 0, len(notFound.Attempts))
		for _, a := range notFound.Attempts {
			attempt := map[string]string{
				"identifier": a.Identifier,
				"method":     a.Method,
			}
			if a.Err != nil {
				attempt["error"] = a.Err.Error()
			}
			attempts = append(attempts, attempt)
		}
		s.respondJSON(w, http.StatusNotFound, map[string]any{
			"error":      "vocabulary table not found",
			"expected":   notFound.Expected,
			"attempted":  notFound.AttemptedIdentifiers(),
			"discovered": notFound.Discovered,
			"attempts":   attempts,
		})
	default:
		s.logger.Error("vocabulary fetch failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := s.saveUpload(r, "file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	text, err := s.transcriber.TranscribeFile(r.Context(), path)
	if err != nil {
		s.logger.Error("transcription failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"transcription": text})
}

func (s *Server) handleValidateSpeaking(w http.ResponseWriter, r *http.Request) {
	path, cleanup, err := s.saveUpload(r, "file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	task := r.FormValue("speaking_task")
	if task == "" || !json.Valid([]byte(task)) {
		s.respondError(w, http.StatusBadRequest, "speaking_task must be a JSON object")
		return
	}

	transcript, err := s.transcriber.TranscribeFile(r.Context(), path)
	if err != nil {
		s.logger.Error("transcription failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	content, err := s.llm.Complete(r.Context(), prompt.EvaluateSpeaking(json.RawMessage(task), transcript))
	if err != nil {
		s.logger.Error("evaluation failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondModelContent(w, content)
}

// saveUpload writes the named multipart file to a uuid-named temp file,
// preserving the extension so the transcription API can sniff the format.
func (s *Server) saveUpload(r *http.Request, field string) (string, func(), error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, errors.New(field + " is required")
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".mp3"
	}
	path := filepath.Join(os.TempDir(), uuid.NewString()+ext)
	out, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(path)
		return "", nil, err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}

func (s *Server) handleEventPost(w http.ResponseWriter, r *http.Request) {
	var ev models.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if ev.EventType == "" {
		s.respondError(w, http.StatusBadRequest, "event_type is required")
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	s.eventsMu.Lock()
	s.events = append(s.events, ev)
	events := make([]models.Event, len(s.events))
	copy(events, s.events)
	s.eventsMu.Unlock()
	s.respondJSON(w, http.StatusAccepted, map[string]any{"message": "Data received!", "data": events})
}

func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	s.eventsMu.Lock()
	events := make([]models.Event, len(s.events))
	copy(events, s.events)
	s.eventsMu.Unlock()
	s.respondJSON(w, http.StatusOK, map[string]any{"data": events})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"time":       time.Now().UTC().Format(time.RFC3339),
		"store_root": s.config.Store.Root,
		"model":      s.config.LLM.Model,
		"embedding": map[string]any{
			"model_path": s.config.Embedding.ModelPath,
			"dimensions": s.config.Embedding.Dimensions,
		},
	}
	if conn, err := store.Connect(s.config.Store.Root); err == nil {
		tables, lerr := conn.ListTables()
		resp["catalog"] = lerr == nil
		if lerr != nil {
			tables, _ = conn.ScanTables()
		}
		resp["tables"] = tables
	} else if s.watch != nil {
		resp["tables"] = s.watch.Tables()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// respondModelContent relays raw model output: valid JSON is passed through as
// application/json, anything else as plain text.
func (s *Server) respondModelContent(w http.ResponseWriter, content string) {
	if json.Valid([]byte(content)) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(content))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
