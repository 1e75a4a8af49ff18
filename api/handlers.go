package api

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/retrieval"
)

// APIKeyHeader carries the caller's embedding provider key.
const APIKeyHeader = "X-OPENAI-KEY"

// PlaceholderAnswer is returned as the chat answer; answers are not
// generated yet, only their sources are retrieved.
const PlaceholderAnswer = "This is a response."

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"topK,omitempty"`
}

// ChatResponse is the data of a successful chat response.
type ChatResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Source is one retrieved chunk backing an answer.
type Source struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	DocumentID string `json:"documentId"`
	URL        string `json:"url,omitempty"`
}

// IngestRequest is the body of POST /api/v1/chunks.
type IngestRequest struct {
	Chunks []IngestChunk `json:"chunks"`
}

// IngestChunk is one chunk to embed and store. ID is assigned when empty.
type IngestChunk struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text"`
	DocumentID string `json:"documentId"`
	URL        string `json:"url,omitempty"`
}

// IngestResponse is the data of a successful ingestion.
type IngestResponse struct {
	IDs []string `json:"ids"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.SendString("pong")
}

// handleChat handles POST /api/v1/chat.
func (s *Server) handleChat(c *fiber.Ctx) error {
	apiKey, err := requireAPIKey(c)
	if err != nil {
		return fail(c, err)
	}

	var req ChatRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, err)
	}

	if strings.TrimSpace(req.Question) == "" {
		return fail(c, coreerr.WithMessage(coreerr.BadRequest, "question is required"))
	}

	topK := s.config.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	resp := ChatResponse{
		Answer:  PlaceholderAnswer,
		Sources: []Source{},
	}

	if s.config.Retriever != nil {
		chunks, err := s.config.Retriever.Retrieve(c.UserContext(), apiKey, req.Question, topK)
		if err != nil {
			s.logFailure("chat", err)
			return fail(c, err)
		}

		for _, chunk := range chunks {
			resp.Sources = append(resp.Sources, Source{
				ID:         chunk.ID,
				Text:       chunk.Text,
				DocumentID: chunk.DocumentID,
				URL:        chunk.URL,
			})
		}
	}

	s.logger.Debug("answered chat",
		"top_k", topK,
		"sources", len(resp.Sources),
	)

	return success(c, resp)
}

// handleIngest handles POST /api/v1/chunks.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	apiKey, err := requireAPIKey(c)
	if err != nil {
		return fail(c, err)
	}

	if s.config.Retriever == nil {
		return fail(c, coreerr.WithMessage(coreerr.InternalError, "ingestion is not configured"))
	}

	var req IngestRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, err)
	}

	docs := make([]retrieval.Document, len(req.Chunks))
	for i, chunk := range req.Chunks {
		docs[i] = retrieval.Document{
			ID:         chunk.ID,
			Text:       chunk.Text,
			DocumentID: chunk.DocumentID,
			URL:        chunk.URL,
		}
	}

	ids, err := s.config.Retriever.Ingest(c.UserContext(), apiKey, docs)
	if err != nil {
		s.logFailure("ingest", err)
		return fail(c, err)
	}

	return success(c, IngestResponse{IDs: ids})
}

func requireAPIKey(c *fiber.Ctx) (string, error) {
	apiKey := strings.TrimSpace(c.Get(APIKeyHeader))
	if apiKey == "" {
		return "", coreerr.New(coreerr.EmbeddingKeyNotFound)
	}
	return apiKey, nil
}

func decodeBody(c *fiber.Ctx, out any) error {
	if err := json.Unmarshal(c.Body(), out); err != nil {
		return &coreerr.Error{Kind: coreerr.BadRequest, Message: "invalid request body", Err: err}
	}
	return nil
}

func (s *Server) logFailure(op string, err error) {
	kind, _ := coreerr.KindOf(err)
	s.logger.Warn("request failed",
		"op", op,
		"kind", kind.String(),
		"error", err,
	)
}
