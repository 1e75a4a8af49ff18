package qdrant

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/papercomputeco/ragchat/pkg/vector"
)

// payload is the per-point payload stored alongside each vector.
type payload struct {
	Text       string  `json:"text"`
	DocumentID string  `json:"documentId"`
	URL        *string `json:"url"`
}

// point is a single upserted vector with its payload.
type point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

// upsertRequest is the request body for PUT /collections/{name}/points.
type upsertRequest struct {
	Points []point `json:"points"`
}

// searchRequest is the request body for POST /collections/{name}/points/search.
type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Top         int       `json:"top"`
	WithPayload bool      `json:"with_payload"`
}

// searchResponse is the response from a search. Qdrant servers answer with
// "result"; proxies in front of it may rename the field to "results".
type searchResponse struct {
	Results []searchResult `json:"results"`
	Result  []searchResult `json:"result"`
}

func (r searchResponse) hits() []searchResult {
	if len(r.Results) > 0 {
		return r.Results
	}
	return r.Result
}

// searchResult is one scored hit.
type searchResult struct {
	ID      pointID  `json:"id"`
	Score   float32  `json:"score"`
	Payload *payload `json:"payload"`
}

// pointID accepts both string (UUID) and unsigned integer point ids.
type pointID string

func (p *pointID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = pointID(s)
		return nil
	}

	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}
	*p = pointID(strconv.FormatUint(n, 10))
	return nil
}

// collectionRequest is the request body for creating a collection.
type collectionRequest struct {
	Vectors collectionVectors `json:"vectors"`
}

type collectionVectors struct {
	Size     uint   `json:"size"`
	Distance string `json:"distance"`
}

func toPoint(c vector.Chunk) point {
	p := point{
		ID:     c.ID,
		Vector: c.Vector,
		Payload: payload{
			Text:       c.Text,
			DocumentID: c.DocumentID,
		},
	}
	if c.URL != "" {
		url := c.URL
		p.Payload.URL = &url
	}
	return p
}

// toChunk maps a hit back to a chunk. The query vector is returned as the
// chunk's vector; the stored vector is never requested.
func (r searchResult) toChunk(query vector.Vector) vector.Chunk {
	c := vector.Chunk{
		ID:     string(r.ID),
		Vector: query,
	}
	if r.Payload != nil {
		c.Text = r.Payload.Text
		c.DocumentID = r.Payload.DocumentID
		if r.Payload.URL != nil {
			c.URL = *r.Payload.URL
		}
	}
	return c
}
