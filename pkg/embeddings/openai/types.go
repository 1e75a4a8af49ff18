package openai

import "encoding/json"

// embedRequest is the request body for POST /v1/embeddings.
type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

// embedResponse is the success body of the embeddings API.
type embedResponse struct {
	Data []embedData `json:"data"`
}

type embedData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// errorBody is the error envelope returned with non-2xx statuses. Code is
// a string in practice but may be null or absent.
type errorBody struct {
	Error *struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
		Type    string          `json:"type"`
	} `json:"error"`
}

// errorCode extracts error.code from an error response body. Anything that
// does not parse, or a code that is not a string, yields "".
func errorCode(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error == nil {
		return ""
	}

	var code string
	if err := json.Unmarshal(eb.Error.Code, &code); err != nil {
		return ""
	}
	return code
}
