package vector

import (
	"fmt"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
)

// StoreErrors is the failure classification shared by all vector store
// backends. Only the status (or transport failure type) is consulted; store
// error bodies carry no code worth inspecting.
var StoreErrors = coreerr.Table{
	Rules: []coreerr.Rule{
		{Status: 500, Kind: coreerr.StoreInternalServerError},
	},
	Timeout:  coreerr.StoreTimeout,
	Fallback: coreerr.StoreUnknown,
}

// ValidateTopK rejects non-positive topK values before any I/O happens.
func ValidateTopK(topK int) error {
	if topK <= 0 {
		return coreerr.WithMessage(coreerr.StoreBadRequest, fmt.Sprintf("topK must be positive, got %d", topK))
	}
	return nil
}
