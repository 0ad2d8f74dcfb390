package llm

import (
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/api/googleapi"
)

// StatusCode extracts the HTTP status carried by a provider SDK error.
// It returns false when err holds no structured status.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code != 0 {
		return gerr.Code, true
	}

	var oerr *openai.Error
	if errors.As(err, &oerr) && oerr.StatusCode != 0 {
		return oerr.StatusCode, true
	}

	var aerr *anthropic.Error
	if errors.As(err, &aerr) && aerr.StatusCode != 0 {
		return aerr.StatusCode, true
	}

	return 0, false
}
