package llm

import (
	"bytes"
	"io"
	"net/http"

	"github.com/booksage/booksage-recommend/internal/logging"
	"github.com/rs/zerolog"
)

// maxLoggedBody caps how much of a body is written to the debug log.
const maxLoggedBody = 2048

// LoggingTransport is an http.RoundTripper that logs outbound request and
// response bodies when debug logging is enabled.
type LoggingTransport struct {
	Base http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if zerolog.GlobalLevel() > zerolog.DebugLevel {
		return base.RoundTrip(req)
	}
	log := logging.WithComponent("llm_http")

	if req.Body != nil {
		reqBody, _ := io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
		log.Debug().Str("method", req.Method).Str("url", req.URL.String()).
			Str("body", truncate(reqBody)).Msg("[HTTP] outbound request")
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	respBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	log.Debug().Int("status", resp.StatusCode).Str("url", req.URL.String()).
		Str("body", truncate(respBody)).Msg("[HTTP] outbound response")

	return resp, nil
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "...(truncated)"
	}
	return string(body)
}
