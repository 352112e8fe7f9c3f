package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
)

// Extract implements llm.FieldExtractor against /chat/completions.
func (c *Client) Extract(ctx context.Context, req llm.Request, creds llm.Credentials) (string, error) {
	if !creds.Present() {
		return "", common.AuthenticationError("an OpenAI API key is required for extraction", nil)
	}
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	start := time.Now()

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"session_id", common.SessionIDFromContext(ctx),
		"model", req.Model,
		"temp", req.Temperature,
		"messages", len(req.Messages),
		"prompt_len", promptLen(req),
	)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + creds.APIKey}

	backoff := c.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("llm.extract.retry",
				"req_id", rid,
				"attempt", attempt,
				"backoff_ms", backoff.Milliseconds(),
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return "", common.CancelledError("cancelled while waiting to retry", ctx.Err())
			case <-c.sleep(backoff):
			}
			backoff *= 2
		}

		content, err := c.complete(ctx, endpoint, req, headers)
		if err == nil {
			c.logger.Info("llm.extract.ok",
				"req_id", rid,
				"attempts", attempt+1,
				"answer_len", len(content),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return content, nil
		}
		lastErr = err
		if !common.IsRetryable(err) {
			break
		}
	}

	c.logger.Error("llm.extract.failed",
		"req_id", rid,
		"kind", common.Kind(lastErr),
		"retryable", common.IsRetryable(lastErr),
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return "", lastErr
}

func (c *Client) complete(ctx context.Context, endpoint string, req llm.Request, headers map[string]string) (string, error) {
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, req, headers, c.logger)
	if err != nil {
		return "", classify(ctx, status, raw, err)
	}

	if err := llm.ValidateChatCompletion(raw); err != nil {
		return "", common.ExtractionBackendError("malformed chat completion response", false, err)
	}
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", common.ExtractionBackendError("decode openai response", false, err)
	}
	return cc.Choices[0].Message.Content, nil
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// classify maps a failed exchange onto the error taxonomy. status 0 means the
// request never got a response.
func classify(ctx context.Context, status int, raw []byte, cause error) error {
	if status == 0 {
		if ctx.Err() != nil {
			return common.CancelledError("request cancelled", ctx.Err())
		}
		var nerr net.Error
		if errors.As(cause, &nerr) && nerr.Timeout() {
			return common.ExtractionBackendError("timeout", true, cause)
		}
		return common.ExtractionBackendError("transport failure", true, cause)
	}

	var ae apiError
	_ = json.Unmarshal(raw, &ae)
	detail := fmt.Errorf("openai status %d: %s", status, strings.TrimSpace(firstNonEmpty(ae.Error.Message, string(raw))))

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.AuthenticationError("the extraction backend rejected the API key", detail)
	case status == http.StatusRequestEntityTooLarge || ae.Error.Code == "context_length_exceeded":
		return common.PayloadTooLargeError("converted text exceeds the model's limits", detail)
	case status == http.StatusTooManyRequests:
		if ae.Error.Code == "insufficient_quota" {
			return common.ExtractionBackendError("quota exhausted", false, detail)
		}
		return common.ExtractionBackendError("rate limited", true, detail)
	case status == http.StatusRequestTimeout || status >= 500:
		return common.ExtractionBackendError("backend unavailable", true, detail)
	default:
		return common.ExtractionBackendError("request rejected", false, detail)
	}
}

func promptLen(req llm.Request) int {
	n := 0
	for _, m := range req.Messages {
		n += len(m.Content)
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
