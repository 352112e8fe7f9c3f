// Package gemini is an alternate extraction backend built on generative-ai-go.
package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
)

type Config struct {
	Model   string // default gemini-1.5-flash
	Timeout time.Duration
}

// Client maps the two-message extraction request onto a Gemini call: the
// system message becomes the system instruction and the user message the content.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, logger: logger}
}

func (c *Client) Extract(ctx context.Context, req llm.Request, creds llm.Credentials) (string, error) {
	if !creds.Present() {
		return "", common.AuthenticationError("a Gemini API key is required for extraction", nil)
	}
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	// OpenAI model names are meaningless here; only honor gemini ones.
	model := c.cfg.Model
	if strings.HasPrefix(req.Model, "gemini") {
		model = req.Model
	}
	system, user := splitMessages(req.Messages)

	c.logger.Info("llm.extract.start", "req_id", rid, "backend", "gemini", "model", model, "prompt_len", len(system)+len(user))

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(creds.APIKey))
	if err != nil {
		return "", common.ExtractionBackendError("create gemini client", false, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(model)
	m.SetTemperature(req.Temperature)
	if system != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		cerr := Classify(err)
		c.logger.Error("llm.extract.failed", "req_id", rid, "backend", "gemini", "kind", common.Kind(cerr), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", cerr
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", common.ExtractionBackendError("gemini returned no candidates", false, nil)
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	c.logger.Info("llm.extract.ok", "req_id", rid, "backend", "gemini", "answer_len", b.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return b.String(), nil
}

func splitMessages(msgs []llm.Message) (system, user string) {
	var sys, usr []string
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			sys = append(sys, m.Content)
		default:
			usr = append(usr, m.Content)
		}
	}
	return strings.Join(sys, "\n\n"), strings.Join(usr, "\n\n")
}

// Classify maps gRPC status codes from the Gemini API onto the error taxonomy.
func Classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ExtractionBackendError("timeout", true, err)
	}
	if errors.Is(err, context.Canceled) {
		return common.CancelledError("request cancelled", err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return common.ExtractionBackendError("transport failure", true, err)
	}
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return common.AuthenticationError("the extraction backend rejected the API key", err)
	case codes.InvalidArgument:
		if strings.Contains(strings.ToLower(st.Message()), "api key") {
			return common.AuthenticationError("the extraction backend rejected the API key", err)
		}
		if strings.Contains(strings.ToLower(st.Message()), "token") {
			return common.PayloadTooLargeError("converted text exceeds the model's limits", err)
		}
		return common.ExtractionBackendError("request rejected", false, err)
	case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return common.ExtractionBackendError("backend unavailable", true, err)
	default:
		return common.ExtractionBackendError("backend error", false, err)
	}
}
