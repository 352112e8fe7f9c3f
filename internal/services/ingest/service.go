// Package ingest adds uploaded files to a session's document store.
package ingest

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/convert"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

// Upload is one file as received from the presentation layer.
type Upload struct {
	Filename  string
	Data      []byte
	MediaType string
}

// Result reports what happened to one upload.
type Result struct {
	Name         string `json:"name"`
	MediaType    string `json:"media_type"`
	Size         int    `json:"size"`
	Deduplicated bool   `json:"deduplicated"`
}

// Service handles upload business logic.
type Service struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewService(sessions *session.Manager, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{sessions: sessions, logger: logger}
}

// AddDocuments validates the whole batch before adding anything, so a
// rejected batch leaves the store untouched. Names already present are
// reported as deduplicated and their bytes are ignored.
func (s *Service) AddDocuments(ctx context.Context, sessionID string, uploads []Upload) ([]Result, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, common.InvalidInputError("at least one file is required")
	}

	mediaTypes := make([]string, len(uploads))
	for i, u := range uploads {
		v := common.NewValidator().
			Field("filename", u.Filename, common.Required, common.Filename, common.MaxLength(255)).
			Field("file", u.Data, common.Required)
		if err := common.ValidateAndReturnError(v); err != nil {
			s.logger.Warn("ingest.invalid_upload", "session_id", sessionID, "filename", u.Filename, "error", err)
			return nil, err
		}
		_, canonical, err := convert.ResolveFormat(u.Filename, u.MediaType, u.Data)
		if err != nil {
			s.logger.Warn("ingest.unsupported_format", "session_id", sessionID, "filename", u.Filename, "media_type", u.MediaType)
			return nil, err
		}
		mediaTypes[i] = u.MediaType
		if mediaTypes[i] == "" {
			mediaTypes[i] = canonical
		}
	}

	docs := sess.Documents()
	results := make([]Result, 0, len(uploads))
	for i, u := range uploads {
		added := docs.Add(u.Filename, u.Data, mediaTypes[i])
		results = append(results, Result{
			Name:         u.Filename,
			MediaType:    mediaTypes[i],
			Size:         len(u.Data),
			Deduplicated: !added,
		})
		s.logger.Info("ingest.document",
			"session_id", sessionID,
			"req_id", common.RequestIDFromContext(ctx),
			"document", u.Filename,
			"bytes", len(u.Data),
			"deduplicated", !added,
		)
	}
	return results, nil
}
