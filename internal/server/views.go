package server

import (
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/pipeline"
	"github.com/joseph-ayodele/notas-reader/internal/session"
	"github.com/joseph-ayodele/notas-reader/internal/store"
)

type sessionView struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	HasCredentials bool      `json:"has_credentials"`
	Documents      int       `json:"documents"`
}

type documentView struct {
	Name      string    `json:"name"`
	MediaType string    `json:"media_type"`
	Size      int       `json:"size"`
	AddedAt   time.Time `json:"added_at"`
}

type outcomeView struct {
	Kind         pipeline.OutcomeKind `json:"kind"`
	DocumentName string               `json:"document_name,omitempty"`
	Text         string               `json:"text"`
	Markdown     string               `json:"markdown,omitempty"`
	Fields       []llm.Field          `json:"fields,omitempty"`
	Hint         string               `json:"hint,omitempty"`
	Error        *errorBody           `json:"error,omitempty"`
}

type runView struct {
	ID         string       `json:"id"`
	State      string       `json:"state"`
	Progress   int          `json:"progress"`
	QueuedAt   time.Time    `json:"queued_at"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
	Outcome    *outcomeView `json:"outcome,omitempty"`
}

func toSessionView(s *session.Session) sessionView {
	return sessionView{
		ID:             s.ID,
		CreatedAt:      s.CreatedAt,
		HasCredentials: s.HasCredentials(),
		Documents:      s.Documents().Len(),
	}
}

func toDocumentViews(docs []store.Document) []documentView {
	out := make([]documentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentView{Name: d.Name, MediaType: d.MediaType, Size: d.Size(), AddedAt: d.AddedAt})
	}
	return out
}

func toRunView(s session.RunSnapshot) runView {
	v := runView{
		ID:         s.ID,
		State:      string(s.State),
		Progress:   s.Progress,
		QueuedAt:   s.QueuedAt,
		StartedAt:  optionalTime(s.StartedAt),
		FinishedAt: optionalTime(s.FinishedAt),
	}
	if o := s.Outcome; o != nil {
		ov := &outcomeView{
			Kind:         o.Kind,
			DocumentName: o.DocumentName,
			Text:         o.Text(),
			Markdown:     o.Markdown,
			Hint:         o.Hint,
		}
		if o.Kind == pipeline.OutcomeExtractedFields {
			ov.Fields = llm.ParseLabeledFields(o.Fields)
		}
		if o.Err != nil {
			eb := toErrorBody(o.Err)
			ov.Error = &eb
		}
		v.Outcome = ov
	}
	return v
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
