package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/services/ingest"
	"github.com/joseph-ayodele/notas-reader/internal/session"
)

func TestAddDocumentsDeduplicates(t *testing.T) {
	m := session.NewManager(time.Hour, nil)
	sess := m.Create()
	svc := ingest.NewService(m, nil)

	res, err := svc.AddDocuments(context.Background(), sess.ID, []ingest.Upload{
		{Filename: "a.pdf", Data: []byte("one")},
		{Filename: "b.png", Data: []byte("two"), MediaType: "image/png"},
		{Filename: "a.pdf", Data: []byte("three")},
	})
	if err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}
	if len(res) != 3 || res[0].Deduplicated || res[1].Deduplicated || !res[2].Deduplicated {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res[0].MediaType != "application/pdf" {
		t.Fatalf("expected canonical media type for undeclared upload, got %q", res[0].MediaType)
	}
	docs := sess.Documents().All()
	if len(docs) != 2 || string(docs[0].Data) != "one" {
		t.Fatalf("unexpected store contents: %+v", docs)
	}
}

func TestAddDocumentsRejectsWholeBatch(t *testing.T) {
	m := session.NewManager(time.Hour, nil)
	sess := m.Create()
	svc := ingest.NewService(m, nil)

	_, err := svc.AddDocuments(context.Background(), sess.ID, []ingest.Upload{
		{Filename: "ok.pdf", Data: []byte("x")},
		{Filename: "notes.txt", Data: []byte("x"), MediaType: "text/plain"},
	})
	if !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if sess.Documents().Len() != 0 {
		t.Fatalf("rejected batch must not add documents")
	}

	_, err = svc.AddDocuments(context.Background(), sess.ID, []ingest.Upload{{Filename: "../etc/passwd.pdf", Data: []byte("x")}})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for a path-like name, got %v", err)
	}
}
