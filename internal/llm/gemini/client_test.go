package gemini_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/notas-reader/internal/common"
	"github.com/joseph-ayodele/notas-reader/internal/llm"
	"github.com/joseph-ayodele/notas-reader/internal/llm/gemini"
)

func TestExtractWithoutKeyFailsLocally(t *testing.T) {
	c := gemini.NewClient(gemini.Config{}, nil)
	_, err := c.Extract(context.Background(), llm.BuildExtractionRequest("x"), llm.Credentials{})
	if !errors.Is(err, common.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err       error
		want      error
		retryable bool
	}{
		{status.Error(codes.Unauthenticated, "no"), common.ErrAuthentication, false},
		{status.Error(codes.InvalidArgument, "API key not valid. Please pass a valid API key."), common.ErrAuthentication, false},
		{status.Error(codes.InvalidArgument, "input token count exceeds the maximum"), common.ErrPayloadTooLarge, false},
		{status.Error(codes.ResourceExhausted, "quota"), common.ErrExtractionBackend, true},
		{status.Error(codes.Internal, "boom"), common.ErrExtractionBackend, false},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), common.ErrExtractionBackend, true},
	}
	for _, c := range cases {
		got := gemini.Classify(c.err)
		if !errors.Is(got, c.want) || common.IsRetryable(got) != c.retryable {
			t.Fatalf("Classify(%v) = %v (retryable=%v)", c.err, got, common.IsRetryable(got))
		}
	}
}

func TestClassifyCancellation(t *testing.T) {
	got := gemini.Classify(fmt.Errorf("call: %w", context.Canceled))
	if common.Kind(got) != common.CodeCancelled || common.IsRetryable(got) {
		t.Fatalf("Classify(canceled) = %v", got)
	}
}
