package infrastructure

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureTraceIDGeneratesWhenAbsent(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	assert.NotEmpty(t, GetTraceID(ctx))
}

func TestEnsureTraceIDPreservesExisting(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-42")
	ctx = EnsureTraceID(ctx)
	assert.Equal(t, "trace-42", GetTraceID(ctx))
}

func TestWithComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	WithComponent(logger, "revalidator").Info("pass complete")

	assert.Contains(t, buf.String(), "component=revalidator")
}
