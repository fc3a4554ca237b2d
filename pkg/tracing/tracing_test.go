package tracing

import (
	"context"
	"testing"

	"github.com/richxcame/roundup/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "roundup", config.TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	traceID := trace.TraceID{0x01}
	params := sdktrace.SamplingParameters{ParentContext: context.Background(), TraceID: traceID, Name: "roundup.pipeline"}

	assert.Equal(t, sdktrace.RecordAndSample, Sampler(1).ShouldSample(params).Decision)
	assert.Equal(t, sdktrace.RecordAndSample, Sampler(2.5).ShouldSample(params).Decision)
	assert.Equal(t, sdktrace.Drop, Sampler(0).ShouldSample(params).Decision)
	assert.Equal(t, sdktrace.Drop, Sampler(-1).ShouldSample(params).Decision)
	assert.Contains(t, Sampler(0.5).Description(), "TraceIDRatioBased")
}
