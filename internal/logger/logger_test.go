package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "text", false)

	Info("append complete", KeyArray, "nums", KeyBatchSize, 1000)

	out := buf.String()
	if !strings.Contains(out, "append complete") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "array=nums") {
		t.Errorf("output missing array field: %q", out)
	}
	if !strings.Contains(out, "batch_size=1000") {
		t.Errorf("output missing batch_size field: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)

	Debug("should be filtered")
	Info("should be filtered too")
	Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "filtered") {
		t.Errorf("low-level messages leaked through: %q", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "json", false)

	Info("segment written", KeySegment, 3)

	out := buf.String()
	if !strings.Contains(out, `"msg":"segment written"`) {
		t.Errorf("JSON output missing message: %q", out)
	}
	if !strings.Contains(out, `"segment":3`) {
		t.Errorf("JSON output missing segment field: %q", out)
	}
}

func TestContextFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	lc := NewLogContext("req-42").WithOp("append").WithArray("nums")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "operation done")

	out := buf.String()
	for _, want := range []string{"request_id=req-42", "op=append", "array=nums"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestContextWithoutLogContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	InfoCtx(context.Background(), "plain message", "k", "v")

	out := buf.String()
	if !strings.Contains(out, "plain message") || !strings.Contains(out, "k=v") {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO", "text", false)

	SetLevel("NOISE")
	Info("still at info")

	if !strings.Contains(buf.String(), "still at info") {
		t.Errorf("invalid level changed filtering: %q", buf.String())
	}
}
