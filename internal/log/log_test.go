package log

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"DEBUG":   LevelDebug,
		" info ":  LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelWarn)
	defer SetLevel(LevelInfo)

	Info("hidden", "k", 1)
	Debug("hidden too")
	Warn("shown", "year", 2024)
	Error("failed", errors.New("boom"), "line", 3)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "year=2024")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "line=3")
}

func TestSetOutputWhileLogging(t *testing.T) {
	defer SetOutput(io.Discard)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				Warn("tick", "j", j)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		SetOutput(io.Discard)
	}
	wg.Wait()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelInfo)
	Info("after swap")
	assert.Contains(t, buf.String(), "msg=\"after swap\"")
}
