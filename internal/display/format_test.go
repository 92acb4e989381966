package display

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/backmassage/roflconv/internal/config"
	"github.com/backmassage/roflconv/internal/term"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 B"},
		{"small bytes", 512, "512 B"},
		{"exactly 1 KiB", 1024, "1.0 KiB"},
		{"1.5 KiB", 1536, "1.5 KiB"},
		{"typical replay document", 48 * 1024, "48.0 KiB"},
		{"1 MiB", 1024 * 1024, "1.0 MiB"},
		{"typical replay 24 MiB", 25165824, "24.0 MiB"},
		{"1 GiB", 1024 * 1024 * 1024, "1.0 GiB"},
		{"negative clamps to zero", -2048, "0 B"},
		{"min int64", math.MinInt64, "0 B"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.bytes))
		})
	}
}

func TestPrintBanner(t *testing.T) {
	defer term.Configure(config.ColorNever)

	var plain bytes.Buffer
	term.Configure(config.ColorNever)
	PrintBanner(&plain, "1.2.3")
	assert.NotContains(t, plain.String(), "\033[")
	assert.True(t, strings.HasSuffix(plain.String(), "replay metadata converter v1.2.3\n\n"))

	var colored bytes.Buffer
	term.Configure(config.ColorAlways)
	PrintBanner(&colored, "1.2.3")
	assert.True(t, strings.HasPrefix(colored.String(), term.Magenta))
}
