package output

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptor_SplitsReportFromConsoleOutput(t *testing.T) {
	tests := []struct {
		name         string
		chunks       []string
		wantCaptured string
		wantConsole  string
	}{
		{
			name:         "single report line among progress output",
			chunks:       []string{"PASS __tests__/a.js\n", `{"numTotalTests":1}` + "\n", "Ran all test suites.\n"},
			wantCaptured: `{"numTotalTests":1}`,
			wantConsole:  "PASS __tests__/a.js\nRan all test suites.\n",
		},
		{
			name:         "report split across writes",
			chunks:       []string{"line 1\n{\"a\":", "1}\nline 2\n"},
			wantCaptured: `{"a":1}`,
			wantConsole:  "line 1\nline 2\n",
		},
		{
			name:         "report without trailing newline is flushed on release",
			chunks:       []string{"progress\n", `{"a":1}`},
			wantCaptured: `{"a":1}`,
			wantConsole:  "progress\n",
		},
		{
			name:         "surrounding whitespace is trimmed before matching",
			chunks:       []string{"  {\"a\":1}  \r\n"},
			wantCaptured: `{"a":1}`,
			wantConsole:  "",
		},
		{
			name:         "braces inside a line do not count",
			chunks:       []string{"expected {a} got {b}\n", "x {\"a\":1}\n"},
			wantCaptured: "",
			wantConsole:  "expected {a} got {b}\nx {\"a\":1}\n",
		},
		{
			name:         "partial console line is passed through on release",
			chunks:       []string{"Test Suites: 1 passed"},
			wantCaptured: "",
			wantConsole:  "Test Suites: 1 passed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var console bytes.Buffer
			stream := NewStream(&console)

			interceptor := Intercept(stream)
			for _, chunk := range tt.chunks {
				_, err := fmt.Fprint(stream, chunk)
				require.NoError(t, err)
			}
			interceptor.Release()

			assert.Equal(t, tt.wantCaptured, interceptor.Captured())
			assert.Equal(t, tt.wantConsole, console.String())
		})
	}
}

func TestInterceptor_ReleaseRestoresPreviousTarget(t *testing.T) {
	var console bytes.Buffer
	stream := NewStream(&console)

	interceptor := Intercept(stream)
	_, err := stream.Write([]byte(`{"a":1}` + "\n"))
	require.NoError(t, err)

	interceptor.Release()
	interceptor.Release()

	_, err = stream.Write([]byte(`{"b":2}` + "\n"))
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`, interceptor.Captured())
	assert.Equal(t, `{"b":2}`+"\n", console.String())
}

func TestInterceptor_Nested(t *testing.T) {
	var console bytes.Buffer
	stream := NewStream(&console)

	outer := Intercept(stream)
	inner := Intercept(stream)

	_, err := stream.Write([]byte("text\n{\"inner\":true}\n"))
	require.NoError(t, err)
	inner.Release()

	_, err = stream.Write([]byte("{\"outer\":true}\n"))
	require.NoError(t, err)
	outer.Release()

	assert.Equal(t, `{"inner":true}`, inner.Captured())
	assert.Equal(t, `{"outer":true}`, outer.Captured())
	assert.Equal(t, "text\n", console.String())
}
