package writers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWriter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name     string
		output   string
		wantType WriterType
		wantErr  bool
	}{
		{name: "empty defaults to stdout", output: "", wantType: WriterTypeStdout},
		{name: "stdout", output: "stdout", wantType: WriterTypeStdout},
		{name: "stderr", output: "stderr", wantType: WriterTypeStderr},
		{name: "file url", output: "file://" + filepath.Join(dir, "a", "x.log"), wantType: WriterTypeFile},
		{name: "plain path", output: filepath.Join(dir, "y.log"), wantType: WriterTypeFile},
		{name: "other scheme", output: "https://example.com/log", wantType: WriterTypeFile, wantErr: true},
		{name: "bare word", output: "syslog", wantType: WriterTypeFile, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantType, ParseWriterType(tt.output))

			w, err := CreateWriter(tt.output)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, w)
			if f, ok := w.(*os.File); ok && tt.wantType == WriterTypeFile {
				assert.NoError(t, f.Close())
			}
		})
	}
}

func TestCreateWriter_Appends(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "gateway.log")

	for _, line := range []string{"one\n", "two\n"} {
		w, err := CreateWriter(path)
		require.NoError(t, err)
		_, err = w.Write([]byte(line))
		require.NoError(t, err)
		require.NoError(t, w.(*os.File).Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestValidateOutput(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"", "stdout", "stderr", "file:///var/log/x.log", "/var/log/x.log", "logs/x.log"} {
		assert.NoError(t, ValidateOutput(ok), ok)
	}
	for _, bad := range []string{"syslog://localhost", "journald"} {
		assert.Error(t, ValidateOutput(bad), bad)
	}
}
