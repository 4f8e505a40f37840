// Package writers resolves a log output setting into an io.Writer.
package writers

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriterType represents the type of writer to create
type WriterType string

const (
	WriterTypeStdout WriterType = "stdout"
	WriterTypeStderr WriterType = "stderr"
	WriterTypeFile   WriterType = "file"
)

const filePrefix = "file://"

// CreateWriter creates an io.Writer based on the output setting:
//
//	"" or "stdout"       os.Stdout
//	"stderr"             os.Stderr
//	"file:///var/log/x"  append to the file, creating parent directories
//	"/var/log/x"         same as above
func CreateWriter(output string) (io.Writer, error) {
	switch ParseWriterType(output) {
	case WriterTypeStdout:
		return os.Stdout, nil
	case WriterTypeStderr:
		return os.Stderr, nil
	}

	if err := ValidateOutput(output); err != nil {
		return nil, err
	}
	return openFile(strings.TrimPrefix(output, filePrefix))
}

// ValidateOutput checks that output names stdout, stderr or a file without
// opening anything.
func ValidateOutput(output string) error {
	if ParseWriterType(output) != WriterTypeFile {
		return nil
	}
	if strings.HasPrefix(output, filePrefix) || isFilePath(output) {
		return nil
	}
	return fmt.Errorf("unsupported output format: %s", output)
}

func isFilePath(path string) bool {
	if strings.Contains(path, "://") {
		return false
	}
	return strings.ContainsAny(path, `/\`)
}

func openFile(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	return f, nil
}

// ParseWriterType determines the writer type from an output string
func ParseWriterType(output string) WriterType {
	switch output {
	case "", "stdout":
		return WriterTypeStdout
	case "stderr":
		return WriterTypeStderr
	default:
		return WriterTypeFile
	}
}
