package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/skinguard/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func writeImage(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRunPrintsVerdict(t *testing.T) {
	stub := testutil.NewPredictionStub("Malignant", 87.3)
	defer stub.Close()

	path := writeImage(t, "mole.jpg", []byte("jpeg bytes"))
	var stdout, stderr bytes.Buffer

	code := run([]string{"analyze", "-endpoint", stub.URL(), path}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Result: Malignant")
	assert.Contains(t, stdout.String(), "Confidence: 87.3%")

	uploads := stub.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "image/jpeg", uploads[0].ContentType)
	assert.Equal(t, "mole.jpg", uploads[0].FileName)
}

func TestRunBusinessError(t *testing.T) {
	stub := testutil.NewErrorStub("no lesion detected")
	defer stub.Close()

	path := writeImage(t, "mole.png", []byte("png bytes"))
	var stdout, stderr bytes.Buffer

	code := run([]string{"analyze", "-endpoint", stub.URL(), path}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no lesion detected")
}

func TestRunRejectsUnsupportedType(t *testing.T) {
	stub := testutil.NewPredictionStub("Benign", 90)
	defer stub.Close()

	path := writeImage(t, "anim.gif", []byte("GIF89a"))
	var stdout, stderr bytes.Buffer

	code := run([]string{"analyze", "-endpoint", stub.URL(), path}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Please upload only JPG or PNG images.")
	assert.Empty(t, stub.Uploads())
}

func TestRunMissingFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"analyze", filepath.Join(t.TempDir(), "nope.png")}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "nope.png")
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"analyze"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage:")
}
