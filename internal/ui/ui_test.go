package ui

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

// captureColorOutput captures output from the color package.
// The color package uses color.Output which defaults to os.Stdout.
func captureColorOutput(fn func()) string {
	// Save original state
	oldNoColor := color.NoColor
	oldOutput := color.Output

	// Configure for testing
	color.NoColor = true

	// Create pipe
	r, w, _ := os.Pipe()

	// Set color.Output to our pipe
	color.Output = w

	// Also redirect os.Stdout for fmt.Printf calls
	oldStdout := os.Stdout
	os.Stdout = w

	// Run the function
	fn()

	// Close writer
	w.Close()

	// Restore
	color.Output = oldOutput
	color.NoColor = oldNoColor
	os.Stdout = oldStdout

	// Read output
	var buf bytes.Buffer
	io.Copy(&buf, r)
	r.Close()

	return buf.String()
}

func TestSuccess(t *testing.T) {
	output := captureColorOutput(func() {
		Success("merged %d documents", 3)
	})
	assert.Contains(t, output, "merged 3 documents")
	assert.Contains(t, output, "\n")
}

func TestError(t *testing.T) {
	output := captureColorOutput(func() {
		Error("failed with code %d: %s", 1, "kubectl apply")
	})
	assert.Contains(t, output, "failed with code 1: kubectl apply")
}

func TestWarning(t *testing.T) {
	output := captureColorOutput(func() {
		Warning("deleting key %q not present in base", "volumeMounts")
	})
	assert.Contains(t, output, `deleting key "volumeMounts" not present in base`)
}

func TestInfo(t *testing.T) {
	output := captureColorOutput(func() {
		Info("release %s to %s", "a1b2c", "staging")
	})
	assert.Contains(t, output, "release a1b2c to staging")
}

func TestStep(t *testing.T) {
	output := captureColorOutput(func() {
		Step(2, "patching %s", "deployment.yaml")
	})
	assert.Contains(t, output, "[2]")
	assert.Contains(t, output, "patching deployment.yaml")
}

func TestLabel(t *testing.T) {
	output := captureColorOutput(func() {
		Label("Releasing component %s", "service/api")
	})
	assert.Contains(t, output, "| Releasing component service/api |")
	assert.Contains(t, output, "/----")
	assert.Contains(t, output, "\\----")
}

func TestBigLabel(t *testing.T) {
	text := "Release abc to test environment starting"
	output := captureColorOutput(func() {
		BigLabel("%s", text)
	})
	assert.Contains(t, output, "|   "+text+"   |")
	// Padding lines above and below the text
	assert.Contains(t, output, "|   "+strings.Repeat(" ", len(text))+"   |")
}

func TestColorVariables(t *testing.T) {
	assert.NotNil(t, Red)
	assert.NotNil(t, Green)
	assert.NotNil(t, Yellow)
	assert.NotNil(t, Blue)
	assert.NotNil(t, Cyan)
	assert.NotNil(t, Bold)
}
