package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLoggerWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "pipeline.log")

	if err := SetupLogger(logPath); err != nil {
		t.Fatalf("SetupLogger failed: %v", err)
	}
	DebugLog("walking %s", "public/images/source")
	LogWarning("blur failed for %s", "rooms/a.jpg")
	LogImageProcessed("rooms/a.jpg", true, "")
	LogImageProcessed("rooms/b.jpg", false, "corrupt header")
	CloseLogger()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"walking public/images/source",
		"blur failed for rooms/a.jpg",
		"path=rooms/a.jpg",
		"corrupt header",
		"log closed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Log missing %q:\n%s", want, out)
		}
	}
}

func TestDebugLogWithoutSetupIsSilent(t *testing.T) {
	CloseLogger()
	// Must not panic when no logger is configured
	DebugLog("ignored %d", 1)
	LogImageProcessed("x.jpg", true, "")
}
