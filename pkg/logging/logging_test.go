package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Ruscigno/QuantLab/pkg/config"
)

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "quantlab.log")
	logger := SetupLogger(config.Config{LogMode: config.LogModeProd, LogFile: logFile})

	logger.Info("Rows inserted", zap.String("symbol", "AAPL"), zap.Int("count", 5))
	logger.Debug("hidden in prod")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Expected log file to be written: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, `"symbol":"AAPL"`) {
		t.Errorf("Expected JSON field in log file, got %s", content)
	}
	if strings.Contains(content, "hidden in prod") {
		t.Errorf("Expected debug entries to be dropped in prod mode, got %s", content)
	}
}

func TestSetupLoggerELK(t *testing.T) {
	logger := SetupLogger(config.Config{LogMode: "ELK"})
	if logger == nil {
		t.Fatal("Expected logger")
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Error("Expected ELK logger to enable debug level")
	}
}
