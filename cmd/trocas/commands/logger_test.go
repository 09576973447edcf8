package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerSplitsByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := newLogger(&out, &errOut).With("component", "test")

	logger.Debug("hidden")
	logger.Info("served request")
	logger.Warn("slow query")
	logger.Error("storage failed")

	if strings.Contains(out.String()+errOut.String(), "hidden") {
		t.Error("debug records should be dropped")
	}
	for _, msg := range []string{"served request", "slow query"} {
		if !strings.Contains(out.String(), msg) {
			t.Errorf("stdout missing %q: %s", msg, out.String())
		}
	}
	if strings.Contains(out.String(), "storage failed") {
		t.Error("error record leaked to stdout")
	}
	if !strings.Contains(errOut.String(), "storage failed") || !strings.Contains(errOut.String(), "component=test") {
		t.Errorf("stderr = %q", errOut.String())
	}
}
