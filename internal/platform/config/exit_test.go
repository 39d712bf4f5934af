package config_test

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/louisbranch/statelapse/internal/platform/config"
)

// TestExitfReportsPipelineFailure exercises Exitf the way the statelapse
// entry point does on a fatal run error. os.Exit cannot be intercepted
// in-process, so the exiting branch runs in a subprocess and the parent
// asserts on its exit code and stderr.
func TestExitfReportsPipelineFailure(t *testing.T) {
	if os.Getenv("STATELAPSE_EXITF_SUBPROCESS") == "1" {
		config.Exitf("run pipeline: %v", errors.New("open events: missing directory"))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitfReportsPipelineFailure$")
	cmd.Env = append(os.Environ(), "STATELAPSE_EXITF_SUBPROCESS=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	want := "run pipeline: open events: missing directory"
	if !strings.Contains(string(out), want) {
		t.Fatalf("expected stderr to contain %q, got %q", want, string(out))
	}
}
