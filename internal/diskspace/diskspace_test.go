package diskspace

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "download.bin")

	t.Run("small file fits", func(t *testing.T) {
		if err := CheckAvailableSpace(target, 1024, 1.1); err != nil {
			t.Errorf("expected no error for 1 KB, got: %v", err)
		}
	})

	t.Run("absurdly large file rejected", func(t *testing.T) {
		err := CheckAvailableSpace(target, 100<<40, 1.1)
		if err == nil {
			t.Skip("filesystem reports over 100 TB free")
		}
		if !IsInsufficientSpaceError(err) {
			t.Errorf("expected InsufficientSpaceError, got %T", err)
		}
	})

	t.Run("safety margin applied", func(t *testing.T) {
		available := GetAvailableSpace(target)
		if available == 0 {
			t.Skip("could not determine available space")
		}

		if err := CheckAvailableSpace(target, available/2, 1.1); err != nil {
			t.Errorf("expected half the free space to fit, got: %v", err)
		}

		// Just under the limit raw, but over once the margin is applied.
		err := CheckAvailableSpace(target, (available*95)/100, 1.1)
		if err != nil && !IsInsufficientSpaceError(err) {
			t.Errorf("expected InsufficientSpaceError, got %T", err)
		}
	})
}

func TestGetAvailableSpace(t *testing.T) {
	target := filepath.Join(t.TempDir(), "probe.bin")
	if GetAvailableSpace(target) == 0 {
		t.Error("expected non-zero available space in temp dir")
	}
}

func TestIsInsufficientSpaceError(t *testing.T) {
	spaceErr := &InsufficientSpaceError{Path: "/tmp/x", RequiredBytes: 1000, AvailableBytes: 500}

	if !IsInsufficientSpaceError(spaceErr) {
		t.Error("expected true for InsufficientSpaceError")
	}
	if !IsInsufficientSpaceError(errors.Join(errors.New("outer"), spaceErr)) {
		t.Error("expected true for wrapped InsufficientSpaceError")
	}
	if IsInsufficientSpaceError(errors.New("other")) {
		t.Error("expected false for unrelated error")
	}
	if IsInsufficientSpaceError(nil) {
		t.Error("expected false for nil")
	}
}

func TestInsufficientSpaceErrorMessage(t *testing.T) {
	err := &InsufficientSpaceError{
		Path:           "/data/report.pdf",
		RequiredBytes:  100 << 20,
		AvailableBytes: 50 << 20,
	}

	msg := err.Error()
	for _, want := range []string{"/data/report.pdf", "100.00", "50.00"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
