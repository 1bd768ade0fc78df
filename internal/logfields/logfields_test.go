package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"State", KeyState, "syncing", State("syncing")},
		{"Target", KeyTarget, "device-rpi-v2", Target("device-rpi-v2")},
		{"Project", KeyProject, "platform/build", Project("platform/build")},
		{"Change", KeyChange, "12345", Change("12345")},
		{"Patchset", KeyPatchset, "2", Patchset("2")},
		{"Ref", KeyRef, "refs/changes/45/12345/2", Ref("refs/changes/45/12345/2")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"URL", KeyURL, "http://example", URL("http://example")},
		{"Name", KeyName, "n", Name("n")},
		{"Command", KeyCommand, "repo sync", Command("repo sync")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestIntHelpers covers the integer-valued helpers.
func TestIntHelpers(t *testing.T) {
	if a := Attempt(3); a.Key != KeyAttempt || a.Value.Int64() != 3 {
		t.Fatalf("Attempt mismatch: %v", a)
	}
	if a := ExitCode(255); a.Key != KeyExitCode || a.Value.Int64() != 255 {
		t.Fatalf("ExitCode mismatch: %v", a)
	}
}

// TestErrorHelper ensures nil errors render as empty strings.
func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should render empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("error should render message, got %q", a.Value.String())
	}
}
