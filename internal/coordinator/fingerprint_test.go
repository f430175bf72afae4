package coordinator

import "testing"

func TestFingerprintIgnoresContentIDOrder(t *testing.T) {
	a := Fingerprint("owner-1", []string{"doc-1", "doc-2", "doc-3"}, "questions", 1024)
	b := Fingerprint("owner-1", []string{"doc-3", "doc-1", "doc-2"}, "questions", 1024)

	if a != b {
		t.Errorf("fingerprints differ for the same document set: %s vs %s", a, b)
	}
}

func TestFingerprintSensitivity(t *testing.T) {
	base := Fingerprint("owner-1", []string{"doc-1"}, "questions", 1024)

	tests := []struct {
		name string
		got  string
	}{
		{"different owner", Fingerprint("owner-2", []string{"doc-1"}, "questions", 1024)},
		{"different documents", Fingerprint("owner-1", []string{"doc-2"}, "questions", 1024)},
		{"different mode", Fingerprint("owner-1", []string{"doc-1"}, "summary", 1024)},
		{"different length", Fingerprint("owner-1", []string{"doc-1"}, "questions", 2048)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got == base {
				t.Errorf("fingerprint collided with base for %s", tt.name)
			}
		})
	}
}

func TestFingerprintDoesNotMutateInput(t *testing.T) {
	ids := []string{"doc-c", "doc-a", "doc-b"}
	Fingerprint("owner-1", ids, "questions", 10)

	if ids[0] != "doc-c" || ids[1] != "doc-a" || ids[2] != "doc-b" {
		t.Errorf("input slice was reordered: %v", ids)
	}
}
