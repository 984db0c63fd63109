package domain

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint("The quick brown fox")
	b := Fingerprint("The quick brown fox")
	if a != b {
		t.Error("same text should yield the same fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprintNormalization(t *testing.T) {
	a := Fingerprint("The Quick  Brown\nFox")
	b := Fingerprint("the quick brown fox")
	if a != b {
		t.Error("case and whitespace differences should not change the fingerprint")
	}

	c := Fingerprint("a completely different text")
	if a == c {
		t.Error("different texts should yield different fingerprints")
	}
}

func TestNormalizeText(t *testing.T) {
	got := NormalizeText("  Hello\t World\n\n again ")
	want := "hello world again"
	if got != want {
		t.Errorf("NormalizeText = %q, want %q", got, want)
	}
}
