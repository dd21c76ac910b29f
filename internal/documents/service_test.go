package documents

import (
	"strings"
	"testing"
)

func TestDeriveKeyNamespacesByContact(t *testing.T) {
	t.Parallel()
	key := deriveKey(42, "contrato.pdf")
	if !strings.HasPrefix(key, "42/") {
		t.Errorf("key = %q, want prefix 42/", key)
	}
	if !strings.HasSuffix(key, "_contrato.pdf") {
		t.Errorf("key = %q, want suffix _contrato.pdf", key)
	}
}

func TestDeriveKeySanitizes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		filename string
		suffix   string
	}{
		{"../../etc/passwd", "_passwd"},
		{"laudo médico.pdf", "_laudo_m_dico.pdf"},
		{"a b.txt", "_a_b.txt"},
		{"", "_upload"},
	}
	for _, tc := range cases {
		key := deriveKey(1, tc.filename)
		if strings.Contains(key[2:], "/") {
			t.Errorf("deriveKey(%q) = %q contains path separator past namespace", tc.filename, key)
		}
		if !strings.HasSuffix(key, tc.suffix) {
			t.Errorf("deriveKey(%q) = %q, want suffix %q", tc.filename, key, tc.suffix)
		}
	}
}

func TestDeriveKeyUnique(t *testing.T) {
	t.Parallel()
	a := deriveKey(1, "same.pdf")
	b := deriveKey(1, "same.pdf")
	if a == b {
		t.Errorf("keys collide: %q", a)
	}
}
