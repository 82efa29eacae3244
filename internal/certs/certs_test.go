package certs

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
)

func TestGetOrCreateCertificateGenerates(t *testing.T) {
	dir := t.TempDir()
	m := NewFileManager(dir)

	cert, err := m.GetOrCreateCertificate()
	if err != nil {
		t.Fatalf("GetOrCreateCertificate failed: %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Fatal("no certificate data")
	}

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse generated certificate: %v", err)
	}
	if err := parsed.VerifyHostname("localhost"); err != nil {
		t.Errorf("certificate not valid for localhost: %v", err)
	}

	for _, name := range []string{"localhost.crt", "localhost.key"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s on disk: %v", name, err)
		}
	}
}

func TestGetOrCreateCertificateReuses(t *testing.T) {
	dir := t.TempDir()
	m := NewFileManager(dir)

	first, err := m.GetOrCreateCertificate()
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := m.GetOrCreateCertificate()
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if string(first.Certificate[0]) != string(second.Certificate[0]) {
		t.Error("expected the stored certificate to be reused")
	}
}

func TestGetOrCreateCertificateReplacesCorrupt(t *testing.T) {
	dir := t.TempDir()
	m := NewFileManager(dir)

	if _, err := m.GetOrCreateCertificate(); err != nil {
		t.Fatalf("initial generation failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "localhost.crt"), []byte("garbage"), 0600); err != nil {
		t.Fatalf("failed to corrupt certificate: %v", err)
	}

	cert, err := m.GetOrCreateCertificate()
	if err != nil {
		t.Fatalf("regeneration failed: %v", err)
	}
	if _, err := x509.ParseCertificate(cert.Certificate[0]); err != nil {
		t.Errorf("regenerated certificate is invalid: %v", err)
	}
}
