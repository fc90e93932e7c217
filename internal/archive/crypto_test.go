package archive

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("ledger contents with account balances")

	sealed, err := Encrypt(plaintext, "correct horse battery staple")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("ciphertext contains plaintext")
	}
	if len(sealed) < saltSize+nonceSize+len(plaintext) {
		t.Errorf("sealed blob too small: %d bytes", len(sealed))
	}

	got, err := Decrypt(sealed, "correct horse battery staple")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := Decrypt(sealed, "wrong"); err == nil {
		t.Error("expected authentication failure")
	}
}

func TestDecryptTamperedBlob(t *testing.T) {
	sealed, err := Encrypt([]byte("secret"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := Decrypt(sealed, "pass"); err == nil {
		t.Error("expected authentication failure on tampered blob")
	}
}

func TestDecryptTruncatedBlob(t *testing.T) {
	if _, err := Decrypt([]byte("short"), "pass"); err == nil {
		t.Error("expected error for truncated blob")
	}
}

func TestEncryptUniqueSaltAndNonce(t *testing.T) {
	a, err := Encrypt([]byte("same input"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	b, err := Encrypt([]byte("same input"), "pass")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same input produced identical output")
	}
}
