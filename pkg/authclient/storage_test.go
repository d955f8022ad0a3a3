package authclient

import (
	"bytes"
	"errors"
	"testing"
)

func TestFileStorageRoundTrip(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}

	if _, err := storage.Get("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}

	if err := storage.Set("auth-storage", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, err := storage.Get("auth-storage")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(data, []byte(`{"ok":true}`)) {
		t.Fatalf("unexpected value: %s", data)
	}

	if err := storage.Remove("auth-storage"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := storage.Get("auth-storage"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after remove, got %v", err)
	}
	// removing again is fine
	if err := storage.Remove("auth-storage"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestEncryptedStorageRoundTrip(t *testing.T) {
	inner, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	key := bytes.Repeat([]byte{7}, 32)
	storage, err := NewEncryptedStorage(inner, key)
	if err != nil {
		t.Fatalf("NewEncryptedStorage: %v", err)
	}

	plain := []byte(`{"accessToken":"secret"}`)
	if err := storage.Set("auth-storage", plain); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// what hits disk must not be the plaintext
	sealed, err := inner.Get("auth-storage")
	if err != nil {
		t.Fatalf("inner Get: %v", err)
	}
	if bytes.Contains(sealed, []byte("secret")) {
		t.Fatal("value stored in the clear")
	}

	got, err := storage.Get("auth-storage")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("roundtrip mismatch: %s", got)
	}
}

func TestEncryptedStorageRejectsTampering(t *testing.T) {
	inner, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	storage, err := NewEncryptedStorage(inner, bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("NewEncryptedStorage: %v", err)
	}

	if err := storage.Set("auth-storage", []byte("payload")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	sealed, err := inner.Get("auth-storage")
	if err != nil {
		t.Fatalf("inner Get: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff
	if err := inner.Set("auth-storage", sealed); err != nil {
		t.Fatalf("inner Set: %v", err)
	}

	if _, err := storage.Get("auth-storage"); err == nil {
		t.Fatal("tampered value decrypted without error")
	}
}

func TestEncryptedStorageKeyLength(t *testing.T) {
	inner, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	if _, err := NewEncryptedStorage(inner, []byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}
