package middleware_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/aretw0/manifold/pkg/adapters/memory"
	"github.com/aretw0/manifold/pkg/domain"
	"github.com/aretw0/manifold/pkg/persistence/middleware"
	"github.com/aretw0/manifold/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunEntityStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)

	ctx := context.Background()
	entity := &domain.Entity{
		ID: "secret-entity",
		Snapshot: domain.EntitySnapshot{
			State:        "new",
			CustomFields: map[string]any{"secret": "my-secret-sauce"},
		},
	}

	if _, err := secureStore.Save(ctx, entity, ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The underlying store sees only the envelope; workflow fields stay readable.
	raw, err := underlyingStore.Load(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if _, ok := raw.Snapshot.CustomFields["secret"]; ok {
		t.Error("Custom fields leaked in clear text")
	}
	if raw.Snapshot.State != "new" {
		t.Errorf("Expected clear-text state 'new', got %q", raw.Snapshot.State)
	}

	loaded, err := secureStore.Load(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Snapshot.CustomFields["secret"] != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded.Snapshot.CustomFields["secret"])
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)

	ctx := context.Background()
	entity := &domain.Entity{
		ID:       "rotation-entity",
		Snapshot: domain.EntitySnapshot{CustomFields: map[string]any{"data": "encrypted-with-old-key"}},
	}

	// 1. Save with OLD key
	if _, err := secureStoreOld.Save(ctx, entity, ""); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Load with NEW key (Active) + OLD key (Fallback)
	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Snapshot.CustomFields["data"] != "encrypted-with-old-key" {
		t.Errorf("Decryption with fallback key failed")
	}

	// 3. Save again, now under the NEW key
	loaded.Snapshot.CustomFields["data"] = "encrypted-with-new-key"
	if _, err := secureStoreNew.Save(ctx, loaded, loaded.Version); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	// 4. The OLD key alone can no longer read it
	if _, err := secureStoreOld.Load(ctx, entity.ID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_FailsSecureOnPlainText(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if _, err := underlyingStore.Save(ctx, &domain.Entity{ID: "plain"}, ""); err != nil {
		t.Fatal(err)
	}

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected failure loading an entity without envelope")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected panic for invalid key size")
		}
	}()
	middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
}
