package push

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}

	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("public key is not base64url: %v", err)
	}
	// Uncompressed P-256 point: 0x04 || X || Y
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}
	if pubBytes[0] != 0x04 {
		t.Errorf("public key prefix = %#x, want 0x04", pubBytes[0])
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("private key is not base64url: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}
}

func TestGenerateVAPIDKeysUnique(t *testing.T) {
	pub1, priv1, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	pub2, priv2, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("GenerateVAPIDKeys: %v", err)
	}
	if pub1 == pub2 {
		t.Error("two generations produced the same public key")
	}
	if priv1 == priv2 {
		t.Error("two generations produced the same private key")
	}
}

func TestPayloadJSON(t *testing.T) {
	data, err := json.Marshal(Payload{Title: "New task available", Body: "Take out trash is up for grabs (10 points)", Tag: "task-offer-3"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if decoded["title"] != "New task available" {
		t.Errorf("title = %q", decoded["title"])
	}
	if _, ok := decoded["url"]; ok {
		t.Error("empty url should be omitted")
	}
}
