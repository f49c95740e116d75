package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNoKeys = errors.New("keyring has no keys")

// Sealed is the stored form of an encrypted payload. The associated data is
// not stored; the caller supplies it again on Open.
type Sealed struct {
	KeyID string `json:"kid"`
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

// Keyring seals with the current key and opens with any known key, so keys
// can be rotated without rewriting stored rows first.
type Keyring struct {
	current string
	aeads   map[string]cipher.AEAD
}

func NewKeyring(current string, keys map[string][]byte) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	if current == "" {
		return nil, fmt.Errorf("current key id is empty")
	}
	if _, ok := keys[current]; !ok {
		return nil, fmt.Errorf("current key id %q not found", current)
	}
	aeads := make(map[string]cipher.AEAD, len(keys))
	for id, key := range keys {
		if len(key) != 32 {
			return nil, fmt.Errorf("key %q must be 32 bytes", id)
		}
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("key %q: new cipher: %w", id, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("key %q: new gcm: %w", id, err)
		}
		aeads[id] = aead
	}
	return &Keyring{current: current, aeads: aeads}, nil
}

func (k *Keyring) CurrentKeyID() string {
	return k.current
}

// Seal encrypts plaintext bound to aad, typically the owning client id.
func (k *Keyring) Seal(plaintext, aad []byte) (Sealed, error) {
	aead := k.aeads[k.current]
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("nonce: %w", err)
	}
	return Sealed{
		KeyID: k.current,
		Nonce: base64.StdEncoding.EncodeToString(nonce),
		Data:  base64.StdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, aad)),
	}, nil
}

func (k *Keyring) Open(s Sealed, aad []byte) ([]byte, error) {
	aead, ok := k.aeads[s.KeyID]
	if !ok {
		return nil, fmt.Errorf("unknown key id %q", s.KeyID)
	}
	nonce, err := base64.StdEncoding.DecodeString(s.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(s.Data)
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("nonce has %d bytes, want %d", len(nonce), aead.NonceSize())
	}
	plaintext, err := aead.Open(nil, nonce, data, aad)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// SealJSON encodes v as JSON, seals it and returns the sealed record as a
// JSON string ready for a text column.
func (k *Keyring) SealJSON(v any, aad string) (string, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	s, err := k.Seal(plain, []byte(aad))
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode sealed: %w", err)
	}
	return string(b), nil
}

func (k *Keyring) OpenJSON(raw, aad string, v any) error {
	var s Sealed
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return fmt.Errorf("decode sealed: %w", err)
	}
	plain, err := k.Open(s, []byte(aad))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Reseal re-encrypts a sealed record under the current key. Records already
// on the current key are returned unchanged with changed=false.
func (k *Keyring) Reseal(raw, aad string) (out string, changed bool, err error) {
	var s Sealed
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", false, fmt.Errorf("decode sealed: %w", err)
	}
	if s.KeyID == k.current {
		return raw, false, nil
	}
	plain, err := k.Open(s, []byte(aad))
	if err != nil {
		return "", false, err
	}
	next, err := k.Seal(plain, []byte(aad))
	if err != nil {
		return "", false, err
	}
	b, err := json.Marshal(next)
	if err != nil {
		return "", false, fmt.Errorf("encode sealed: %w", err)
	}
	return string(b), true, nil
}
