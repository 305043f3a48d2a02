package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/petri/pkg/domain"
	"github.com/aretw0/petri/pkg/ports"
)

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SubjectStore
	config EncryptionConfig
}

const envelopeKey = "__encrypted__"

// NewEncryptionMiddleware creates a middleware that encrypts subject
// attributes using AES-GCM (Envelope Encryption). Assignment fields stay
// readable so stores can still index and report on them.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SubjectStore) ports.SubjectStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) Write(ctx context.Context, subjects []domain.Subject) error {
	sealed := make([]domain.Subject, len(subjects))
	for i := range subjects {
		envelope, err := m.seal(&subjects[i])
		if err != nil {
			return err
		}
		sealed[i] = *envelope
	}
	return m.next.Write(ctx, sealed)
}

func (m *encryptionMiddleware) Fetch(ctx context.Context) ([]domain.Subject, error) {
	envelopes, err := m.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	subjects := make([]domain.Subject, len(envelopes))
	for i := range envelopes {
		opened, err := m.open(&envelopes[i])
		if err != nil {
			return nil, err
		}
		subjects[i] = *opened
	}
	return subjects, nil
}

func (m *encryptionMiddleware) Get(ctx context.Context, id string) (*domain.Subject, error) {
	envelope, err := m.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.open(envelope)
}

func (m *encryptionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *encryptionMiddleware) seal(subject *domain.Subject) (*domain.Subject, error) {
	plainText, err := json.Marshal(subject.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal attributes: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt attributes: %w", err)
	}

	envelope := subject.Clone()
	envelope.Attributes = map[string]any{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return envelope, nil
}

func (m *encryptionMiddleware) open(subject *domain.Subject) (*domain.Subject, error) {
	encryptedStr, ok := subject.Attributes[envelopeKey].(string)
	if !ok {
		// Fail secure: with encryption configured, a plain subject is an error.
		return nil, fmt.Errorf("subject %s is missing the encrypted attribute envelope", subject.ID)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	// Try active key first, then fallbacks.
	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt attributes: %w", err)
	}

	var attrs map[string]any
	if err := json.Unmarshal(plainText, &attrs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted attributes: %w", err)
	}

	opened := subject.Clone()
	opened.Attributes = attrs
	return opened, nil
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
