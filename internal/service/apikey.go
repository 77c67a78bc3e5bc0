package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// APIKeyService guards the local API. Only the hash of the key is kept.
type APIKeyService struct {
	hashedKey string
}

func NewAPIKeyService(key string) *APIKeyService {
	return &APIKeyService{hashedKey: hashAPIKey(key)}
}

func (s *APIKeyService) IsValidAPIKey(key string) bool {
	if key == "" {
		return false
	}

	hashedKey := hashAPIKey(key)
	return subtle.ConstantTimeCompare([]byte(hashedKey), []byte(s.hashedKey)) == 1
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
