package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringStore reads and writes secrets in the OS keychain.
type KeyringStore struct {
	serviceName string
}

func NewKeyringStore(serviceName string) *KeyringStore {
	if serviceName == "" {
		serviceName = ServiceName
	}
	return &KeyringStore{serviceName: serviceName}
}

func (k *KeyringStore) Get(key string) (string, error) {
	v, err := keyring.Get(k.serviceName, key)
	if err == nil {
		return v, nil
	}
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return "", ErrNotFound
	}
	return "", err
}

func (k *KeyringStore) Set(key, value string) error {
	return keyring.Set(k.serviceName, key, value)
}

func (k *KeyringStore) Delete(key string) error {
	err := keyring.Delete(k.serviceName, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Save stores every non-empty field of s in the keyring.
func (k *KeyringStore) Save(s Secrets) error {
	fields := map[string]string{
		KeySSID:     s.SSID,
		KeyPassword: s.Password,
		KeyAPI:      s.APIKey,
		KeyApp:      s.AppKey,
	}
	for _, key := range Keys {
		if fields[key] == "" {
			continue
		}
		if err := k.Set(key, fields[key]); err != nil {
			return err
		}
	}
	return nil
}
