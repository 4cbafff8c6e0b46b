// Package secrets loads WiFi and Datadog credentials from a YAML file or the
// OS keyring.
package secrets

import (
	"errors"
	"strings"

	ddErrors "github.com/rileyhilliard/ddmatrix/internal/errors"
)

// ServiceName is the keyring service under which credentials are stored.
const ServiceName = "ddmatrix"

// Secret keys, shared by every store.
const (
	KeySSID     = "ssid"
	KeyPassword = "password"
	KeyAPI      = "dd_api"
	KeyApp      = "dd_app"
)

// Keys lists every key a store may hold, in prompt order.
var Keys = []string{KeySSID, KeyPassword, KeyAPI, KeyApp}

// ErrNotFound is returned by a store that has no value for a key.
var ErrNotFound = errors.New("secret not found")

// Store is a source of secret values.
type Store interface {
	Get(key string) (string, error)
}

// Secrets holds the credentials needed to bring the dashboard up.
// SSID and Password may be empty when the host is already online.
type Secrets struct {
	SSID     string
	Password string
	APIKey   string
	AppKey   string
}

// Load resolves every key against stores in order; the first non-empty value
// wins. A missing API or application key is a SECRETS error.
func Load(stores ...Store) (Secrets, error) {
	var s Secrets
	values := make(map[string]string, len(Keys))

	for _, key := range Keys {
		for _, store := range stores {
			if store == nil {
				continue
			}
			v, err := store.Get(key)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return s, ddErrors.WrapWithCode(err, ddErrors.ErrSecrets,
					"Failed to read secret "+key,
					"Check the secrets file or keyring is readable")
			}
			if v = strings.TrimSpace(v); v != "" {
				values[key] = v
				break
			}
		}
	}

	s = Secrets{
		SSID:     values[KeySSID],
		Password: values[KeyPassword],
		APIKey:   values[KeyAPI],
		AppKey:   values[KeyApp],
	}

	var missing []string
	if s.APIKey == "" {
		missing = append(missing, KeyAPI)
	}
	if s.AppKey == "" {
		missing = append(missing, KeyApp)
	}
	if len(missing) > 0 {
		return s, ddErrors.New(ddErrors.ErrSecrets,
			"Datadog credentials missing: "+strings.Join(missing, ", "),
			"Run 'ddmatrix init' or add them to secrets.yaml")
	}

	return s, nil
}

// Mask hides all but the last four characters of v.
func Mask(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return strings.Repeat("*", len(v)-4) + v[len(v)-4:]
}

// MockStore is an in-memory store for testing.
type MockStore struct {
	values map[string]string
	err    error
}

func NewMockStore(values map[string]string) *MockStore {
	if values == nil {
		values = make(map[string]string)
	}
	return &MockStore{values: values}
}

// FailWith makes every Get return err.
func (m *MockStore) FailWith(err error) {
	m.err = err
}

func (m *MockStore) Set(key, value string) {
	m.values[key] = value
}

func (m *MockStore) Get(key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
