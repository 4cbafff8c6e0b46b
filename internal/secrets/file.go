package secrets

import (
	"fmt"
	"os"
	"path/filepath"

	ddErrors "github.com/rileyhilliard/ddmatrix/internal/errors"
	"gopkg.in/yaml.v3"
)

// fileSecrets is the on-disk layout of secrets.yaml.
type fileSecrets struct {
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	DDAPI    string `yaml:"dd_api"`
	DDApp    string `yaml:"dd_app"`
}

func (f fileSecrets) get(key string) string {
	switch key {
	case KeySSID:
		return f.SSID
	case KeyPassword:
		return f.Password
	case KeyAPI:
		return f.DDAPI
	case KeyApp:
		return f.DDApp
	}
	return ""
}

// FileStore reads secrets from a YAML file. A missing file behaves like an
// empty one so that the keyring can fill in.
type FileStore struct {
	path   string
	loaded bool
	data   fileSecrets
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads from.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) load() error {
	if f.loaded {
		return nil
	}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.loaded = true
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(raw, &f.data); err != nil {
		return fmt.Errorf("parse %s: %w", f.path, err)
	}
	f.loaded = true
	return nil
}

func (f *FileStore) Get(key string) (string, error) {
	if err := f.load(); err != nil {
		return "", err
	}
	v := f.data.get(key)
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

// WriteFile writes s to path as YAML with owner-only permissions.
// Existing files are left alone unless overwrite is set.
func WriteFile(path string, s Secrets, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return ddErrors.New(ddErrors.ErrSecrets,
				"Secrets file already exists: "+path,
				"Use --force to overwrite it")
		}
	}

	data, err := yaml.Marshal(fileSecrets{
		SSID:     s.SSID,
		Password: s.Password,
		DDAPI:    s.APIKey,
		DDApp:    s.AppKey,
	})
	if err != nil {
		return ddErrors.WrapWithCode(err, ddErrors.ErrSecrets,
			"Failed to encode secrets", "")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return ddErrors.WrapWithCode(err, ddErrors.ErrSecrets,
				"Failed to create directory "+dir, "Check permissions")
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return ddErrors.WrapWithCode(err, ddErrors.ErrSecrets,
			"Failed to write "+path, "Check permissions")
	}
	return nil
}
