package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds CLI settings resolved from flags and the environment
type Config struct {
	ServerURL string
	Token     string
	TokenFile string
	Output    string
	Verbose   bool
}

// Credential is what the CLI remembers about one server
type Credential struct {
	Token       string    `yaml:"token"`
	PlayerID    string    `yaml:"player_id,omitempty"`
	DisplayName string    `yaml:"display_name,omitempty"`
	ExpiresAt   time.Time `yaml:"expires_at,omitempty"`
}

// credentialFile is the on-disk token file, keyed by server URL so one
// file can hold logins for several servers
type credentialFile struct {
	Servers map[string]Credential `yaml:"servers"`
}

func DefaultConfig() *Config {
	return &Config{
		ServerURL: envOr("WCHAIN_SERVER", "http://localhost:8080"),
		Token:     os.Getenv("WCHAIN_TOKEN"),
		TokenFile: envOr("WCHAIN_TOKEN_FILE", defaultTokenFile()),
		Output:    "text",
	}
}

// LoadToken fills Token from the file unless a flag or env var set it
func (c *Config) LoadToken() error {
	if c.Token != "" {
		return nil
	}
	file, err := c.readCredentials()
	if err != nil {
		return err
	}
	c.Token = file.Servers[c.serverKey()].Token
	return nil
}

// SaveCredential remembers the login for the current server
func (c *Config) SaveCredential(cred Credential) error {
	file, err := c.readCredentials()
	if err != nil {
		return err
	}
	file.Servers[c.serverKey()] = cred
	c.Token = cred.Token
	return c.writeCredentials(file)
}

// ClearToken forgets the current server's login. The file goes once it is empty.
func (c *Config) ClearToken() error {
	c.Token = ""
	file, err := c.readCredentials()
	if err != nil {
		return err
	}
	delete(file.Servers, c.serverKey())
	if len(file.Servers) == 0 {
		if err := os.Remove(c.TokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return c.writeCredentials(file)
}

func (c *Config) serverKey() string {
	return strings.TrimRight(c.ServerURL, "/")
}

func (c *Config) readCredentials() (*credentialFile, error) {
	file := &credentialFile{}
	data, err := os.ReadFile(c.TokenFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", c.TokenFile, err)
		}
	}
	if file.Servers == nil {
		file.Servers = make(map[string]Credential)
	}
	return file, nil
}

func (c *Config) writeCredentials(file *credentialFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.TokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.TokenFile, data, 0o600)
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wchain", "credentials.yaml")
	}
	return filepath.Join(home, ".wchain", "credentials.yaml")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
