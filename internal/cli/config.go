package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
)

// Settings holds the CLI's own flags. Everything else comes from config.Load.
type Settings struct {
	ConfigFile string
	ServerURL  string
	CookieFile string
	Output     string
	Verbose    bool
}

// DefaultSettings returns Settings with default values
func DefaultSettings() *Settings {
	return &Settings{
		ConfigFile: os.Getenv("TEACHKIT_CONFIG"),
		CookieFile: getEnvOrDefault("TEACHKIT_COOKIE_FILE", defaultCookieFile()),
		Output:     "text",
	}
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadCookies reads the saved backend session cookies. A missing file means none.
func LoadCookies(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return cookies, nil
}

// SaveCookies writes the backend session cookies, readable only by the user
func SaveCookies(path string, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// RemoveCookies deletes the cookie file if present
func RemoveCookies(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func defaultCookieFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".teachkit/cookies.json"
	}
	return filepath.Join(home, ".teachkit", "cookies.json")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
