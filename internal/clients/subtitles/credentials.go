package subtitles

import (
	"encoding/json"
	"fmt"
	"os"
)

// Credentials are the user login fields read from another application's
// config file, so both apps can share one OpenSubtitles account.
type Credentials struct {
	Username string
	Password string
}

// LoadExternalCredentials reads username/password out of a sibling app's
// JSON settings file. It tolerates both flat and nested layouts:
//
//	{"opensubtitles_username": ..., "opensubtitles_password": ...}
//	{"opensubtitles": {"username": ..., "password": ...}}
func LoadExternalCredentials(path string) (Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading credentials file: %w", err)
	}

	var nested struct {
		OpenSubtitles struct {
			Username string `json:"username"`
			Password string `json:"password"`
		} `json:"opensubtitles"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil &&
		nested.OpenSubtitles.Username != "" {
		return Credentials{
			Username: nested.OpenSubtitles.Username,
			Password: nested.OpenSubtitles.Password,
		}, nil
	}

	var flat struct {
		Username string `json:"opensubtitles_username"`
		Password string `json:"opensubtitles_password"`
	}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return Credentials{}, fmt.Errorf("parsing credentials file: %w", err)
	}
	if flat.Username == "" {
		return Credentials{}, fmt.Errorf("no opensubtitles credentials in %s", path)
	}
	return Credentials{Username: flat.Username, Password: flat.Password}, nil
}
