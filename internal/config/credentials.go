package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
)

// DefaultSection is the credential file section read when none is given.
const DefaultSection = "c3g-prod"

// DefaultCredentialsPath returns the rclone configuration path for the current user.
func DefaultCredentialsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "rclone", "rclone.conf"), nil
}

// ReadCredentials loads the access triple from section of an rclone-style INI file.
func ReadCredentials(path, section string) (Credentials, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credential file %s: %w", path, err)
	}

	sec, err := file.GetSection(section)
	if err != nil {
		return Credentials{}, fmt.Errorf("section %q not found in %s", section, path)
	}

	creds := Credentials{
		AccessKeyID:     sec.Key("access_key_id").String(),
		SecretAccessKey: sec.Key("secret_access_key").String(),
		Endpoint:        NormalizeEndpoint(sec.Key("endpoint").String()),
		Region:          sec.Key("region").String(),
	}

	required := []struct{ name, value string }{
		{"access_key_id", creds.AccessKeyID},
		{"secret_access_key", creds.SecretAccessKey},
		{"endpoint", creds.Endpoint},
	}
	for _, r := range required {
		if r.value == "" {
			return Credentials{}, fmt.Errorf("key %q missing in section %q of %s", r.name, section, path)
		}
	}

	return creds, nil
}
