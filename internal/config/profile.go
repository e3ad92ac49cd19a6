package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/adamsnows/jobhunter-bot/internal/domain"
)

// LoadProfile reads the operator profile from dataDir, writing the default
// profile on first run so it can be edited out of band.
func LoadProfile(dataDir string) (domain.Profile, error) {
	path := filepath.Join(dataDir, "profile.json")

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		p := domain.DefaultProfile()
		return p, SaveProfile(dataDir, p)
	}
	if err != nil {
		return domain.Profile{}, err
	}

	var p domain.Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

func SaveProfile(dataDir string, p domain.Profile) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, "profile.json"), b, 0o644)
}
