package config

import (
	"errors"
	"path/filepath"
)

// AppConfig holds the HTTP and data-directory settings.
type AppConfig struct {
	Port        string
	CORSOrigins []string
	DataDir     string
	JWTKey      []byte
}

func NewAppConfig() (*AppConfig, error) {
	key := getEnv("JWT_KEY", "")
	if key == "" {
		return nil, errors.New("JWT_KEY not set")
	}
	return &AppConfig{
		Port:        getEnv("PORT", "8000"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		DataDir:     getEnv("DATA_DIR", "data"),
		JWTKey:      []byte(key),
	}, nil
}

// DataFile returns the path of a file inside the data directory.
func (c *AppConfig) DataFile(name string) string {
	return filepath.Join(c.DataDir, name)
}
