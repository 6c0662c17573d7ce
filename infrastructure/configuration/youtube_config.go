package configuration

import (
	"fmt"
	"os"
	"strings"
)

// YouTubeConfig carries the OAuth client used for first-time channel
// authorization and token renewal. Per-channel tokens live in the credential
// store, not here.
type YouTubeConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
	Scopes       []string
}

// GetYouTubeConfig returns the YouTube OAuth client configuration from JSON
// config with environment variable fallback.
func GetYouTubeConfig() (*YouTubeConfig, error) {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10010
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/youtube/callback", scheme, port)
	config := &YouTubeConfig{
		ClientID:     getConfigValue(C.YouTube.ClientID, "YOUTUBE_CLIENT_ID", ""),
		ClientSecret: getConfigValue(C.YouTube.ClientSecret, "YOUTUBE_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(C.YouTube.RedirectURI, "YOUTUBE_REDIRECT_URL", defaultRedirect),
		Scopes:       C.YouTube.Scopes,
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("youtube oauth client not configured")
	}
	return config, nil
}

// getConfigValue gets value from environment first, then config, then default.
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
