package configuration

import (
	"fmt"
	"os"
	"strings"
)

// GoogleOAuthConfig represents the Google OAuth client configuration used
// for YouTube account binding.
type GoogleOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// GetGoogleOAuthConfig returns Google OAuth configuration from JSON config
// with environment variable fallback.
func GetGoogleOAuthConfig() (*GoogleOAuthConfig, error) {
	scheme := "http"
	if C.App.TLSEnabled {
		scheme = "https"
	}
	port := C.App.Port
	if port == 0 {
		port = 10001
	}
	defaultRedirect := fmt.Sprintf("%s://localhost:%d/auth/youtube/callback", scheme, port)
	config := &GoogleOAuthConfig{
		ClientID:     getConfigValue(C.OAuth.Google.ClientID, "GOOGLE_CLIENT_ID", ""),
		ClientSecret: getConfigValue(C.OAuth.Google.ClientSecret, "GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:  getConfigValue(C.OAuth.Google.RedirectURI, "GOOGLE_REDIRECT_URL", defaultRedirect),
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, fmt.Errorf("google oauth client id/secret not configured")
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
