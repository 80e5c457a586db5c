// Package config loads Reddit API credentials from the environment.
//
// Credentials come from environment variables, optionally seeded from a
// .env file in the working directory:
//
//	REDDIT_CLIENT_ID      OAuth application client id (required)
//	REDDIT_CLIENT_SECRET  OAuth application secret (required)
//	REDDIT_USER_AGENT     User-Agent header for API requests (optional)
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "REDDIT"

// DefaultUserAgent is used when REDDIT_USER_AGENT is not set.
const DefaultUserAgent = "reddit-post-downloader"

// ErrMissingCredentials indicates required credentials are not set.
var ErrMissingCredentials = errors.New("missing reddit credentials")

// Credentials holds the Reddit API application credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// LoadCredentials reads credentials from the environment.
//
// If envFile is non-empty it must exist and is loaded first; otherwise a
// .env file in the working directory is loaded when present. Values
// already set in the environment take precedence over the file.
func LoadCredentials(envFile string) (*Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetDefault("user_agent", DefaultUserAgent)

	creds := &Credentials{
		ClientID:     v.GetString("client_id"),
		ClientSecret: v.GetString("client_secret"),
		UserAgent:    v.GetString("user_agent"),
	}

	var missing []string
	if creds.ClientID == "" {
		missing = append(missing, "REDDIT_CLIENT_ID")
	}
	if creds.ClientSecret == "" {
		missing = append(missing, "REDDIT_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: set %v in the environment or a .env file", ErrMissingCredentials, missing)
	}

	return creds, nil
}
