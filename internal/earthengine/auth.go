// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package earthengine

import (
	"context"
	"fmt"
	"os"

	"github.com/tomtom215/cloudfrequency/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// Scopes requested for the service account.
var Scopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

// TokenSource builds service account credentials from cfg. A JSON key file
// wins over an email plus PEM key pair.
func TokenSource(ctx context.Context, cfg *config.EarthEngineConfig) (oauth2.TokenSource, error) {
	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials file: %w", err)
		}
		return jwtConfig.TokenSource(ctx), nil
	}

	if cfg.ServiceAccount == "" || cfg.PrivateKeyFile == "" {
		return nil, fmt.Errorf("service account email and private key file are required")
	}
	key, err := os.ReadFile(cfg.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	jwtConfig := &jwt.Config{
		Email:      cfg.ServiceAccount,
		PrivateKey: key,
		Scopes:     Scopes,
		TokenURL:   google.JWTTokenURL,
	}
	return jwtConfig.TokenSource(ctx), nil
}
