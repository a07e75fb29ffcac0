// Package provider constructs the reservation provider selected by
// configuration.
package provider

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/resy-sniper/internal/config"
	"github.com/example/resy-sniper/internal/provider/resy"
	"github.com/example/resy-sniper/internal/snipe"
)

// FromConfig builds the provider for the configured client mode. Auto mode
// picks the API client when Resy credentials are present.
func FromConfig(cfg config.Config, log *zap.Logger) (snipe.Provider, error) {
	switch cfg.ClientMode {
	case config.ModeBrowser:
		return nil, errors.New("browser client mode is not supported by this build; set RESY_CLIENT_MODE=api")
	case config.ModeAPI, config.ModeAuto:
		if !cfg.HasResyConfigured() {
			return nil, errors.New("RESY_API_KEY and RESY_AUTH_TOKEN are required")
		}
		return resy.New(resy.Credentials{
			APIKey:          cfg.ResyAPIKey,
			AuthToken:       cfg.ResyAuthToken,
			PaymentMethodID: cfg.ResyPaymentMethodID,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown client mode %q", cfg.ClientMode)
	}
}
