// Package googlefit reads heart rate, sleep, steps and calories from the
// Google Fit REST API and turns them into genuine samples.
package googlefit

import (
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fitness/v1"
)

// Scopes are the read-only scopes requested at consent.
var Scopes = []string{
	fitness.FitnessActivityReadScope,
	fitness.FitnessHeartRateReadScope,
	fitness.FitnessSleepReadScope,
	fitness.FitnessBodyReadScope,
}

// OAuthConfig builds the OAuth2 client configuration for Google Fit.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

// NewState returns a random OAuth state token.
func NewState() string {
	return uuid.NewString()
}

// AuthURL returns the consent URL. Offline access and forced consent make
// Google issue a refresh token on every connect.
func AuthURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}
