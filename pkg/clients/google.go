package clients

import (
	"os"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// AccessTokenEnv names the variable holding a short lived OAuth access
// token, as printed by "gcloud auth print-access-token".
const AccessTokenEnv = "GOOGLE_OAUTH_ACCESS_TOKEN"

// GoogleAuth selects how a Google Cloud client authenticates. Endpoint wins
// over AccessToken, which wins over CredentialsFile. With none set the
// client uses application default credentials.
type GoogleAuth struct {
	CredentialsFile string
	AccessToken     string
	// Endpoint points the client at an emulator without authentication
	Endpoint string
}

// GoogleAuthFromEnv returns auth with AccessToken taken from the
// environment when it is empty.
func GoogleAuthFromEnv(auth GoogleAuth) GoogleAuth {
	if auth.AccessToken == "" {
		auth.AccessToken = os.Getenv(AccessTokenEnv)
	}
	return auth
}

// Options returns the client options for auth.
func (a GoogleAuth) Options() []option.ClientOption {
	switch {
	case a.Endpoint != "":
		return []option.ClientOption{option.WithEndpoint(a.Endpoint), option.WithoutAuthentication()}
	case a.AccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.AccessToken, TokenType: "Bearer"})
		return []option.ClientOption{option.WithTokenSource(ts)}
	case a.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(a.CredentialsFile)}
	default:
		return nil
	}
}
