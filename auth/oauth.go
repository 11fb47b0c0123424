package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var googleOauthConfig *oauth2.Config

// OAuthGoogleSettings holds the Google OAuth client configuration,
// populated from the service config after env vars are loaded.
type OAuthGoogleSettings struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

func InitOAuthGoogle(settings OAuthGoogleSettings) {
	googleOauthConfig = &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.CallbackURL,
		Scopes: []string{
			"openid",
			"profile",
			"email",
		},
		Endpoint: google.Endpoint,
	}
}

func generateStateParam(length int) (string, error) {
	// length is number of bytes before base64 encoding
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	// URL-safe base64 encoding
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(b), nil
}

func (ah *AuthHandler) OAuthGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	// Generate random state
	state, err := generateStateParam(16) // 16 bytes → ~22 chars after base64
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate state before Google OAuth redirect")
		http.Error(w, "Failed to generate state", 500)
		return
	}

	// Store it in a secure cookie or server-side session store
	http.SetCookie(w, &http.Cookie{
		Name:     "sp9_oauth_g_state",
		Value:    state,
		HttpOnly: true,
		Secure:   true, // only over HTTPS
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, /* 5 mins * 60s/min = 300 sec = 5 min */
	})

	// Redirect to Google
	url := googleOauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (ah *AuthHandler) OAuthGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("sp9_oauth_g_state")
	if err != nil {
		log.Warn().Msg("Google OAuth callback missing state cookie")
		http.Error(w, "State cookie missing", 400)
		return
	}

	if r.FormValue("state") != cookie.Value {
		log.Warn().Msg("Google OAuth callback invalid state")
		http.Error(w, "Invalid state", 400)
		return
	}

	token, err := googleOauthConfig.Exchange(r.Context(), r.FormValue("code"))
	if err != nil {
		log.Warn().Err(err).Msg("Google OAuth code exchange failed")
		http.Error(w, "Code exchange failed: "+err.Error(), 500)
		return
	}

	resp, err := http.Get("https://www.googleapis.com/oauth2/v3/userinfo?access_token=" + token.AccessToken)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to get user info from googleapis.com/oauth2/v3/userinfo")
		http.Error(w, "Failed to get user info: "+err.Error(), 500)
		return
	}
	defer resp.Body.Close()

	var userInfo struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
		Name    string `json:"name"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		log.Warn().Err(err).Msg("Failed to decode user info")
		http.Error(w, "Failed to decode user info: "+err.Error(), 500)
		return
	}

	var userID string
	err = pgxscan.Get(
		r.Context(),
		ah.DB,
		&userID,
		`INSERT INTO auth.users (oauth_google_sub, auth_type, oauth_google_email, display_name)
VALUES ($1, 'OAUTH_GOOGLE', $2, $3) ON CONFLICT (oauth_google_sub) DO UPDATE
SET oauth_google_email = $2 RETURNING id`,
		userInfo.Sub,
		userInfo.Email,
		userInfo.Name,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database error while adding google oauth user")
		http.Error(w, "Database error while adding google oauth user", 500)
		return
	}

	var sessionToken string
	err = pgxscan.Get(
		r.Context(),
		ah.DB,
		&sessionToken,
		`INSERT INTO auth.sessions (user_id)
VALUES ($1) RETURNING token`,
		userID,
	)
	if err != nil {
		log.Error().Err(err).Msg("Database error while adding session for google oauth")
		http.Error(w, "Database error while adding session for google oauth", 500)
		return
	}

	http.SetCookie(w, sessionCookie(sessionToken))
	http.Redirect(w, r, ah.FinalRedirectURL, http.StatusTemporaryRedirect)
}
