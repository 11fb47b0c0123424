package auth

import (
	"context"
	"net/http"
	"strings"

	"speaking9/api/model"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var authedUserCtxKey = &contextKey{"authedUser"}

type contextKey = struct {
	name string
}

// ObjectStore removes stored recordings when their owner's account goes away.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// AuthHandler carries the DB pool and OAuth settings for the auth routes.
type AuthHandler struct {
	DB               *pgxpool.Pool
	Store            ObjectStore
	FinalRedirectURL string
}

// TokenFromRequest extracts the session token from the `auth` cookie or the
// Authorization header. The second return value is false when an
// Authorization header exists but is malformed.
func TokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie("auth")
	if err == nil && cookie != nil && cookie.Value != "" {
		/* if auth cookie exists, use it as token */
		return cookie.Value, true
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		/* not logged in, which is fine, no err */
		return "", true
	}

	/* split `Bearer abc123def456` by space,
	then check if "Bearer" and actual token both exist */
	headerParts := strings.SplitN(header, " ", 2)
	if len(headerParts) == 2 && strings.EqualFold(headerParts[0], "Bearer") && headerParts[1] != "" {
		return headerParts[1], true
	}
	return "", false
}

// AuthMiddleware resolves the session token into an AuthedUser stored in the
// request context. Requests without a token pass through unauthenticated;
// expired sessions behave exactly like no token.
func (ah *AuthHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		token, ok := TokenFromRequest(r)
		if !ok {
			/* only send an error if the header exists but is wrong */
			http.Error(w, "Authorization header exists, but it's invalid", 400)
			return
		}

		if token != "" {
			/* if token is NOT empty, use it to get their account
			(doesn't matter if it's from the `auth` cookie or `Authorization` header) */
			var authedUser model.AuthedUser
			err := pgxscan.Get(
				r.Context(),
				ah.DB,
				&authedUser,
				`SELECT u.id, u.username, u.display_name, u.auth_type, u.oauth_google_email
FROM auth.sessions s
JOIN auth.users u ON s.user_id = u.id
WHERE s.token = $1 AND s.expire_at > now()`,
				token,
			)
			if err == nil {
				r = r.WithContext(ContextWithAuthedUser(r.Context(), &authedUser))
			} else if !pgxscan.NotFound(err) {
				log.Error().Err(err).Msg("Database error in AuthMiddleware")
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ContextWithAuthedUser returns a context carrying the authed user.
func ContextWithAuthedUser(ctx context.Context, user *model.AuthedUser) context.Context {
	return context.WithValue(ctx, authedUserCtxKey, user)
}

// AuthedUserContext returns the authed user from the request context, or nil
// when the request is unauthenticated.
func AuthedUserContext(ctx context.Context) *model.AuthedUser {
	user, _ := ctx.Value(authedUserCtxKey).(*model.AuthedUser)
	return user
}
