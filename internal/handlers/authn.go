package handlers

import (
	"net/http"
	"strings"

	"github.com/clipstream/backend/internal/auth"
	"github.com/clipstream/backend/internal/logging"
)

const accessTokenCookie = "accessToken"

// requireAuth resolves the caller's principal from the bearer header or the
// access-token cookie. On failure it writes a 401 envelope and returns
// ok=false; handlers thread the returned principal explicitly instead of
// stashing it in ambient request state.
func requireAuth(sessions SessionManager, w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(accessTokenCookie); err == nil {
			token = cookie.Value
		}
	}

	if token == "" {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}

	principal, err := sessions.Verify(token)
	if err != nil {
		logging.FromContext(ctx).Warn("access token rejected", "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid or expired token")
		return auth.Principal{}, false
	}

	return principal, true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
