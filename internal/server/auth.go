package server

import (
	"net/http"
	"strings"
)

const adminCookieName = "admin_session"

// playerToken reads the game token from the Authorization header or, for
// EventSource and WebSocket clients that cannot set headers, from the
// token query parameter.
func playerToken(r *http.Request) string {
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found && token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func adminSessionID(r *http.Request) string {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
