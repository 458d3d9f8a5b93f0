package ws

import (
	"net/http"

	"github.com/restropos/api/internal/auth"
)

// ServeAuthenticated validates the JWT passed as the "token" query
// parameter and pins the connection to the caller's tenant room.
func ServeAuthenticated(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := auth.ValidateToken(jwtSecret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	hub.Serve(w, r, claims.TenantID)
}
