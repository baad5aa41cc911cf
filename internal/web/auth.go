package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth holds the admin credentials. Without both a username and a password every
// admin request is refused. JWTSecret enables bearer tokens issued by the login endpoint.
type Auth struct {
	Username  string
	Password  string
	JWTSecret string
	TokenTTL  time.Duration
}

// Claims are carried by admin bearer tokens
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (a Auth) enabled() bool {
	return a.Username != "" && a.Password != ""
}

func (a Auth) validCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
	return userOK && passOK
}

// GenerateToken signs a token for username that expires after TokenTTL
func (a Auth) GenerateToken(username string, now time.Time) (string, time.Time, error) {
	if a.JWTSecret == "" {
		return "", time.Time{}, errors.New("token signing is not configured")
	}
	ttl := a.TokenTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	expiresAt := now.Add(ttl)

	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (a Auth) validToken(tokenString string) bool {
	if a.JWTSecret == "" || !a.enabled() {
		return false
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(a.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	return err == nil && token.Valid && claims.Username == a.Username
}

// authenticate checks basic auth credentials or a bearer token
func (a Auth) authenticate(r *http.Request) bool {
	if !a.enabled() {
		return false
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return a.validToken(strings.TrimPrefix(header, "Bearer "))
	}

	username, password, ok := r.BasicAuth()
	return ok && a.validCredentials(username, password)
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.authenticate(r) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Scout Scanner"`)
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin exchanges admin credentials for a bearer token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth.JWTSecret == "" || !s.auth.enabled() {
		writeError(w, "Token login is not configured", http.StatusNotFound)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !s.auth.validCredentials(req.Username, req.Password) {
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := s.auth.GenerateToken(req.Username, time.Now())
	if err != nil {
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}
