// internal/httpserver/auth.go
//
// Accounts, JWT cookies and the anonymous player id.
// Responsibilities:
//   - POST /auth/signup, /auth/login, /auth/logout; GET /auth/me.
//   - GET /stats/me and GET /games/mine for signed-in players.
//   - Optional and required auth middleware.
//   - Anonymous cookie so guest history can be claimed after login.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/memory-game/internal/store"
)

// Request payloads for signup/login.
type signupReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type loginReq = signupReq

// authUser is placed into request context by auth middleware.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

func userFrom(ctx context.Context) *authUser {
	u, _ := ctx.Value(ctxUserKey{}).(*authUser)
	return u
}

// mountAuthRoutes registers authentication + gated routes.
func (s *Server) mountAuthRoutes() {
	s.r.Post("/auth/signup", s.handleSignup)
	s.r.Post("/auth/login", s.handleLogin)
	s.r.Post("/auth/logout", s.handleLogout)

	s.r.Group(func(r chi.Router) {
		r.Use(s.requireAuth())
		r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, userFrom(r.Context()))
		})
		r.Get("/stats/me", s.handleStats)
		r.Get("/games/mine", s.handleMyGames)
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context())
	u, err := s.repo.FindUserByID(r.Context(), me.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "not_found")
		return
	}
	writeJSON(w, map[string]any{
		"id":             u.ID,
		"gamesPlayed":    u.GamesPlayed,
		"gamesCompleted": u.GamesCompleted,
	})
}

func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context())
	games, err := s.repo.RecentGames(r.Context(), me.ID, 50)
	if err != nil {
		log.Error().Err(err).Str("user", me.ID).Msg("recent games")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, games)
}

// handleSignup creates a user, signs a JWT, sets the auth cookie, and claims
// anonymous history.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body signupReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	username := normalizeUsername(body.Username)
	if err := validateSignup(username, body.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "hash_failed")
		return
	}
	u, err := s.repo.CreateUser(r.Context(), uuid.NewString(), username, string(hash))
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "Username taken")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("create user")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if !s.issueToken(w, u.ID, u.Username) {
		return
	}
	s.claimAnonGames(r.Context(), s.ensureAnonID(w, r), u.ID)
	writeJSON(w, map[string]any{"id": u.ID, "username": u.Username, "createdAt": u.CreatedAt})
}

// handleLogin authenticates, sets the cookie, and claims anonymous history.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	u, err := s.repo.FindUserByUsername(r.Context(), normalizeUsername(body.Username))
	if err != nil || !checkPassword(u.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if !s.issueToken(w, u.ID, u.Username) {
		return
	}
	s.claimAnonGames(r.Context(), s.ensureAnonID(w, r), u.ID)
	writeJSON(w, map[string]any{"id": u.ID, "username": u.Username})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, map[string]bool{"ok": true})
}

func (s *Server) issueToken(w http.ResponseWriter, id, username string) bool {
	tok, exp, err := s.signJWT(id, username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setAuthCookie(w, tok, exp)
	return true
}

// --------------------------- middleware ------------------------------------

// withOptionalAuth decorates requests with user context if a valid JWT is
// present. It never 401s.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.bearerOrCookie(r); tok != "" {
				if me, err := s.parseToken(r.Context(), tok); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid JWT and injects authUser into the context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := s.bearerOrCookie(r)
			if tok == "" {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			me, err := s.parseToken(r.Context(), tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, me)))
		})
	}
}

var errInvalidToken = errors.New("invalid token")

// parseToken validates an HS256 token and checks the user still exists.
func (s *Server) parseToken(ctx context.Context, tok string) (*authUser, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, errInvalidToken
	}
	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if id == "" || username == "" {
		return nil, errInvalidToken
	}
	if _, err := s.repo.FindUserByID(ctx, id); err != nil {
		return nil, errInvalidToken
	}
	return &authUser{ID: id, Username: username}, nil
}

// ------------------------------ anon id ------------------------------------

const anonCookieName = "memory_anon"

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, s.cookie(anonCookieName, id, time.Now().Add(180*24*time.Hour)))
	return id
}

// sessionOwner is a user id, or an anonymous id from the anon cookie.
type sessionOwner struct {
	id        string
	anonymous bool
}

// owner resolves who a new session belongs to. Call it once per request: a
// first-time guest gets a fresh anon cookie on every call.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) sessionOwner {
	if me := userFrom(r.Context()); me != nil {
		return sessionOwner{id: me.ID}
	}
	return sessionOwner{id: s.ensureAnonID(w, r), anonymous: true}
}

func (s *Server) claimAnonGames(ctx context.Context, anonID, userID string) {
	if err := s.repo.ClaimAnon(ctx, anonID, userID); err != nil {
		log.Warn().Err(err).Msg("claim anon games")
	}
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with id/username and the configured expiry.
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	days := s.cfg.JWTExpiresDays
	if days <= 0 {
		days = 14
	}
	exp := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      time.Now().Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

func (s *Server) cookieName() string {
	if s.cfg.CookieName == "" {
		return "memory_token"
	}
	return s.cfg.CookieName
}

func (s *Server) cookie(name, value string, exp time.Time) *http.Cookie {
	secure := s.cfg.Production()
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  exp,
	}
}

func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, s.cookie(s.cookieName(), token, exp))
}

func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	c := s.cookie(s.cookieName(), "", time.Time{})
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// bearerOrCookie extracts a token from the Authorization header or cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cookieName()); err == nil {
		return c.Value
	}
	return ""
}

// ------------------------------ validation ---------------------------------

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateSignup enforces basic username/password rules.
func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 100 {
		return errors.New("password must be 8-100 chars")
	}
	return nil
}
