package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/andrebq/backoffice/internal/httperr"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/julienschmidt/httprouter"
)

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	registerRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	loginResponse struct {
		Message  string   `json:"message"`
		Token    string   `json:"token"`
		Roles    []string `json:"roles"`
		Username string   `json:"username"`
		UserID   int64    `json:"userId"`
	}

	verifyResponse struct {
		Message  string   `json:"message"`
		Username string   `json:"username"`
		Roles    []string `json:"roles"`
	}
)

// Routes mounts the login, register, verifyToken and logout endpoints.
func (s *Realm) Routes(router *httprouter.Router) {
	router.POST("/api/auth/login", s.login)
	router.POST("/api/auth/register", s.register)
	router.GET("/api/auth/verifyToken", s.verifyToken)
	router.POST("/api/auth/logout", s.logout)
}

func (s *Realm) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	var req loginRequest
	if err := httperr.DecodeJSON(w, r, &req); err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	res, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	claims := res.Claims
	roles, err := json.Marshal(claims.Roles)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	maxAge := int(s.auth.Tokens().TTL().Seconds())
	for _, c := range []struct{ name, value string }{
		{tokenCookie, res.Token},
		{rolesCookie, string(roles)},
		{userIDCookie, strconv.FormatInt(claims.UserID, 10)},
		{usernameCookie, claims.Username},
	} {
		err = s.setCookie(w, c.name, c.value, maxAge)
		if err != nil {
			httperr.Write(ctx, w, err)
			return
		}
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, loginResponse{
		Message:  "Login successful.",
		Token:    res.Token,
		Roles:    claims.Roles,
		Username: claims.Username,
		UserID:   claims.UserID,
	})
}

func (s *Realm) register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	var req registerRequest
	if err := httperr.DecodeJSON(w, r, &req); err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	_, err := s.auth.Register(ctx, req.Username, req.Password, req.Role)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteMessage(ctx, w, http.StatusCreated, "User registered successfully")
}

func (s *Realm) verifyToken(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	claims, err := s.auth.Verify(ctx, s.token(r))
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, verifyResponse{
		Message:  "Token is valid",
		Username: claims.Username,
		Roles:    claims.Roles,
	})
}

func (s *Realm) logout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	err := s.auth.Logout(ctx, s.token(r))
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	s.clearCookies(w)
	httpserver.WriteMessage(ctx, w, http.StatusOK, "Logged out successfully")
}
