package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/andrebq/backoffice/auth"
	"github.com/andrebq/backoffice/internal/httperr"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/julienschmidt/httprouter"
)

type (
	// Realm authenticates requests carrying either a bearer token or the
	// encrypted token cookie set at login, and guards routes by role.
	Realm struct {
		auth           *auth.Service
		cookies        *auth.CookieCodec
		insecureCookie bool
	}
)

const (
	tokenCookie    = "token"
	rolesCookie    = "roles"
	userIDCookie   = "userId"
	usernameCookie = "username"
)

var (
	bearerTokenRE = regexp.MustCompile(`^Bearer ([^\s]+)$`)

	sessionCookies = []string{tokenCookie, rolesCookie, userIDCookie, usernameCookie}
)

// NewRealm returns a realm, allowHTTPCookie drops the Secure flag from the
// cookies (only useful when testing without TLS).
func NewRealm(svc *auth.Service, cookies *auth.CookieCodec, allowHTTPCookie bool) *Realm {
	return &Realm{
		auth:           svc,
		cookies:        cookies,
		insecureCookie: allowHTTPCookie,
	}
}

// Authenticated lets any logged in user through.
func (s *Realm) Authenticated(next httprouter.Handle) httprouter.Handle {
	return s.RequireRoles(next, auth.AllRoles...)
}

// RequireRoles lets through callers holding at least one of roles.
// Anonymous callers get 401, callers without a matching role get 403.
func (s *Realm) RequireRoles(next httprouter.Handle, roles ...string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := r.Context()
		claims, err := s.auth.Verify(ctx, s.token(r))
		if err != nil && !errors.Is(err, auth.ErrNoToken) && !errors.Is(err, auth.ErrInvalidToken) {
			httperr.Write(ctx, w, err)
			return
		}
		var granted []string
		if claims != nil {
			granted = claims.Roles
		}
		switch auth.Authorize(err == nil, granted, roles) {
		case auth.RedirectLogin:
			httperr.Write(ctx, w, err)
			return
		case auth.RedirectUnauthorized:
			httperr.Write(ctx, w, auth.ErrForbidden)
			return
		}
		log := logutil.GetOrDefault(ctx).With().Str("user", claims.Username).Logger()
		ctx = logutil.WithLogger(auth.WithClaims(ctx, claims), log)
		next(w, r.WithContext(ctx), ps)
	}
}

// token returns the bearer token of the request or the content of the
// token cookie. A cookie that does not decrypt counts as absent.
func (s *Realm) token(r *http.Request) string {
	groups := bearerTokenRE.FindStringSubmatch(r.Header.Get("Authorization"))
	if len(groups) == 2 {
		return groups[1]
	}
	c, err := r.Cookie(tokenCookie)
	if err != nil {
		return ""
	}
	tk, ok := s.cookies.Decrypt(c.Value)
	if !ok {
		log := logutil.GetOrDefault(r.Context())
		log.Debug().Msg("Ignoring token cookie that does not decrypt")
		return ""
	}
	return tk
}

func (s *Realm) setCookie(w http.ResponseWriter, name, value string, maxAge int) error {
	enc, err := s.cookies.Encrypt(value)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    enc,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   !s.insecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (s *Realm) clearCookies(w http.ResponseWriter) {
	for _, name := range sessionCookies {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   !s.insecureCookie,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
