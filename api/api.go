// Package api exposes the backoffice records over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/andrebq/backoffice/auth"
	authapi "github.com/andrebq/backoffice/auth/api"
	"github.com/andrebq/backoffice/internal/httperr"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/andrebq/backoffice/internal/logutil"
	"github.com/andrebq/backoffice/store"
	"github.com/go-chi/cors"
	"github.com/julienschmidt/httprouter"
)

type (
	Options struct {
		// AllowedOrigins lists the origins allowed to make credentialed
		// cross-origin calls, empty means same-origin only.
		AllowedOrigins []string
	}

	server struct {
		store *store.Store
	}
)

// AsHandler wires every backoffice route into a single handler.
func AsHandler(ctx context.Context, st *store.Store, realm *authapi.Realm, opts Options) http.Handler {
	s := &server{store: st}
	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		httperr.Write(r.Context(), w, fmt.Errorf("panic while serving request: %v", v))
	}

	realm.Routes(router)
	router.GET("/healthz", s.healthz)

	admin := func(h httprouter.Handle) httprouter.Handle {
		return realm.RequireRoles(h, auth.RoleAdmin)
	}
	router.GET("/api/admin/users", admin(s.listUsers))
	router.PUT("/api/admin/users/:id", admin(s.updateUser))
	router.GET("/api/admin/total", admin(s.totalUsers))
	router.GET("/api/admin/tRole", admin(s.totalRoles))
	router.GET("/api/admin/clients", admin(s.listClients))
	router.POST("/api/admin/addClient", admin(s.addClient))
	router.PUT("/api/admin/clients/:id", admin(s.updateClient))
	router.DELETE("/api/admin/clients/:id", admin(s.deleteClient))

	router.GET("/api/general/memos/:userId", realm.Authenticated(s.listMemos))
	router.GET("/api/general/memo/:userId/:date", realm.Authenticated(s.memosOn))
	router.POST("/api/general/memos", realm.Authenticated(s.addMemo))
	router.PUT("/api/general/memos/:id", realm.Authenticated(s.updateMemo))
	router.DELETE("/api/general/memos/:id", realm.Authenticated(s.deleteMemo))

	var handler http.Handler = router
	if len(opts.AllowedOrigins) > 0 {
		handler = cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		})(handler)
	}
	return logutil.Middleware(logutil.GetOrDefault(ctx), handler)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	err := s.store.Ping(ctx)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func idParam(ps httprouter.Params, name string) (int64, error) {
	id, err := strconv.ParseInt(ps.ByName(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, auth.ValidationError{Msg: fmt.Sprintf("Invalid %v", name)}
	}
	return id, nil
}
