package api

import (
	"errors"
	"net/http"

	"github.com/andrebq/backoffice/auth"
	"github.com/andrebq/backoffice/internal/httperr"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/andrebq/backoffice/store"
	"github.com/julienschmidt/httprouter"
)

type (
	userUpdate struct {
		Username string `json:"Username"`
		Role     string `json:"Role"`
	}
)

func (s *server) listUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *server) updateUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, err := idParam(ps, "id")
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	var req userUpdate
	if err := httperr.DecodeJSON(w, r, &req); err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	if req.Username == "" || req.Role == "" {
		httperr.Write(ctx, w, auth.ValidationError{Msg: "Username and Role are required"})
		return
	}
	err = s.store.UpdateUser(ctx, id, req.Username, req.Role)
	var unknown store.UnknownRole
	if errors.As(err, &unknown) {
		err = auth.ValidationError{Msg: "Unknown role " + unknown.Name}
	}
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteMessage(ctx, w, http.StatusOK, "User updated successfully")
}

func (s *server) totalUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	n, err := s.store.CountUsersWithRole(ctx, auth.RoleUser)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]int64{"total": n})
}

func (s *server) totalRoles(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	n, err := s.store.CountRoles(ctx)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]int64{"total": n})
}

func (s *server) listClients(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	clients, err := s.store.ListClients(ctx)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]interface{}{"clients": clients})
}

func (s *server) addClient(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	c, err := decodeClient(w, r)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	id, err := s.store.AddClient(ctx, c)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusCreated, map[string]interface{}{
		"message": "Client added successfully",
		"id":      id,
	})
}

func (s *server) updateClient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, err := idParam(ps, "id")
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	c, err := decodeClient(w, r)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	c.ID = id
	err = s.store.UpdateClient(ctx, c)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteMessage(ctx, w, http.StatusOK, "Client updated successfully")
}

func (s *server) deleteClient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, err := idParam(ps, "id")
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	err = s.store.DeleteClient(ctx, id)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteMessage(ctx, w, http.StatusOK, "Client deleted successfully")
}

func decodeClient(w http.ResponseWriter, r *http.Request) (store.Client, error) {
	var c store.Client
	if err := httperr.DecodeJSON(w, r, &c); err != nil {
		return c, err
	}
	if c.CompanyName == "" || c.CompanyAddress == "" || c.ContactPerson == "" || c.ContactNumber == "" {
		return c, auth.ValidationError{Msg: "All fields except Email are required."}
	}
	return c, nil
}
