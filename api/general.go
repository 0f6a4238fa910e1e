package api

import (
	"context"
	"net/http"
	"time"

	"github.com/andrebq/backoffice/auth"
	"github.com/andrebq/backoffice/internal/httperr"
	"github.com/andrebq/backoffice/internal/httpserver"
	"github.com/andrebq/backoffice/store"
	"github.com/julienschmidt/httprouter"
)

type (
	memoRequest struct {
		UserID int64  `json:"UserId"`
		Date   string `json:"Date"`
		Memo   string `json:"Memo"`
	}
)

// owner checks that the caller may touch memos of userID. Admins may touch
// every memo.
func owner(ctx context.Context, userID int64) error {
	claims, ok := auth.ClaimsFrom(ctx)
	if !ok {
		return auth.ErrNoToken
	}
	if claims.UserID == userID || auth.HasRole(claims.Roles, auth.RoleAdmin) {
		return nil
	}
	return auth.ErrForbidden
}

func (s *server) listMemos(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	userID, err := idParam(ps, "userId")
	if err == nil {
		err = owner(ctx, userID)
	}
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	memos, err := s.store.ListMemos(ctx, userID)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]interface{}{"memos": memos})
}

func (s *server) memosOn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	userID, err := idParam(ps, "userId")
	if err == nil {
		err = validDate(ps.ByName("date"))
	}
	if err == nil {
		err = owner(ctx, userID)
	}
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	memos, err := s.store.MemosOn(ctx, userID, ps.ByName("date"))
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusOK, map[string]interface{}{"memo": memos})
}

func (s *server) addMemo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	var req memoRequest
	if err := httperr.DecodeJSON(w, r, &req); err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	if req.UserID == 0 {
		if claims, ok := auth.ClaimsFrom(ctx); ok {
			req.UserID = claims.UserID
		}
	}
	err := validMemo(req.Date, req.Memo)
	if err == nil {
		err = owner(ctx, req.UserID)
	}
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	id, err := s.store.AddMemo(ctx, store.Memo{UserID: req.UserID, Date: req.Date, Memo: req.Memo})
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteJSON(ctx, w, http.StatusCreated, map[string]interface{}{
		"message": "Memo created successfully",
		"id":      id,
	})
}

func (s *server) updateMemo(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, err := s.ownedMemo(ctx, ps)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	var req memoRequest
	if err := httperr.DecodeJSON(w, r, &req); err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	if err := validMemo(req.Date, req.Memo); err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	err = s.store.UpdateMemo(ctx, id, req.Date, req.Memo)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteMessage(ctx, w, http.StatusOK, "Memo updated successfully")
}

func (s *server) deleteMemo(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := r.Context()
	id, err := s.ownedMemo(ctx, ps)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	err = s.store.DeleteMemo(ctx, id)
	if err != nil {
		httperr.Write(ctx, w, err)
		return
	}
	httpserver.WriteMessage(ctx, w, http.StatusOK, "Memo deleted successfully")
}

// ownedMemo resolves the :id parameter into a memo the caller may change.
func (s *server) ownedMemo(ctx context.Context, ps httprouter.Params) (int64, error) {
	id, err := idParam(ps, "id")
	if err != nil {
		return 0, err
	}
	m, err := s.store.Memo(ctx, id)
	if err != nil {
		return 0, err
	}
	return id, owner(ctx, m.UserID)
}

func validMemo(date, text string) error {
	if date == "" || text == "" {
		return auth.ValidationError{Msg: "Date and Memo are required"}
	}
	return validDate(date)
}

func validDate(date string) error {
	_, err := time.Parse(store.DateLayout, date)
	if err != nil {
		return auth.ValidationError{Msg: "Date must be formatted as YYYY-MM-DD"}
	}
	return nil
}
