package api

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/andrebq/backoffice/auth"
	authapi "github.com/andrebq/backoffice/auth/api"
	"github.com/andrebq/backoffice/internal/testutil"
	"github.com/andrebq/backoffice/store"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
)

type (
	fixture struct {
		store   *store.Store
		service *auth.Service
		realm   *authapi.Realm
		handler http.Handler

		adminToken string
		aliceToken string
		aliceID    int64
		bobToken   string
		bobID      int64
	}
)

func newFixture(ctx context.Context, t *testing.T, opts Options) (*fixture, func()) {
	st, cleanup := testutil.AcquireStore(ctx, t, "api")
	deny, err := auth.InMemoryDenylist(time.Hour, nil)
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	codec, err := auth.NewCookieCodec([]byte("cookie-secret"))
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	svc := auth.NewService(st, auth.NewHasher(auth.DefaultHashCost), auth.NewTokens([]byte("jwt-secret"), time.Hour, nil), deny)
	realm := authapi.NewRealm(svc, codec, true)
	f := &fixture{
		store:   st,
		service: svc,
		realm:   realm,
		handler: AsHandler(ctx, st, realm, opts),
	}
	f.adminToken, _ = f.login(ctx, t, "root", auth.RoleAdmin)
	f.aliceToken, f.aliceID = f.login(ctx, t, "alice", auth.RoleUser)
	f.bobToken, f.bobID = f.login(ctx, t, "bob", auth.RoleUser)
	return f, cleanup
}

func (f *fixture) login(ctx context.Context, t *testing.T, username, role string) (string, int64) {
	_, err := f.service.Register(ctx, username, "pw", role)
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.service.Login(ctx, username, "pw")
	if err != nil {
		t.Fatal(err)
	}
	return res.Token, res.Claims.UserID
}

func bearer(token string) string {
	return "Bearer " + token
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{})
	defer cleanup()

	for _, route := range []string{"/api/admin/users", "/api/admin/clients", "/api/admin/total", "/api/admin/tRole"} {
		apitest.New().Handler(f.handler).Get(route).
			Expect(t).Status(http.StatusUnauthorized).End()
		apitest.New().Handler(f.handler).Get(route).Header("Authorization", bearer(f.aliceToken)).
			Expect(t).Status(http.StatusForbidden).Body(`{"message":"Access denied"}`).End()
		apitest.New().Handler(f.handler).Get(route).Header("Authorization", bearer(f.adminToken)).
			Expect(t).Status(http.StatusOK).End()
	}
}

func TestUsersAdmin(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{})
	defer cleanup()
	admin := bearer(f.adminToken)

	apitest.New().Handler(f.handler).Get("/api/admin/users").Header("Authorization", admin).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.users", 3)).
		Assert(jsonpath.Equal("$.users[1].Username", "alice")).
		Assert(jsonpath.Equal("$.users[1].Role", "User")).
		End()
	apitest.New().Handler(f.handler).Get("/api/admin/total").Header("Authorization", admin).
		Expect(t).Status(http.StatusOK).Body(`{"total":2}`).End()
	apitest.New().Handler(f.handler).Get("/api/admin/tRole").Header("Authorization", admin).
		Expect(t).Status(http.StatusOK).Body(`{"total":2}`).End()

	apitest.New().Handler(f.handler).Put(fmt.Sprintf("/api/admin/users/%v", f.aliceID)).Header("Authorization", admin).
		JSON(`{"Username":"alice","Role":"Admin"}`).
		Expect(t).Status(http.StatusOK).Body(`{"message":"User updated successfully"}`).End()
	apitest.New().Handler(f.handler).Get("/api/admin/total").Header("Authorization", admin).
		Expect(t).Status(http.StatusOK).Body(`{"total":1}`).End()

	apitest.New().Handler(f.handler).Put(fmt.Sprintf("/api/admin/users/%v", f.aliceID)).Header("Authorization", admin).
		JSON(`{"Username":"alice","Role":"Root"}`).
		Expect(t).Status(http.StatusBadRequest).Body(`{"message":"Unknown role Root"}`).End()
	apitest.New().Handler(f.handler).Put(fmt.Sprintf("/api/admin/users/%v", f.aliceID)).Header("Authorization", admin).
		JSON(`{"Username":"bob","Role":"User"}`).
		Expect(t).Status(http.StatusBadRequest).Body(`{"message":"Username already exists."}`).End()
	apitest.New().Handler(f.handler).Put("/api/admin/users/9999").Header("Authorization", admin).
		JSON(`{"Username":"ghost","Role":"User"}`).
		Expect(t).Status(http.StatusNotFound).End()
	apitest.New().Handler(f.handler).Put("/api/admin/users/abc").Header("Authorization", admin).
		JSON(`{"Username":"ghost","Role":"User"}`).
		Expect(t).Status(http.StatusBadRequest).End()
	apitest.New().Handler(f.handler).Put(fmt.Sprintf("/api/admin/users/%v", f.aliceID)).Header("Authorization", admin).
		JSON(`{"Username":"alice"}`).
		Expect(t).Status(http.StatusBadRequest).Body(`{"message":"Username and Role are required"}`).End()
}

func TestClientsAdmin(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{})
	defer cleanup()
	admin := bearer(f.adminToken)

	apitest.New().Handler(f.handler).Post("/api/admin/addClient").Header("Authorization", admin).
		JSON(`{"CompanyName":"Acme","CompanyAddress":"1 Road","ContactPerson":"Wile"}`).
		Expect(t).Status(http.StatusBadRequest).Body(`{"message":"All fields except Email are required."}`).End()
	apitest.New().Handler(f.handler).Post("/api/admin/addClient").Header("Authorization", admin).
		JSON(`{"CompanyName":"Acme","CompanyAddress":"1 Road","ContactPerson":"Wile","ContactNumber":"555"}`).
		Expect(t).Status(http.StatusCreated).Assert(jsonpath.Equal("$.message", "Client added successfully")).End()

	clients, err := f.store.ListClients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	id := clients[0].ID

	apitest.New().Handler(f.handler).Put(fmt.Sprintf("/api/admin/clients/%v", id)).Header("Authorization", admin).
		JSON(`{"CompanyName":"Acme Corp","CompanyAddress":"1 Road","ContactPerson":"Wile","ContactNumber":"555","Email":"w@acme.test"}`).
		Expect(t).Status(http.StatusOK).End()
	apitest.New().Handler(f.handler).Get("/api/admin/clients").Header("Authorization", admin).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.clients", 1)).
		Assert(jsonpath.Equal("$.clients[0].CompanyName", "Acme Corp")).
		Assert(jsonpath.Equal("$.clients[0].Email", "w@acme.test")).
		End()
	apitest.New().Handler(f.handler).Delete(fmt.Sprintf("/api/admin/clients/%v", id)).Header("Authorization", admin).
		Expect(t).Status(http.StatusOK).End()
	apitest.New().Handler(f.handler).Delete(fmt.Sprintf("/api/admin/clients/%v", id)).Header("Authorization", admin).
		Expect(t).Status(http.StatusNotFound).End()
}

func TestMemoOwnership(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{})
	defer cleanup()
	alice, bob, admin := bearer(f.aliceToken), bearer(f.bobToken), bearer(f.adminToken)

	apitest.New().Handler(f.handler).Post("/api/general/memos").Header("Authorization", alice).
		JSON(`{"Date":"2024-01-01","Memo":"first"}`).
		Expect(t).Status(http.StatusCreated).End()
	apitest.New().Handler(f.handler).Post("/api/general/memos").Header("Authorization", alice).
		JSON(fmt.Sprintf(`{"UserId":%v,"Date":"2024-02-01","Memo":"second"}`, f.aliceID)).
		Expect(t).Status(http.StatusCreated).End()
	apitest.New().Handler(f.handler).Post("/api/general/memos").Header("Authorization", bob).
		JSON(fmt.Sprintf(`{"UserId":%v,"Date":"2024-02-01","Memo":"sneaky"}`, f.aliceID)).
		Expect(t).Status(http.StatusForbidden).End()
	apitest.New().Handler(f.handler).Post("/api/general/memos").Header("Authorization", alice).
		JSON(`{"Date":"01/02/2024","Memo":"bad date"}`).
		Expect(t).Status(http.StatusBadRequest).Body(`{"message":"Date must be formatted as YYYY-MM-DD"}`).End()

	aliceMemos := fmt.Sprintf("/api/general/memos/%v", f.aliceID)
	apitest.New().Handler(f.handler).Get(aliceMemos).Header("Authorization", alice).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.memos", 2)).
		Assert(jsonpath.Equal("$.memos[0].Memo", "second")).
		End()
	apitest.New().Handler(f.handler).Get(aliceMemos).Header("Authorization", bob).
		Expect(t).Status(http.StatusForbidden).End()
	apitest.New().Handler(f.handler).Get(aliceMemos).Header("Authorization", admin).
		Expect(t).Status(http.StatusOK).Assert(jsonpath.Len("$.memos", 2)).End()
	apitest.New().Handler(f.handler).Get(aliceMemos).
		Expect(t).Status(http.StatusUnauthorized).End()

	apitest.New().Handler(f.handler).Get(fmt.Sprintf("/api/general/memo/%v/2024-01-01", f.aliceID)).Header("Authorization", alice).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Len("$.memo", 1)).
		Assert(jsonpath.Equal("$.memo[0].Memo", "first")).
		End()

	memos, err := f.store.MemosOn(ctx, f.aliceID, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, memos, 1)
	memoPath := fmt.Sprintf("/api/general/memos/%v", memos[0].ID)

	apitest.New().Handler(f.handler).Put(memoPath).Header("Authorization", bob).
		JSON(`{"Date":"2024-01-01","Memo":"hijacked"}`).
		Expect(t).Status(http.StatusForbidden).End()
	apitest.New().Handler(f.handler).Delete(memoPath).Header("Authorization", bob).
		Expect(t).Status(http.StatusForbidden).End()
	apitest.New().Handler(f.handler).Put(memoPath).Header("Authorization", alice).
		JSON(`{"Date":"2024-01-02","Memo":"edited"}`).
		Expect(t).Status(http.StatusOK).Body(`{"message":"Memo updated successfully"}`).End()
	apitest.New().Handler(f.handler).Delete(memoPath).Header("Authorization", admin).
		Expect(t).Status(http.StatusOK).End()
	apitest.New().Handler(f.handler).Delete(memoPath).Header("Authorization", alice).
		Expect(t).Status(http.StatusNotFound).End()
}

func TestAdminMemoForUnknownUser(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{})
	defer cleanup()

	apitest.New().Handler(f.handler).Post("/api/general/memos").Header("Authorization", bearer(f.adminToken)).
		JSON(`{"UserId":99999,"Date":"2024-01-01","Memo":"orphan"}`).
		Expect(t).
		Status(http.StatusBadRequest).
		Body(`{"message":"Referenced record does not exist"}`).
		End()
}

func TestHealthzAndCORS(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{AllowedOrigins: []string{"http://localhost:5173"}})
	defer cleanup()

	apitest.New().Handler(f.handler).Get("/healthz").
		Header("Origin", "http://localhost:5173").
		Expect(t).
		Status(http.StatusOK).
		Header("Access-Control-Allow-Origin", "http://localhost:5173").
		Header("Access-Control-Allow-Credentials", "true").
		HeaderPresent("X-Request-Id").
		Body(`{"status":"ok"}`).
		End()
	apitest.New().Handler(f.handler).Get("/healthz").
		Header("Origin", "http://evil.example").
		Expect(t).
		Status(http.StatusOK).
		HeaderNotPresent("Access-Control-Allow-Origin").
		End()
}

func TestSlowStoreIsUnavailable(t *testing.T) {
	ctx := context.Background()
	f, cleanup := newFixture(ctx, t, Options{})
	defer cleanup()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta(`from users u`)).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role"}))
	handler := AsHandler(ctx, store.New(db, store.SQLite, 20*time.Millisecond), f.realm, Options{})

	apitest.New().Handler(handler).Get("/api/admin/users").Header("Authorization", bearer(f.adminToken)).
		Expect(t).
		Status(http.StatusServiceUnavailable).
		Header("Retry-After", "1").
		Body(`{"message":"Service temporarily unavailable"}`).
		End()
}
