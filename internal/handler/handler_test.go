package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/editorial-roles/internal/config"
	"github.com/iliyamo/editorial-roles/internal/database"
	"github.com/iliyamo/editorial-roles/internal/middleware"
	"github.com/iliyamo/editorial-roles/internal/render"
	"github.com/iliyamo/editorial-roles/internal/repository"
	"github.com/iliyamo/editorial-roles/internal/workflow"
)

const testSecret = "handler-secret"

type env struct {
	e     *echo.Echo
	users *repository.UserRepo
	meta  *repository.PostMetaRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))

	renderer, err := render.New()
	require.NoError(t, err)

	ev := &env{
		e:     echo.New(),
		users: repository.NewUserRepo(db),
		meta:  repository.NewPostMetaRepo(db, nil, config.MetaCacheConfig{}),
	}
	hooks := workflow.NewHooks()
	wf := NewWorkflowHandler(hooks, workflow.NewPublishing(hooks, ev.meta, renderer))
	auth := NewAuthHandler(config.Config{JWTSecret: testSecret, AccessTTLMin: 5}, ev.users)

	ev.e.GET("/healthz", Health)
	ev.e.POST("/v1/auth/login", auth.Login)
	ev.e.GET("/v1/me", auth.Me, middleware.JWTAuth(testSecret))
	ev.e.GET("/admin/workflows/:id/events/publishing", wf.RenderPublishing)
	ev.e.POST("/admin/workflows/:id/events/publishing", wf.SavePublishing)
	ev.e.GET("/v1/workflows/events/metakeys", wf.EventMetaKeys)
	ev.e.POST("/v1/workflows/run-query-args", wf.RunQueryArgs)
	return ev
}

func (ev *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ev.e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHealth(t *testing.T) {
	ev := newEnv(t)
	rec := ev.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLoginAndMe(t *testing.T) {
	ev := newEnv(t)
	ctx := context.Background()
	id, err := ev.users.Create(ctx, "Admin@Example.com", "s3cret", "Admin", 4)
	require.NoError(t, err)
	require.NoError(t, ev.users.AddRole(ctx, id, "administrator"))

	rec := ev.do(jsonRequest(http.MethodPost, "/v1/auth/login", `{"email":"admin@example.com","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ev.do(jsonRequest(http.MethodPost, "/v1/auth/login", `{"email":"nobody@example.com","password":"x"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ev.do(jsonRequest(http.MethodPost, "/v1/auth/login", `{"email":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ev.do(jsonRequest(http.MethodPost, "/v1/auth/login", `{"email":" ADMIN@example.com ","password":"s3cret"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp authResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.User.ID)
	assert.Equal(t, []string{"administrator"}, resp.User.Roles)
	require.NotEmpty(t, resp.Access.Token)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.AccessCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, resp.Access.Token, cookie.Value)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Access.Token)
	rec = ev.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"email":"admin@example.com","display_name":"Admin","roles":["administrator"]}`, rec.Body.String())
}

func TestPublishingEditorRoundTrip(t *testing.T) {
	ev := newEnv(t)

	rec := ev.do(httptest.NewRequest(http.MethodGet, "/admin/workflows/12/events/publishing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "checked")

	form := url.Values{
		"publishpress_notif[event][]":                                {"publishing"},
		"publishpress_notif[event_publishing_filters][timer][trigger]": {"after"},
		"publishpress_notif[event_publishing_filters][timer][amount]":  {"3"},
	}
	req := httptest.NewRequest(http.MethodPost, "/admin/workflows/12/events/publishing", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = ev.do(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/workflows/12/events/publishing", rec.Header().Get(echo.HeaderLocation))

	ctx := context.Background()
	for key, want := range map[string]string{
		workflow.MetaKeySelected:          "1",
		workflow.MetaKeyPostStatusTrigger: "after",
		workflow.MetaKeyPostStatusAmount:  "3",
		workflow.MetaKeyPostStatusUnit:    workflow.DefaultUnit,
	} {
		got, err := ev.meta.Get(ctx, 12, key)
		require.NoError(t, err)
		assert.Equal(t, []string{want}, got, key)
	}

	rec = ev.do(httptest.NewRequest(http.MethodGet, "/admin/workflows/12/events/publishing", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checked")

	rec = ev.do(httptest.NewRequest(http.MethodGet, "/admin/workflows/zero/events/publishing", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunQueryArgs(t *testing.T) {
	ev := newEnv(t)

	body := `{"query_args":{"post_type":"psppnotif_workflow","posts_per_page":-1,
                "meta_query":[{"key":"_psppno_evtpost_save","value":1,"type":"BOOL","compare":"="}]},
              "action_args":{"action":"publishing_reminder","new_status":"publish"}}`
	rec := ev.do(jsonRequest(http.MethodPost, "/v1/workflows/run-query-args", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"query_args":{"post_type":"psppnotif_workflow","posts_per_page":-1,"meta_query":[
        {"key":"_psppno_evtpost_save","value":1,"type":"BOOL","compare":"="},
        {"key":"_psppno_evtpublishing","value":1,"type":"BOOL","compare":"="},
        [{"key":"publish","value":"publish","type":"CHAR","compare":"="}]
    ]}}`, rec.Body.String())
}

func TestRunQueryArgsLeavesOtherActionsUntouched(t *testing.T) {
	ev := newEnv(t)

	body := `{"query_args":{"post_type":"psppnotif_workflow","posts_per_page":-1,
                "meta_query":[{"key":"_psppno_evtpost_save","value":1,"type":"BOOL","compare":"="}]},
              "action_args":{"action":"transition_post_status","new_status":"publish"}}`
	rec := ev.do(jsonRequest(http.MethodPost, "/v1/workflows/run-query-args", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"query_args":{"post_type":"psppnotif_workflow","posts_per_page":-1,
        "meta_query":[{"key":"_psppno_evtpost_save","value":1,"type":"BOOL","compare":"="}]}}`, rec.Body.String())

	rec = ev.do(jsonRequest(http.MethodPost, "/v1/workflows/run-query-args", `{"query_args":{},"action_args":{"action":"other"}}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"query_args":{}}`, rec.Body.String())

	rec = ev.do(jsonRequest(http.MethodPost, "/v1/workflows/run-query-args", `{"query_args":{"meta_query":"x"},"action_args":{}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventMetaKeys(t *testing.T) {
	ev := newEnv(t)
	rec := ev.do(httptest.NewRequest(http.MethodGet, "/v1/workflows/events/metakeys", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"_psppno_evtpublishing":"Before or after the content is published"}`, rec.Body.String())
}
