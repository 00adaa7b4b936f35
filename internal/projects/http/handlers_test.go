package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flume-app/flume-backend/internal/auth/middleware"
	"github.com/flume-app/flume-backend/internal/docstore/memory"
	"github.com/flume-app/flume-backend/internal/notifications"
	"github.com/flume-app/flume-backend/internal/projects/repository"
	"github.com/flume-app/flume-backend/internal/projects/service"
	"github.com/flume-app/flume-backend/internal/users"
)

type testAPI struct {
	router *gin.Engine
	store  *memory.Store
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.New()
	svc := service.NewProjectService(service.Deps{
		Projects:     repository.NewProjectRepository(store),
		TimeRequests: repository.NewTimeRequestRepository(store),
		Volunteers:   repository.NewVolunteerRepository(store),
		Profiles:     users.NewRepo(store),
		Notifier:     notifications.NewDispatcher(store, nil, nil),
	})
	h := New(svc, nil).WithKeepAlive(time.Minute)

	r := gin.New()
	h.Register(r.Group("/api/v1", middleware.DevAuthMiddleware()))
	h.RegisterPublic(r.Group("/api/v1/public"))
	h.Register(r.Group("/anon"))
	return &testAPI{router: r, store: store}
}

func (a *testAPI) do(t *testing.T, method, path, uid, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set("X-User-Id", uid)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type projectResp struct {
	OK      bool `json:"ok"`
	Project struct {
		ID         string            `json:"id"`
		Name       string            `json:"name"`
		CreatorID  string            `json:"creator_id"`
		Registered map[string]string `json:"registered_volunteers"`
		Attendance []string          `json:"attendance"`
	} `json:"project"`
}

func (a *testAPI) createProject(t *testing.T, uid string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/projects", uid,
		`{"name":"Park Cleanup","description":"Bring gloves","date":"2026-04-10T15:00:00Z","parent_volunteers":2,"student_volunteers":4,"volunteer_hours":3}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[projectResp](t, w)
	assert.Equal(t, uid, resp.Project.CreatorID)
	return resp.Project.ID
}

func TestProjectCRUD(t *testing.T) {
	a := setupAPI(t)
	id := a.createProject(t, "creator")

	t.Run("bad body", func(t *testing.T) {
		w := a.do(t, http.MethodPost, "/api/v1/projects", "creator", `{"description":"no name"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get and list", func(t *testing.T) {
		w := a.do(t, http.MethodGet, "/api/v1/projects/"+id, "someone", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Park Cleanup", decode[projectResp](t, w).Project.Name)

		w = a.do(t, http.MethodGet, "/api/v1/projects/missing", "someone", "")
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = a.do(t, http.MethodGet, "/api/v1/projects?mine=true", "someone", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"projects":[]}`, w.Body.String())
	})

	t.Run("edit is creator only", func(t *testing.T) {
		w := a.do(t, http.MethodPatch, "/api/v1/projects/"+id, "someone", `{"name":"Mine now"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = a.do(t, http.MethodPatch, "/api/v1/projects/"+id, "creator", `{"name":"  River Cleanup "}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "River Cleanup", decode[projectResp](t, w).Project.Name)
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		a.store.FailWrites(repository.ProjectCollection, errors.New("rpc error: unavailable"))
		defer a.store.FailWrites(repository.ProjectCollection, nil)

		w := a.do(t, http.MethodDelete, "/api/v1/projects/"+id, "creator", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "please try again")
		assert.NotContains(t, w.Body.String(), "rpc error")
	})

	t.Run("delete", func(t *testing.T) {
		w := a.do(t, http.MethodDelete, "/api/v1/projects/"+id, "someone", "")
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = a.do(t, http.MethodDelete, "/api/v1/projects/"+id, "creator", "")
		assert.Equal(t, http.StatusOK, w.Code)

		w = a.do(t, http.MethodGet, "/api/v1/projects/"+id, "creator", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUnauthenticatedRoutes(t *testing.T) {
	a := setupAPI(t)
	id := a.createProject(t, "creator")

	w := a.do(t, http.MethodPut, "/anon/projects/"+id+"/registration", "", `{"role":"scout"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodGet, "/anon/time-requests", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistrationAndApprovalFlow(t *testing.T) {
	a := setupAPI(t)
	id := a.createProject(t, "creator")
	base := "/api/v1/projects/" + id

	w := a.do(t, http.MethodPut, base+"/registration", "vol", `{"role":"captain"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPut, base+"/registration", "vol", `{"role":"Scout"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, base+"/hours", "vol", `{"date":"2026-04-10T18:00:00Z","hours":1.25}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, base+"/hours", "vol", `{"date":"2026-04-10T18:00:00Z","hours":2.5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	trID := decode[struct {
		TimeRequest struct {
			ID string `json:"id"`
		} `json:"time_request"`
	}](t, w).TimeRequest.ID
	require.NotEmpty(t, trID)

	w = a.do(t, http.MethodGet, "/api/v1/time-requests", "vol", "")
	require.Equal(t, http.StatusOK, w.Code)
	statuses := decode[struct {
		Statuses map[string]struct {
			RequestID string  `json:"requestId"`
			Status    string  `json:"status"`
			Hours     float64 `json:"hours"`
		} `json:"statuses"`
	}](t, w).Statuses
	assert.Equal(t, "pending", statuses[id].Status)
	assert.Equal(t, trID, statuses[id].RequestID)

	approval := `{"time_request_id":"` + trID + `","approved":true}`
	w = a.do(t, http.MethodPost, base+"/volunteers/vol/approval", "vol", approval)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, base+"/volunteers/vol/approval", "creator", `{"approved":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, base+"/volunteers/vol/approval", "creator", approval)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPut, base+"/volunteers/vol/hours", "creator", `{"time_request_id":"`+trID+`","hours":3}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, base+"/volunteers", "vol", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodGet, base+"/volunteers", "creator", "")
	require.Equal(t, http.StatusOK, w.Code)
	roster := decode[struct {
		Volunteers []struct {
			ID             string   `json:"id"`
			FirstName      string   `json:"firstName"`
			SubmittedHours *float64 `json:"submittedHours"`
		} `json:"volunteers"`
		Stats struct {
			ApprovedCount int     `json:"approvedCount"`
			ApprovedHours float64 `json:"approvedHours"`
		} `json:"stats"`
	}](t, w)
	require.Len(t, roster.Volunteers, 1)
	assert.Equal(t, "Unknown", roster.Volunteers[0].FirstName)
	require.NotNil(t, roster.Volunteers[0].SubmittedHours)
	assert.Equal(t, 3.0, *roster.Volunteers[0].SubmittedHours)
	assert.Equal(t, 1, roster.Stats.ApprovedCount)
	assert.Equal(t, 3.0, roster.Stats.ApprovedHours)

	w = a.do(t, http.MethodGet, "/api/v1/history", "vol", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"approvedHours":3`)

	w = a.do(t, http.MethodDelete, base+"/registration", "vol", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(t, http.MethodGet, base, "vol", "")
	assert.Empty(t, decode[projectResp](t, w).Project.Registered)
}

func TestNotifyEndpoint(t *testing.T) {
	a := setupAPI(t)
	id := a.createProject(t, "creator")
	base := "/api/v1/projects/" + id

	for _, uid := range []string{"v1", "v2"} {
		w := a.do(t, http.MethodPut, base+"/registration", uid, `{"role":"parent"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := a.do(t, http.MethodPost, base+"/notify", "creator", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, base+"/notify", "creator", `{"awaiting":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"ok":true,"result":{"attempted":2,"failed":0}}`, w.Body.String())
	assert.Equal(t, 2, a.store.Len(notifications.Collection))
}

func TestPublicRoutes(t *testing.T) {
	a := setupAPI(t)
	id := a.createProject(t, "creator")

	w := a.do(t, http.MethodGet, "/api/v1/public/projects/"+id, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "creator_id")

	w = a.do(t, http.MethodPost, "/api/v1/public/projects/"+id+"/volunteers", "", `{"first_name":"Lin","last_name":"Lee","email":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/api/v1/public/projects/"+id+"/volunteers", "", `{"first_name":"Lin","last_name":"Lee","email":"lin@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodGet, "/api/v1/past-volunteers", "creator", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"lin@example.com"`)
}

func TestProjectStream(t *testing.T) {
	a := setupAPI(t)
	a.createProject(t, "creator")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/projects/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, sse.ContentType, w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "event:snapshot\n"), body)
	assert.Contains(t, body, `"name":"Park Cleanup"`)
}
