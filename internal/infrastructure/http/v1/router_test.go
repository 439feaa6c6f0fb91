package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/text/language"

	"gwin/internal/core/apperror"
	"gwin/internal/domain"
	"gwin/internal/domain/catalogs"
	"gwin/internal/domain/domaintest"
	"gwin/internal/metadata"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	f := domain.NewFactory(metadata.NewRegistry(), domaintest.NewStore(), domaintest.DirectTx{})
	require.NoError(t, catalogs.RegisterAll(f))
	return NewRouter(RouterConfig{
		Factory:  f,
		Language: language.English,
		PageSize: 10,
		Version:  "test",
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

// control returns the control named name of a form or filter response.
func control(t *testing.T, controls any, name string) map[string]any {
	t.Helper()
	for _, c := range controls.([]any) {
		ctl := c.(map[string]any)
		if ctl["name"] == name {
			return ctl
		}
	}
	t.Fatalf("control %s not found", name)
	return nil
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w, _ := do(t, r, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, body := do(t, r, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not configured", body["checks"].(map[string]any)["database"])

	_, body = do(t, r, http.MethodGet, "/health/info", nil)
	assert.Contains(t, body["entities"], "Role")
}

func TestMetaRoutes(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, http.MethodGet, "/api/v1/meta/City", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "City", body["name"])
	assert.Equal(t, "cities", body["table"])

	w, body = do(t, r, http.MethodGet, "/api/v1/meta/Planet", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeUnknownEntity, body["code"])

	w, _ = do(t, r, http.MethodGet, "/api/v1/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var menu []metadata.MenuGroup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &menu))
	assert.Len(t, menu, 5)
}

func TestEntityLifecycle(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, http.MethodPost, "/api/v1/entities/Role/items",
		map[string]any{"values": map[string]any{"Name": " admin "}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, float64(1), body["id"])
	assert.Equal(t, float64(1), body["affected"])
	assert.Equal(t, "ADMIN", control(t, body["form"].(map[string]any)["controls"], "Name")["value"])

	w, body = do(t, r, http.MethodGet, "/api/v1/entities/Role/items/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ADMIN", body["name"])

	w, _ = do(t, r, http.MethodPut, "/api/v1/entities/Role/items/1",
		map[string]any{"values": map[string]any{"Hidden": true}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = do(t, r, http.MethodGet, "/api/v1/entities/Role/items?pageStart=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["totalCount"])
	assert.Equal(t, float64(10), body["pageSize"])
	assert.Equal(t, true, body["items"].([]any)[0].(map[string]any)["hidden"])

	w, body = do(t, r, http.MethodDelete, "/api/v1/entities/Role/items/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["affected"])

	w, body = do(t, r, http.MethodGet, "/api/v1/entities/Role/items/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeNotFound, body["code"])
}

func TestEntityErrors(t *testing.T) {
	r := newTestRouter(t)

	t.Run("unknown entity", func(t *testing.T) {
		w, _ := do(t, r, http.MethodGet, "/api/v1/entities/Planet/items", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
	t.Run("invalid id", func(t *testing.T) {
		w, body := do(t, r, http.MethodGet, "/api/v1/entities/Role/items/abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperror.CodeInvalidInput, body["code"])
	})
	t.Run("unknown control", func(t *testing.T) {
		w, body := do(t, r, http.MethodPost, "/api/v1/entities/Role/items",
			map[string]any{"values": map[string]any{"Color": "red"}})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apperror.CodeFieldNotFound, body["code"])
		require.NotEmpty(t, body["messages"])
		assert.Equal(t, "field_not_found", body["messages"].([]any)[0].(map[string]any)["category"])
	})
	t.Run("malformed filter", func(t *testing.T) {
		w, _ := do(t, r, http.MethodGet, "/api/v1/entities/Role/items?filter=%5B", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
	t.Run("missing body", func(t *testing.T) {
		w, _ := do(t, r, http.MethodPost, "/api/v1/entities/Role/items", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFormRoutes(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, http.MethodGet,
		"/api/v1/entities/Role/form?"+url.Values{"criteria": {`{"Name":"guest"}`}}.Encode(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	form := body["form"].(map[string]any)
	assert.Equal(t, float64(0), form["id"])
	assert.Equal(t, "guest", control(t, form["controls"], "Name")["value"])

	w, body = do(t, r, http.MethodPost, "/api/v1/entities/Role/form/change",
		map[string]any{"field": "Name", "value": "editor", "values": map[string]any{"Hidden": true}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	controls := body["form"].(map[string]any)["controls"]
	assert.Equal(t, "EDITOR", control(t, controls, "Name")["value"])
	assert.Equal(t, true, control(t, controls, "Hidden")["value"])

	do(t, r, http.MethodPost, "/api/v1/entities/Role/items", map[string]any{"values": map[string]any{"Name": "admin"}})
	w, body = do(t, r, http.MethodGet, "/api/v1/entities/Role/items/1/form", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["form"].(map[string]any)["id"])
}

func TestFilterGridAndSearch(t *testing.T) {
	r := newTestRouter(t)

	for _, name := range []string{"France", "Morocco"} {
		w, _ := do(t, r, http.MethodPost, "/api/v1/entities/Country/items",
			map[string]any{"values": map[string]any{"Name": name}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}
	for _, city := range []struct {
		name    string
		country int
	}{{"Paris", 1}, {"Lyon", 1}, {"Rabat", 2}} {
		w, _ := do(t, r, http.MethodPost, "/api/v1/entities/City/items",
			map[string]any{"values": map[string]any{"Name": city.name, "CountryID": city.country}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, body := do(t, r, http.MethodGet, "/api/v1/entities/City/filter", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	country := control(t, body["controls"], "CountryID")
	options := country["options"].([]any)
	require.Len(t, options, 3)
	assert.Equal(t, "", options[0].(map[string]any)["text"])

	w, body = do(t, r, http.MethodGet, "/api/v1/entities/City/grid", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(3), body["totalCount"])
	first := body["rows"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"Rabat", "Morocco"}, first["cells"])

	w, body = do(t, r, http.MethodPost, "/api/v1/entities/City/search",
		map[string]any{"values": map[string]any{"CountryID": 1}, "pageStart": 1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), body["totalCount"])
	assert.Len(t, body["rows"], 2)

	w, body = do(t, r, http.MethodPost, "/api/v1/entities/City/search",
		map[string]any{"values": map[string]any{"Population": 3}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperror.CodeFieldNotFound, body["code"])
}

func TestChoiceFilters(t *testing.T) {
	r := newTestRouter(t)

	w, body := do(t, r, http.MethodGet, "/api/v1/entities/Authorization/filter", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	options := control(t, body["controls"], "BusinessEntity")["options"].([]any)
	require.Len(t, options, 9, "the empty choice then every entity")
	assert.Equal(t, "", options[0].(map[string]any)["text"])
	assert.Equal(t, "Authorization", options[1].(map[string]any)["text"])

	for _, target := range []string{"City", "Role"} {
		w, _ := do(t, r, http.MethodPost, "/api/v1/entities/Authorization/items",
			map[string]any{"values": map[string]any{"Name": "Edit " + target, "BusinessEntity": target}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w, body = do(t, r, http.MethodPost, "/api/v1/entities/Authorization/search",
		map[string]any{"values": map[string]any{"BusinessEntity": "Role"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), body["totalCount"])

	w, body = do(t, r, http.MethodPost, "/api/v1/entities/Authorization/search",
		map[string]any{"values": map[string]any{"BusinessEntity": "Ghost"}})
	assert.NotEqual(t, http.StatusOK, w.Code)
	assert.Equal(t, apperror.CodeInvalidInput, body["code"])

	w, body = do(t, r, http.MethodPost, "/api/v1/entities/Task/items",
		map[string]any{"values": map[string]any{"Title": "ship", "Priority": "Urgent"}})
	assert.NotEqual(t, http.StatusCreated, w.Code)
	assert.Equal(t, apperror.CodeInvalidInput, body["code"])
}
