package web

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/lpcsv/internal/competency"
	"github.com/JonMunkholm/lpcsv/internal/config"
	"github.com/JonMunkholm/lpcsv/internal/core"
	"github.com/JonMunkholm/lpcsv/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Import: config.ImportConfig{
			MaxFileSize:     1 << 20,
			MaxConcurrent:   2,
			MaxWaitTime:     time.Second,
			Timeout:         time.Minute,
			SessionTTL:      time.Minute,
			Delimiter:       "comma",
			Encoding:        "utf-8",
			FrameworkPolicy: "reject",
			DuplicatePolicy: "keep-last",
			ContextID:       1,
		},
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) (*Server, *store.Memory) {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	mem := store.NewMemory()
	svc, err := core.NewService(mem, cfg)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return NewServer(svc, cfg), mem
}

func frameworkFile(rows ...string) string {
	return strings.Join(competency.RequiredHeaders(), ",") + "\n" + strings.Join(rows, "\n") + "\n"
}

// Columns: parent,idnumber,shortname,description,descriptionformat,
// scalevalues,scaleconfiguration,ruletype,ruleoutcome,ruleconfig,
// relatedidnumbers,exportid,isframework,taxonomy
var sampleFramework = frameworkFile(
	",fw,Sample framework,,1,,,,,,,,1,domain",
	"fw,c1,First,,1,,,,,,c2,,0,",
	"c1,c2,Second,,1,,,,,,,,0,",
)

func uploadRequest(t *testing.T, target, body string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "framework.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, body)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/headers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	headers := decode[map[string][]string](t, rec)
	assert.Equal(t, competency.RequiredHeaders(), headers["required"])
	assert.Len(t, headers["export"], 13)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "framework_template.csv")
	assert.Equal(t, strings.Join(competency.RequiredHeaders(), ",")+"\n", rec.Body.String())
}

func TestTwoStepImportAndExport(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/imports", sampleFramework, nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prep := decode[core.Preparation](t, rec)
	require.NotEmpty(t, prep.ImportID)
	assert.Equal(t, 1, prep.Mapping["idnumber"])
	assert.Equal(t, 3, prep.Rows)

	body, err := json.Marshal(map[string]any{"mapping": prep.Mapping})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/imports/"+prep.ImportID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[ImportResponse](t, rec)
	assert.Equal(t, "fw", res.IDNumber)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.RelationsLinked)

	// The session is gone once confirmed.
	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/imports/"+prep.ImportID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SES001", decode[ErrorResponse](t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/frameworks/"+strconv.FormatInt(res.FrameworkID, 10)+"/export?related=1", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="Sample framework-fw.csv"`, rec.Header().Get("Content-Disposition"))
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, competency.ExportHeaders(true), records[0])
}

func TestConfirmWithFormMapping(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/imports", "code,name,flag\nfw,Framework,1\nc1,Child,\n", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prep := decode[core.Preparation](t, rec)

	form := url.Values{
		"mapping.idnumber":    {"0"},
		"mapping.shortname":   {"1"},
		"mapping.isframework": {"2"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/imports/"+prep.ImportID, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Competencies created: 1")
}

func TestConfirmRejectsUnknownField(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/imports", sampleFramework, nil))
	prep := decode[core.Preparation](t, rec)

	req := httptest.NewRequest(http.MethodPost, "/api/imports/"+prep.ImportID,
		strings.NewReader(`{"mapping":{"colour":1}}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MAP001", decode[ErrorResponse](t, rec).Code)
}

func TestCancelImport(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/imports", sampleFramework, nil))
	prep := decode[core.Preparation](t, rec)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/imports/"+prep.ImportID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(s, httptest.NewRequest(http.MethodDelete, "/api/imports/"+prep.ImportID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOneShotImportErrors(t *testing.T) {
	s, _ := newTestServer(t)

	cyclic := frameworkFile(
		",fw,Framework,,,,,,,,,,1,",
		"b,a,A,,,,,,,,,,,",
		"a,b,B,,,,,,,,,,,",
	)
	rec := serve(s, uploadRequest(t, "/api/frameworks/import", cyclic, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "IMP003", resp.Code)
	assert.Contains(t, resp.Detail, "->")

	rec = serve(s, uploadRequest(t, "/api/frameworks/import", frameworkFile(",c1,Only a competency,,,,,,,,,,,"), nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "IMP001", decode[ErrorResponse](t, rec).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/frameworks/import", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec = serve(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = uploadRequest(t, "/api/frameworks/import", cyclic, nil)
	req.Header.Set("HX-Request", "true")
	rec = serve(s, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Code: IMP003")
}

func TestOneShotImportWithDelimiterAndMapping(t *testing.T) {
	s, mem := newTestServer(t)

	body := "name;code;flag;parent\nFramework;fw;1;\nChild;c1;;fw\n"
	rec := serve(s, uploadRequest(t, "/api/frameworks/import", body, map[string]string{
		"delimiter": "semicolon",
		"mapping":   `{"shortname":0,"idnumber":1,"isframework":2,"parentidnumber":3}`,
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[ImportResponse](t, rec)
	assert.Equal(t, 1, res.Created)

	fw, err := mem.ReadFramework(t.Context(), res.FrameworkID)
	require.NoError(t, err)
	assert.Equal(t, "Framework", fw.ShortName)
}

func TestExportErrors(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/frameworks/abc/export", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/frameworks/42/export", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "FRM001", decode[ErrorResponse](t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret=7"}
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/headers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/headers", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestImportUsesActorForScales(t *testing.T) {
	s, mem := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret=7"}
	})

	body := frameworkFile(`,fw,Framework,,,"a,b","[{""scaleid"":""1""},{""id"":1,""scaledefault"":1,""proficient"":1}]",,,,,,1,`)
	req := uploadRequest(t, "/api/frameworks/import", body, nil)
	req.Header.Set("X-API-Key", "secret")
	rec := serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	scales, err := mem.ListScales(t.Context())
	require.NoError(t, err)
	require.Len(t, scales, 1)
	assert.Equal(t, int64(7), scales[0].UserID)
	assert.Equal(t, "Competency scale: Framework", scales[0].Name)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := serve(s, uploadRequest(t, "/api/frameworks/import", sampleFramework, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lpcsv_import_runs_total{result="ok"}`)
}

func TestPreviewAndHistory(t *testing.T) {
	s, _ := newTestServer(t)

	rec := serve(s, uploadRequest(t, "/api/imports", "code,name,parent,flag\nfw,F,,1\na,A,fw,\nb,B,a,\n", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prep := decode[core.Preparation](t, rec)
	require.NotNil(t, prep.Preview)

	// Without a mapping the headers match no field, so no framework is found.
	require.NotNil(t, prep.Preview.Problem)
	assert.Equal(t, "IMP001", prep.Preview.Problem.Code)

	body := `{"mapping":{"idnumber":0,"shortname":1,"parentidnumber":2,"isframework":3}}`
	req := httptest.NewRequest(http.MethodPost, "/api/imports/"+prep.ImportID+"/preview", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[core.Preview](t, rec)
	assert.Nil(t, preview.Problem)
	assert.Equal(t, 2, preview.Competencies)
	assert.Equal(t, 2, preview.Depth)

	req = httptest.NewRequest(http.MethodPost, "/api/imports/"+prep.ImportID, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[map[string][]core.ImportRecord](t, rec)["imports"]
	require.Len(t, history, 1)
	assert.Equal(t, prep.ImportID, history[0].ImportID)
	assert.Equal(t, "ok", history[0].Result)
	assert.Equal(t, 2, history[0].Created)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodPost, "/api/imports/missing/preview", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
