package bootstrap

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"hemotwin-backend/internal/shared/config"
	"hemotwin-backend/internal/shared/server/middleware"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := Build(config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		DocStoreType:    "memory",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return app
}

func do(t *testing.T, app *App, method, path, email string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set(middleware.DevUserHeader, email)
	}
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func TestBuildUsesInMemoryDefaults(t *testing.T) {
	app := newTestApp(t)
	if app.DB != nil {
		t.Fatal("expected no database")
	}
	if app.Queue != nil {
		t.Fatal("expected inline processing without a queue")
	}
	if app.Scans == nil || app.Router == nil {
		t.Fatal("expected scans service and router")
	}
	if app.UploadHandler.Presigner != nil {
		t.Fatal("local store must not presign")
	}
}

func TestBuildRejectsProductionWithoutDatabase(t *testing.T) {
	if _, err := Build(config.Config{Env: "production", DocStoreType: "postgres"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPatientJourney(t *testing.T) {
	app := newTestApp(t)
	const email = "Ana@Example.com"

	resp := do(t, app, http.MethodGet, "/api/v1/me", email, nil)
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"registered":false`)) {
		t.Fatalf("me before register: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, app, http.MethodPost, "/api/v1/patients", email, map[string]any{
		"firstName": "Ana",
		"lastName":  "Silva",
		"sex":       "male",
		"dob":       "05/03/1990",
		"ethnicity": "Other",
		"weight":    "70",
		"height":    "175",
		"exercise":  "weekly",
		"allergies": "none",
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, app, http.MethodGet, "/api/v1/risk-assessment", email, nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected missing data before lab values, got %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, app, http.MethodPut, "/api/v1/health-data", email, map[string]any{
		"wbc":        7500,
		"rbc":        5.2,
		"platelets":  250000,
		"hemoglobin": 15.1,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("health data: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, app, http.MethodGet, "/api/v1/risk-assessment", email, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("assessment: %d %s", resp.Code, resp.Body.String())
	}
	var assessment struct {
		RiskLevel string `json:"riskLevel"`
		PatientID string `json:"patientId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &assessment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if assessment.RiskLevel != "Low" || assessment.PatientID == "" {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/me", "ana@example.com", nil)
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"registered":true`)) {
		t.Fatalf("me after register: %s", resp.Body.String())
	}
}

func TestExtractAndSaveFeedsAssessment(t *testing.T) {
	app := newTestApp(t)
	const email = "bob@example.com"

	resp := do(t, app, http.MethodPost, "/api/v1/health-data/extract", email, map[string]any{
		"text": "CBC WBC 12500 RBC 5.0 Platelets 250000 Hemoglobin 15",
		"save": true,
	})
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte(`"changed":true`)) {
		t.Fatalf("extract: %d %s", resp.Code, resp.Body.String())
	}

	resp = do(t, app, http.MethodGet, "/api/v1/health-data", email, nil)
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"wbc":12500`)) {
		t.Fatalf("expected saved wbc, got %s", resp.Body.String())
	}
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	app := newTestApp(t)
	resp := do(t, app, http.MethodGet, "/api/v1/health-data", "", nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	resp = do(t, app, http.MethodGet, "/api/v1/health", "", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected public health check, got %d", resp.Code)
	}
}
