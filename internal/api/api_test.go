package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/constants"
	"github.com/joonhk-lab/kosis-agent/internal/pkg/utils"
	"github.com/joonhk-lab/kosis-agent/internal/service/extract"
	"github.com/spf13/viper"
)

type discardSink struct{}

func (discardSink) Emit(context.Context, interface{}) error { return nil }

func newTestAPI(t *testing.T) *APIService {
	t.Helper()

	svc := extract.NewService(discardSink{},
		extract.WithCredentialLookup(func() string { return "" }),
	)
	apiSvc, err := NewAPIService(svc, nil, nil)
	if err != nil {
		t.Fatalf("NewAPIService: %v", err)
	}
	return apiSvc
}

func TestHealthz(t *testing.T) {
	apiSvc := newTestAPI(t)

	rec := httptest.NewRecorder()
	apiSvc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestRunExtractionDemoMode(t *testing.T) {
	apiSvc := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/run",
		strings.NewReader(`{"maxItems": 2}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	apiSvc.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result extract.RunResult
	if err := sonic.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.DemoMode {
		t.Fatalf("expected demo mode without credentials")
	}
	if result.DataPoints != 2 {
		t.Fatalf("dataPoints = %d, want 2", result.DataPoints)
	}
	if result.RunID == "" {
		t.Fatalf("run id missing")
	}
}

func TestRunExtractionEmptyBody(t *testing.T) {
	apiSvc := newTestAPI(t)

	rec := httptest.NewRecorder()
	apiSvc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract/run", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestAdminMiddleware(t *testing.T) {
	apiSvc := newTestAPI(t)

	viper.Set(constants.ViperSecretKey, "test-secret")
	defer viper.Set(constants.ViperSecretKey, "")

	t.Run("missing cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		apiSvc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/extract/run", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret in token", func(t *testing.T) {
		token, err := utils.GenerateAuthToken(&utils.AuthTokenWrapper{Secret: "other"})
		if err != nil {
			t.Fatalf("GenerateAuthToken: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/run", nil)
		req.AddCookie(&http.Cookie{Name: constants.CookieKeySecretToken, Value: token})

		rec := httptest.NewRecorder()
		apiSvc.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := utils.GenerateAuthToken(&utils.AuthTokenWrapper{Secret: "test-secret"})
		if err != nil {
			t.Fatalf("GenerateAuthToken: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/run", nil)
		req.AddCookie(&http.Cookie{Name: constants.CookieKeySecretToken, Value: token})

		rec := httptest.NewRecorder()
		apiSvc.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
	})
}

func TestListsWithoutStoreAnswer503(t *testing.T) {
	apiSvc := newTestAPI(t)

	for _, path := range []string{"/api/v1/runs/list", "/api/v1/records/list"} {
		rec := httptest.NewRecorder()
		apiSvc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s status = %d, want 503", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"code":503`) {
			t.Fatalf("%s body = %s", path, rec.Body.String())
		}
	}
}
