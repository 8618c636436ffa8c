package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/handler"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/cache"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/client"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/observability"
	"github.com/boddenberg/zakah-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/zakah-bfa-go/internal/port"
	"github.com/boddenberg/zakah-bfa-go/internal/service"
	"github.com/boddenberg/zakah-bfa-go/internal/zakah"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type failingFeed struct{}

func (failingFeed) GetPrices(context.Context) (*domain.MetalPrices, error) {
	return nil, errors.New("feed down")
}

func newService(feed port.PriceFetcher) *service.Assessor {
	return service.NewAssessor(
		zakah.New(zakah.DefaultRules()),
		feed,
		client.NewStaticPrices(domain.MetalPrices{
			GoldPerGram:   decimal.NewFromInt(60),
			SilverPerGram: decimal.RequireFromString("0.8"),
			Currency:      "USD",
		}),
		cache.New[domain.MetalPrices](time.Minute, cache.WithoutSweeper()),
		resilience.NewBulkhead(4),
		3,
		observability.NewMetrics(),
		zap.NewNop(),
	)
}

func newRouter(secret string) http.Handler {
	return handler.NewRouter(newService(nil), observability.NewMetrics(), secret, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, secret string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "wizard-ui",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

const atNisabBody = `{
	"snapshot": {
		"cash": {"amount": "5100", "holdingMonths": 12},
		"property": {"purpose": "personalResidence"}
	}
}`

func TestHealthz(t *testing.T) {
	router := handler.NewRouter(nil, observability.NewMetrics(), "", zap.NewNop())

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHealthz_DegradedFeed(t *testing.T) {
	router := handler.NewRouter(newService(failingFeed{}), observability.NewMetrics(), "", zap.NewNop())

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var health domain.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "degraded" {
		t.Errorf("expected degraded, got %q", health.Status)
	}
}

func TestReadyz(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodGet, "/readyz", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodGet, "/metrics", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAssess_AtNisab(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", atNisabBody, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.AssessmentResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Assessment.TotalDue.Equal(decimal.RequireFromString("127.5")) {
		t.Errorf("expected total due 127.5, got %s", result.Assessment.TotalDue)
	}
	if result.PriceSource != domain.PriceSourceStatic {
		t.Errorf("expected static price source, got %q", result.PriceSource)
	}
}

func TestAssess_GoldOverride(t *testing.T) {
	body := `{"snapshot": {"cash": {"amount": 5100, "holdingMonths": 12}, "property": {"purpose": "personalResidence"}}, "goldPricePerGram": "61"}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result domain.AssessmentResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Assessment.AboveNisab {
		t.Error("expected 5100 to fall below 85 * 61")
	}
	if !result.Assessment.StandardLevy.IsZero() {
		t.Errorf("expected no standard levy, got %s", result.Assessment.StandardLevy)
	}
}

func TestAssess_InvalidJSON(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", `{"snapshot":`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAssess_NegativeAmount(t *testing.T) {
	body := `{"snapshot": {"cash": {"amount": "-1", "holdingMonths": 12}}}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", body, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAssess_RejectsExponentAmount(t *testing.T) {
	body := `{"snapshot": {"cash": {"amount": "1e20000000", "holdingMonths": 12}}}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", body, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec.Body.Len() > 1024 {
		t.Errorf("expected a short error body, got %d bytes", rec.Body.Len())
	}
	if !strings.Contains(rec.Body.String(), "cash.amount") {
		t.Errorf("expected field name in error, got %s", rec.Body.String())
	}
}

func TestAssess_RejectsExponentGoldPrice(t *testing.T) {
	body := `{"snapshot": {}, "goldPricePerGram": "1e20000000"}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", body, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAssessBatch_RejectsExponentAmount(t *testing.T) {
	body := `{"snapshots": [{}, {"liabilities": {"debts": "1e-20000000"}}]}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments/batch", body, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "snapshots[1].liabilities.debts") {
		t.Errorf("expected indexed field in error, got %s", rec.Body.String())
	}
}

func TestAssess_BodyTooLarge(t *testing.T) {
	body := `{"snapshot": {"cash": {"amount": "` + strings.Repeat("1", 2<<20) + `"}}}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments", body, nil)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestAssessBatch(t *testing.T) {
	body := `{"snapshots": [
		{"cash": {"amount": "5100", "holdingMonths": 12}, "property": {"purpose": "personalResidence"}},
		{"agriculture": {"produceValue": "1000", "irrigationMethod": "natural"}}
	]}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments/batch", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []domain.AssessmentResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if !resp.Results[1].Assessment.AgricultureLevy.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected agriculture levy 100, got %s", resp.Results[1].Assessment.AgricultureLevy)
	}
}

func TestAssessBatch_TooLarge(t *testing.T) {
	body := `{"snapshots": [{}, {}, {}, {}]}`

	rec := do(t, newRouter(""), http.MethodPost, "/v1/assessments/batch", body, nil)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestNisab(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodGet, "/v1/nisab", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var quote domain.NisabQuote
	if err := json.NewDecoder(rec.Body).Decode(&quote); err != nil {
		t.Fatal(err)
	}
	if !quote.NisabThreshold.Equal(decimal.NewFromInt(5100)) {
		t.Errorf("expected 5100, got %s", quote.NisabThreshold)
	}
}

func TestRules(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodGet, "/v1/rules", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rules zakah.Rules
	if err := json.NewDecoder(rec.Body).Decode(&rules); err != nil {
		t.Fatal(err)
	}
	if rules.HawlMonths != 12 {
		t.Errorf("expected hawl 12, got %d", rules.HawlMonths)
	}
	if !rules.AgricultureRate(domain.IrrigationNatural).Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("expected natural rate 0.1, got %s", rules.AgricultureRate(domain.IrrigationNatural))
	}
}

func TestWizardSteps(t *testing.T) {
	rec := do(t, newRouter(""), http.MethodGet, "/v1/wizard/steps", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Steps    []domain.WizardStep   `json:"steps"`
		Defaults domain.WealthSnapshot `json:"defaults"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Steps) != 8 || resp.Steps[0].Title != "Cash & Bank" {
		t.Errorf("unexpected steps: %+v", resp.Steps)
	}
	if resp.Defaults.Property.Purpose != domain.PurposeHeldForRental {
		t.Errorf("expected heldForRental default, got %q", resp.Defaults.Property.Purpose)
	}
}

func TestAssessmentsUnavailableWithoutService(t *testing.T) {
	router := handler.NewRouter(nil, observability.NewMetrics(), "", zap.NewNop())

	rec := do(t, router, http.MethodPost, "/v1/assessments", atNisabBody, nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestJWT_MissingToken(t *testing.T) {
	rec := do(t, newRouter(testSecret), http.MethodPost, "/v1/assessments", atNisabBody, nil)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWT_ValidToken(t *testing.T) {
	header := http.Header{"Authorization": {"Bearer " + signToken(t, testSecret, time.Now().Add(time.Hour))}}

	rec := do(t, newRouter(testSecret), http.MethodPost, "/v1/assessments", atNisabBody, header)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestJWT_ExpiredToken(t *testing.T) {
	header := http.Header{"Authorization": {"Bearer " + signToken(t, testSecret, time.Now().Add(-time.Hour))}}

	rec := do(t, newRouter(testSecret), http.MethodPost, "/v1/assessments", atNisabBody, header)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "token expired") {
		t.Errorf("expected expiry message, got %s", rec.Body.String())
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	header := http.Header{"Authorization": {"Bearer " + signToken(t, "other-secret", time.Now().Add(time.Hour))}}

	rec := do(t, newRouter(testSecret), http.MethodPost, "/v1/assessments", atNisabBody, header)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWT_OperationalEndpointsStayOpen(t *testing.T) {
	rec := do(t, newRouter(testSecret), http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestJWT_SubjectInContext(t *testing.T) {
	var subject string
	protected := handler.JWTAuthMiddleware([]byte(testSecret), zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject = handler.SubjectFromContext(r.Context())
		}),
	)
	header := http.Header{"Authorization": {"Bearer " + signToken(t, testSecret, time.Now().Add(time.Hour))}}

	rec := do(t, protected, http.MethodGet, "/", "", header)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if subject != "wizard-ui" {
		t.Errorf("expected subject wizard-ui, got %q", subject)
	}
	if got := handler.SubjectFromContext(context.Background()); got != "" {
		t.Errorf("expected empty subject without token, got %q", got)
	}
}
