package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
	Detail      string `json:"detail,omitempty"`
}

// ServiceMetrics is returned by GET /v1/metrics/summary.
type ServiceMetrics struct {
	TotalAssessments     int64   `json:"totalAssessments"`
	AboveNisabRate       float64 `json:"aboveNisabRate"`
	StandardLevyTotal    float64 `json:"standardLevyTotal"`
	AgricultureLevyTotal float64 `json:"agricultureLevyTotal"`
	PriceFeedQuotes      int64   `json:"priceFeedQuotes"`
	StaticFallbacks      int64   `json:"staticFallbacks"`
	CacheHitRate         float64 `json:"cacheHitRate"`
	ErrorRate            float64 `json:"errorRate"`
	Period               string  `json:"period"`
}
