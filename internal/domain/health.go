package domain

// ServiceHealth reports the state of one dependency.
type ServiceHealth struct {
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	LatencyMs     int64   `json:"latency_ms"`
	UptimePercent float64 `json:"uptime_percent"`
	LastChecked   string  `json:"last_checked"`
}

// HealthStatus is the aggregate /healthz payload.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}
