package router

import "time"

// providerUsage is the per-provider usage ledger. All fields are guarded by
// the router mutex. Counters marked "today" reset on ResetDailyStats;
// failureCount and lastError persist across resets so that a provider's
// failure history survives the daily rollover.
type providerUsage struct {
	requestsToday int64
	tokensToday   int64
	costToday     float64
	lastRequest   time.Time
	lastError     string
	failureCount  int
}

// requestRecord is one entry in the rolling request window. Records older
// than the window span are pruned on every insert and every query.
type requestRecord struct {
	at       time.Time
	provider string
	tokens   int
}

// requestWindow is how long individual requests are retained for
// per-minute rate accounting.
const requestWindow = time.Hour

// UsageSnapshot is the exported view of a provider's ledger as returned by
// Stats and Health.
type UsageSnapshot struct {
	RequestsToday int64     `json:"requests_today"`
	TokensToday   int64     `json:"tokens_today"`
	CostToday     float64   `json:"cost_today"`
	LastRequest   time.Time `json:"last_request,omitzero"`
	LastError     string    `json:"last_error,omitempty"`
	FailureCount  int       `json:"failure_count"`
}

// ProviderStats pairs a provider's configured limits with its current usage.
type ProviderStats struct {
	Enabled           bool          `json:"enabled"`
	Priority          int           `json:"priority"`
	DefaultModel      string        `json:"default_model"`
	RequestsPerMinute int           `json:"requests_per_minute"`
	TokensPerDay      int64         `json:"tokens_per_day"`
	Usage             UsageSnapshot `json:"usage"`
}

// ProviderHealth is one provider's entry in a Health report. Reachable
// reflects a live availability probe; SuccessRate is the default model's
// rolling success rate, 1.0 when the model has no recorded outcomes.
type ProviderHealth struct {
	Reachable   bool          `json:"reachable"`
	Error       string        `json:"error,omitempty"`
	SuccessRate float64       `json:"success_rate"`
	Usage       UsageSnapshot `json:"usage"`
}

func (u *providerUsage) snapshot() UsageSnapshot {
	return UsageSnapshot{
		RequestsToday: u.requestsToday,
		TokensToday:   u.tokensToday,
		CostToday:     u.costToday,
		LastRequest:   u.lastRequest,
		LastError:     u.lastError,
		FailureCount:  u.failureCount,
	}
}
