package types

// CloudWatch metric names and dimensions emitted by the API.
const (
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricRecommendation  = "PlanRecommendation"
	MetricCatalogFallback = "PlanCatalogFallback"

	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "StatusClass"

	// MetricNamespace is used when METRIC_NAMESPACE is not configured.
	MetricNamespace = "PowerPlan"
)
