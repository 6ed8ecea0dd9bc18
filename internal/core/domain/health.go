package domain

// HealthStatus is the readiness of the embedding/index backend.
type HealthStatus int

const (
	// HealthHealthy means every configured backend responds.
	HealthHealthy HealthStatus = iota

	// HealthDegraded means stores work but some capability is missing,
	// e.g. no embedding service so only keyword search is available.
	HealthDegraded

	// HealthUnhealthy means stores must not be handed out.
	HealthUnhealthy
)

// String returns the string representation.
func (s HealthStatus) String() string {
	switch s {
	case HealthHealthy:
		return "healthy"
	case HealthDegraded:
		return "degraded"
	case HealthUnhealthy:
		return "unhealthy"
	default:
		return unknownDescription
	}
}

// Health is a readiness report.
type Health struct {
	Status HealthStatus

	// Reason explains a degraded or unhealthy status.
	Reason string
}
