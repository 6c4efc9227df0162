package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. The classifier check is advisory: the
// keyword fallback keeps match requests serviceable when the provider is down,
// but a failing check still degrades the report so operators notice.
type Service struct {
	store      StorePinger
	classifier ClassifierChecker
	catalog    CatalogChecker
}

// New creates a Service. classifier can be nil.
func New(store StorePinger, classifier ClassifierChecker, catalog CatalogChecker) *Service {
	return &Service{store: store, classifier: classifier, catalog: catalog}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
	} else {
		checks["store"] = CheckOK
	}

	if err := s.catalog.Load(ctx); err != nil {
		checks["catalog"] = CheckError
	} else {
		checks["catalog"] = CheckOK
	}

	if s.classifier != nil {
		if err := s.classifier.HealthCheck(ctx); err != nil {
			checks["classifier"] = CheckError
		} else {
			checks["classifier"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
