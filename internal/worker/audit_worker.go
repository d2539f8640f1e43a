package worker

import (
	"github.com/spec-kit/sme-router/internal/events"
	"github.com/spec-kit/sme-router/internal/service"
)

// StartAuditWorker subscribes the audit trail to hunt lifecycle events.
func StartAuditWorker(auditService *service.AuditService, dispatcher events.Dispatcher) {
	if auditService == nil || dispatcher == nil {
		return
	}
	auditService.Register(dispatcher)
}
