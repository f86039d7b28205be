package notification

// NotifyAlert creates a notification for a raised herd alert. A no-op when
// the global service is not initialized.
func NotifyAlert(severity, title, message string, metadata map[string]any) {
	service := GetService()
	if service == nil {
		return
	}

	notification, err := service.CreateWithComponent(
		TypeAlert, priorityForSeverity(severity), title, message, "alerting")
	if err != nil || notification == nil {
		return
	}

	if len(metadata) > 0 {
		for k, v := range metadata {
			notification.WithMetadata(k, v)
		}
		_ = service.store.Update(notification)
	}
}

// NotifySystemAlert creates a system status notification. A no-op when the
// global service is not initialized.
func NotifySystemAlert(priority Priority, title, message string) {
	service := GetService()
	if service == nil {
		return
	}
	_, _ = service.CreateWithComponent(TypeSystem, priority, title, message, "system")
}

// NotifyError creates an error notification for a component failure.
func NotifyError(component string, err error) {
	service := GetService()
	if service == nil || err == nil {
		return
	}
	_, _ = service.CreateWithComponent(TypeError, PriorityHigh,
		"Component error", err.Error(), component)
}

// priorityForSeverity maps alert severities to notification priorities.
func priorityForSeverity(severity string) Priority {
	switch severity {
	case "critical":
		return PriorityCritical
	case "high", "warning":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}
