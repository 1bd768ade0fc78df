package errors

// Convenience functions for common error patterns

// Config errors

func ConfigRequired(field string) *PrepError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *PrepError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Sync pipeline errors

func SyncFailed(attempt int, cause error) *PrepError {
	return WrapRetryable(cause, CategorySync, SeverityWarning, "workspace sync failed").
		WithContext("attempt", attempt)
}

func RetriesExhausted(attempts int, cause error) *PrepError {
	return Wrap(cause, CategorySync, SeverityFatal, "workspace sync failed after all retry attempts").
		WithContext("attempts", attempts)
}

func DownloadFailed(url string, cause error) *PrepError {
	return Wrap(cause, CategoryDownload, SeverityFatal, "manifest overlay download failed").
		WithContext("url", url)
}

func WorkspaceError(operation string, cause error) *PrepError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

// Changeset errors

func ChangesetStepFailed(step string, cause error) *PrepError {
	return Wrap(cause, CategoryChangeset, SeverityFatal, "changeset application failed").
		WithContext("step", step)
}

// Hook errors

func HookFailed(exitCode int, cause error) *PrepError {
	return Wrap(cause, CategoryHook, SeverityFatal, "post-init hook failed").
		WithContext("exit_code", exitCode)
}

// Internal errors

func InternalError(message string, cause error) *PrepError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
