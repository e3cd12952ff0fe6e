// Package errors provides structured error handling for artman.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors (documents, registries)
//   - 2XX: IO errors (files, fetches, persisted indexes)
//   - 3XX: Network errors
//   - 4XX: Validation errors (versions, conditions, input)
//   - 5XX: Internal errors
//   - 6XX: Resolution errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file, fetch and persisted index errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryResolution indicates dependency resolution failures.
	CategoryResolution Category = "RESOLUTION"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid       = "ERR_101_CONFIG_INVALID"
	ErrCodeDocumentInvalid     = "ERR_102_DOCUMENT_INVALID"
	ErrCodeAmbiguousInstall    = "ERR_103_AMBIGUOUS_INSTALL"
	ErrCodeDuplicateRegistry   = "ERR_104_DUPLICATE_REGISTRY"
	ErrCodeUnsupportedLocation = "ERR_105_UNSUPPORTED_LOCATION"
	ErrCodeIndexPathTaken      = "ERR_106_INDEX_PATH_TAKEN"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFetchFailed  = "ERR_202_FETCH_FAILED"
	ErrCodeCorruptIndex = "ERR_203_CORRUPT_INDEX"
	ErrCodeUnpackFailed = "ERR_204_UNPACK_FAILED"
	ErrCodeLockFailed   = "ERR_205_LOCK_FAILED"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput     = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidVersion   = "ERR_402_INVALID_VERSION"
	ErrCodeInvalidCondition = "ERR_403_INVALID_CONDITION"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"

	// Resolution errors (600-699)
	ErrCodeUnresolved        = "ERR_601_UNRESOLVED"
	ErrCodeAmbiguousIdentity = "ERR_602_AMBIGUOUS_IDENTITY"
	ErrCodeUnknownRegistry   = "ERR_603_UNKNOWN_REGISTRY"
	ErrCodeArtifactError     = "ERR_604_ARTIFACT_ERROR"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_INVALID")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '6':
		return CategoryResolution
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig, CategoryResolution:
		return SeverityFatal
	}

	// Retryable network errors get warning severity
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}
