package errors

import "net/http"

// ErrorCode identifies a failure category. Codes are "<MODULE>_<NNN>".
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_015"
	ErrCodeMessageQueueError  ErrorCode = "COMMON_016"
)

// Short names kept for call sites that read better without the ErrCode
// prefix.
const (
	CodeInternal      = ErrCodeInternal
	CodeInvalidParam  = ErrCodeBadRequest
	CodeUnauthorized  = ErrCodeUnauthorized
	CodeRateLimit     = ErrCodeTooManyRequests
	CodeDatabaseError = ErrCodeDatabaseError

	// CodeOK is what GetCode reports for a nil error.
	CodeOK = ErrorCode("OK")
	// CodeUnknown makes Wrap keep the wrapped error's code.
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Serial module codes.
const (
	// ErrCodeSerialValidation rejects a whole request: no input source,
	// invalid bounds, invalid step.
	ErrCodeSerialValidation ErrorCode = "SER_001"
	// ErrCodePartialParse marks a single token or range expression that could
	// not be interpreted. It is reported inside results, never returned.
	ErrCodePartialParse ErrorCode = "SER_002"
	// ErrCodePatternConfigInvalid marks a stored or submitted pattern whose
	// configuration cannot be used (bad regex, wrong shape for its type).
	ErrCodePatternConfigInvalid ErrorCode = "SER_003"
	ErrCodePatternNotFound      ErrorCode = "SER_004"
	ErrCodeCapacityExceeded     ErrorCode = "SER_005"
	ErrCodePatternDuplicate     ErrorCode = "SER_006"
	ErrCodeExportFailed         ErrorCode = "SER_007"
)

// class groups codes for the Is* predicates.
type class uint8

const (
	classOther class = iota
	classValidation
	classNotFound
	classConflict
)

type codeInfo struct {
	status  int
	message string
	class   class
}

// registry binds every known code to its HTTP status, its client-safe
// default message and its class.
var registry = map[ErrorCode]codeInfo{
	ErrCodeInternal:           {http.StatusInternalServerError, "internal server error", classOther},
	ErrCodeBadRequest:         {http.StatusBadRequest, "bad request", classValidation},
	ErrCodeUnauthorized:       {http.StatusUnauthorized, "unauthorized", classOther},
	ErrCodeForbidden:          {http.StatusForbidden, "forbidden", classOther},
	ErrCodeNotFound:           {http.StatusNotFound, "resource not found", classNotFound},
	ErrCodeConflict:           {http.StatusConflict, "resource conflict", classConflict},
	ErrCodeTooManyRequests:    {http.StatusTooManyRequests, "too many requests", classOther},
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, "service unavailable", classOther},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, "request timeout", classOther},
	ErrCodeValidation:         {http.StatusUnprocessableEntity, "validation failed", classValidation},
	ErrCodeSerialization:      {http.StatusInternalServerError, "serialization failed", classOther},
	ErrCodeDatabaseError:      {http.StatusInternalServerError, "database error", classOther},
	ErrCodeCacheError:         {http.StatusInternalServerError, "cache error", classOther},
	ErrCodeExternalService:    {http.StatusBadGateway, "external service error", classOther},
	ErrCodeStorageError:       {http.StatusInternalServerError, "object storage error", classOther},
	ErrCodeMessageQueueError:  {http.StatusInternalServerError, "message queue error", classOther},

	ErrCodeSerialValidation:     {http.StatusBadRequest, "invalid serial request", classValidation},
	ErrCodePartialParse:         {http.StatusBadRequest, "expression could not be parsed", classValidation},
	ErrCodePatternConfigInvalid: {http.StatusUnprocessableEntity, "invalid pattern configuration", classValidation},
	ErrCodePatternNotFound:      {http.StatusNotFound, "serial pattern not found", classNotFound},
	ErrCodeCapacityExceeded:     {http.StatusBadRequest, "range exceeds the configured maximum size", classValidation},
	ErrCodePatternDuplicate:     {http.StatusConflict, "serial pattern already exists", classConflict},
	ErrCodeExportFailed:         {http.StatusInternalServerError, "serial export failed", classOther},
}

// HTTPStatusForCode returns the HTTP status for code, 500 when unknown.
func HTTPStatusForCode(code ErrorCode) int {
	if info, ok := registry[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the client-safe message for code.
func DefaultMessageForCode(code ErrorCode) string {
	if info, ok := registry[code]; ok {
		return info.message
	}
	return "unknown error"
}

//Personal.AI order the ending
