package errors

import (
	"fmt"
	"net/http"
)

// Code pairs a business error code with its HTTP status and default message
type Code struct {
	Code    int
	Status  int
	Message string
}

const (
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrServiceUnavail  = 1007

	// Chat errors (2000-2999)
	ErrConversationNotFound = 2000
	ErrConversationBusy     = 2001
	ErrEmptyMessage         = 2002
	ErrInferenceFailed      = 2003
	ErrToolRoundsExceeded   = 2004
	ErrToolExecutionFailed  = 2005

	// Support domain errors (3000-3999)
	ErrCustomerNotFound = 3000
	ErrOrderNotFound    = 3001
)

var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	ErrConversationNotFound: {ErrConversationNotFound, http.StatusNotFound, "Conversation not found"},
	ErrConversationBusy:     {ErrConversationBusy, http.StatusConflict, "Conversation is processing another message"},
	ErrEmptyMessage:         {ErrEmptyMessage, http.StatusBadRequest, "Message text must not be empty"},
	ErrInferenceFailed:      {ErrInferenceFailed, http.StatusBadGateway, "Inference request failed"},
	ErrToolRoundsExceeded:   {ErrToolRoundsExceeded, http.StatusInternalServerError, "Tool round limit exceeded"},
	ErrToolExecutionFailed:  {ErrToolExecutionFailed, http.StatusInternalServerError, "Tool execution failed"},

	ErrCustomerNotFound: {ErrCustomerNotFound, http.StatusNotFound, "Customer not found"},
	ErrOrderNotFound:    {ErrOrderNotFound, http.StatusNotFound, "Order not found"},
}

// GetCode returns the Code for a business error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns the HTTP status for a business error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the default message for a business error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// FormatError formats a message with optional details
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
