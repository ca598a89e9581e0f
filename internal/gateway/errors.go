package gateway

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	errCodeInvalidCredentials = "invalid_credentials"
	errCodeAccessDenied       = "access_denied"
	errCodeNotFound           = "not_found"
	errCodeRateLimited        = "rate_limited"
	errCodeNetwork            = "network_error"
	errCodeUnknown            = "unknown"
)

// classifyError maps a remote API error onto a small stable code set used
// in logs and metrics labels.
func classifyError(err error) string {
	if err == nil {
		return "none"
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "TokenRefreshRequired", "ExpiredToken":
			return errCodeInvalidCredentials
		case "AccessDenied", "AllAccessDisabled":
			return errCodeAccessDenied
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return errCodeNotFound
		case "SlowDown", "TooManyRequests", "RequestLimitExceeded", "Throttling":
			return errCodeRateLimited
		}
		return errCodeUnknown
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") {
		return errCodeNetwork
	}
	return errCodeUnknown
}

// IsCredentialError reports whether an error points at bad or missing
// credentials rather than a transient condition.
func IsCredentialError(err error) bool {
	code := classifyError(err)
	return code == errCodeInvalidCredentials || code == errCodeAccessDenied
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return false
}
