package exchange

import (
	"errors"
	"fmt"
)

// TransportError 基础设施故障：超时、DNS失败、非JSON响应（交易所维护页、代理错误）。
// 客户端不自动重试，调用方在下一个tick自然重试。
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport fault during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport fault during %s", e.Op)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError 认证故障：签名被拒、API密钥无效或过期。
// 对该代理的runner是致命的，重试无意义。
type AuthError struct {
	Code int
	Msg  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth fault (code %d): %s", e.Code, e.Msg)
}

// APIError 应用层错误：交易所返回的格式正确的错误响应
// （余额不足、数量精度非法、限频等）。非致命。
type APIError struct {
	HTTPStatus int
	Code       int
	Msg        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange error HTTP %d (code %d): %s", e.HTTPStatus, e.Code, e.Msg)
}

// 签名/密钥类错误码，按AuthError分类
var authErrorCodes = map[int]bool{
	-1022: true, // signature for this request is not valid
	-2014: true, // API-key format invalid
	-2015: true, // invalid API-key, IP, or permissions
}

// classifyAPIError 根据HTTP状态码和交易所错误码归类错误
func classifyAPIError(httpStatus, code int, msg string) error {
	if httpStatus == 401 || httpStatus == 403 || authErrorCodes[code] {
		return &AuthError{Code: code, Msg: msg}
	}
	return &APIError{HTTPStatus: httpStatus, Code: code, Msg: msg}
}

// IsTransportFault 判断是否是基础设施故障
func IsTransportFault(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAuthFault 判断是否是认证故障
func IsAuthFault(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsAppFault 判断是否是交易所应用层错误
func IsAppFault(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}
