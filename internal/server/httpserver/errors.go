package httpserver

import (
	"net/http"

	"github.com/dmitrijs2005/multichat/internal/common"
)

// Transport-level codes that have no service error behind them.
const (
	codeParseError         common.ErrorKind = "PARSE_ERROR"
	codeMethodNotSupported common.ErrorKind = "METHOD_NOT_SUPPORTED"
)

type errorShape struct {
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Data    errorData `json:"data"`
}

type errorData struct {
	Code       common.ErrorKind `json:"code"`
	HTTPStatus int              `json:"httpStatus"`
	Path       string           `json:"path,omitempty"`
}

// JSON-RPC 2.0 numeric codes and HTTP statuses, as tRPC assigns them.
var errorCodes = map[common.ErrorKind]struct {
	rpc    int
	status int
}{
	common.KindBadRequest:   {-32600, http.StatusBadRequest},
	common.KindUnauthorized: {-32001, http.StatusUnauthorized},
	common.KindNotFound:     {-32004, http.StatusNotFound},
	common.KindInternal:     {-32603, http.StatusInternalServerError},
	codeParseError:          {-32700, http.StatusBadRequest},
	codeMethodNotSupported:  {-32005, http.StatusMethodNotAllowed},
}

func newErrorShape(kind common.ErrorKind, message, path string) errorShape {
	c, ok := errorCodes[kind]
	if !ok {
		kind = common.KindInternal
		c = errorCodes[kind]
	}
	return errorShape{
		Message: message,
		Code:    c.rpc,
		Data:    errorData{Code: kind, HTTPStatus: c.status, Path: path},
	}
}
