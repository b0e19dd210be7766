package grpcclient

import "errors"

var ErrUnavailable = errors.New("server unavailable")
