package payment

import "errors"

var ErrGatewayRejected = errors.New("payment gateway rejected the request")
