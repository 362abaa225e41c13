package httpserver

const (
	ErrInvalidJSON      = "invalid json"
	ErrMissingField     = "missing field"
	ErrUnknownObject    = "unsupported webhook object"
	ErrInvalidSignature = "invalid signature"
	ErrVerifyFailed     = "verification failed"
	ErrReadBody         = "read body"
)
