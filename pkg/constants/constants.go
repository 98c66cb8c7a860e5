package constants

type ContextKey string

const (
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	LoggerKey    ContextKey = "logger"
	RequestIDKey ContextKey = "request_id"
	RequestStart ContextKey = "request_start"
)
