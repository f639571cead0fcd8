package middlewares

const (
	CtxRequestID  = "request_id"
	ctxPrincipal  = "auth.principal"
	bearerPrefix  = "Bearer "
	tokenQueryKey = "token"
)
