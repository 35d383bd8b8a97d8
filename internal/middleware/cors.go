package middleware

import (
	"github.com/valyala/fasthttp"
)

const (
	corsAllowMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsAllowHeaders = "Content-Type, Authorization, X-Request-ID"
)

// CORS answers preflight requests and stamps allowed origins on every response.
// An empty list or "*" allows any origin.
func CORS(allowedOrigins []string) Middleware {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			origin := string(ctx.Request.Header.Peek("Origin"))
			if origin != "" {
				if _, ok := allowed[origin]; ok || allowAll {
					if allowAll {
						ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
					} else {
						ctx.Response.Header.Set("Access-Control-Allow-Origin", origin)
						ctx.Response.Header.Add("Vary", "Origin")
					}
					ctx.Response.Header.Set("Access-Control-Allow-Methods", corsAllowMethods)
					ctx.Response.Header.Set("Access-Control-Allow-Headers", corsAllowHeaders)
					ctx.Response.Header.Set("Access-Control-Expose-Headers", "X-Request-ID")
				}
			}

			if ctx.IsOptions() && len(ctx.Request.Header.Peek("Access-Control-Request-Method")) > 0 {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
				return
			}
			next(ctx)
		}
	}
}
