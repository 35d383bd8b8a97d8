package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/api/transport"
	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/pkg/httpcontext"
	"github.com/lucagalbu/task-manager/pkg/logger"
)

var errInvalidTaskID = domain.NewError(domain.ErrCodeInvalid, "invalid task id")

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if adapter == nil {
		adapter = httpcontext.NewAdapter(context.Background(), 0)
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	return h.adapter.Attach(ctx)
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload transport.Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		ctx.SetStatusCode(http.StatusInternalServerError)
		body = []byte(`{"status":"error","code":"INTERNAL","error":"unable to encode response"}`)
	}
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, transport.NewSuccess(data, nil))
}

func (h baseHandler) respondError(stdCtx context.Context, ctx *fasthttp.RequestCtx, err error) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.WithRequestID(stdCtx, h.logger).Error("request failed", zap.String("code", code), zap.Error(err))
	}
	env := transport.FromError(err)
	env.Code = code
	h.respondJSON(ctx, status, env)
}

func taskID(ctx *fasthttp.RequestCtx) (int64, error) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.WrapError(errInvalidTaskID.Code, errInvalidTaskID.Message, err)
	}
	return id, nil
}

func mapError(err error) (int, string) {
	code := transport.ErrorCode(err)
	switch domain.ErrorCode(code) {
	case domain.ErrCodeInvalid:
		return http.StatusBadRequest, code
	case domain.ErrCodeNotFound:
		return http.StatusNotFound, code
	case domain.ErrCodeConflict:
		return http.StatusConflict, code
	case domain.ErrCodeConnection:
		return http.StatusServiceUnavailable, code
	case domain.ErrCodeInternal:
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "TIMEOUT"
		}
	}
	return http.StatusInternalServerError, code
}
