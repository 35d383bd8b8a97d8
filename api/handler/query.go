package handler

import (
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/lucagalbu/task-manager/api/transport"
	"github.com/lucagalbu/task-manager/domain"
	"github.com/lucagalbu/task-manager/pkg/httpcontext"
	"github.com/lucagalbu/task-manager/usecase"
	taskUC "github.com/lucagalbu/task-manager/usecase/task"
)

var errOperationRequired = domain.NewError(domain.ErrCodeInvalid, "operation is required")

// QueryHandler exposes the dispatcher's named operations over a single endpoint.
type QueryHandler struct {
	baseHandler
	dispatcher *usecase.Dispatcher
}

func NewQueryHandler(dispatcher *usecase.Dispatcher, adapter *httpcontext.Adapter, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		baseHandler: newBaseHandler(adapter, logger),
		dispatcher:  dispatcher,
	}
}

// @Summary Execute a named query or mutation
// @Tags query
// @Router /query [post]
func (h *QueryHandler) Execute(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	var req transport.QueryRequest
	if err := taskUC.DecodePayload(ctx.PostBody(), &req); err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	req.Operation = strings.TrimSpace(req.Operation)
	if req.Operation == "" {
		h.respondError(stdCtx, ctx, errOperationRequired)
		return
	}

	result, err := h.dispatcher.Execute(stdCtx, req.Operation, req.Variables)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{req.Operation: result})
}

// @Summary List registered operations
// @Tags query
// @Router /query [get]
func (h *QueryHandler) Schema(ctx *fasthttp.RequestCtx) {
	queries, mutations := h.dispatcher.Operations()
	h.respondSuccess(ctx, http.StatusOK, map[string]interface{}{
		"queries":   queries,
		"mutations": mutations,
	})
}
