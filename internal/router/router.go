package router

import (
	"github.com/fasthttp/router"

	apiHandler "github.com/lucagalbu/task-manager/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	Query  *apiHandler.QueryHandler
	Health *apiHandler.HealthHandler
}

func New(handlers Handlers) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	r.GET("/query", handlers.Query.Schema)
	r.POST("/query", handlers.Query.Execute)

	r.GET("/api/v1/tasks", handlers.Task.GetTasks)
	r.POST("/api/v1/tasks", handlers.Task.CreateTask)
	r.GET("/api/v1/tasks/{id}", handlers.Task.GetTask)
	r.PATCH("/api/v1/tasks/{id}", handlers.Task.UpdateTask)
	r.DELETE("/api/v1/tasks/{id}", handlers.Task.DeleteTask)

	return r
}
