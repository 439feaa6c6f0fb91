package v1

import (
	"github.com/gin-gonic/gin"
)

// EntityRouteHandler defines the endpoints served for every entity.
type EntityRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)

	NewForm(c *gin.Context)
	EditForm(c *gin.Context)
	Change(c *gin.Context)

	Filter(c *gin.Context)
	Grid(c *gin.Context)
	Search(c *gin.Context)
}

// RegisterEntityRoutes registers the CRUD, form, filter and grid routes of an
// entity group.
//
// Usage:
//
//	handler := handlers.NewEntityHandler(base, factory, 50)
//	RegisterEntityRoutes(v1.Group("/entities/:entity"), handler)
func RegisterEntityRoutes(group *gin.RouterGroup, handler EntityRouteHandler) {
	group.GET("/items", handler.List)
	group.POST("/items", handler.Create)
	group.GET("/items/:id", handler.Get)
	group.PUT("/items/:id", handler.Update)
	group.DELETE("/items/:id", handler.Delete)

	group.GET("/form", handler.NewForm)
	group.POST("/form/change", handler.Change)
	group.GET("/items/:id/form", handler.EditForm)

	group.GET("/filter", handler.Filter)
	group.GET("/grid", handler.Grid)
	group.POST("/search", handler.Search)
}
