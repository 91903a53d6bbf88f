package middleware

import (
	"github.com/gin-gonic/gin"

	"ChatProject/tools/security"
)

// RouteOpt configures one route registration.
type RouteOpt struct {
	IsAuth bool
}

// Routes wraps a gin group so handlers declare per-route whether they
// need the auth middleware.
type Routes struct {
	auth gin.HandlerFunc
}

func NewRoutes(opts security.Options) *Routes {
	return &Routes{auth: Auth(opts)}
}

func (rt *Routes) GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, rt.auth, handler)
		return
	}
	r.GET(path, handler)
}

func (rt *Routes) POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, rt.auth, handler)
		return
	}
	r.POST(path, handler)
}

func (rt *Routes) PUT(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PUT(path, rt.auth, handler)
		return
	}
	r.PUT(path, handler)
}

func (rt *Routes) DELETE(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.DELETE(path, rt.auth, handler)
		return
	}
	r.DELETE(path, handler)
}
