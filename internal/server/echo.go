package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/farmkeep/farmkeep/internal/api"
	"github.com/farmkeep/farmkeep/internal/metrics"
)

// MountEcho registers the method table on an existing echo instance, for
// embedders whose service already runs echo rather than gin.
func MountEcho(e *echo.Echo, methods map[string]api.Method, basePath string) {
	bp := sanitizeBase(basePath)
	g := e.Group(bp)
	g.GET("/status", echoCall(methods["status"]))
	for _, name := range []string{"start", "stop", "restart", "destroy", "killall", "save", "load"} {
		g.POST("/"+name, echoCall(methods[name]))
	}
	g.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, okResp{OK: true})
	})
	g.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

func echoCall(m api.Method) echo.HandlerFunc {
	return func(c echo.Context) error {
		var p api.Params
		if c.Request().Method == http.MethodPost && c.Request().ContentLength > 0 {
			if err := c.Bind(&p); err != nil {
				return c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
			}
		}
		res, err := m.Handler(c.Request().Context(), p)
		if err != nil {
			return c.JSON(statusFor(err), errorResp{Error: err.Error()})
		}
		return c.JSON(http.StatusOK, okResp{OK: true, Result: res})
	}
}
