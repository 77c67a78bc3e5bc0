package controller

import (
	_ "embed"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
)

//go:embed openapi/openapi.yaml
var openapiSpec []byte

type ErrorResponse struct {
	Reason string `json:"reason"`
}

// GetSwagger parses the embedded OpenAPI document of the local API.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	return doc, nil
}

// RegisterHandlers mounts the controller on g, which is expected to be the
// /api group.
func RegisterHandlers(g *echo.Group, c *Controller) {
	g.GET("/ping", c.CheckServer)
	g.GET("/session", c.GetSession)
	g.POST("/login", c.Login)
	g.POST("/register", c.Register)
	g.POST("/logout", c.Logout)
	g.GET("/profile", c.GetProfile)
	g.PUT("/profile", c.UpdateProfile)
	g.GET("/subjects", c.ListSubjects)
}
