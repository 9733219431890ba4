// Package docs registers the swaggo-generated OpenAPI spec for the egress
// API. The handler annotations live alongside each handler in
// internal/api/handlers.go; this file holds the swag-generated metadata
// that cmd/egress-webhook's gin-swagger mount serves at /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1/egress",
	Schemes:          []string{},
	Title:            "Egress Analysis API",
	Description:      "Worst-case egress routing and code-compliance checking over BIM geometry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
