// Package docs registers the OpenAPI document served under /swagger.
//
// swagger.json is produced from the handler annotations:
//
//	swag init -g cmd/server/main.go -o docs --outputTypes json
package docs

import (
	_ "embed"

	"github.com/swaggo/swag/v2"
)

//go:embed swagger.json
var doc string

type openAPI struct{}

// ReadDoc implements swag.Swagger
func (openAPI) ReadDoc() string {
	return doc
}

func init() {
	swag.Register(swag.Name, openAPI{})
}
