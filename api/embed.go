// Package api holds the HTTP and event contracts of the pick ticket service.
package api

import _ "embed"

// OpenAPI is the REST contract served by cmd/api
//
//go:embed openapi.yaml
var OpenAPI []byte

// AsyncAPI describes the CloudEvents written to the outbox
//
//go:embed asyncapi.yaml
var AsyncAPI []byte
