package api

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/record": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["record"],
                "summary": "Read the payload",
                "description": "Returns the payload when the record is Formatted.",
                "parameters": [
                    {"type": "boolean", "description": "Re-read the whole record from the device", "name": "reload", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RecordResponse"}},
                    "404": {"description": "No valid data", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "503": {"description": "Device failure", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            },
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["record"],
                "summary": "Commit a new payload",
                "description": "Two-phase commit over a Formatted record.",
                "parameters": [
                    {"description": "Hex payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/api.PayloadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RecordResponse"}},
                    "400": {"description": "Bad payload", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "409": {"description": "Record not Formatted", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/record/format": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["record"],
                "summary": "Write a fresh record whatever the current state",
                "parameters": [
                    {"description": "Hex payload", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/api.PayloadRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.RecordResponse"}},
                    "400": {"description": "Bad payload", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/record/lock": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["record"],
                "summary": "Claim a Formatted record",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "409": {"description": "Record not Formatted", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/record/unlock": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["record"],
                "summary": "Release a locked or interrupted record",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.APIResponse"}},
                    "409": {"description": "Record not pending", "schema": {"$ref": "#/definitions/api.APIResponse"}}
                }
            }
        },
        "/record/status": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["record"],
                "summary": "Classify the record and show its header",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {},
                "error": {"type": "string"}
            }
        },
        "api.PayloadRequest": {
            "type": "object",
            "properties": {
                "payload": {"type": "string", "example": "48656c6c6f"}
            }
        },
        "api.RecordResponse": {
            "type": "object",
            "properties": {
                "payload": {"type": "string"},
                "size": {"type": "integer"}
            }
        },
        "api.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string", "enum": ["formatted", "pending", "corrupt"]},
                "locked": {"type": "boolean"},
                "address": {"type": "integer"},
                "size": {"type": "integer"},
                "magic": {"type": "string"},
                "version": {"type": "integer"},
                "checksum": {"type": "string"},
                "raw": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds the exported Swagger info. Host is filled in when the
// server starts listening.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "nvrecord REST API",
	Description:      "Read and commit a crash-safe record on non-volatile memory.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
