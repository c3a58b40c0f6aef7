// Package docs holds the OpenAPI description served under /swagger when
// built with -tags=swagger. Regenerate with `swag init -g cmd/edgegen/docs.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "List models",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            }
        },
        "/models/{id}": {
            "delete": {
                "tags": ["models"],
                "summary": "Delete a model file",
                "parameters": [{"type": "string", "description": "Model id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Engine status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/load": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Load a model",
                "parameters": [{"description": "Model to load", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.LoadRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/unload": {
            "post": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Unload the model",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json", "application/x-ndjson"],
                "tags": ["generate"],
                "summary": "Generate text",
                "parameters": [{"description": "Generation request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.GenerateRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/stop": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "Stop the running generation",
                "parameters": [{"description": "Request to stop", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/types.StopRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StopResponse"}}}
            }
        },
        "/downloads": {
            "get": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Download progress",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.DownloadStatus"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Download a model",
                "parameters": [{"description": "Model to download", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.DownloadRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.DownloadStatus"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["models"],
                "summary": "Cancel the running download",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CancelDownloadResponse"}}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {"type": "object", "properties": {"code": {"type": "integer", "example": 400}, "error": {"type": "string", "example": "invalid JSON body"}}},
        "types.LoadRequest": {"type": "object", "properties": {"model": {"type": "string", "example": "qwen2-0.5b-instruct-q4_k_m"}}},
        "types.StopRequest": {"type": "object", "properties": {"request_id": {"type": "string"}}},
        "types.StopResponse": {"type": "object", "properties": {"stopped": {"type": "boolean"}}},
        "types.Model": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "path": {"type": "string"},
            "quant": {"type": "string"}, "size_bytes": {"type": "integer"}, "loaded": {"type": "boolean"}
        }},
        "types.ModelsResponse": {"type": "object", "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}},
        "types.Stats": {"type": "object", "properties": {
            "tokens": {"type": "integer"}, "prompt_tokens": {"type": "integer"}, "elapsed_ms": {"type": "integer"},
            "ttft_ms": {"type": "integer"}, "tokens_per_second": {"type": "number"},
            "finish_reason": {"type": "string", "enum": ["eog", "length", "stop_sequence", "canceled", "decode_error"]},
            "stop_sequence": {"type": "string"}
        }},
        "types.GenerateRequest": {"type": "object", "properties": {
            "model": {"type": "string"}, "prompt": {"type": "string"}, "max_tokens": {"type": "integer"},
            "stream": {"type": "boolean"}, "stop": {"type": "array", "items": {"type": "string"}}, "request_id": {"type": "string"}
        }},
        "types.GenerateResponse": {"type": "object", "properties": {
            "request_id": {"type": "string"}, "text": {"type": "string"}, "stats": {"$ref": "#/definitions/types.Stats"}
        }},
        "types.SystemInfo": {"type": "object", "properties": {
            "num_cpu": {"type": "integer"}, "threads": {"type": "integer"},
            "total_ram_bytes": {"type": "integer"}, "avail_ram_bytes": {"type": "integer"},
            "disk_total_bytes": {"type": "integer"}, "disk_free_bytes": {"type": "integer"}
        }},
        "types.DownloadRequest": {"type": "object", "properties": {
            "model": {"type": "string"}, "url": {"type": "string"}, "size": {"type": "integer"}
        }},
        "types.DownloadStatus": {"type": "object", "properties": {
            "downloading": {"type": "boolean"}, "model": {"type": "string"},
            "downloaded_bytes": {"type": "integer"}, "total_bytes": {"type": "integer"},
            "progress": {"type": "number"}, "canceled": {"type": "boolean"}, "error": {"type": "string"}
        }},
        "types.CancelDownloadResponse": {"type": "object", "properties": {"canceled": {"type": "boolean"}}},
        "types.StatusResponse": {"type": "object", "properties": {
            "state": {"type": "string"}, "backend": {"type": "string"}, "backend_built": {"type": "boolean"},
            "model": {"$ref": "#/definitions/types.Model"}, "current_request_id": {"type": "string"},
            "queue_len": {"type": "integer"}, "max_queue_depth": {"type": "integer"},
            "loads_total": {"type": "integer"}, "generations_total": {"type": "integer"},
            "last_error": {"type": "string"}, "uptime_seconds": {"type": "integer"},
            "server_time_unix": {"type": "integer"}, "system": {"$ref": "#/definitions/types.SystemInfo"},
            "download": {"$ref": "#/definitions/types.DownloadStatus"}
        }}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "edgegen API",
	Description:      "HTTP API for on-device LLM text generation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
