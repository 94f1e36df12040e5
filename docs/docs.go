// Package docs holds the Swagger description served at /docs.
// Regenerate with: swag init -g cmd/server/main.go
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
    "paths": {
        "/codes": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["codes"],
                "summary": "List reference codes",
                "parameters": [
                    {"type": "string", "description": "ICD-10, CPT or HCPCS", "name": "type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CodeListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/codes/{code}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["codes"],
                "summary": "Look up a reference code",
                "parameters": [
                    {"type": "string", "description": "Code, e.g. E11.9", "name": "code", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/catalog.Entry"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/predict": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["prediction"],
                "summary": "Predict medical billing codes",
                "parameters": [
                    {"description": "Clinical text", "name": "request", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/models.PredictionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PredictionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/models.PredictionResponse"}}
                }
            }
        },
        "/predictions/recent": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["prediction"],
                "summary": "List recent predictions",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Number of records (1-100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.RecentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "catalog.Entry": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "code_type": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "handlers.CodeListResponse": {
            "type": "object",
            "properties": {
                "codes": {"type": "array", "items": {"$ref": "#/definitions/catalog.Entry"}},
                "count": {"type": "integer"}
            }
        },
        "handlers.RecentResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "predictions": {"type": "array", "items": {"type": "object"}}
            }
        },
        "middleware.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "details": {"type": "string"},
                "fields": {"type": "array", "items": {"$ref": "#/definitions/models.FieldError"}},
                "message": {"type": "string"},
                "retry_after_ms": {"type": "integer"}
            }
        },
        "models.CodePrediction": {
            "type": "object",
            "required": ["code", "code_type", "description"],
            "properties": {
                "code": {"type": "string"},
                "code_type": {"type": "string", "enum": ["ICD-10", "CPT", "HCPCS"]},
                "confidence": {"type": "number", "maximum": 1, "minimum": 0},
                "description": {"type": "string"}
            }
        },
        "models.FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "models.PredictionRequest": {
            "type": "object",
            "required": ["clinical_text"],
            "properties": {
                "clinical_text": {"type": "string", "minLength": 1},
                "confidence_threshold": {"type": "number", "default": 0.5, "maximum": 1, "minimum": 0},
                "context": {"type": "string"},
                "max_predictions": {"type": "integer", "default": 5, "maximum": 20, "minimum": 1}
            }
        },
        "models.PredictionResponse": {
            "type": "object",
            "required": ["model_version"],
            "properties": {
                "error_message": {"type": "string"},
                "model_version": {"type": "string"},
                "predictions": {"type": "array", "items": {"$ref": "#/definitions/models.CodePrediction"}},
                "processing_time_ms": {"type": "number"},
                "success": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8000",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Medical Coding Prediction API",
	Description:      "Predicts ICD-10, CPT and HCPCS billing codes from clinical text.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
