// Package docs holds the OpenAPI description served under /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.HealthResponse"}
                    }
                }
            }
        },
        "/api/conditions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["prediction"],
                "summary": "List the conditions the classifier reports on",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.ConditionsResponse"}
                    }
                }
            }
        },
        "/api/predict": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["prediction"],
                "summary": "Classify an ultrasound image",
                "parameters": [
                    {
                        "type": "file",
                        "description": "PNG or JPEG image",
                        "name": "file",
                        "in": "formData",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/handler.PredictResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "413": {
                        "description": "Request Entity Too Large",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/handler.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "domain.PredictionResult": {
            "type": "object",
            "properties": {
                "inference_id": {"type": "string"},
                "time": {"type": "number"},
                "image": {
                    "type": "object",
                    "properties": {
                        "width": {"type": "integer"},
                        "height": {"type": "integer"}
                    }
                },
                "predictions": {
                    "type": "object",
                    "additionalProperties": {}
                },
                "predicted_classes": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "diagnosis_message": {"type": "string", "example": "no abnormalities detected"}
            }
        },
        "handler.ConditionsResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "target_conditions": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "No file uploaded"},
                "success": {"type": "boolean", "example": false}
            }
        },
        "handler.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"}
            }
        },
        "handler.PredictResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean", "example": true},
                "filename": {"type": "string", "example": "scan.png"},
                "results": {"$ref": "#/definitions/domain.PredictionResult"},
                "diagnosis_message": {"type": "string", "example": "detected: mild-ventriculomegaly"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "fetalscan API",
	Description:      "Classifies fetal brain ultrasound images through a hosted model and reports target conditions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
