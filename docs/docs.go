// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "http://github.com/Pesokrava/storefront"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/products": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "List products",
                "parameters": [
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["Products"],
                "summary": "Get a product",
                "parameters": [
                    {"type": "string", "description": "Product ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/purchases": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["Purchases"],
                "summary": "List visible purchases",
                "parameters": [
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Page offset", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            },
            "post": {
                "security": [{"TokenAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Purchases"],
                "summary": "Buy a product",
                "parameters": [
                    {"description": "Purchase", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreatePurchaseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/returns": {
            "get": {
                "security": [{"TokenAuth": []}],
                "produces": ["application/json"],
                "tags": ["Returns"],
                "summary": "List visible return requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            },
            "post": {
                "security": [{"TokenAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Returns"],
                "summary": "Request a return",
                "parameters": [
                    {"description": "Return", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateReturnRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/returns/{id}/confirm": {
            "post": {
                "security": [{"TokenAuth": []}],
                "tags": ["Returns"],
                "summary": "Confirm a return and refund the buyer",
                "parameters": [
                    {"type": "string", "description": "Return ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        },
        "/returns/{id}/reject": {
            "post": {
                "security": [{"TokenAuth": []}],
                "tags": ["Returns"],
                "summary": "Reject a return",
                "parameters": [
                    {"type": "string", "description": "Return ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.Envelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "handler.CreatePurchaseRequest": {
            "type": "object",
            "properties": {
                "product_id": {"type": "string", "example": "3fa85f64-5717-4562-b3fc-2c963f66afa6"},
                "quantity": {"type": "integer", "example": 1}
            }
        },
        "handler.CreateReturnRequest": {
            "type": "object",
            "properties": {
                "purchase_id": {"type": "string", "example": "3fa85f64-5717-4562-b3fc-2c963f66afa6"}
            }
        },
        "response.Envelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "data": {},
                "pagination": {
                    "type": "object",
                    "properties": {
                        "total": {"type": "integer"},
                        "limit": {"type": "integer"},
                        "offset": {"type": "integer"}
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "TokenAuth": {
            "description": "Use \"Token <key>\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Storefront API",
	Description:      "Purchases, returns and inventory for a small storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
