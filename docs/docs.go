// Package docs holds the OpenAPI document served at /swagger/doc.json.
// Regenerate with `swag init -g cmd/api/main.go` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Franklink"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "tags": ["system"],
                "summary": "Describe the service",
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.RootResponse"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Liveness probe",
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HealthResponse"
                        }
                    }
                }
            }
        },
        "/oauth/google/callback": {
            "get": {
                "tags": ["oauth"],
                "summary": "Google OAuth redirect target",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "code", "in": "query"},
                    {"type": "string", "name": "state", "in": "query"},
                    {"type": "string", "name": "error", "in": "query"},
                    {"type": "string", "name": "error_description", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.OAuthCallbackResponse"
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "$ref": "#/definitions/api.OAuthCallbackResponse"
                        }
                    }
                }
            }
        },
        "/api/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign in with a phone number or email",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.LoginResponse"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/profile": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["profile"],
                "summary": "Current user's profile",
                "produces": ["application/json"],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.ProfileResponse"
                        }
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/profile/graduation-year": {
            "put": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["profile"],
                "summary": "Set or clear the graduation year",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.GraduationYearRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.ProfileResponse"
                        }
                    }
                }
            }
        },
        "/api/profile/avatar": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["profile"],
                "summary": "Upload a profile picture",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.AvatarResponse"
                        }
                    }
                }
            }
        },
        "/api/profile/password": {
            "put": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["profile"],
                "summary": "Change the password of the current session",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.PasswordChangeRequest"
                        }
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    }
                }
            }
        },
        "/api/notes": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["notes"],
                "summary": "Career notes",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.NotesResponse"
                        }
                    }
                }
            },
            "put": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["notes"],
                "summary": "Replace the career notes",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.NotesRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.NotesResponse"
                        }
                    }
                }
            }
        },
        "/api/graph": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "The signed-in user's connection graph",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.GraphResponse"
                        }
                    },
                    "401": {
                        "description": "Self-only graph with a status message",
                        "schema": {
                            "$ref": "#/definitions/api.GraphResponse"
                        }
                    }
                }
            }
        },
        "/api/graph/layout": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "Load the graph and lay it out until it settles",
                "parameters": [
                    {"type": "number", "name": "width", "in": "query"},
                    {"type": "number", "name": "height", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.LayoutResponse"
                        }
                    }
                }
            }
        },
        "/api/graph/layout/stream": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "Server-sent layout frames until the run settles",
                "produces": ["text/event-stream"],
                "responses": {
                    "200": {
                        "description": "Event stream"
                    }
                }
            }
        },
        "/api/graph/layout/viewport": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "Re-centre the live layout on a new viewport",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.ViewportRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted"
                    }
                }
            }
        },
        "/api/graph/layout/drag": {
            "post": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "Move a node under the pointer",
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/api.DragRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Accepted"
                    }
                }
            }
        },
        "/api/graph/highlight": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "Nodes and links to emphasise while hovering a node",
                "parameters": [
                    {"type": "string", "name": "node", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/api.HighlightResponse"
                        }
                    }
                }
            }
        },
        "/api/graph.svg": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "tags": ["graph"],
                "summary": "The live layout drawn as SVG",
                "produces": ["image/svg+xml"],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/storage/v1/object/public/{bucket}/{path}": {
            "get": {
                "tags": ["storage"],
                "summary": "Fetch a public object",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {
                        "type": "string",
                        "description": "Bucket name",
                        "name": "bucket",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "description": "Object path",
                        "name": "path",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {
                            "$ref": "#/definitions/api.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "api.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "api.RootResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "version": {"type": "string"},
                "endpoints": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                }
            }
        },
        "api.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "version": {"type": "string"},
                "environment": {"type": "string"}
            }
        },
        "api.OAuthCallbackResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "error_description": {"type": "string"},
                "state": {"type": "string"},
                "next_steps": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "data": {"type": "object"}
            }
        },
        "api.LoginRequest": {
            "type": "object",
            "required": ["identity", "password"],
            "properties": {
                "identity": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "api.LoginResponse": {
            "type": "object",
            "properties": {
                "accessToken": {"type": "string"},
                "refreshToken": {"type": "string"},
                "tokenType": {"type": "string"},
                "expiresIn": {"type": "integer"},
                "userId": {"type": "string"}
            }
        },
        "api.ProfileResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "phoneNumber": {"type": "string"},
                "phoneDisplay": {"type": "string"},
                "university": {"type": "string"},
                "avatarUrl": {"type": "string"},
                "graduationYear": {"type": "integer"},
                "initials": {"type": "string"},
                "avatarColor": {"type": "string"}
            }
        },
        "api.GraduationYearRequest": {
            "type": "object",
            "properties": {
                "year": {"type": "integer"}
            }
        },
        "api.PasswordChangeRequest": {
            "type": "object",
            "properties": {
                "newPassword": {"type": "string"},
                "confirmPassword": {"type": "string"}
            }
        },
        "api.AvatarResponse": {
            "type": "object",
            "properties": {
                "avatarUrl": {"type": "string"}
            }
        },
        "api.NotesRequest": {
            "type": "object",
            "properties": {
                "body": {"type": "string"}
            }
        },
        "api.NotesResponse": {
            "type": "object",
            "properties": {
                "body": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "api.GraphNode": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["self", "user", "group"]},
                "label": {"type": "string"},
                "shortLabel": {"type": "string"},
                "radius": {"type": "number"},
                "memberCount": {"type": "integer"},
                "initials": {"type": "string"}
            }
        },
        "api.GraphLink": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "target": {"type": "string"},
                "type": {"type": "string", "enum": ["direct", "group"]}
            }
        },
        "api.GraphStats": {
            "type": "object",
            "properties": {
                "directCount": {"type": "integer"},
                "groupCount": {"type": "integer"},
                "truncated": {"type": "boolean"}
            }
        },
        "api.GraphResponse": {
            "type": "object",
            "properties": {
                "nodes": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/api.GraphNode"
                    }
                },
                "links": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/api.GraphLink"
                    }
                },
                "stats": {
                    "$ref": "#/definitions/api.GraphStats"
                },
                "empty": {"type": "boolean"},
                "summary": {"type": "string"},
                "status": {"type": "string"},
                "warnings": {
                    "type": "array",
                    "items": {"type": "string"}
                }
            }
        },
        "api.NodePosition": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "x": {"type": "number"},
                "y": {"type": "number"}
            }
        },
        "api.LayoutFrame": {
            "type": "object",
            "properties": {
                "tick": {"type": "integer"},
                "alpha": {"type": "number"},
                "settled": {"type": "boolean"},
                "width": {"type": "number"},
                "height": {"type": "number"},
                "positions": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/api.NodePosition"
                    }
                }
            }
        },
        "api.LayoutResponse": {
            "type": "object",
            "properties": {
                "graph": {
                    "$ref": "#/definitions/api.GraphResponse"
                },
                "frame": {
                    "$ref": "#/definitions/api.LayoutFrame"
                }
            }
        },
        "api.ViewportRequest": {
            "type": "object",
            "properties": {
                "width": {"type": "number"},
                "height": {"type": "number"}
            }
        },
        "api.DragRequest": {
            "type": "object",
            "required": ["phase", "nodeId"],
            "properties": {
                "phase": {"type": "string", "enum": ["start", "move", "end"]},
                "nodeId": {"type": "string"},
                "x": {"type": "number"},
                "y": {"type": "number"}
            }
        },
        "api.HighlightResponse": {
            "type": "object",
            "properties": {
                "nodeId": {"type": "string"},
                "label": {"type": "string"},
                "tooltip": {"type": "string"},
                "nodes": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "links": {
                    "type": "array",
                    "items": {"type": "integer"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the access token",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"https", "http"},
	Title:            "Franklink API",
	Description:      "Account, connection graph and layout endpoints for the Franklink dashboard",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
