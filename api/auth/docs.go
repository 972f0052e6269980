// Package auth registers the swagger document served under /swagger/.
package auth

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
        "/v1/devices": {
            "post": {
                "description": "Issues an app token bound to a device. Without dispositivo_id the fingerprint of the host running the service is used.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Devices"],
                "summary": "Register a device",
                "parameters": [
                    {"description": "dispositivo_id, metadata", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/service.RegisterDeviceInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.DeviceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/register": {
            "post": {
                "description": "Creates an account with the CLIENTE role. Does not log the user in.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register a user",
                "parameters": [
                    {"description": "email, username, password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.RegisterInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.RegisterResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "409": {"description": "email or username taken", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/login": {
            "post": {
                "description": "Checks email and password and opens a session. Presenting an app token binds the session to that device.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "email, password, optional app_token", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/service.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "401": {"description": "invalid credentials or app token", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "403": {"description": "account inactive", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/refresh": {
            "post": {
                "description": "Exchanges a refresh token for a new pair. The presented refresh token is revoked.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "parameters": [
                    {"description": "refresh_token", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SessionResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "403": {"description": "user inactive or removed", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Revokes the bearer access token and, when given, the refresh token of the same session. The device app token stays valid.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log out",
                "parameters": [
                    {"description": "refresh_token", "name": "body", "in": "body", "schema": {"$ref": "#/definitions/http.LogoutRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpx.MessageBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "403": {"description": "refresh token of another user", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/logout-all": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Ends every session of the caller.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log out everywhere",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.LogoutAllResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/password/forgot": {
            "post": {
                "description": "Sends a single-use reset token when the email belongs to an active account. The answer is the same either way.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Request a password reset",
                "parameters": [
                    {"description": "email", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.PasswordForgotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpx.MessageBody"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/auth/password/reset": {
            "post": {
                "description": "Consumes a reset token, sets the new password and ends every session of the account.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Reset a password",
                "parameters": [
                    {"description": "token, new_password", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.PasswordResetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpx.MessageBody"}},
                    "400": {"description": "invalid or expired token, weak password", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the profile of the bearer of the access token.",
                "produces": ["application/json"],
                "tags": ["Users"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/roles": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Every role with the permissions it grants.",
                "produces": ["application/json"],
                "tags": ["Roles"],
                "summary": "List roles",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.RolesResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/users/{id}/roles/{role}": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Takes effect in the user's tokens from the next refresh.",
                "produces": ["application/json"],
                "tags": ["Roles"],
                "summary": "Grant a role",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "role name", "name": "role", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpx.MessageBody"}},
                    "400": {"description": "unknown role", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Roles"],
                "summary": "Revoke a role",
                "parameters": [
                    {"type": "string", "description": "user id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "role name", "name": "role", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpx.MessageBody"}},
                    "400": {"description": "unknown role", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/tokens/verify": {
            "post": {
                "description": "Reports whether a token of any kind is currently usable. An unusable token yields valid=false without a reason.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tokens"],
                "summary": "Verify a token",
                "parameters": [
                    {"description": "token", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VerifyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/v1/tokens/revoke": {
            "post": {
                "description": "Blacklists a token until it would have expired. Unknown or malformed tokens are answered the same way as valid ones.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tokens"],
                "summary": "Revoke a token",
                "parameters": [
                    {"description": "token", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.TokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpx.MessageBody"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "503": {"description": "revocation store unavailable", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/.well-known/jwks.json": {
            "get": {
                "description": "Returns the JSON Web Key Set used to verify tokens issued by this service.",
                "produces": ["application/json"],
                "tags": ["well-known"],
                "summary": "Get JWKS",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jwtx.JWKS"}}
                }
            }
        },
        "/livez": {
            "get": {
                "description": "Always 200 while the process is serving.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Checks the database, the signing keys and Redis. Redis being down only degrades the service.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "ok or degraded", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "database or signer not ready", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httpx.ErrorBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "code": {"type": "integer"}
            }
        },
        "httpx.MessageBody": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "service.RegisterInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "service.LoginInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "app_token": {"type": "string"}
            }
        },
        "service.RegisterDeviceInput": {
            "type": "object",
            "properties": {
                "dispositivo_id": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": true}
            }
        },
        "service.UserView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "username": {"type": "string"},
                "active": {"type": "boolean"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "permisos": {"type": "array", "items": {"type": "string"}},
                "last_login_at": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "service.RoleInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "permisos": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.SessionResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "access_token": {"type": "string"},
                "refresh_token": {"type": "string"},
                "token_type": {"type": "string"},
                "expires_in": {"type": "integer"},
                "session_id": {"type": "string"},
                "user": {"$ref": "#/definitions/service.UserView"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "permisos": {"type": "array", "items": {"type": "string"}}
            }
        },
        "http.RegisterResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user_id": {"type": "string"},
                "user": {"$ref": "#/definitions/service.UserView"}
            }
        },
        "http.DeviceResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "app_token": {"type": "string"},
                "dispositivo_id": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "http.MeResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user": {"$ref": "#/definitions/service.UserView"}
            }
        },
        "http.LogoutAllResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "sessions_closed": {"type": "integer"}
            }
        },
        "http.RolesResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "roles": {"type": "array", "items": {"$ref": "#/definitions/service.RoleInfo"}}
            }
        },
        "http.RefreshRequest": {
            "type": "object",
            "properties": {"refresh_token": {"type": "string"}}
        },
        "http.LogoutRequest": {
            "type": "object",
            "properties": {"refresh_token": {"type": "string"}}
        },
        "http.PasswordForgotRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}}
        },
        "http.PasswordResetRequest": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "http.TokenRequest": {
            "type": "object",
            "properties": {"token": {"type": "string"}}
        },
        "http.VerifyResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "valid": {"type": "boolean"},
                "tipo": {"type": "string", "enum": ["app", "access", "refresh"]},
                "jti": {"type": "string"},
                "usuario_id": {"type": "string"},
                "email": {"type": "string"},
                "dispositivo_id": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "permisos": {"type": "array", "items": {"type": "string"}},
                "expires_at": {"type": "string", "format": "date-time"},
                "remaining_seconds": {"type": "integer"}
            }
        },
        "http.HealthChecks": {
            "type": "object",
            "properties": {
                "database": {"type": "string"},
                "signer": {"type": "string"},
                "redis": {"type": "string"}
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "checks": {"$ref": "#/definitions/http.HealthChecks"}
            }
        },
        "jwtx.JWK": {
            "type": "object",
            "properties": {
                "kty": {"type": "string"},
                "use": {"type": "string"},
                "alg": {"type": "string"},
                "kid": {"type": "string"},
                "n": {"type": "string"},
                "e": {"type": "string"}
            }
        },
        "jwtx.JWKS": {
            "type": "object",
            "properties": {
                "keys": {"type": "array", "items": {"$ref": "#/definitions/jwtx.JWK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Cony Chips Authentication API",
	Description:      "Device registration, login, token rotation and revocation for Cony Chips.\n\nTokens are RS256 JWTs and can be verified with the JWKS endpoint.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
