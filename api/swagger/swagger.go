package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CivicConnect API",
        "description": "Civic issue reporting platform with district administration",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Authentication", "description": "Registration, login and password reset"},
        {"name": "Users", "description": "Accounts and admin moderation"},
        {"name": "Districts", "description": "Districts, verification and reports"},
        {"name": "Applications", "description": "District admin applications"},
        {"name": "Issues", "description": "Civic issue lifecycle and upvotes"},
        {"name": "Leaderboard", "description": "Civic point rankings"},
        {"name": "Notifications", "description": "Per-recipient inboxes"},
        {"name": "SOS", "description": "District emergency directories"},
        {"name": "SuperAdmin", "description": "Singleton super admin"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register an account",
                "description": "Register a citizen, submit a district admin application, or create the super admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "409": {"description": "Email, username or super admin conflict"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a citizen or promoted admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Application pending or rejected"}
                }
            }
        },
        "/auth/district-admin/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a district admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"},
                    "403": {"description": "Application pending or rejected"}
                }
            }
        },
        "/auth/super-admin/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate the super admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/forgot-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Request a password reset code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ForgotPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "Code sent"},
                    "404": {"description": "No account for email"}
                }
            }
        },
        "/auth/reset-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Reset password with a one-time code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}
                ],
                "responses": {
                    "200": {"description": "Password updated"},
                    "401": {"description": "Invalid or expired code"}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "districtId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/me": {
            "get": {
                "tags": ["Users"],
                "summary": "Get current user profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Users"],
                "summary": "Update own profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/{id}": {
            "get": {
                "tags": ["Users"],
                "summary": "Get user detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Users"],
                "summary": "Delete an account",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/users/{id}/moderate": {
            "put": {
                "tags": ["Users"],
                "summary": "Approve or reject a user's district admin request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ModerateAdminRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "District already has an admin"}
                }
            }
        },
        "/districts": {
            "get": {
                "tags": ["Districts"],
                "summary": "List districts",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"},
                    {"name": "verified", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/districts/resolve": {
            "get": {
                "tags": ["Districts"],
                "summary": "Resolve coordinates to a district",
                "parameters": [
                    {"name": "lat", "in": "query", "required": true, "type": "number"},
                    {"name": "lng", "in": "query", "required": true, "type": "number"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Coordinates out of range"}
                }
            }
        },
        "/districts/resolve/by-coordinates": {
            "get": {
                "tags": ["Districts"],
                "summary": "Resolve coordinates to a district",
                "parameters": [
                    {"name": "lat", "in": "query", "required": true, "type": "number"},
                    {"name": "lng", "in": "query", "required": true, "type": "number"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Coordinates out of range"}
                }
            }
        },
        "/districts/admin/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in as a district admin",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/districts/{id}": {
            "get": {
                "tags": ["Districts"],
                "summary": "Get district detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/districts/{id}/stats": {
            "get": {
                "tags": ["Districts"],
                "summary": "Get district activity stats",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/districts/{id}/report": {
            "get": {
                "tags": ["Districts"],
                "summary": "Download a district issue report",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/issues": {
            "get": {
                "tags": ["Issues"],
                "summary": "List issues",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "districtId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Issues"],
                "summary": "Report a new issue",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/issues/{id}/status": {
            "put": {
                "tags": ["Issues"],
                "summary": "Update issue status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Issue already resolved"}
                }
            }
        },
        "/issues/{id}/upvote": {
            "post": {
                "tags": ["Issues"],
                "summary": "Upvote an issue",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already upvoted"}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "tags": ["Leaderboard"],
                "summary": "Get the leaderboard",
                "parameters": [
                    {"name": "period", "in": "query", "type": "string", "enum": ["all", "monthly", "yearly"]},
                    {"name": "districtId", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List own notifications",
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sos": {
            "get": {
                "tags": ["SOS"],
                "summary": "List a district's emergency contacts",
                "parameters": [
                    {"name": "districtId", "in": "query", "required": true, "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["SOS"],
                "summary": "Add an emergency contact",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not the district's admin"}
                }
            }
        },
        "/super-admin/exists": {
            "get": {
                "tags": ["SuperAdmin"],
                "summary": "Check whether the super admin account exists",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/super-admin/applications": {
            "get": {
                "tags": ["Applications"],
                "summary": "List district applications",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["pending", "approved", "rejected"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/super-admin/applications/{id}/approve": {
            "post": {
                "tags": ["Applications"],
                "summary": "Approve a district application",
                "description": "Creates a verified district with the applicant as embedded admin; replays return the existing district",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Application not found"}
                }
            }
        },
        "/super-admin/applications/{id}/reject": {
            "post": {
                "tags": ["Applications"],
                "summary": "Reject a district application",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Application already decided"}
                }
            }
        },
        "/superadmin/create": {
            "post": {
                "tags": ["SuperAdmin"],
                "summary": "Create the super admin account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Super admin already exists"}
                }
            }
        },
        "/superadmin/check": {
            "get": {
                "tags": ["SuperAdmin"],
                "summary": "Check whether the super admin account exists",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/superadmin/district-applications/{id}/decision": {
            "put": {
                "tags": ["Applications"],
                "summary": "Decide a district application",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplicationDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Application not found"},
                    "409": {"description": "Application already decided"}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["name", "username", "email", "password", "role", "phoneNumber", "aadharNumber"],
            "properties": {
                "name": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["user", "admin", "superAdmin"]},
                "phoneNumber": {"type": "string"},
                "aadharNumber": {"type": "string"},
                "language": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "districtName": {"type": "string"},
                "state": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "ForgotPasswordRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "ResetPasswordRequest": {
            "type": "object",
            "required": ["email", "otp", "newPassword"],
            "properties": {
                "email": {"type": "string"},
                "otp": {"type": "string"},
                "newPassword": {"type": "string"}
            }
        },
        "ModerateAdminRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "districtName": {"type": "string"},
                "state": {"type": "string"}
            }
        },
        "ApplicationDecisionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "reason": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
