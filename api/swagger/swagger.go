package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Enrollment API",
        "description": "Checkout, payment webhooks, enrollments and seat inventory",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Checkout", "description": "Hosted card checkout and bank transfers"},
        {"name": "Webhooks", "description": "Payment provider and CRM deliveries"},
        {"name": "Specials", "description": "Coupon catalogue mirrored from the CRM"},
        {"name": "Enrollments", "description": "Staff enrollment management"},
        {"name": "Schedules", "description": "Seat inventory"},
        {"name": "Portal", "description": "Student self-service"}
    ],
    "paths": {
        "/checkout": {
            "post": {
                "tags": ["Checkout"],
                "summary": "Create a hosted card checkout",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckoutRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Course not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Provider failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Provider not configured", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/zelle": {
            "post": {
                "tags": ["Checkout"],
                "summary": "Register a pending bank-transfer enrollment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ZelleEnrollmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/receipts/{token}": {
            "get": {
                "tags": ["Checkout"],
                "summary": "Download a receipt PDF",
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "PDF"},
                    "401": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/webhooks/payments": {
            "post": {
                "tags": ["Webhooks"],
                "summary": "Card provider payment notification",
                "parameters": [
                    {"name": "X-Square-Hmacsha256-Signature", "in": "header", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Acknowledged", "schema": {"$ref": "#/definitions/WebhookAck"}},
                    "403": {"description": "Invalid signature", "schema": {"$ref": "#/definitions/WebhookAck"}},
                    "500": {"description": "Retry later", "schema": {"$ref": "#/definitions/WebhookAck"}}
                }
            }
        },
        "/webhooks/crm": {
            "post": {
                "tags": ["Webhooks"],
                "summary": "CRM order notification",
                "responses": {
                    "200": {"description": "Acknowledged", "schema": {"$ref": "#/definitions/WebhookAck"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/WebhookAck"}}
                }
            }
        },
        "/specials": {
            "get": {
                "tags": ["Specials"],
                "summary": "Active public specials",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SpecialsResponse"}}
                }
            }
        },
        "/admin/specials": {
            "get": {
                "tags": ["Specials"],
                "summary": "List active specials",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Specials"],
                "summary": "Create special",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSpecialRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Code already active", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/specials/{code}": {
            "delete": {
                "tags": ["Specials"],
                "summary": "Deactivate special",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "code", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/admin/enrollments": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "List enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "scheduleId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "paymentMethod", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Enrollments"],
                "summary": "Record a manual enrollment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/enrollments/{id}": {
            "get": {
                "tags": ["Enrollments"],
                "summary": "Get enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Enrollments"],
                "summary": "Update enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Enrollments"],
                "summary": "Delete enrollment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/admin/enrollments/{id}/attendance": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Mark attendance",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get schedule seat state",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/schedules/{id}/reconcile": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Recompute available seats from enrollments",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/schedules/{id}/roster": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Export roster",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Portal"],
                "summary": "Staff login",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/login": {
            "post": {
                "tags": ["Portal"],
                "summary": "Student login with access code",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/portal/me": {
            "get": {
                "tags": ["Portal"],
                "summary": "Current student and their enrollments",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CheckoutRequest": {
            "type": "object",
            "required": ["courseId"],
            "properties": {
                "courseId": {"type": "string"},
                "modality": {"type": "string", "enum": ["in-person", "online"]},
                "studentEmail": {"type": "string"},
                "discountCode": {"type": "string"},
                "scheduleId": {"type": "string"}
            }
        },
        "ZelleEnrollmentRequest": {
            "type": "object",
            "required": ["courseId", "studentName", "studentEmail"],
            "properties": {
                "courseId": {"type": "string"},
                "modality": {"type": "string"},
                "studentName": {"type": "string"},
                "studentEmail": {"type": "string"},
                "studentPhone": {"type": "string"},
                "discountCode": {"type": "string"},
                "scheduleId": {"type": "string"}
            }
        },
        "CreateSpecialRequest": {
            "type": "object",
            "required": ["couponCode", "couponName", "discountType", "discountValue"],
            "properties": {
                "couponCode": {"type": "string"},
                "couponName": {"type": "string"},
                "discountType": {"type": "string", "enum": ["percentage", "fixed"]},
                "discountValue": {"type": "number"},
                "courseIds": {"type": "array", "items": {"type": "string"}},
                "validFrom": {"type": "string", "format": "date-time"},
                "validUntil": {"type": "string", "format": "date-time"}
            }
        },
        "PublicSpecial": {
            "type": "object",
            "properties": {
                "coupon_code": {"type": "string"},
                "coupon_name": {"type": "string"},
                "discount_type": {"type": "string"},
                "discount_value": {"type": "number"},
                "course_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SpecialsResponse": {
            "type": "object",
            "properties": {
                "specials": {"type": "array", "items": {"$ref": "#/definitions/PublicSpecial"}}
            }
        },
        "WebhookAck": {
            "type": "object",
            "properties": {
                "received": {"type": "boolean"},
                "duplicate": {"type": "boolean"},
                "ignored": {"type": "boolean"},
                "error": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
