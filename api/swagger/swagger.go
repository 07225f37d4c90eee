package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CoachPlan API",
        "description": "Coach availability, session scheduling and conflict detection service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Availability", "description": "Coach availability declarations"},
        {"name": "Sessions", "description": "Session lifecycle and attendance"},
        {"name": "Calendar", "description": "Merged monthly calendar views"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/coaches/{id}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List availability instances for a month",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Availability"],
                "summary": "Declare recurring availability over a date range",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAvailabilityRangeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/coaches/{id}/availability/{slotId}": {
            "delete": {
                "tags": ["Availability"],
                "summary": "Remove an availability slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "slotId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/coaches/{id}/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Merged availability and session view for a coach's month",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/coaches/{id}/calendar/export": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Export a coach's monthly calendar as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "month", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "CSV payload"}
                }
            }
        },
        "/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List sessions",
                "parameters": [
                    {"name": "coachId", "in": "query", "type": "string"},
                    {"name": "classroomId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "dateFrom", "in": "query", "type": "string"},
                    {"name": "dateTo", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Create a session with optional weekly repeats",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionsRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Blocked by hard conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/range": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Create sessions over a date range filtered by weekdays",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRangeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Blocked by hard conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/conflicts": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Dry-run conflict check for a proposed session range",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSessionRangeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/open": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Open a scheduled session for attendance",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid state transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/close": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Close an open session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid state transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/cancel": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Cancel a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid state transition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/attendance": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List attendance records for a session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Sign attendance on an open session",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/SignAttendanceRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already signed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Session not open", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/sessions/{id}/attendance/export": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Export the attendance sheet for a session",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered sheet"}
                }
            }
        }
    },
    "definitions": {
        "CreateAvailabilityRangeRequest": {
            "type": "object",
            "required": ["start_date", "end_date", "days_of_week", "start_time", "end_time"],
            "properties": {
                "start_date": {"type": "string", "example": "2026-01-05"},
                "end_date": {"type": "string", "example": "2026-03-27"},
                "days_of_week": {"type": "array", "items": {"type": "integer"}},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "12:30"}
            }
        },
        "CreateSessionsRequest": {
            "type": "object",
            "required": ["title", "scheduled_date", "start_time", "end_time", "type", "coach_id"],
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "scheduled_date": {"type": "string", "example": "2026-01-12"},
                "start_time": {"type": "string", "example": "10:00"},
                "end_time": {"type": "string", "example": "11:30"},
                "type": {"type": "string", "enum": ["COURSE", "MOCK_EXAM"]},
                "weeks": {"type": "integer"},
                "coach_id": {"type": "string"},
                "classroom_id": {"type": "string"}
            }
        },
        "CreateSessionRangeRequest": {
            "type": "object",
            "required": ["start_date", "end_date", "days_of_week", "start_time", "end_time", "coach_id", "title", "type"],
            "properties": {
                "start_date": {"type": "string", "example": "2026-01-05"},
                "end_date": {"type": "string", "example": "2026-02-27"},
                "days_of_week": {"type": "array", "items": {"type": "integer"}},
                "start_time": {"type": "string", "example": "14:00"},
                "end_time": {"type": "string", "example": "16:00"},
                "coach_id": {"type": "string"},
                "classroom_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "type": {"type": "string", "enum": ["COURSE", "MOCK_EXAM"]}
            }
        },
        "SignAttendanceRequest": {
            "type": "object",
            "properties": {
                "candidate_id": {"type": "string"}
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
