// Package docs содержит описание HTTP API для swagger UI.
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
        "/conditions/search": {
            "get": {
                "description": "Встраивает текст запроса и возвращает ближайшие состояния по косинусному сходству",
                "produces": ["application/json"],
                "tags": ["conditions"],
                "summary": "Поиск состояний по тексту",
                "parameters": [
                    {"type": "string", "description": "Текст запроса", "name": "q", "in": "query", "required": true},
                    {"type": "number", "description": "Минимальное сходство, [-1, 1]", "name": "threshold", "in": "query"},
                    {"type": "integer", "description": "Максимум результатов, [1, 100]", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SearchResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Сервис эмбеддингов недоступен", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Поиск недоступен", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/conditions/{id}/similar": {
            "get": {
                "description": "Возвращает состояния, ближайшие к сохранённому эмбеддингу состояния id",
                "produces": ["application/json"],
                "tags": ["conditions"],
                "summary": "Похожие состояния",
                "parameters": [
                    {"type": "string", "description": "ID состояния", "name": "id", "in": "path", "required": true},
                    {"type": "number", "description": "Минимальное сходство, [-1, 1]", "name": "threshold", "in": "query"},
                    {"type": "integer", "description": "Максимум результатов, [1, 100]", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.SearchResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Состояние не найдено", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "У состояния нет эмбеддинга", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "503": {"description": "Поиск недоступен", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "http.MatchResponse": {
            "type": "object",
            "properties": {
                "category_id": {"type": "string"},
                "dc_code": {"type": "string"},
                "description": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "rating_percentages": {"type": "array", "items": {"type": "integer"}},
                "similarity": {"type": "number"},
                "similarity_percent": {"type": "string"}
            }
        },
        "http.SearchResponse": {
            "type": "object",
            "properties": {
                "average_similarity": {"type": "number"},
                "average_similarity_percent": {"type": "string"},
                "count": {"type": "integer"},
                "matches": {"type": "array", "items": {"$ref": "#/definitions/http.MatchResponse"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Conditions Search API",
	Description:      "Семантический поиск по состояниям на основе эмбеддингов.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
