// Package docs registers the OpenAPI description served at /api-docs.
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
        "/v1/transactions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "List transactions",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "deviceId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Page of transactions", "schema": {"$ref": "#/definitions/model.TransactionListResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Submit a completed transaction",
                "parameters": [
                    {"name": "transaction", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.Transaction"}}
                ],
                "responses": {
                    "200": {"description": "Duplicate transaction acknowledged", "schema": {"$ref": "#/definitions/domain.SubmissionResult"}},
                    "201": {"description": "Transaction stored", "schema": {"$ref": "#/definitions/domain.SubmissionResult"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "429": {"description": "Device is sending too fast", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "503": {"description": "Temporary failure, retry later", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/transactions/batch": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Replay spooled transactions",
                "parameters": [
                    {"name": "batch", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.BatchSubmissionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Per-transaction results", "schema": {"$ref": "#/definitions/model.BatchSubmissionResponse"}},
                    "400": {"description": "Malformed batch", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/transactions/{transactionId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["transactions"],
                "summary": "Get a transaction",
                "parameters": [
                    {"type": "string", "name": "transactionId", "in": "path", "required": true},
                    {"type": "string", "name": "storeId", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Transaction details", "schema": {"$ref": "#/definitions/domain.Transaction"}},
                    "404": {"description": "Transaction not found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/detections/assemble": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["detections"],
                "summary": "Assemble a draft from raw detections",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.AssembleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Draft transaction", "schema": {"$ref": "#/definitions/domain.Transaction"}},
                    "400": {"description": "Invalid detections", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/stores/{storeId}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["stores"],
                "summary": "Register a store location",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "path", "required": true},
                    {"name": "store", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.StoreRequest"}}
                ],
                "responses": {
                    "200": {"description": "Registered store", "schema": {"$ref": "#/definitions/domain.Store"}},
                    "400": {"description": "Invalid input", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/analytics/stores": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get daily store analytics",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Store analytics", "schema": {"$ref": "#/definitions/model.StoreAnalyticsResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/analytics/brands": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get brand performance",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Brand performance", "schema": {"$ref": "#/definitions/model.BrandPerformanceResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/analytics/categories": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get category performance",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "name": "categoryLimit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Category performance", "schema": {"$ref": "#/definitions/model.CategoryPerformanceResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/analytics/regions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get regional insights",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "categoryLimit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Regional insights", "schema": {"$ref": "#/definitions/model.RegionalInsightsResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/analytics/detections": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get detection analytics",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Detection analytics", "schema": {"$ref": "#/definitions/model.DetectionAnalyticsResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/v1/analytics/unbranded-opportunities": {
            "get": {
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Get unbranded opportunities",
                "parameters": [
                    {"type": "string", "name": "storeId", "in": "query"},
                    {"type": "string", "name": "startDate", "in": "query"},
                    {"type": "string", "name": "endDate", "in": "query"},
                    {"type": "string", "name": "category", "in": "query"},
                    {"type": "number", "name": "minVolume", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Unbranded opportunities", "schema": {"$ref": "#/definitions/model.UnbrandedOpportunitiesResponse"}},
                    "400": {"description": "Invalid query parameters", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.TransactionItem": {
            "type": "object",
            "required": ["productName", "unit", "category", "detectionMethod"],
            "properties": {
                "brandName": {"type": "string"},
                "productName": {"type": "string"},
                "genericName": {"type": "string"},
                "localName": {"type": "string"},
                "sku": {"type": "string"},
                "quantity": {"type": "number"},
                "unit": {"type": "string"},
                "unitPrice": {"type": "number"},
                "totalPrice": {"type": "number"},
                "category": {"type": "string"},
                "isUnbranded": {"type": "boolean"},
                "isBulk": {"type": "boolean"},
                "detectionMethod": {"type": "string", "enum": ["voice", "ocr", "vision", "manual", "hybrid"]},
                "confidence": {"type": "number"},
                "brandConfidence": {"type": "number"},
                "suggestedBrands": {"type": "array", "items": {"type": "string"}},
                "notes": {"type": "string"}
            }
        },
        "domain.Totals": {
            "type": "object",
            "properties": {
                "totalAmount": {"type": "number"},
                "totalItems": {"type": "number"},
                "brandedAmount": {"type": "number"},
                "unbrandedAmount": {"type": "number"},
                "brandedCount": {"type": "number"},
                "unbrandedCount": {"type": "number"}
            }
        },
        "domain.CategoryStat": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "count": {"type": "number"},
                "value": {"type": "number"}
            }
        },
        "domain.Insights": {
            "type": "object",
            "properties": {
                "brandedVsUnbranded": {
                    "type": "object",
                    "properties": {
                        "brandedPercentage": {"type": "number"},
                        "unbrandedPercentage": {"type": "number"}
                    }
                },
                "topCategories": {"type": "array", "items": {"$ref": "#/definitions/domain.CategoryStat"}},
                "suggestions": {"type": "array", "items": {"type": "string"}},
                "anomalies": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "itemIndex": {"type": "integer"},
                            "field": {"type": "string"},
                            "reason": {"type": "string"}
                        }
                    }
                }
            }
        },
        "domain.Transaction": {
            "type": "object",
            "required": ["transactionId", "storeId", "deviceId", "timestamp", "items", "totals", "insights", "paymentMethod", "edgeVersion"],
            "properties": {
                "transactionId": {"type": "string"},
                "storeId": {"type": "string"},
                "deviceId": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/domain.TransactionItem"}},
                "totals": {"$ref": "#/definitions/domain.Totals"},
                "insights": {"$ref": "#/definitions/domain.Insights"},
                "paymentMethod": {"type": "string"},
                "processingTime": {"type": "number"},
                "edgeVersion": {"type": "string"},
                "receivedAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.SubmissionResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "transactionId": {"type": "string"},
                "message": {"type": "string"},
                "duplicate": {"type": "boolean"}
            }
        },
        "domain.Store": {
            "type": "object",
            "properties": {
                "storeId": {"type": "string"},
                "region": {"type": "string"},
                "province": {"type": "string"},
                "city": {"type": "string"}
            }
        },
        "domain.StoreAnalytics": {
            "type": "object",
            "properties": {
                "storeId": {"type": "string"},
                "date": {"type": "string"},
                "totalTransactions": {"type": "integer"},
                "totalRevenue": {"type": "number"},
                "brandedRevenue": {"type": "number"},
                "unbrandedRevenue": {"type": "number"},
                "totalItemsSold": {"type": "number"},
                "brandedItemsSold": {"type": "number"},
                "unbrandedItemsSold": {"type": "number"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.BrandPerformance": {
            "type": "object",
            "properties": {
                "brandName": {"type": "string"},
                "category": {"type": "string"},
                "totalUnitsSold": {"type": "number"},
                "totalRevenue": {"type": "number"},
                "avgPrice": {"type": "number"},
                "lastUnitPrice": {"type": "number"},
                "lastSold": {"type": "string", "format": "date-time"}
            }
        },
        "domain.RegionalInsight": {
            "type": "object",
            "properties": {
                "region": {"type": "string"},
                "totalTransactions": {"type": "integer"},
                "totalRevenue": {"type": "number"},
                "brandedRevenue": {"type": "number"},
                "brandedPercentage": {"type": "number"},
                "topCategories": {"type": "array", "items": {"$ref": "#/definitions/domain.CategoryStat"}},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "domain.DetectionStat": {
            "type": "object",
            "properties": {
                "detectionMethod": {"type": "string", "enum": ["voice", "ocr", "vision", "manual", "hybrid"]},
                "itemCount": {"type": "integer"},
                "averageConfidence": {"type": "number"},
                "lowConfidenceCount": {"type": "integer"},
                "totalRevenue": {"type": "number"},
                "itemShare": {"type": "number"}
            }
        },
        "domain.UnbrandedOpportunity": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "product": {"type": "string"},
                "unit": {"type": "string"},
                "totalQuantity": {"type": "number"},
                "itemCount": {"type": "integer"},
                "totalRevenue": {"type": "number"},
                "storeCount": {"type": "integer"},
                "suggestedBrands": {"type": "array", "items": {"type": "string"}}
            }
        },
        "model.ErrorDetail": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/model.ErrorDetail"}}
            }
        },
        "model.PaginationResponse": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "model.TransactionListResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/domain.Transaction"}},
                "pagination": {"$ref": "#/definitions/model.PaginationResponse"}
            }
        },
        "model.BatchSubmissionRequest": {
            "type": "object",
            "properties": {
                "transactions": {"type": "array", "items": {"$ref": "#/definitions/domain.Transaction"}}
            }
        },
        "model.BatchItemResponse": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "status": {"type": "integer"},
                "success": {"type": "boolean"},
                "transactionId": {"type": "string"},
                "message": {"type": "string"},
                "duplicate": {"type": "boolean"},
                "retryable": {"type": "boolean"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/model.ErrorDetail"}}
            }
        },
        "model.BatchSubmissionResponse": {
            "type": "object",
            "properties": {
                "accepted": {"type": "integer"},
                "duplicates": {"type": "integer"},
                "failed": {"type": "integer"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/model.BatchItemResponse"}}
            }
        },
        "model.AssembleRequest": {
            "type": "object",
            "required": ["storeId", "deviceId"],
            "properties": {
                "transactionId": {"type": "string"},
                "storeId": {"type": "string"},
                "deviceId": {"type": "string"},
                "timestamp": {"type": "string"},
                "paymentMethod": {"type": "string"},
                "edgeVersion": {"type": "string"},
                "detections": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "detectionMethod": {"type": "string", "enum": ["voice", "ocr", "vision", "manual"]},
                            "text": {"type": "string"},
                            "brandName": {"type": "string"},
                            "productName": {"type": "string"},
                            "quantity": {"type": "number"},
                            "unit": {"type": "string"},
                            "unitPrice": {"type": "number"},
                            "boundingRegion": {
                                "type": "object",
                                "properties": {
                                    "x": {"type": "number"},
                                    "y": {"type": "number"},
                                    "width": {"type": "number"},
                                    "height": {"type": "number"}
                                }
                            },
                            "area": {"type": "number"},
                            "confidence": {"type": "number"},
                            "brandConfidence": {"type": "number"}
                        }
                    }
                }
            }
        },
        "model.StoreRequest": {
            "type": "object",
            "required": ["region"],
            "properties": {
                "region": {"type": "string"},
                "province": {"type": "string"},
                "city": {"type": "string"}
            }
        },
        "model.StoreAnalyticsResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.StoreAnalytics"}}}
        },
        "model.BrandPerformanceResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.BrandPerformance"}}}
        },
        "model.CategoryPerformanceResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.CategoryStat"}}}
        },
        "model.RegionalInsightsResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.RegionalInsight"}}}
        },
        "model.DetectionAnalyticsResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.DetectionStat"}}}
        },
        "model.UnbrandedOpportunitiesResponse": {
            "type": "object",
            "properties": {"data": {"type": "array", "items": {"$ref": "#/definitions/domain.UnbrandedOpportunity"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Edge Transaction Service API",
	Description:      "Ingestion, classification and analytics for transactions captured by in-store edge devices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
