// internal/common/validation/request.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// feedRequestSchema constrains the feed request payload before it reaches the
// pipeline. Unknown filter fields are rejected so client typos surface as 400s
// instead of silently matching nothing.
var feedRequestSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"userId":     map[string]interface{}{"type": "string"},
		"sessionId":  map[string]interface{}{"type": "string"},
		"searchText": map[string]interface{}{"type": "string", "maxLength": 200},
		"page":       map[string]interface{}{"type": "integer", "minimum": 0},
		"cursor":     map[string]interface{}{"type": "string"},
		"location": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"latitude":  map[string]interface{}{"type": "number", "minimum": -90, "maximum": 90},
				"longitude": map[string]interface{}{"type": "number", "minimum": -180, "maximum": 180},
			},
			"required": []interface{}{"latitude", "longitude"},
		},
		"filters": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"categoryIds": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
				"location":  map[string]interface{}{"type": "string"},
				"priceMin":  map[string]interface{}{"type": "string"},
				"priceMax":  map[string]interface{}{"type": "string"},
				"minRating": map[string]interface{}{"type": "number", "minimum": 0, "maximum": 5},
				"distance":  map[string]interface{}{"type": "number", "minimum": 0},
				"availability": map[string]interface{}{"type": "string"},
				"sortBy": map[string]interface{}{
					"type": "string",
					"enum": []interface{}{"relevance", "price_low", "price_high", "rating", "popular", "recent", "distance"},
				},
				"verifiedOnly":   map[string]interface{}{"type": "boolean"},
				"instantBooking": map[string]interface{}{"type": "boolean"},
				"listingType": map[string]interface{}{
					"type": "string",
					"enum": []interface{}{"service", "custom_service", "job", "all"},
				},
			},
			"additionalProperties": false,
		},
	},
	"additionalProperties": false,
}

// ValidateFeedRequest validates a decoded feed request document against the
// schema. Returns nil when valid, otherwise an error listing every violation.
func ValidateFeedRequest(doc map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(feedRequestSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("invalid feed request: %s", strings.Join(msgs, "; "))
}
