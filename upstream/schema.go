package upstream

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload marks a listings payload that does not have the expected shape.
var ErrInvalidPayload = errors.New("invalid listings payload")

const listingsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "title", "city"],
    "properties": {
      "id":        {"type": ["integer", "string"]},
      "title":     {"type": "string"},
      "type":      {"type": ["string", "null"]},
      "city":      {"type": "string"},
      "price":     {"type": ["number", "string", "null"]},
      "auction":   {"type": ["integer", "string", "null"]},
      "lat":       {"type": ["number", "string", "null"]},
      "lng":       {"type": ["number", "string", "null"]},
      "minHours":  {"type": ["integer", "string", "null"]},
      "min_hours": {"type": ["integer", "string", "null"]},
      "image_url": {"type": ["string", "null"]},
      "rooms": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "properties": {
            "price":     {"type": ["number", "string", "null"]},
            "features":  {"type": ["array", "string", "null"]}
          }
        }
      },
      "metro_stations": {
        "type": ["array", "null"],
        "items": {
          "type": "object",
          "required": ["station_name"],
          "properties": {
            "station_name": {"type": "string"}
          }
        }
      }
    }
  }
}`

var schema = mustSchema(listingsSchema)

func mustSchema(s string) *gojsonschema.Schema {
	sc, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(err)
	}
	return sc
}

// Validate checks raw against the listings schema. At most five violations
// are reported.
func Validate(raw []byte) error {
	res, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if res.Valid() {
		return nil
	}
	var msgs []string
	for i, e := range res.Errors() {
		if i == 5 {
			msgs = append(msgs, fmt.Sprintf("and %d more", len(res.Errors())-5))
			break
		}
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(msgs, "; "))
}
