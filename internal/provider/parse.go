package provider

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// Regex definitions use \x60 for backticks because Go raw strings
	// cannot contain backticks.
	jsonObjectRegex = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	jsonArrayRegex  = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
)

// ParseJSONResponse decodes a model response into T. Models routinely wrap
// JSON in markdown fences or lead with conversational text; both forms are
// unwrapped before decoding.
func ParseJSONResponse[T any](response string) (*T, error) {
	response = strings.TrimSpace(response)
	jsonStringToParse := response

	isObject := strings.Contains(response, "{")
	isArray := strings.Contains(response, "[")

	if strings.HasPrefix(response, "```") {
		var matches []string
		if isObject {
			matches = jsonObjectRegex.FindStringSubmatch(response)
		}
		if len(matches) <= 1 && isArray {
			matches = jsonArrayRegex.FindStringSubmatch(response)
		}
		if len(matches) > 1 {
			jsonStringToParse = matches[1]
		}
	} else if (isObject || isArray) && !strings.HasPrefix(response, "{") && !strings.HasPrefix(response, "[") {
		// Find the structure boundaries inside surrounding prose.
		first, last := -1, -1
		if isObject {
			fb := strings.Index(response, "{")
			lb := strings.LastIndex(response, "}")
			if fb != -1 && lb > fb {
				first, last = fb, lb+1
			}
		}
		if first == -1 && isArray {
			fb := strings.Index(response, "[")
			lb := strings.LastIndex(response, "]")
			if fb != -1 && lb > fb {
				first, last = fb, lb+1
			}
		}
		if first != -1 {
			jsonStringToParse = response[first:last]
		}
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStringToParse), &result); err != nil {
		return nil, fmt.Errorf("unmarshal model JSON response: %w (extracted: %s)",
			err, truncate(jsonStringToParse, 500))
	}
	return &result, nil
}
