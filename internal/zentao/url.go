package zentao

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// idPlaceholder is the template token substituted with a bug ID in action paths.
const idPlaceholder = "{id}"

// ResolveURL builds an absolute request URL from a base URL, an API prefix,
// a relative path and optional query parameters.
//
// Query semantics: nil values are omitted; every other value is stringified
// and Set (last write wins, no multi-value keys).
func ResolveURL(baseURL, apiPrefix, path string, query map[string]any) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	if strings.Contains(trimmedPath, "://") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidPath, trimmedPath)
	}

	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	parsed.Path = joinSegments(parsed.Path, apiPrefix, trimmedPath)

	if len(query) > 0 {
		values := url.Values{}
		for key, value := range query {
			if value == nil {
				continue
			}
			values.Set(key, stringifyQueryValue(value))
		}
		parsed.RawQuery = values.Encode()
	}

	return parsed.String(), nil
}

// resolveActionPath substitutes an integer ID into a path template. Templates
// without an {id} placeholder get the ID and suffix appended after trailing
// slashes are stripped.
func resolveActionPath(template string, id int64, suffix string) string {
	idText := strconv.FormatInt(id, 10)
	if strings.Contains(template, idPlaceholder) {
		return strings.ReplaceAll(template, idPlaceholder, idText)
	}
	base := strings.TrimRight(template, "/")
	return base + "/" + idText + suffix
}

func joinSegments(segments ...string) string {
	var builder strings.Builder
	for _, segment := range segments {
		cleaned := strings.Trim(strings.TrimSpace(segment), "/")
		if cleaned == "" {
			continue
		}
		builder.WriteString("/")
		builder.WriteString(cleaned)
	}
	if builder.Len() == 0 {
		return "/"
	}
	return builder.String()
}

func stringifyQueryValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
