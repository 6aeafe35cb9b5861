package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/shopwire/shopwire-backend/pkg/errors"
)

// ParseQueryInt64 reads an optional numeric query parameter with a lower
// bound, returning the default when absent.
func ParseQueryInt64(r *http.Request, key string, defaultVal, min int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min})
	}
	return value, nil
}
