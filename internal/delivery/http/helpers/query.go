package helpers

import (
	"net/http"
	"strconv"
)

// ParseOptionalBool reads a boolean query parameter. Missing yields nil; values other than
// those accepted by strconv.ParseBool yield ok=false.
func ParseOptionalBool(r *http.Request, name string) (v *bool, ok bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, false
	}
	return &b, true
}
