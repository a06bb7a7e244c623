package cerr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const maxBodyBytes = 4 << 20

// BindJSON decodes the request body into v. A malformed body is reported as
// InvalidArgument; an empty body leaves v untouched.
func BindJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return NewError(InvalidArgument, "invalid JSON body", err)
	}
	return nil
}
