package cerr

import (
	"context"
	"maps"
	"net/http"
)

type responseReceiverKey struct{}

type responseReceiver struct {
	data    any
	hasData bool
	fields  map[string]any
	err     error
	// streamed is set when the handler wrote the response itself.
	streamed bool
}

func (rr *responseReceiver) body() map[string]any {
	body := make(map[string]any, len(rr.fields)+2)
	maps.Copy(body, rr.fields)
	body["success"] = true
	if rr.hasData {
		body["data"] = rr.data
	}
	return body
}

func contextWithResponseReceiver(ctx context.Context, rr *responseReceiver) context.Context {
	return context.WithValue(ctx, responseReceiverKey{}, rr)
}

func responseReceiverFromContext(ctx context.Context) *responseReceiver {
	if rr, ok := ctx.Value(responseReceiverKey{}).(*responseReceiver); ok {
		return rr
	}
	return nil
}

// SetJSONResponse sets the value returned under "data" in the success
// envelope.
func SetJSONResponse(ctx context.Context, data any) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.data = data
		rr.hasData = true
	}
}

// SetJSONField sets an extra top-level field next to "success" and "data".
func SetJSONField(ctx context.Context, key string, value any) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		if rr.fields == nil {
			rr.fields = make(map[string]any)
		}
		rr.fields[key] = value
	}
}

func SetJSONError(ctx context.Context, err error) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.err = err
	}
}

// MarkStreamed tells the middleware that the handler wrote its own response,
// as streaming handlers do, so no envelope must follow.
func MarkStreamed(ctx context.Context) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.streamed = true
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewJSONResponseChiMiddleware lets handlers report their outcome through
// SetJSONResponse/SetJSONError; the envelope is written once the handler
// returns. Handlers must not write to the ResponseWriter themselves except
// for headers and cookies.
func NewJSONResponseChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rr := &responseReceiver{}
			ctx := contextWithResponseReceiver(r.Context(), rr)
			next.ServeHTTP(rw, r.WithContext(ctx))
			if rr.streamed {
				return
			}
			ExtractToHTTPResponse(ctx, rw, rr)
		})
	}
}
