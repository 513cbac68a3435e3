// Package meta carries request metadata through context.
package meta

import "context"

// ContextKey is the type of keys under which metadata is stored in a context.
type ContextKey string

const (
	// TraceID is a unique identifier for tracing requests across services.
	TraceID ContextKey = "trace_id"

	// ActorID identifies the user or system performing the operation.
	ActorID ContextKey = "actor_id"

	// ServiceName identifies the running service.
	ServiceName ContextKey = "service_name"

	// AcceptLanguage holds the caller's preferred locales, either a single
	// BCP 47 tag ("fr") or a raw Accept-Language header ("fr-CH, fr;q=0.9").
	AcceptLanguage ContextKey = "accept-language"
)

//nolint:gochecknoglobals // fixed key list
var knownKeys = []ContextKey{TraceID, ActorID, ServiceName, AcceptLanguage}

// InjectMetaToContext adds the non-empty values of data to ctx.
func InjectMetaToContext(ctx context.Context, data map[ContextKey]string) context.Context {
	for k, v := range data {
		if v != "" {
			ctx = context.WithValue(ctx, k, v) //nolint:fatcontext // finite number of keys
		}
	}
	return ctx
}

// ExtractMetaFromContext returns every known, non-empty metadata value of ctx.
func ExtractMetaFromContext(ctx context.Context) map[ContextKey]string {
	data := make(map[ContextKey]string)
	for _, k := range knownKeys {
		if v := Find(ctx, k); v != "" {
			data[k] = v
		}
	}
	return data
}

// Find returns the string stored under key, or "" when absent or not a string.
func Find(ctx context.Context, key ContextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}
