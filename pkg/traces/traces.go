package traces

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ApplicationName           = "hybridenroll"
	defaultSpanName           = "hybridenroll/unknown"
	defaultAttributeNamespace = "unknown"
)

// StartSpan returns a new context and span, named after the calling function.
// The caller is always responsible for ending the span. `keyVals` should be a
// list of pairs, where the first in the pair is a string representing the
// attribute key and the second in the pair is the attribute value.
//
// No exporter is registered by default, so the global tracer is a no-op unless
// the binary is built with one.
func StartSpan(ctx context.Context, keyVals ...interface{}) (context.Context, trace.Span) {
	spanName := defaultSpanName

	opts := make([]trace.SpanStartOption, 0)

	// runtime.Caller(1) returns information about the function calling `StartSpan`.
	pc, callerFile, callerLine, ok := runtime.Caller(1)
	if ok {
		opts = append(opts, trace.WithAttributes(
			attribute.String("code.filepath", callerFile),
			attribute.Int("code.lineno", callerLine),
		))

		if f := runtime.FuncForPC(pc); f != nil {
			spanName = filepath.Base(f.Name())
			opts = append(opts, trace.WithAttributes(attribute.String("code.function", f.Name())))
		}
	}

	opts = append(opts, trace.WithAttributes(buildAttributes(callerFile, keyVals...)...))

	return otel.Tracer(ApplicationName).Start(ctx, spanName, opts...)
}

// SetError records the error on the span and sets the span's status to error.
func SetError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// buildAttributes takes the given keyVals, expected to be pairs representing the key
// and value of each attribute, and namespaces the keys by the caller's package
// directory. Pairs with invalid keys or values are added as string attributes.
func buildAttributes(callerFile string, keyVals ...interface{}) []attribute.KeyValue {
	callerDir := defaultAttributeNamespace
	if callerFile != "" {
		callerDir = filepath.Base(filepath.Dir(callerFile))
	}

	attrs := make([]attribute.KeyValue, 0)

	for i := 0; i+1 < len(keyVals); i += 2 {
		// Keys must always be strings
		if _, ok := keyVals[i].(string); !ok {
			attrs = append(attrs, attribute.String(
				fmt.Sprintf("bad key type %T: %v", keyVals[i], keyVals[i]),
				fmt.Sprintf("%v", keyVals[i+1]),
			))
			continue
		}

		key := fmt.Sprintf("%s.%s.%s", ApplicationName, callerDir, keyVals[i])

		switch v := keyVals[i+1].(type) {
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case []string:
			attrs = append(attrs, attribute.StringSlice(key, v))
		default:
			attrs = append(attrs, attribute.String(key, fmt.Sprintf("unsupported value of type %T: %v", v, v)))
		}
	}

	return attrs
}
