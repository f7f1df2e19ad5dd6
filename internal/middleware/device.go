package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type deviceKey string

const (
	deviceMemoryKey deviceKey = "device_memory_mb"
	deviceModelKey  deviceKey = "device_model"
)

// Device extracts client-reported device hints into the request context so
// the quota gate can record a device tier at provisioning time.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if v := strings.TrimSpace(r.Header.Get("X-Device-Memory-MB")); v != "" {
			if mb, err := strconv.Atoi(v); err == nil && mb > 0 {
				ctx = context.WithValue(ctx, deviceMemoryKey, mb)
			}
		}
		if v := strings.TrimSpace(r.Header.Get("X-Device-Model")); v != "" {
			ctx = context.WithValue(ctx, deviceModelKey, v)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// DeviceMemoryFromContext returns the client-reported RAM in MB, or zero.
func DeviceMemoryFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(deviceMemoryKey).(int); ok {
		return v
	}
	return 0
}

// DeviceModelFromContext returns the client-reported device model, if any.
func DeviceModelFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(deviceModelKey).(string); ok {
		return v
	}
	return ""
}
