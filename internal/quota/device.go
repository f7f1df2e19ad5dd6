package quota

import (
	"context"

	"billserver/internal/domain"
)

// DeviceClassifier reports the capability tier of the device behind the
// current request. The result is recorded once at provisioning time and is
// informational only.
type DeviceClassifier interface {
	Classify(ctx context.Context) domain.DeviceTier
}

// ClassifierFunc adapts a function to the DeviceClassifier interface.
type ClassifierFunc func(ctx context.Context) domain.DeviceTier

func (f ClassifierFunc) Classify(ctx context.Context) domain.DeviceTier {
	return f(ctx)
}

// ClassifyMemory buckets a device by its reported RAM in megabytes. Unknown
// or unreported memory lands in the middle bucket.
func ClassifyMemory(memoryMB int) domain.DeviceTier {
	switch {
	case memoryMB <= 0:
		return domain.DeviceTierMidRange
	case memoryMB < 3072:
		return domain.DeviceTierLowEnd
	case memoryMB < 6144:
		return domain.DeviceTierMidRange
	default:
		return domain.DeviceTierHighEnd
	}
}
