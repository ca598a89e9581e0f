package gateway

import "path"

// RetryPolicy controls repeated upload attempts. Fallback receives the
// attempt number and the configuration that just failed and returns the
// configuration for the next attempt. Any category can opt into a policy;
// only the document path does today.
type RetryPolicy struct {
	MaxAttempts int
	Fallback    func(attempt int, prev UploadConfig) UploadConfig
}

// minimalFallback is the document retry: drop the preset-derived metadata
// and content type, generate a fresh identifier, keep the same folder root.
// Preset misconfiguration is the most common transient failure for binary
// uploads, so the retry strips everything a preset contributes.
func (g *Gateway) minimalFallback(_ int, prev UploadConfig) UploadConfig {
	folder := path.Dir(prev.Key)
	if folder == "." || folder == "/" {
		folder = g.settings.FallbackFolder
	}
	base := path.Base(prev.Key)
	return UploadConfig{
		Key:  folder + "/" + g.freshIdentifier(base),
		Tags: g.settings.FallbackTags,
	}
}
