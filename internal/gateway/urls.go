package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"assetstore/internal/logging"
	"assetstore/internal/models"
)

const downloadURLTTL = 15 * time.Minute

func (g *Gateway) objectURL(scheme, key string) string {
	escaped := escapeKey(key)
	if g.settings.Endpoint != "" {
		host := g.settings.Endpoint
		if idx := strings.Index(host, "://"); idx >= 0 {
			host = host[idx+3:]
		}
		return fmt.Sprintf("%s://%s/%s/%s", scheme, host, g.settings.Bucket, escaped)
	}
	return fmt.Sprintf("%s://%s.s3.%s.amazonaws.com/%s", scheme, g.settings.Bucket, g.settings.Region, escaped)
}

// secureURL carries the version token when the remote store returned one;
// cached copies are only correct when fetched through the versioned URL.
func (g *Gateway) secureURL(key, version string) string {
	u := g.objectURL("https", key)
	if version != "" {
		u += "?versionId=" + url.QueryEscape(version)
	}
	return u
}

// DownloadURL returns a URL that forces attachment disposition and carries
// a human-readable filename. When presigning fails or is unavailable, the
// degraded answer is the secure URL with a filename query parameter; that
// URL cannot force the attachment disposition, only suggest the name.
func (g *Gateway) DownloadURL(ctx context.Context, desc *models.RemoteDescriptor, filename string) string {
	if desc == nil {
		return ""
	}
	if filename == "" {
		filename = desc.ID
	}
	disposition := fmt.Sprintf("attachment; filename=%q", filename)

	if g.presign != nil {
		req, err := g.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket:                     aws.String(g.settings.Bucket),
			Key:                        aws.String(desc.ID),
			ResponseContentDisposition: aws.String(disposition),
		}, func(o *s3.PresignOptions) {
			o.Expires = downloadURLTTL
		})
		if err == nil {
			return req.URL
		}
		logging.Warnf("presign download url for %s: %v", desc.ID, err)
	}

	sep := "?"
	if strings.Contains(desc.SecureURL, "?") {
		sep = "&"
	}
	return desc.SecureURL + sep + "filename=" + url.QueryEscape(filename)
}

// ViewURL prefers the secure URL captured at upload time over rebuilding
// one from the identifier: only the stored URL has the version token.
func (g *Gateway) ViewURL(desc *models.RemoteDescriptor) string {
	if desc == nil {
		return ""
	}
	if desc.SecureURL != "" {
		return desc.SecureURL
	}
	return g.objectURL("https", desc.ID)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
