package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"assetstore/internal/config"
	"assetstore/internal/logging"
	"assetstore/internal/models"
)

// ErrNotConfigured is surfaced (inside result values) for every remote call
// attempted without credentials. The caller gets a deterministic local
// failure instead of an opaque remote error.
var ErrNotConfigured = errors.New("remote storage is not configured: missing credentials")

// ObjectAPI is the slice of the S3 API the gateway consumes. Narrowed to an
// interface so tests can run against a fake remote.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// PresignAPI issues presigned GET URLs for downloads.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadOptions is the explicit form of the caller-supplied upload options.
// Zero values mean: preset folder, no tags, no context metadata, no extra
// transformations, preset chosen by classification.
type UploadOptions struct {
	Folder          string
	Tags            []string
	Context         map[string]string
	Transformations []string
	PresetOverride  string
}

// Settings configures a gateway instance.
type Settings struct {
	Bucket     string
	Endpoint   string
	Region     string
	BaseFolder string

	// Fallback placement for the document retry. Deliberately configurable:
	// the folder/tag choice of the fallback attempt is an operational
	// decision, not a contract.
	FallbackFolder string
	FallbackTags   []string
}

type Gateway struct {
	api        ObjectAPI
	presign    PresignAPI
	settings   Settings
	configured bool

	docRetry RetryPolicy

	now func() time.Time
}

// New builds a gateway from the service configuration. Missing credentials
// do not fail construction: the gateway starts in a degraded mode where
// every remote call fails fast with ErrNotConfigured.
func New(ctx context.Context, cfg config.Config) (*Gateway, error) {
	settings := Settings{
		Bucket:         cfg.Bucket,
		Endpoint:       strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		Region:         cfg.Region,
		BaseFolder:     strings.Trim(cfg.BaseFolder, "/"),
		FallbackFolder: "fallback",
		FallbackTags:   []string{"fallback-upload"},
	}
	if settings.Region == "" {
		settings.Region = "us-east-1"
	}

	if !cfg.CredentialsPresent() {
		logging.Warnf("remote storage credentials missing (%s): uploads will fail fast",
			strings.Join(cfg.MissingCredentials(), ", "))
		return newGateway(nil, nil, settings, false), nil
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(settings.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	}
	if settings.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...any) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               settings.Endpoint,
					SigningRegion:     settings.Region,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOptions = append(loadOptions, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = settings.Endpoint != ""
	})
	return newGateway(client, s3.NewPresignClient(client), settings, true), nil
}

// NewWithClient wires an explicit client, used by tests and by the operator
// tool's connectivity checks.
func NewWithClient(api ObjectAPI, presign PresignAPI, settings Settings) *Gateway {
	return newGateway(api, presign, settings, api != nil)
}

func newGateway(api ObjectAPI, presign PresignAPI, settings Settings, configured bool) *Gateway {
	g := &Gateway{
		api:        api,
		presign:    presign,
		settings:   settings,
		configured: configured,
		now:        time.Now,
	}
	g.docRetry = RetryPolicy{
		MaxAttempts: 2,
		Fallback:    g.minimalFallback,
	}
	return g
}

// Configured reports whether remote calls can be attempted at all.
func (g *Gateway) Configured() bool {
	return g.configured
}

// UploadConfig is one concrete upload attempt: where the object goes and
// what it carries. The retry policy may rewrite it between attempts.
type UploadConfig struct {
	Key         string
	ContentType string
	Metadata    map[string]string
	Tags        []string
}

// UploadDocument stores a document as an opaque binary object. On a failed
// first attempt it makes exactly one fallback attempt with a minimal
// configuration and a fresh identifier before giving up.
func (g *Gateway) UploadDocument(ctx context.Context, buf []byte, filename string, opts UploadOptions) models.UploadResult {
	cfg := UploadConfig{
		Key:         g.objectKey(filename, opts, "documents"),
		ContentType: "application/octet-stream",
		Metadata:    contextMetadata(filename, opts),
		Tags:        opts.Tags,
	}
	return g.upload(ctx, buf, filename, cfg, models.ResourceRaw, g.docRetry)
}

// UploadMedia stores an image or video with transformation hints. Media
// uploads do not use the document fallback.
func (g *Gateway) UploadMedia(ctx context.Context, buf []byte, filename string, kind models.ResourceKind, opts UploadOptions) models.UploadResult {
	folder := "images"
	if kind == models.ResourceVideo {
		folder = "videos"
	}

	transforms := opts.Transformations
	if kind == models.ResourceImage {
		transforms = append(probeImageTransforms(buf), transforms...)
	}

	metadata := contextMetadata(filename, opts)
	if len(transforms) > 0 {
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata["transformations"] = strings.Join(transforms, ",")
	}

	cfg := UploadConfig{
		Key:         g.objectKey(filename, opts, folder),
		ContentType: mediaContentType(filename),
		Metadata:    metadata,
		Tags:        opts.Tags,
	}
	return g.upload(ctx, buf, filename, cfg, kind, RetryPolicy{MaxAttempts: 1})
}

func (g *Gateway) upload(ctx context.Context, buf []byte, filename string, cfg UploadConfig, kind models.ResourceKind, policy RetryPolicy) models.UploadResult {
	attemptedAt := g.now()
	if !g.configured {
		return failureResult(filename, int64(len(buf)), attemptedAt, ErrNotConfigured)
	}

	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := g.putObject(ctx, buf, cfg)
		if err == nil {
			desc := g.describe(cfg, kind, int64(len(buf)), out)
			return models.UploadResult{
				Success:     true,
				Remote:      &desc,
				Filename:    filename,
				Size:        int64(len(buf)),
				AttemptedAt: attemptedAt,
			}
		}
		lastErr = err
		logging.Warnf("upload attempt %d/%d for %s failed: %v (%s)",
			attempt, maxAttempts, filename, err, classifyError(err))

		if attempt < maxAttempts && policy.Fallback != nil {
			cfg = policy.Fallback(attempt, cfg)
		}
	}

	return failureResult(filename, int64(len(buf)), attemptedAt, lastErr)
}

func (g *Gateway) putObject(ctx context.Context, buf []byte, cfg UploadConfig) (*s3.PutObjectOutput, error) {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(g.settings.Bucket),
		Key:           aws.String(cfg.Key),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
	}
	if cfg.ContentType != "" {
		in.ContentType = aws.String(cfg.ContentType)
	}
	metadata := cfg.Metadata
	if len(cfg.Tags) > 0 {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["tags"] = strings.Join(cfg.Tags, ",")
	}
	if len(metadata) > 0 {
		in.Metadata = metadata
	}
	return g.api.PutObject(ctx, in)
}

func (g *Gateway) describe(cfg UploadConfig, kind models.ResourceKind, size int64, out *s3.PutObjectOutput) models.RemoteDescriptor {
	version := ""
	if out != nil && out.VersionId != nil {
		version = *out.VersionId
	}
	return models.RemoteDescriptor{
		ID:           cfg.Key,
		SecureURL:    g.secureURL(cfg.Key, version),
		URL:          g.objectURL("http", cfg.Key),
		Format:       keyFormat(cfg.Key),
		ResourceKind: kind,
		Bytes:        size,
		CreatedAt:    g.now(),
		Tags:         cfg.Tags,
	}
}

// Verify probes the remote store with a head request on a sentinel key. A
// not-found response proves bucket reachability and valid credentials; any
// other error is reported with its classification.
func (g *Gateway) Verify(ctx context.Context) error {
	if !g.configured {
		return ErrNotConfigured
	}
	_, err := g.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.settings.Bucket),
		Key:    aws.String(".assetstore-connectivity-probe"),
	})
	if err == nil || isNotFound(err) {
		return nil
	}
	return fmt.Errorf("remote check failed (%s): %w", classifyError(err), err)
}

// Delete removes a remote object. The delete only counts as successful when
// the remote API explicitly confirms the object is gone; an error-free
// delete call alone is not enough.
func (g *Gateway) Delete(ctx context.Context, remoteID string, kind models.ResourceKind) models.DeleteResult {
	if !g.configured {
		return models.DeleteResult{Success: false, Error: ErrNotConfigured.Error()}
	}
	if kind == "" {
		kind = models.ResourceAuto
	}

	_, err := g.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.settings.Bucket),
		Key:    aws.String(remoteID),
	})
	if err != nil {
		return models.DeleteResult{Success: false, Error: fmt.Sprintf("delete %s (%s): %v", remoteID, kind, err)}
	}

	_, err = g.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(g.settings.Bucket),
		Key:    aws.String(remoteID),
	})
	if err == nil {
		// The delete call returned cleanly but the object is still there.
		return models.DeleteResult{Success: false, Raw: "object still present after delete"}
	}
	if isNotFound(err) {
		return models.DeleteResult{Success: true, Raw: "ok"}
	}
	return models.DeleteResult{Success: false, Error: fmt.Sprintf("confirm delete %s: %v", remoteID, err)}
}

func failureResult(filename string, size int64, attemptedAt time.Time, err error) models.UploadResult {
	msg := "upload failed"
	if err != nil {
		msg = err.Error()
	}
	return models.UploadResult{
		Success:     false,
		Error:       msg,
		Filename:    filename,
		Size:        size,
		AttemptedAt: attemptedAt,
	}
}

func contextMetadata(filename string, opts UploadOptions) map[string]string {
	if len(opts.Context) == 0 {
		return map[string]string{"original-filename": filename}
	}
	metadata := make(map[string]string, len(opts.Context)+1)
	for k, v := range opts.Context {
		metadata[k] = v
	}
	metadata["original-filename"] = filename
	return metadata
}
