package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"assetstore/internal/models"
)

type fakeRemote struct {
	putKeys    []string
	putErrs    []error
	deleted    []string
	deleteErr  error
	headErr    error
	presignErr error
}

func (f *fakeRemote) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.putKeys = append(f.putKeys, *in.Key)
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeRemote) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeRemote) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeRemote) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.presignErr != nil {
		return nil, f.presignErr
	}
	url := "https://signed.example/" + *in.Key
	if in.ResponseContentDisposition != nil {
		url += "?response-content-disposition=" + *in.ResponseContentDisposition
	}
	return &v4.PresignedHTTPRequest{URL: url}, nil
}

func testSettings() Settings {
	return Settings{
		Bucket:         "assets",
		Region:         "us-east-1",
		BaseFolder:     "uploads",
		FallbackFolder: "fallback",
		FallbackTags:   []string{"fallback-upload"},
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	remote := &fakeRemote{}
	g := NewWithClient(remote, remote, testSettings())

	res := g.UploadDocument(context.Background(), []byte("hello pdf"), "resume.pdf", UploadOptions{})
	if !res.Success {
		t.Fatalf("upload failed: %s", res.Error)
	}
	if res.Remote == nil {
		t.Fatal("missing remote descriptor")
	}
	if res.Remote.ResourceKind != models.ResourceRaw {
		t.Fatalf("resource kind = %s, want raw", res.Remote.ResourceKind)
	}
	if res.Remote.Bytes != int64(len("hello pdf")) {
		t.Fatalf("bytes = %d", res.Remote.Bytes)
	}
	if !strings.HasPrefix(res.Remote.ID, "uploads/documents/resume_") {
		t.Fatalf("unexpected identifier %q", res.Remote.ID)
	}
	if strings.Contains(res.Remote.ID, "resume.pdf") {
		t.Fatalf("identifier %q reuses the original filename", res.Remote.ID)
	}
	if !strings.HasSuffix(res.Remote.ID, ".pdf") {
		t.Fatalf("identifier %q lost the extension", res.Remote.ID)
	}
	if len(remote.putKeys) != 1 {
		t.Fatalf("expected 1 put, got %d", len(remote.putKeys))
	}
}

func TestUploadDocumentFallbackExactlyOnce(t *testing.T) {
	remote := &fakeRemote{putErrs: []error{errors.New("preset rejected")}}
	g := NewWithClient(remote, remote, testSettings())

	res := g.UploadDocument(context.Background(), []byte("data"), "contract.pdf", UploadOptions{})
	if !res.Success {
		t.Fatalf("fallback should have succeeded: %s", res.Error)
	}
	if len(remote.putKeys) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(remote.putKeys))
	}
	if remote.putKeys[0] == remote.putKeys[1] {
		t.Fatalf("fallback reused identifier %q", remote.putKeys[0])
	}
	// Same folder root, fresh identifier.
	dir := func(key string) string { return key[:strings.LastIndex(key, "/")] }
	if dir(remote.putKeys[0]) != dir(remote.putKeys[1]) {
		t.Fatalf("fallback changed folder: %q vs %q", remote.putKeys[0], remote.putKeys[1])
	}
}

func TestUploadDocumentBothAttemptsFail(t *testing.T) {
	remote := &fakeRemote{putErrs: []error{errors.New("boom"), errors.New("boom again")}}
	g := NewWithClient(remote, remote, testSettings())

	res := g.UploadDocument(context.Background(), []byte("data"), "contract.pdf", UploadOptions{})
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Error == "" || res.Filename != "contract.pdf" || res.Size != 4 {
		t.Fatalf("diagnostics incomplete: %+v", res)
	}
	if len(remote.putKeys) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", len(remote.putKeys))
	}
}

func TestUploadMediaNoFallback(t *testing.T) {
	remote := &fakeRemote{putErrs: []error{errors.New("boom")}}
	g := NewWithClient(remote, remote, testSettings())

	res := g.UploadMedia(context.Background(), []byte("not an image"), "photo.jpg", models.ResourceImage, UploadOptions{})
	if res.Success {
		t.Fatal("expected failure result")
	}
	if len(remote.putKeys) != 1 {
		t.Fatalf("media path must not retry, got %d attempts", len(remote.putKeys))
	}
}

func TestUploadNotConfigured(t *testing.T) {
	g := NewWithClient(nil, nil, testSettings())
	res := g.UploadDocument(context.Background(), []byte("x"), "a.pdf", UploadOptions{})
	if res.Success {
		t.Fatal("unconfigured gateway must fail")
	}
	if !strings.Contains(res.Error, "not configured") {
		t.Fatalf("error %q should name the missing configuration", res.Error)
	}
}

func TestDeleteRequiresExplicitConfirmation(t *testing.T) {
	// Head reports the object gone: success.
	remote := &fakeRemote{headErr: &types.NotFound{}}
	g := NewWithClient(remote, remote, testSettings())
	res := g.Delete(context.Background(), "uploads/documents/x.pdf", models.ResourceRaw)
	if !res.Success || res.Raw != "ok" {
		t.Fatalf("expected confirmed delete, got %+v", res)
	}

	// Head still sees the object: the delete did not take, even though the
	// delete call itself returned no error.
	remote = &fakeRemote{}
	g = NewWithClient(remote, remote, testSettings())
	res = g.Delete(context.Background(), "uploads/documents/x.pdf", "")
	if res.Success {
		t.Fatalf("delete without confirmation must fail: %+v", res)
	}
}

func TestDownloadURLForcesAttachment(t *testing.T) {
	remote := &fakeRemote{headErr: &types.NotFound{}}
	g := NewWithClient(remote, remote, testSettings())

	desc := &models.RemoteDescriptor{ID: "uploads/documents/x.pdf", SecureURL: "https://assets.example/x.pdf"}
	u := g.DownloadURL(context.Background(), desc, "quarterly report.pdf")
	if !strings.Contains(u, "attachment") {
		t.Fatalf("download url %q does not force attachment", u)
	}
	if !strings.Contains(u, "quarterly") {
		t.Fatalf("download url %q lost the filename", u)
	}

	// Presign failure degrades to the secure URL with a filename parameter.
	remote.presignErr = errors.New("presign down")
	u = g.DownloadURL(context.Background(), desc, "report.pdf")
	if !strings.HasPrefix(u, desc.SecureURL) || !strings.Contains(u, "filename=") {
		t.Fatalf("degraded download url %q", u)
	}
}

func TestViewURLPrefersStoredSecureURL(t *testing.T) {
	remote := &fakeRemote{}
	g := NewWithClient(remote, remote, testSettings())

	withSecure := &models.RemoteDescriptor{
		ID:        "uploads/images/pic.png",
		SecureURL: "https://assets.s3.us-east-1.amazonaws.com/uploads/images/pic.png?versionId=v1",
	}
	if got := g.ViewURL(withSecure); got != withSecure.SecureURL {
		t.Fatalf("view url = %q, want stored secure url", got)
	}

	bare := &models.RemoteDescriptor{ID: "uploads/images/pic.png"}
	if got := g.ViewURL(bare); !strings.HasPrefix(got, "https://") || !strings.Contains(got, "pic.png") {
		t.Fatalf("reconstructed view url = %q", got)
	}
}

func TestCleanBaseName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"resume.pdf", "resume"},
		{"My Resume (final) v2.PDF", "my_resume_final_v2"},
		{"../../etc/passwd", "passwd"},
		{"???.jpg", "file"},
		{strings.Repeat("a", 100) + ".txt", strings.Repeat("a", 60)},
	}
	for _, tc := range tests {
		if got := cleanBaseName(tc.in); got != tc.want {
			t.Fatalf("cleanBaseName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
