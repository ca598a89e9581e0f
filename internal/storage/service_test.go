package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"assetstore/internal/db"
	"assetstore/internal/events"
	"assetstore/internal/gateway"
	"assetstore/internal/metrics"
	"assetstore/internal/mirror"
	"assetstore/internal/models"
	"assetstore/internal/stats"
	"assetstore/internal/store"
)

type fakeRemote struct {
	objects map[string][]byte
	putErrs []error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: make(map[string][]byte)}
}

func (f *fakeRemote) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if len(f.putErrs) > 0 {
		err := f.putErrs[0]
		f.putErrs = f.putErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	var data []byte
	if in.Body != nil {
		var err error
		data, err = io.ReadAll(in.Body)
		if err != nil {
			return nil, err
		}
	}
	f.objects[*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeRemote) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeRemote) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; ok {
		return &s3.HeadObjectOutput{}, nil
	}
	return nil, &types.NotFound{}
}

func (f *fakeRemote) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	url := "https://signed.example/" + *in.Key
	if in.ResponseContentDisposition != nil {
		url += "?response-content-disposition=" + *in.ResponseContentDisposition
	}
	return &v4.PresignedHTTPRequest{URL: url}, nil
}

type testEnv struct {
	svc    *Service
	remote *fakeRemote
	root   string
}

func newTestService(t *testing.T, backupsDisabled bool) testEnv {
	t.Helper()
	root := t.TempDir()

	gormDB, err := db.Open(db.Config{
		Backend:    db.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "ledger.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	st := store.New(gormDB)
	t.Cleanup(func() { _ = st.Close() })

	remote := newFakeRemote()
	gw := gateway.NewWithClient(remote, remote, gateway.Settings{
		Bucket:         "assets",
		Region:         "us-east-1",
		FallbackFolder: "fallback",
		FallbackTags:   []string{"fallback-upload"},
	})

	m := metrics.New()
	tracker, err := stats.New(context.Background(), st, m)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(tracker.Close)

	mir := mirror.New(root, backupsDisabled, st)
	svc := New(gw, mir, tracker, m, events.NewHub())
	return testEnv{svc: svc, remote: remote, root: root}
}

func TestUploadRoundTrip(t *testing.T) {
	env := newTestService(t, false)
	ctx := context.Background()

	buf := make([]byte, 2000)
	res := env.svc.Upload(ctx, buf, "resume.pdf", Options{MimeType: "application/pdf"})
	if !res.Success {
		t.Fatalf("upload failed: %s", res.Error)
	}
	if res.Remote.ResourceKind != models.ResourceRaw {
		t.Fatalf("resource kind = %s, want raw", res.Remote.ResourceKind)
	}
	if !res.BackupCreated || res.Backup == nil {
		t.Fatalf("expected backup, got %+v", res)
	}
	if filepath.Dir(res.Backup.Path) != filepath.Join(env.root, "documents") {
		t.Fatalf("backup path %q not under documents/", res.Backup.Path)
	}
	if res.DownloadURL == "" || !strings.Contains(res.DownloadURL, "attachment") {
		t.Fatalf("download url %q", res.DownloadURL)
	}

	rec, err := env.svc.Lookup(ctx, res.Remote.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec == nil || rec.Size != int64(len(buf)) {
		t.Fatalf("round trip record = %+v", rec)
	}

	snap := env.svc.Statistics()
	if snap.Total != 1 || snap.Successful != 1 || snap.Failed != 0 {
		t.Fatalf("stats = %d/%d/%d", snap.Total, snap.Successful, snap.Failed)
	}
	docs := snap.Categories[models.CategoryDocument]
	if docs.Count != 1 || docs.Bytes != 2000 {
		t.Fatalf("document stats = %+v", docs)
	}
}

func TestUploadRemoteFailureSkipsBackup(t *testing.T) {
	env := newTestService(t, false)
	// Both the primary and the fallback attempt fail.
	env.remote.putErrs = []error{errors.New("boom"), errors.New("boom")}

	res := env.svc.Upload(context.Background(), []byte("x"), "a.pdf", Options{})
	if res.Success {
		t.Fatal("expected failure")
	}
	entries, _ := os.ReadDir(filepath.Join(env.root, "documents"))
	if len(entries) != 0 {
		t.Fatalf("no backup expected after remote failure, found %d files", len(entries))
	}
	snap := env.svc.Statistics()
	if snap.Total != 1 || snap.Failed != 1 {
		t.Fatalf("stats = %+v", snap)
	}
}

func TestUploadBackupFailureDoesNotMaskSuccess(t *testing.T) {
	env := newTestService(t, false)
	// Occupy the documents path with a file so the mirror cannot create
	// its directory.
	if err := os.WriteFile(filepath.Join(env.root, "documents"), []byte("in the way"), 0o644); err != nil {
		t.Fatalf("prep: %v", err)
	}

	res := env.svc.Upload(context.Background(), []byte("data"), "a.pdf", Options{})
	if !res.Success {
		t.Fatalf("upload should succeed despite backup failure: %s", res.Error)
	}
	if res.BackupCreated || res.Backup != nil {
		t.Fatalf("backupCreated should be false: %+v", res)
	}

	// The ledger entry still exists; the remote copy is authoritative.
	rec, err := env.svc.Lookup(context.Background(), res.Remote.ID)
	if err != nil || rec == nil {
		t.Fatalf("lookup after backup failure: rec=%v err=%v", rec, err)
	}
	if rec.BackupPath != "" {
		t.Fatalf("record should have no backup path, got %q", rec.BackupPath)
	}
}

func TestUploadBackupsDisabledReportsSkip(t *testing.T) {
	env := newTestService(t, true)
	res := env.svc.Upload(context.Background(), []byte("data"), "a.pdf", Options{})
	if !res.Success {
		t.Fatalf("upload failed: %s", res.Error)
	}
	if res.BackupCreated {
		t.Fatal("skipped backup must not count as created")
	}
}

func TestUploadSizeLimit(t *testing.T) {
	env := newTestService(t, false)
	big := make([]byte, 21<<20) // over the image cap
	res := env.svc.Upload(context.Background(), big, "huge.png", Options{MimeType: "image/png"})
	if res.Success {
		t.Fatal("expected size limit rejection")
	}
	if !strings.Contains(res.Error, "size limit") {
		t.Fatalf("error = %q", res.Error)
	}
	if len(env.remote.objects) != 0 {
		t.Fatal("nothing should reach the remote")
	}
}

func TestPresetOverrideRoutesAvatars(t *testing.T) {
	env := newTestService(t, false)
	res := env.svc.Upload(context.Background(), []byte("imgdata"), "me.png", Options{
		MimeType:       "image/png",
		PresetOverride: "avatars",
	})
	if !res.Success {
		t.Fatalf("upload failed: %s", res.Error)
	}
	if !strings.HasPrefix(res.Remote.ID, "avatars/") {
		t.Fatalf("remote id %q not under avatars/", res.Remote.ID)
	}
	if filepath.Dir(res.Backup.Path) != filepath.Join(env.root, "avatars") {
		t.Fatalf("backup %q not under avatars/", res.Backup.Path)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	env := newTestService(t, false)
	ctx := context.Background()

	res := env.svc.Upload(ctx, []byte("data"), "a.pdf", Options{})
	if !res.Success {
		t.Fatalf("upload: %s", res.Error)
	}
	id := res.Remote.ID

	del := env.svc.Delete(ctx, id)
	if !del.Success {
		t.Fatalf("delete failed: %+v", del)
	}
	if rec, _ := env.svc.Lookup(ctx, id); rec != nil {
		t.Fatalf("ledger entry survived delete: %+v", rec)
	}
	if _, err := os.Stat(res.Backup.Path); !os.IsNotExist(err) {
		t.Fatalf("backup survived delete")
	}

	// Deleting again (or deleting a never-existing id) still succeeds and
	// leaves no ledger entry.
	del = env.svc.Delete(ctx, id)
	if !del.Success {
		t.Fatalf("repeat delete failed: %+v", del)
	}
	del = env.svc.Delete(ctx, "never/existed.bin")
	if !del.Success {
		t.Fatalf("delete of unknown id failed: %+v", del)
	}
}

func TestListFiltersByCategory(t *testing.T) {
	env := newTestService(t, false)
	ctx := context.Background()

	env.svc.Upload(ctx, []byte("a"), "a.pdf", Options{MimeType: "application/pdf"})
	env.svc.Upload(ctx, []byte("b"), "b.jpg", Options{MimeType: "image/jpeg"})

	imageCat := models.CategoryImage
	images, err := env.svc.List(ctx, store.FileFilter{Category: &imageCat})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(images) != 1 || images[0].OriginalName != "b.jpg" {
		t.Fatalf("images = %+v", images)
	}
}
