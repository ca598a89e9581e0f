package classifier

import (
	"testing"

	"assetstore/internal/models"
)

func TestClassifyMimeFirst(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		mime     string
		category models.FileCategory
		kind     models.ResourceKind
		preset   string
	}{
		{"pdf document", "resume.pdf", "application/pdf", models.CategoryDocument, models.ResourceRaw, "documents"},
		{"jpeg image", "photo.jpg", "image/jpeg", models.CategoryImage, models.ResourceImage, "images"},
		{"mp4 video", "clip.mp4", "video/mp4", models.CategoryVideo, models.ResourceVideo, "videos"},
		{"mime wins over extension", "weird.pdf", "image/png", models.CategoryImage, models.ResourceImage, "images"},
		{"mime with parameters", "notes.txt", "text/plain; charset=utf-8", models.CategoryDocument, models.ResourceRaw, "documents"},
		{"generic mime falls back to extension", "photo.png", "application/octet-stream", models.CategoryImage, models.ResourceImage, "images"},
		{"empty mime falls back to extension", "movie.mkv", "", models.CategoryVideo, models.ResourceVideo, "videos"},
		{"unknown everything defaults to document", "blob.xyz", "application/octet-stream", models.CategoryDocument, models.ResourceRaw, "documents"},
		{"extension-less name defaults to document", "README", "", models.CategoryDocument, models.ResourceRaw, "documents"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Classify(tc.filename, tc.mime)
			if c.Category != tc.category {
				t.Fatalf("category = %s, want %s", c.Category, tc.category)
			}
			if c.ResourceKind != tc.kind {
				t.Fatalf("resource kind = %s, want %s", c.ResourceKind, tc.kind)
			}
			if c.Preset.Name != tc.preset {
				t.Fatalf("preset = %s, want %s", c.Preset.Name, tc.preset)
			}
		})
	}
}

func TestClassifyTotality(t *testing.T) {
	// No (filename, mime) pair may yield an empty classification.
	inputs := []struct{ filename, mime string }{
		{"", ""},
		{".", "???"},
		{"no-extension", "not/a/real/mime"},
		{"trailing.", "application/x-unknown"},
		{"UPPER.JPG", ""},
	}
	for _, in := range inputs {
		c := Classify(in.filename, in.mime)
		if !c.Category.Valid() {
			t.Fatalf("Classify(%q, %q) returned invalid category %q", in.filename, in.mime, c.Category)
		}
		if c.Preset.Name == "" || c.Preset.MaxBytes <= 0 {
			t.Fatalf("Classify(%q, %q) returned empty preset", in.filename, in.mime)
		}
	}
}

func TestClassifyExtension(t *testing.T) {
	if c := ClassifyExtension("jpg"); c.Category != models.CategoryImage {
		t.Fatalf("jpg = %s, want image", c.Category)
	}
	if c := ClassifyExtension(".MOV"); c.Category != models.CategoryVideo {
		t.Fatalf(".MOV = %s, want video", c.Category)
	}
	if c := ClassifyExtension(""); c.Category != models.CategoryDocument {
		t.Fatalf("empty = %s, want document", c.Category)
	}
}

func TestPresetByName(t *testing.T) {
	p, ok := PresetByName("avatars")
	if !ok {
		t.Fatal("avatars preset missing")
	}
	if p.Folder != "avatars" || !p.Transform {
		t.Fatalf("unexpected avatars preset: %+v", p)
	}
	if _, ok := PresetByName("bogus"); ok {
		t.Fatal("bogus preset should not resolve")
	}
}
