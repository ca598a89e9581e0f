package classifier

import (
	"path/filepath"
	"strings"

	"assetstore/internal/config"
	"assetstore/internal/models"
)

// Preset names downstream upload configuration per category.
type Preset struct {
	Name      string
	Folder    string
	MaxBytes  int64
	Transform bool
}

// Classification is the classifier's complete answer. It is always
// populated; unknown inputs fall back to document/raw.
type Classification struct {
	Category     models.FileCategory
	ResourceKind models.ResourceKind
	Preset       Preset
}

var (
	presetDocuments = Preset{Name: "documents", Folder: "documents", MaxBytes: config.MaxDocumentBytes}
	presetImages    = Preset{Name: "images", Folder: "images", MaxBytes: config.MaxImageBytes, Transform: true}
	presetVideos    = Preset{Name: "videos", Folder: "videos", MaxBytes: config.MaxVideoBytes, Transform: true}
	presetAvatars   = Preset{Name: "avatars", Folder: "avatars", MaxBytes: config.MaxImageBytes, Transform: true}
	presetCovers    = Preset{Name: "covers", Folder: "covers", MaxBytes: config.MaxImageBytes, Transform: true}
)

// Exact MIME membership, not pattern matching. Client-supplied MIME types
// are unreliable, so extension membership is the second tier.
var documentMimes = map[string]struct{}{
	"application/pdf": {}, "application/msword": {}, "application/rtf": {},
	"application/vnd.ms-excel": {}, "application/vnd.ms-powerpoint": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"text/plain": {}, "text/csv": {},
}

var imageMimes = map[string]struct{}{
	"image/jpeg":    {},
	"image/png":     {},
	"image/gif":     {},
	"image/webp":    {},
	"image/bmp":     {},
	"image/svg+xml": {},
}

var videoMimes = map[string]struct{}{
	"video/mp4":        {},
	"video/mpeg":       {},
	"video/quicktime":  {},
	"video/webm":       {},
	"video/x-msvideo":  {},
	"video/x-matroska": {},
}

var documentExts = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".ppt": {}, ".pptx": {}, ".txt": {}, ".csv": {}, ".rtf": {}, ".odt": {},
}

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".bmp": {}, ".svg": {},
}

var videoExts = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".webm": {},
	".mpeg": {}, ".mpg": {},
}

// Classify maps a filename and client-supplied MIME type to a category,
// remote resource kind and upload preset. It never fails: anything
// unrecognized is a document stored as raw binary.
func Classify(filename, mimeType string) Classification {
	mime := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.IndexByte(mime, ';'); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}

	if _, ok := imageMimes[mime]; ok {
		return imageClassification()
	}
	if _, ok := videoMimes[mime]; ok {
		return videoClassification()
	}
	if _, ok := documentMimes[mime]; ok {
		return documentClassification()
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := imageExts[ext]; ok {
		return imageClassification()
	}
	if _, ok := videoExts[ext]; ok {
		return videoClassification()
	}
	if _, ok := documentExts[ext]; ok {
		return documentClassification()
	}

	return documentClassification()
}

// ClassifyExtension is the extension-only variant used by the migration
// scanner, where no MIME type is available.
func ClassifyExtension(ext string) Classification {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if _, ok := imageExts[ext]; ok {
		return imageClassification()
	}
	if _, ok := videoExts[ext]; ok {
		return videoClassification()
	}
	return documentClassification()
}

// PresetByName resolves a preset override (for example routing an image
// into the avatars folder). Unknown names return false.
func PresetByName(name string) (Preset, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "documents":
		return presetDocuments, true
	case "images":
		return presetImages, true
	case "videos":
		return presetVideos, true
	case "avatars":
		return presetAvatars, true
	case "covers":
		return presetCovers, true
	default:
		return Preset{}, false
	}
}

// PresetForCategory returns the default preset for a category.
func PresetForCategory(category models.FileCategory) Preset {
	switch category {
	case models.CategoryImage:
		return presetImages
	case models.CategoryVideo:
		return presetVideos
	default:
		return presetDocuments
	}
}

func documentClassification() Classification {
	return Classification{
		Category:     models.CategoryDocument,
		ResourceKind: models.ResourceRaw,
		Preset:       presetDocuments,
	}
}

func imageClassification() Classification {
	return Classification{
		Category:     models.CategoryImage,
		ResourceKind: models.ResourceImage,
		Preset:       presetImages,
	}
}

func videoClassification() Classification {
	return Classification{
		Category:     models.CategoryVideo,
		ResourceKind: models.ResourceVideo,
		Preset:       presetVideos,
	}
}
