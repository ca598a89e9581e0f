package gateway

import (
	"fmt"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
)

const maxBaseNameLen = 60

// objectKey builds the remote identifier for an upload. Original filenames
// are never reused verbatim: the key is a cleaned base name plus a
// timestamp and a random suffix, which avoids collisions and unsafe
// characters.
func (g *Gateway) objectKey(filename string, opts UploadOptions, defaultFolder string) string {
	folder := strings.Trim(opts.Folder, "/")
	if folder == "" {
		folder = defaultFolder
	}
	if g.settings.BaseFolder != "" {
		folder = g.settings.BaseFolder + "/" + folder
	}
	return folder + "/" + g.freshIdentifier(filename)
}

func (g *Gateway) freshIdentifier(filename string) string {
	base := cleanBaseName(filename)
	id := fmt.Sprintf("%s_%d_%s", base, g.now().Unix(), randomSuffix())
	if ext := cleanExtension(filename); ext != "" {
		id += ext
	}
	return id
}

func cleanExtension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || ext == "." {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func cleanBaseName(filename string) string {
	base := path.Base(filename)
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	base = strings.ToLower(base)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	cleaned := strings.Trim(b.String(), "_")
	if cleaned == "" {
		cleaned = "file"
	}
	if len(cleaned) > maxBaseNameLen {
		cleaned = cleaned[:maxBaseNameLen]
	}
	return cleaned
}

func randomSuffix() string {
	id := ulid.Make().String()
	// The tail of a ULID is its entropy; eight characters are plenty next
	// to the unix timestamp already in the key.
	return strings.ToLower(id[len(id)-8:])
}

func keyFormat(key string) string {
	ext := path.Ext(key)
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}
