package cover

import (
	"image"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/varoOP/backlogdb/internal/domain"
)

var sanitizer = strings.NewReplacer(
	":", "",
	"/", "", "*", "", "?", "", `"`, "", "<", "", ">", "", "|", "",
	"®", "",
	"™", "",
	"’", "'",
)

// Sanitize turns an entry name into the file name used for static covers
func Sanitize(name string) string {
	return strings.TrimSpace(sanitizer.Replace(name))
}

// LocalImages looks up hand-picked covers stored as {root}/{kind}/{sanitized name}.jpg
type LocalImages struct {
	fs     afero.Fs
	root   string
	prefix string
}

// NewLocalImages serves files under root, references are returned below urlPrefix
func NewLocalImages(fs afero.Fs, root, urlPrefix string) *LocalImages {
	if urlPrefix == "" {
		urlPrefix = "/images"
	}
	return &LocalImages{fs: fs, root: root, prefix: strings.TrimRight(urlPrefix, "/")}
}

// Lookup reports the static reference of the cover when the file opens and decodes as an image
func (l *LocalImages) Lookup(kind domain.Kind, name string) (string, bool) {
	file := Sanitize(name) + ".jpg"
	if file == ".jpg" {
		return "", false
	}

	f, err := l.fs.Open(filepath.Join(l.root, kind.Table(), file))
	if err != nil {
		return "", false
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return "", false
	}

	return path.Join(l.prefix, kind.Table(), file), true
}
