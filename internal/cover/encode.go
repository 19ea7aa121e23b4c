package cover

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/varoOP/backlogdb/internal/httpx"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxEdge     = 800
	JPEGQuality = 40
)

// Fetcher downloads a candidate and returns it as a self-contained data URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher downloads images and re-encodes them as small JPEG data URLs
type HTTPFetcher struct {
	http *httpx.Client
}

func NewHTTPFetcher(hc *httpx.Client) *HTTPFetcher {
	return &HTTPFetcher{http: hc}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.http.Do(ctx, http.MethodGet, url, http.Header{"Accept": {"image/*"}}, nil)
	if err != nil {
		return "", errors.Wrap(err, "could not download image")
	}

	return Encode(resp.Body)
}

// Encode decodes data, scales it so the longer edge is at most MaxEdge and returns a JPEG data URL
func Encode(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", errors.Errorf("not an image: %s", mt.String())
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrapf(err, "could not decode %s", mt.String())
	}

	img := Downscale(src, MaxEdge)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", errors.Wrap(err, "could not encode jpeg")
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Downscale preserves the aspect ratio, images already within maxEdge are returned as is
func Downscale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxEdge && h <= maxEdge {
		return src
	}

	nw, nh := maxEdge, maxEdge
	if w > h {
		nh = max(1, h*maxEdge/w)
	} else {
		nw = max(1, w*maxEdge/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
