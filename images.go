package pubcorpus

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 80

// downscale decodes an image from src and, when it is wider than maxWidth,
// resizes it proportionally. The result is always JPEG encoded.
func downscale(src io.Reader, maxWidth int) ([]byte, image.Point, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxWidth > 0 && w > maxWidth {
		newH := h * maxWidth / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = maxWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), image.Point{X: w, Y: h}, nil
}

// handleMedia serves an image stored next to a post's entry file.
// Raster images are downscaled to MaxImageWidth; SVGs are served as is.
func (a *App) handleMedia(c echo.Context) error {
	file := c.Param("file")
	if file == "" || strings.ContainsAny(file, `/\`) || strings.HasPrefix(file, ".") {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	post, err := a.Cache.GetPost(c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}

	name := path.Join(post.Dir, file)
	f, err := a.contentFS.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	defer f.Close()

	if strings.EqualFold(path.Ext(file), ".svg") {
		return c.Stream(http.StatusOK, "image/svg+xml", f)
	}

	data, size, err := downscale(f, a.Config.MaxImageWidth)
	if err != nil {
		a.Log.WithError(err).WithField("file", name).Warn("media: not an image")
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "not an image")
	}
	a.Log.WithField("file", name).Debugf("media: served %dx%d", size.X, size.Y)
	return c.Blob(http.StatusOK, "image/jpeg", data)
}
