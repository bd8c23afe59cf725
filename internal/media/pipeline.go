package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"slices"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp" // register the webp decoder for image.Decode

	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/models"
)

const (
	formatJPEG = "jpeg"
	formatPNG  = "png"
	formatWebP = "webp"

	mimeWebP = "image/webp"

	defaultQuality  = 82
	defaultMaxBytes = 10 << 20
)

var (
	// ErrTooLarge is returned for uploads above Upload.MaxBytes.
	ErrTooLarge = errors.New("upload is too large")
	// ErrUnsupportedType is returned when the sniffed content type is not an accepted image type.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrEmpty is returned for an empty upload.
	ErrEmpty = errors.New("upload is empty")
)

// acceptedTypes maps accepted content types to the format the original is stored in.
var acceptedTypes = map[string]string{
	"image/jpeg": formatJPEG,
	"image/png":  formatPNG,
	"image/gif":  formatPNG,
	mimeWebP:     formatPNG,
}

// Pipeline decodes uploaded images, renders the configured variants and stores them.
type Pipeline struct {
	storage  Storage
	widths   []int
	quality  int
	maxBytes int64
	now      func() time.Time
}

// NewPipeline creates a Pipeline from the Upload config.
func NewPipeline(storage Storage, cfg config.Upload) *Pipeline {
	widths := slices.Clone(cfg.Widths)
	slices.Sort(widths)
	widths = slices.Compact(widths)

	p := &Pipeline{
		storage:  storage,
		widths:   widths,
		quality:  cfg.Quality,
		maxBytes: cfg.MaxBytes,
		now:      time.Now,
	}

	if p.quality <= 0 || p.quality > 100 {
		p.quality = defaultQuality
	}

	if p.maxBytes <= 0 {
		p.maxBytes = defaultMaxBytes
	}

	return p
}

// MaxBytes returns the largest accepted upload.
func (p *Pipeline) MaxBytes() int64 {
	return p.maxBytes
}

type rendition struct {
	key         string
	contentType string
	data        []byte
	variant     models.MediaVariant
}

// Process validates and decodes data, renders the original, a full size WebP and one
// WebP per configured width smaller than the image, and stores everything.
// The returned Media is not persisted.
func (p *Pipeline) Process(ctx context.Context, originalName string, data []byte) (*models.Media, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	mtype := mimetype.Detect(data)

	format, ok := acceptedTypes[mtype.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	base := p.now().UTC().Format("2006/01/") + uuid.NewString()

	renditions, err := p.render(img, base, format)
	if err != nil {
		return nil, err
	}

	stored := make([]string, 0, len(renditions))
	media := &models.Media{
		OriginalName: originalName,
		ContentType:  mtype.String(),
		Width:        bounds.Dx(),
		Height:       bounds.Dy(),
	}

	for i := range renditions {
		r := &renditions[i]

		url, errPut := p.storage.Put(ctx, r.key, r.contentType, bytes.NewReader(r.data), int64(len(r.data)))
		if errPut != nil {
			p.cleanup(ctx, stored)

			return nil, errPut
		}

		stored = append(stored, r.key)

		if i == 0 {
			media.Key = r.key
			media.URL = url
			media.ContentType = r.contentType

			continue
		}

		r.variant.URL = url
		media.Variants = append(media.Variants, r.variant)
	}

	return media, nil
}

// render encodes the original first, followed by the full size WebP and the resized variants.
func (p *Pipeline) render(img image.Image, base, format string) ([]rendition, error) {
	bounds := img.Bounds()

	var buf bytes.Buffer

	original := rendition{}

	switch format {
	case formatJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}

		original.key = base + ".jpg"
		original.contentType = "image/jpeg"
	default:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}

		original.key = base + ".png"
		original.contentType = "image/png"
	}

	original.data = buf.Bytes()

	out := []rendition{original}

	full, err := encodeWebP(img)
	if err != nil {
		return nil, err
	}

	out = append(out, rendition{
		key:         base + ".webp",
		contentType: mimeWebP,
		data:        full,
		variant:     webpVariant(base+".webp", bounds.Dx(), bounds.Dy(), full),
	})

	for _, width := range p.widths {
		// never upscale
		if width >= bounds.Dx() {
			continue
		}

		resized := imaging.Resize(img, width, 0, imaging.Lanczos)

		data, errEnc := encodeWebP(resized)
		if errEnc != nil {
			return nil, errEnc
		}

		key := fmt.Sprintf("%s-%d.webp", base, width)

		out = append(out, rendition{
			key:         key,
			contentType: mimeWebP,
			data:        data,
			variant:     webpVariant(key, resized.Bounds().Dx(), resized.Bounds().Dy(), data),
		})
	}

	return out, nil
}

func webpVariant(key string, width, height int, data []byte) models.MediaVariant {
	return models.MediaVariant{
		Width:  width,
		Height: height,
		Format: formatWebP,
		Key:    key,
		Size:   int64(len(data)),
	}
}

func encodeWebP(img image.Image) ([]byte, error) {
	var buf bytes.Buffer

	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}

	return buf.Bytes(), nil
}

func (p *Pipeline) cleanup(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := p.storage.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to remove partial upload")
		}
	}
}

// Remove deletes every stored object of m. All objects are attempted, the first error is returned.
func (p *Pipeline) Remove(ctx context.Context, m *models.Media) error {
	keys := []string{m.Key}
	for _, v := range m.Variants {
		keys = append(keys, v.Key)
	}

	var firstErr error

	for _, key := range keys {
		if key == "" {
			continue
		}

		if err := p.storage.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
