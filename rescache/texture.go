package rescache

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/image/bmp"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/resource"
	"github.com/Shanyu-Yun/RenderV2/transfer"
)

// TextureHandle is an uploaded 2D LDR texture, sampled-image ready.
type TextureHandle struct {
	DebugName string
	Image     *resource.ManagedImage
	Width     int
	Height    int
}

// Destroy releases the underlying image and its view. Safe to call more
// than once.
func (h *TextureHandle) Destroy() {
	if h == nil {
		return
	}
	h.Image.Destroy()
}

// TextureCache loads image files (decoded via imaging.Decode, plus the
// package's own Radiance .hdr, NetPBM and .bmp paths) and uploads them
// as RGBA8 sampled images, deduplicated by normalized path.
type TextureCache struct {
	alloc  *resource.Allocator
	worker *transfer.Worker
	cache  *entryCache[*TextureHandle]
}

// NewTextureCache creates a texture cache that uploads through worker,
// using alloc to create the device-local image.
func NewTextureCache(alloc *resource.Allocator, worker *transfer.Worker) *TextureCache {
	return &TextureCache{alloc: alloc, worker: worker, cache: newEntryCache[*TextureHandle]()}
}

// Upload uploads raw pixel data already decoded to RGBA8, under
// debugName, without touching the cache's id-keyed map. Used for
// procedural textures such as the default white texture.
func (c *TextureCache) Upload(debugName string, rgba *image.NRGBA) (*TextureHandle, error) {
	return c.upload(debugName, rgba)
}

// Load loads, decodes, and uploads the image file at path, returning the
// cached handle if already loaded.
func (c *TextureCache) Load(path string) (*TextureHandle, error) {
	id, err := normalize(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "normalizing texture path", err)
	}
	return c.cache.loadSync(id, func() (*TextureHandle, error) {
		rgba, err := decodeImageFile(id)
		if err != nil {
			return nil, err
		}
		return c.upload(id, rgba)
	})
}

// LoadAsync behaves like Load but returns immediately; the result is
// published on the returned channel once the load (and upload) completes.
func (c *TextureCache) LoadAsync(path string) <-chan loadResult[*TextureHandle] {
	id, err := normalize(path)
	if err != nil {
		ch := make(chan loadResult[*TextureHandle], 1)
		ch <- loadResult[*TextureHandle]{id: path, err: ferrors.Wrap(ferrors.FileSystem, prefix, "normalizing texture path", err)}
		close(ch)
		return ch
	}
	return c.cache.loadAsync(id, func() (*TextureHandle, error) {
		rgba, err := decodeImageFile(id)
		if err != nil {
			return nil, err
		}
		return c.upload(id, rgba)
	})
}

// Unload evicts the entry at path, reporting whether one was present.
func (c *TextureCache) Unload(path string) bool {
	id, err := normalize(path)
	if err != nil {
		return false
	}
	return c.cache.unload(id)
}

func (c *TextureCache) upload(debugName string, rgba *image.NRGBA) (*TextureHandle, error) {
	bounds := rgba.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 1 || h < 1 {
		return nil, ferrors.New(ferrors.InvalidArgument, prefix, "texture has zero extent")
	}

	img, err := c.alloc.CreateImage(resource.ImageDesc{
		Extent:      resource.Extent3D{Width: w, Height: h, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Format:      vk.FormatR8g8b8a8Unorm,
		Samples:     1,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       resource.UsageSampled | resource.UsageTransferDst,
	}, resource.AspectColor)
	if err != nil {
		return nil, err
	}

	tok, err := c.worker.UploadToImage(img, rgba.Pix, vk.ImageAspectFlags(vk.ImageAspectColorBit), 0, 0, 1, vk.ImageLayoutShaderReadOnlyOptimal)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	if err := tok.Wait(0); err != nil {
		img.Destroy()
		return nil, err
	}
	tok.Release()

	return &TextureHandle{DebugName: debugName, Image: img, Width: w, Height: h}, nil
}

func decodeImageFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "opening texture file "+path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdr":
		return decodeRadianceHDR(f)
	case ".pnm", ".pbm", ".pgm", ".ppm":
		return decodePNM(f)
	case ".bmp":
		img, err := bmp.Decode(f)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "decoding bmp texture "+path, err)
		}
		return imaging.Clone(img), nil
	default:
		img, err := imaging.Decode(f)
		if err != nil {
			return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "decoding texture "+path, err)
		}
		return imaging.Clone(img), nil
	}
}

// whiteTexture returns a 4x4 solid opaque white NRGBA image, the raw
// pixel source for the cache's default_white resource.
func whiteTexture() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, white)
		}
	}
	return img
}
