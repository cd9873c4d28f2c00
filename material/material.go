// Package material loads PBR material descriptors from JSON, resolving
// texture references against the resource cache.
package material

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Shanyu-Yun/RenderV2/ferrors"
	"github.com/Shanyu-Yun/RenderV2/rescache"
)

const prefix = "material: "

// AlphaMode selects the blend behavior a material's alpha channel drives.
type AlphaMode int

const (
	// Opaque ignores alpha entirely. The zero value and the fallback for
	// any unrecognized or absent mode string.
	Opaque AlphaMode = iota
	// Mask discards fragments below Cutoff.
	Mask
	// Blend composites using alpha as a blend factor.
	Blend
)

func (m AlphaMode) String() string {
	switch m {
	case Mask:
		return "Mask"
	case Blend:
		return "Blend"
	default:
		return "Opaque"
	}
}

func parseAlphaMode(s string) AlphaMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mask":
		return Mask
	case "blend":
		return Blend
	default:
		return Opaque
	}
}

// Textures holds the resource-cache ids of a material's texture slots,
// empty when a slot is not present in the descriptor.
type Textures struct {
	BaseColor string
	Metallic  string
	Roughness string
	Normal    string
	Occlusion string
	Emissive  string
}

// Factors holds the scalar/vector PBR inputs carried alongside textures.
type Factors struct {
	BaseColor   [4]float32
	Metallic    float32
	Roughness   float32
	Emissive    [3]float32
	NormalScale float32
}

// Alpha holds alpha-test/blend configuration.
type Alpha struct {
	Mode        AlphaMode
	Cutoff      float32
	DoubleSided bool
}

// Optical holds refraction-related material properties.
type Optical struct {
	RefractionIndex float32
}

// PBRMaterial is a fully resolved material: texture slots hold resource
// cache ids (eagerly loaded), not raw paths.
type PBRMaterial struct {
	Name     string
	Domain   string
	Textures Textures
	Factors  Factors
	Alpha    Alpha
	Optical  Optical
}

// descriptor mirrors the on-disk JSON schema exactly; every field is
// optional and left at its zero value when absent.
type descriptor struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Textures struct {
		BaseColor string `json:"baseColor"`
		Metallic  string `json:"metallic"`
		Roughness string `json:"roughness"`
		Normal    string `json:"normal"`
		Occlusion string `json:"occlusion"`
		Emissive  string `json:"emissive"`
	} `json:"textures"`
	Factors struct {
		BaseColor   *[4]float32 `json:"baseColor"`
		Metallic    *float32    `json:"metallic"`
		Roughness   *float32    `json:"roughness"`
		Emissive    *[3]float32 `json:"emissive"`
		NormalScale *float32    `json:"normalScale"`
	} `json:"factors"`
	Alpha struct {
		Mode        string   `json:"mode"`
		Cutoff      *float32 `json:"cutoff"`
		DoubleSided bool     `json:"doubleSided"`
	} `json:"alpha"`
	Optical struct {
		RefractionIndex *float32 `json:"refractionIndex"`
	} `json:"optical"`
}

// Load reads and parses the material descriptor at path, resolving and
// eagerly loading each referenced texture (relative to path's directory)
// through cache.
func Load(path string, cache *rescache.Cache) (*PBRMaterial, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.FileSystem, prefix, "reading material file "+path, err)
	}

	var d descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, ferrors.Wrap(ferrors.UnsupportedFormat, prefix, "parsing material json "+path, err)
	}

	dir := filepath.Dir(path)
	resolve := func(rel string) (string, error) {
		if rel == "" {
			return "", nil
		}
		abs := rel
		if !filepath.IsAbs(rel) {
			abs = filepath.Join(dir, rel)
		}
		if _, err := cache.LoadTexture(abs); err != nil {
			return "", ferrors.Wrap(ferrors.FileSystem, prefix, "loading material texture "+abs, err)
		}
		return abs, nil
	}

	m := &PBRMaterial{Name: d.Name, Domain: d.Domain}

	var err1, err2, err3, err4, err5, err6 error
	m.Textures.BaseColor, err1 = resolve(d.Textures.BaseColor)
	m.Textures.Metallic, err2 = resolve(d.Textures.Metallic)
	m.Textures.Roughness, err3 = resolve(d.Textures.Roughness)
	m.Textures.Normal, err4 = resolve(d.Textures.Normal)
	m.Textures.Occlusion, err5 = resolve(d.Textures.Occlusion)
	m.Textures.Emissive, err6 = resolve(d.Textures.Emissive)
	for _, e := range []error{err1, err2, err3, err4, err5, err6} {
		if e != nil {
			return nil, e
		}
	}

	if d.Factors.BaseColor != nil {
		m.Factors.BaseColor = *d.Factors.BaseColor
	} else {
		m.Factors.BaseColor = [4]float32{1, 1, 1, 1}
	}
	if d.Factors.Metallic != nil {
		m.Factors.Metallic = *d.Factors.Metallic
	} else {
		m.Factors.Metallic = 1
	}
	if d.Factors.Roughness != nil {
		m.Factors.Roughness = *d.Factors.Roughness
	} else {
		m.Factors.Roughness = 1
	}
	if d.Factors.Emissive != nil {
		m.Factors.Emissive = *d.Factors.Emissive
	}
	if d.Factors.NormalScale != nil {
		m.Factors.NormalScale = *d.Factors.NormalScale
	} else {
		m.Factors.NormalScale = 1
	}

	m.Alpha.Mode = parseAlphaMode(d.Alpha.Mode)
	if d.Alpha.Cutoff != nil {
		m.Alpha.Cutoff = *d.Alpha.Cutoff
	} else {
		m.Alpha.Cutoff = 0.5
	}
	m.Alpha.DoubleSided = d.Alpha.DoubleSided

	if d.Optical.RefractionIndex != nil {
		m.Optical.RefractionIndex = *d.Optical.RefractionIndex
	} else {
		m.Optical.RefractionIndex = 1
	}

	return m, nil
}
