package comfy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

// Graph is the node graph executed by the backend, keyed by node identifier.
type Graph map[string]Node

// Node is a single processing step in the workflow graph.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
}

// NodeRef points at one output slot of another node. The backend's wire
// format is a positional pair: ["nodeId", outputIndex].
type NodeRef struct {
	Node   string
	Output int
}

// MarshalJSON encodes the reference in the backend's pair format.
func (r NodeRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Node, r.Output})
}

// SeedRandom asks the builder to draw a fresh seed per build instead of a
// caller-pinned one. Built graphs are only deterministic for explicit seeds.
const SeedRandom int64 = -1

const (
	defaultWidth         = 1024
	defaultHeight        = 768
	defaultStepsImg2Img  = 35
	defaultStepsText2Img = 30
	defaultCFGScale      = 7.5
	defaultDenoise       = 0.65
	defaultCheckpoint    = "sd_xl_base_1.0.safetensors"
	defaultSampler       = "dpmpp_2m"
	defaultScheduler     = "karras"

	// Appended to every positive prompt so callers only supply intent.
	houseStyleSuffix = "interior design magazine photography, natural light, photorealistic, high detail, 8k"

	defaultNegativePrompt = "lowres, blurry, watermark, text, jpeg artifacts, worst quality, low quality, deformed furniture"
)

// Fixed node identifiers. The backend keys nodes by stringified integers.
const (
	nodeCheckpoint = "1"
	nodePositive   = "2"
	nodeNegative   = "3"
	nodeSource     = "4" // EmptyLatentImage (text2img) or LoadImage (img2img)
	nodeScale      = "5" // ImageScale, advanced builder only
	nodeEncode     = "6" // VAEEncode, img2img only
	nodeSampler    = "7"
	nodeDecode     = "8"
	nodeSave       = "9"
)

// GraphParams are the typed inputs the builders translate into a graph.
// SourceImage is the backend filename of a previously uploaded image; when
// set the graph runs image-to-image, otherwise text-to-image.
type GraphParams struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	CFGScale       float64
	Seed           int64
	Denoise        float64
	SourceImage    string
	BatchSize      int
	Checkpoint     string
}

func (p GraphParams) img2img() bool { return p.SourceImage != "" }

func (p GraphParams) withDefaults() (GraphParams, error) {
	if strings.TrimSpace(p.Prompt) == "" {
		return p, errors.New("comfy: prompt is required")
	}
	if p.Width <= 0 {
		p.Width = defaultWidth
	}
	if p.Height <= 0 {
		p.Height = defaultHeight
	}
	if p.Steps <= 0 {
		if p.img2img() {
			p.Steps = defaultStepsImg2Img
		} else {
			p.Steps = defaultStepsText2Img
		}
	}
	if p.CFGScale <= 0 {
		p.CFGScale = defaultCFGScale
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 1
	}
	if p.Checkpoint == "" {
		p.Checkpoint = defaultCheckpoint
	}
	if p.img2img() {
		if p.Denoise == 0 {
			p.Denoise = defaultDenoise
		}
		if p.Denoise <= 0 || p.Denoise > 1 {
			return p, fmt.Errorf("comfy: denoise %v out of range (0,1]", p.Denoise)
		}
	} else {
		// Denoise is meaningless without a source image; the sampler still
		// wants a value and full denoising is the text2img contract.
		p.Denoise = 1.0
	}
	if p.NegativePrompt == "" {
		p.NegativePrompt = defaultNegativePrompt
	}
	if p.Seed == SeedRandom {
		p.Seed = rand.Int63n(1 << 31)
	}
	return p, nil
}

// Builder translates GraphParams into an executable graph. Implementations
// differ only in how the source image is fitted to the target dimensions.
type Builder interface {
	Build(p GraphParams) (Graph, error)
}

// NodeProber reports whether the backend knows a given node class.
type NodeProber interface {
	SupportsNode(ctx context.Context, class string) bool
}

// SelectBuilder probes the backend for the resize node and picks the
// matching graph strategy.
func SelectBuilder(ctx context.Context, prober NodeProber) Builder {
	if prober != nil && prober.SupportsNode(ctx, "ImageScale") {
		return ScaledBuilder{}
	}
	return SimpleBuilder{}
}

// SimpleBuilder assumes uploads were already sized to the target dimensions
// and feeds them straight into the VAE encoder.
type SimpleBuilder struct{}

// ScaledBuilder inserts an ImageScale node so arbitrary uploads are resized
// to the requested dimensions before latent encoding. Preferred when the
// backend supports the node class.
type ScaledBuilder struct{}

// Build implements Builder.
func (SimpleBuilder) Build(p GraphParams) (Graph, error) {
	return buildGraph(p, false)
}

// Build implements Builder.
func (ScaledBuilder) Build(p GraphParams) (Graph, error) {
	return buildGraph(p, true)
}

func buildGraph(p GraphParams, scaled bool) (Graph, error) {
	p, err := p.withDefaults()
	if err != nil {
		return nil, err
	}

	g := Graph{
		nodeCheckpoint: {
			ClassType: "CheckpointLoaderSimple",
			Inputs:    map[string]any{"ckpt_name": p.Checkpoint},
		},
		nodePositive: {
			ClassType: "CLIPTextEncode",
			Inputs: map[string]any{
				"text": strings.TrimSpace(p.Prompt) + ", " + houseStyleSuffix,
				"clip": NodeRef{Node: nodeCheckpoint, Output: 1},
			},
		},
		nodeNegative: {
			ClassType: "CLIPTextEncode",
			Inputs: map[string]any{
				"text": p.NegativePrompt,
				"clip": NodeRef{Node: nodeCheckpoint, Output: 1},
			},
		},
		nodeDecode: {
			ClassType: "VAEDecode",
			Inputs: map[string]any{
				"samples": NodeRef{Node: nodeSampler, Output: 0},
				"vae":     NodeRef{Node: nodeCheckpoint, Output: 2},
			},
		},
		nodeSave: {
			ClassType: "SaveImage",
			Inputs: map[string]any{
				"filename_prefix": "redesign",
				"images":          NodeRef{Node: nodeDecode, Output: 0},
			},
		},
	}

	latent := NodeRef{Node: nodeSource, Output: 0}
	if p.img2img() {
		g[nodeSource] = Node{
			ClassType: "LoadImage",
			Inputs:    map[string]any{"image": p.SourceImage},
		}
		pixels := NodeRef{Node: nodeSource, Output: 0}
		if scaled {
			g[nodeScale] = Node{
				ClassType: "ImageScale",
				Inputs: map[string]any{
					"image":          pixels,
					"width":          p.Width,
					"height":         p.Height,
					"upscale_method": "lanczos",
					"crop":           "center",
				},
			}
			pixels = NodeRef{Node: nodeScale, Output: 0}
		}
		g[nodeEncode] = Node{
			ClassType: "VAEEncode",
			Inputs: map[string]any{
				"pixels": pixels,
				"vae":    NodeRef{Node: nodeCheckpoint, Output: 2},
			},
		}
		latent = NodeRef{Node: nodeEncode, Output: 0}
	} else {
		g[nodeSource] = Node{
			ClassType: "EmptyLatentImage",
			Inputs: map[string]any{
				"width":      p.Width,
				"height":     p.Height,
				"batch_size": p.BatchSize,
			},
		}
	}

	g[nodeSampler] = Node{
		ClassType: "KSampler",
		Inputs: map[string]any{
			"seed":         p.Seed,
			"steps":        p.Steps,
			"cfg":          p.CFGScale,
			"sampler_name": defaultSampler,
			"scheduler":    defaultScheduler,
			"denoise":      p.Denoise,
			"model":        NodeRef{Node: nodeCheckpoint, Output: 0},
			"positive":     NodeRef{Node: nodePositive, Output: 0},
			"negative":     NodeRef{Node: nodeNegative, Output: 0},
			"latent_image": latent,
		},
	}

	return g, nil
}
