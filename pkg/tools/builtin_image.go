package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/disintegration/imaging"
)

// ImageProvider talks to a remote image-synthesis backend. Optional — the
// registry only exposes generate_image/generate_altered_image when a
// provider is configured.
type ImageProvider interface {
	Generate(ctx context.Context, prompt string, opts map[string]any) (imagePath string, err error)
	Alter(ctx context.Context, sourcePath, prompt string, opts map[string]any) (imagePath string, err error)
}

// GenerateImage is the generate_image tool contract.
func GenerateImage(provider ImageProvider) Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		prompt, _ := args["prompt"].(string)
		if prompt == "" {
			return nil, fmt.Errorf("prompt is required")
		}
		if provider == nil {
			return nil, fmt.Errorf("no image provider configured")
		}
		return provider.Generate(ctx, prompt, args)
	}
}

// GenerateAlteredImage is the generate_altered_image tool contract. When
// the requested alteration is a local crop/resize/filter, it is applied
// directly via disintegration/imaging rather than round-tripping to the
// remote provider — the remote path is used only for prompt-driven
// (model-synthesized) alterations.
func GenerateAlteredImage(provider ImageProvider) Fn {
	return func(ctx context.Context, args map[string]any) (any, error) {
		imagePath, _ := args["image_path"].(string)
		prompt, _ := args["prompt"].(string)
		if imagePath == "" {
			return nil, fmt.Errorf("image_path is required")
		}

		if op, _ := args["local_op"].(string); op != "" {
			return applyLocalAlteration(imagePath, op, args)
		}

		if provider == nil {
			return nil, fmt.Errorf("no image provider configured")
		}
		return provider.Alter(ctx, imagePath, prompt, args)
	}
}

func applyLocalAlteration(imagePath, op string, args map[string]any) (string, error) {
	src, err := imaging.Open(imagePath)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}

	var out = src
	switch op {
	case "resize":
		width, _ := args["width"].(float64)
		height, _ := args["height"].(float64)
		out = imaging.Resize(src, int(width), int(height), imaging.Lanczos)
	case "grayscale":
		out = imaging.Grayscale(src)
	case "flip_h":
		out = imaging.FlipH(src)
	default:
		return "", fmt.Errorf("unsupported local_op %q", op)
	}

	destPath := imagePath + ".altered.png"
	if err := imaging.Save(out, destPath); err != nil {
		return "", fmt.Errorf("save altered image: %w", err)
	}
	return destPath, nil
}

// fileExists is a small guard used before attempting a local alteration.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
