/*
ktxpack assembles a set of equally sized PNG images into a single KTX
array texture, one layer per input file.

	ktxpack -o texturearray.ktx [-mips] layer0.png layer1.png ...
*/
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"

	xdraw "golang.org/x/image/draw"

	"github.com/spaghettifunk/vulkan-loadtests/engine/core"
	"github.com/spaghettifunk/vulkan-loadtests/engine/ktx"
)

func main() {
	output := flag.String("o", "texturearray.ktx", "output file")
	withMips := flag.Bool("mips", false, "generate a full mip chain")
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ktxpack -o out.ktx [-mips] layer0.png layer1.png ...")
		os.Exit(2)
	}

	layers, width, height, err := loadLayers(inputs)
	if err != nil {
		core.LogFatal("%s", err)
	}

	levels := packLevels(layers, width, height, *withMips)

	texture := ktx.NewRGBA8Texture(uint32(width), uint32(height), uint32(len(layers)), levels)
	if err := texture.WriteNamedFile(*output); err != nil {
		core.LogFatal("unable to write %s: %s", *output, err)
	}
	core.LogInfo("wrote %s: %dx%d, %d layer(s), %d level(s)", *output, width, height, len(layers), len(levels))
}

// loadLayers decodes every input as RGBA and verifies the dimensions match.
func loadLayers(paths []string) ([]*image.RGBA, int, int, error) {
	var layers []*image.RGBA
	var width, height int

	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("unable to open %s: %w", path, err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			return nil, 0, 0, fmt.Errorf("unable to decode %s: %w", path, err)
		}

		bounds := img.Bounds()
		if i == 0 {
			width, height = bounds.Dx(), bounds.Dy()
		} else if bounds.Dx() != width || bounds.Dy() != height {
			return nil, 0, 0, fmt.Errorf("layer %s is %dx%d, want %dx%d like the first layer",
				path, bounds.Dx(), bounds.Dy(), width, height)
		}

		rgba := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
		layers = append(layers, rgba)
	}
	return layers, width, height, nil
}

// packLevels serializes the layers into mip level blobs, layer data back
// to back within each level.
func packLevels(layers []*image.RGBA, width, height int, withMips bool) [][]byte {
	var levels [][]byte

	current := layers
	w, h := width, height
	for {
		level := make([]byte, 0, len(current)*w*h*4)
		for _, layer := range current {
			level = append(level, tightPixels(layer, w, h)...)
		}
		levels = append(levels, level)

		if !withMips || (w == 1 && h == 1) {
			break
		}
		w, h = max(w/2, 1), max(h/2, 1)
		current = downscale(current, w, h)
	}
	return levels
}

// tightPixels re-packs an RGBA image without row padding.
func tightPixels(img *image.RGBA, width, height int) []byte {
	rowBytes := width * 4
	if img.Stride == rowBytes {
		return img.Pix[:rowBytes*height]
	}
	out := make([]byte, 0, rowBytes*height)
	for y := 0; y < height; y++ {
		start := y * img.Stride
		out = append(out, img.Pix[start:start+rowBytes]...)
	}
	return out
}

func downscale(layers []*image.RGBA, width, height int) []*image.RGBA {
	out := make([]*image.RGBA, len(layers))
	for i, layer := range layers {
		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), layer, layer.Bounds(), xdraw.Src, nil)
		out[i] = scaled
	}
	return out
}
