package main

import (
	"flag"
	"fmt"
	"image"
	"os"

	"sketchrender/internal/imaging"
)

// sketchproc runs the imaging steps locally, without the API or a database.
// Useful for tuning clean parameters against real sketches.

const usage = `Usage:

sketchproc clean [-window n] [-bias n] in.png out.png
    Binarize a sketch into black strokes on white.

sketchproc composite [-quality n] render.png mask.png out.jpg
    Multiply a line-art mask over a render. The mask is resized to the
    render's dimensions when they differ.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "clean":
		err = runClean(os.Args[2:])
	case "composite":
		err = runComposite(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketchproc: %v\n", err)
		os.Exit(1)
	}
}

func runClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	window := fs.Int("window", imaging.DefaultCleanWindow, "threshold window size (odd)")
	bias := fs.Float64("bias", imaging.DefaultCleanBias, "threshold bias")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("clean needs an input and an output path")
	}

	img, err := decodeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	cleaned, err := imaging.Clean(img, imaging.CleanOptions{Window: *window, Bias: *bias})
	if err != nil {
		return err
	}

	out, err := os.Create(fs.Arg(1))
	if err != nil {
		return err
	}
	defer out.Close()
	return imaging.EncodePNG(out, cleaned)
}

func runComposite(args []string) error {
	fs := flag.NewFlagSet("composite", flag.ExitOnError)
	quality := fs.Int("quality", imaging.DefaultJPEGQuality, "jpeg quality")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("composite needs render, mask and output paths")
	}

	render, err := decodeFile(fs.Arg(0))
	if err != nil {
		return err
	}
	mask, err := decodeFile(fs.Arg(1))
	if err != nil {
		return err
	}
	composite, err := imaging.Composite(render, mask)
	if err != nil {
		return err
	}

	out, err := os.Create(fs.Arg(2))
	if err != nil {
		return err
	}
	defer out.Close()
	return imaging.EncodeJPEG(out, composite, *quality)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return imaging.Decode(f)
}
