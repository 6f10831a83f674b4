package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/FairForge/s3connector/internal/host"
	"github.com/FairForge/s3connector/internal/tensor"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

func addressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "folder", Usage: "Folder path (with --name)"},
		&cli.StringFlag{Name: "name", Usage: "File name"},
		&cli.StringFlag{Name: "full-path", Usage: "Full object path"},
		&cli.StringFlag{Name: "key-prefix", Usage: "Key prefix (with --name or --filename-prefix)"},
	}
}

// addressArgs are the addressing flags of one invocation.
type addressArgs struct {
	Folder         string
	Name           string
	FullPath       string
	KeyPrefix      string
	FilenamePrefix string
}

func addressFromFlags(c *cli.Context) addressArgs {
	return addressArgs{
		Folder:         c.String("folder"),
		Name:           c.String("name"),
		FullPath:       c.String("full-path"),
		KeyPrefix:      c.String("key-prefix"),
		FilenamePrefix: c.String("filename-prefix"),
	}
}

var errAddress = errors.New("give exactly one of --full-path, --filename-prefix or --name")

// uploadNode picks the upload node class matching the flags that were set.
func (a addressArgs) uploadNode() (string, host.Inputs, error) {
	switch {
	case a.FullPath != "" && a.Name == "" && a.FilenamePrefix == "":
		return "S3UploadImageFullPath", host.Inputs{"full_path": a.FullPath}, nil
	case a.FilenamePrefix != "" && a.Name == "" && a.FullPath == "":
		return "S3SaveImage", host.Inputs{"key_prefix": a.KeyPrefix, "filename_prefix": a.FilenamePrefix}, nil
	case a.Name != "" && a.FullPath == "" && a.FilenamePrefix == "":
		return "S3UploadImage", host.Inputs{"folder_path": a.joinedFolder(), "file_name": a.Name}, nil
	}
	return "", nil, errAddress
}

// loadNode picks the load node class matching the flags that were set.
func (a addressArgs) loadNode() (string, host.Inputs, error) {
	switch {
	case a.FullPath != "" && a.Name == "":
		return "S3LoadImageFullPath", host.Inputs{"full_path": a.FullPath}, nil
	case a.Name != "" && a.FullPath == "" && a.Folder == "":
		return "S3LoadImagePrefix", host.Inputs{"key_prefix": a.KeyPrefix, "file_name": a.Name}, nil
	case a.Name != "" && a.FullPath == "":
		return "S3LoadImage", host.Inputs{"folder_path": a.joinedFolder(), "file_name": a.Name}, nil
	}
	return "", nil, errors.New("give either --full-path or --name")
}

func (a addressArgs) joinedFolder() string {
	if a.KeyPrefix == "" {
		return a.Folder
	}
	return a.KeyPrefix + "/" + a.Folder
}

func newExecution() *host.ExecutionContext {
	return &host.ExecutionContext{PromptID: "cli-" + uuid.NewString()}
}

func (rt *session) printNodes(c *cli.Context) error {
	defs := rt.registry.Definitions()
	out := c.App.Writer
	if c.Bool("yaml") {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(defs); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(defs)
}

func (rt *session) upload(c *cli.Context) error {
	class, in, err := addressFromFlags(c).uploadNode()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	img, mask, err := tensor.Decode(data)
	if err != nil {
		return &engine.DecodingError{Key: c.String("file"), Err: err}
	}
	in["images"] = withAlpha(img, mask)

	outs, err := rt.registry.Execute(c.Context, class, newExecution(), in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "%s\n%s\n", outs[0], outs[1])
	return err
}

func (rt *session) download(c *cli.Context) error {
	class, in, err := addressFromFlags(c).loadNode()
	if err != nil {
		return err
	}

	outs, err := rt.registry.Execute(c.Context, class, newExecution(), in)
	if err != nil {
		return err
	}
	img := outs[0].(*tensor.Image)
	mask := outs[1].(*tensor.Mask)

	if err := writePNG(c.String("out"), img); err != nil {
		return err
	}
	if p := c.String("mask-out"); p != "" {
		if err := writePNG(p, maskImage(mask)); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(c.App.Writer, c.String("out"))
	return err
}

func writePNG(path string, img *tensor.Image) error {
	data, err := tensor.EncodePNG(img, 0)
	if err != nil {
		return &engine.EncodingError{Err: err}
	}
	return os.WriteFile(path, data, 0o644)
}

// withAlpha folds a non-empty mask back into a four channel image so a
// transparent source file stays transparent in the bucket.
func withAlpha(img *tensor.Image, mask *tensor.Mask) *tensor.Image {
	if mask == nil || img.Channels != 3 {
		return img
	}
	masked := false
	for _, v := range mask.Data {
		if v != 0 {
			masked = true
			break
		}
	}
	if !masked {
		return img
	}

	out := tensor.NewImage(img.Batch, img.Height, img.Width, 4)
	for b := 0; b < img.Batch; b++ {
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				for ch := 0; ch < 3; ch++ {
					out.Set(b, y, x, ch, img.At(b, y, x, ch))
				}
				out.Set(b, y, x, 3, 1-mask.At(b, y, x))
			}
		}
	}
	return out
}

// maskImage renders a mask as a single channel image.
func maskImage(m *tensor.Mask) *tensor.Image {
	return &tensor.Image{Batch: m.Batch, Height: m.Height, Width: m.Width, Channels: 1, Data: m.Data}
}
