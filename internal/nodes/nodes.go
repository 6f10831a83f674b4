// Package nodes implements the S3 Connector node pack on top of the engine.
package nodes

import (
	"context"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/FairForge/s3connector/internal/host"
)

const Category = "S3 Connector"

// EngineSource yields the shared engine. Storage configuration problems
// surface when a node first runs, not when the pack registers.
type EngineSource func(ctx context.Context) (*engine.Engine, error)

// Static wraps an already-built engine.
func Static(e *engine.Engine) EngineSource {
	return func(context.Context) (*engine.Engine, error) { return e, nil }
}

// Register adds every node of the pack to reg.
func Register(reg *host.Registry, src EngineSource) error {
	all := []host.Node{
		NewUploadImage(src),
		NewUploadImageFullPath(src),
		NewSaveImage(src),
		NewLoadImage(src),
		NewLoadImageFullPath(src),
		NewLoadImagePrefix(src),
		NewJobID(),
	}
	for _, n := range all {
		if err := reg.Register(n); err != nil {
			return err
		}
	}
	return nil
}

func stringInput(name string) host.Input {
	return host.Input{Name: name, Type: host.TypeString, Default: ""}
}

var (
	imagesInput = host.Input{Name: "images", Type: host.TypeImage}
	maskInput   = host.Input{Name: "mask", Type: host.TypeMask}

	uploadOutputs = []host.Output{
		{Name: "s3_url", Type: host.TypeString},
		{Name: "path", Type: host.TypeString},
	}
	loadOutputs = []host.Output{
		{Name: "image", Type: host.TypeImage},
		{Name: "mask", Type: host.TypeMask},
	}
)
