package nodes

import (
	"context"

	"github.com/FairForge/s3connector/internal/host"
)

type loadNode struct {
	def     host.Definition
	engine  EngineSource
	address addressFunc
}

func (n *loadNode) Definition() host.Definition { return n.def }

func (n *loadNode) Execute(ctx context.Context, _ *host.ExecutionContext, in host.Inputs) ([]any, error) {
	addr, err := n.address(in)
	if err != nil {
		return nil, err
	}
	eng, err := n.engine(ctx)
	if err != nil {
		return nil, err
	}
	res, err := eng.Download(ctx, addr)
	if err != nil {
		return nil, err
	}
	return []any{res.Image, res.Mask}, nil
}

// NewLoadImage loads folder_path/file_name.
func NewLoadImage(src EngineSource) host.Node {
	return &loadNode{
		def: host.Definition{
			Class:       "S3LoadImage",
			DisplayName: "S3 Load Image",
			Category:    Category,
			Description: "Load an image and its alpha mask from a folder and file name.",
			Required:    []host.Input{stringInput("folder_path"), stringInput("file_name")},
			Outputs:     loadOutputs,
		},
		engine:  src,
		address: folderAddress,
	}
}

func NewLoadImageFullPath(src EngineSource) host.Node {
	return &loadNode{
		def: host.Definition{
			Class:       "S3LoadImageFullPath",
			DisplayName: "S3 Load Image (Full Path)",
			Category:    Category,
			Description: "Load an image and its alpha mask from a full object path.",
			Required:    []host.Input{stringInput("full_path")},
			Outputs:     loadOutputs,
		},
		engine:  src,
		address: fullPathAddress,
	}
}

func NewLoadImagePrefix(src EngineSource) host.Node {
	return &loadNode{
		def: host.Definition{
			Class:       "S3LoadImagePrefix",
			DisplayName: "S3 Load Image (Prefix)",
			Category:    Category,
			Description: "Load an image and its alpha mask from a key prefix and file name.",
			Required:    []host.Input{stringInput("key_prefix"), stringInput("file_name")},
			Outputs:     loadOutputs,
		},
		engine:  src,
		address: prefixAddress,
	}
}
