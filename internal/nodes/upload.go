package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/FairForge/s3connector/internal/engine"
	"github.com/FairForge/s3connector/internal/host"
	"github.com/google/uuid"
)

// addressFunc turns a node's string inputs into an object address.
type addressFunc func(in host.Inputs) (engine.Address, error)

type uploadNode struct {
	def     host.Definition
	engine  EngineSource
	address addressFunc
}

func (n *uploadNode) Definition() host.Definition { return n.def }

func (n *uploadNode) Execute(ctx context.Context, _ *host.ExecutionContext, in host.Inputs) ([]any, error) {
	images, err := in.Image("images")
	if err != nil {
		return nil, err
	}
	mask, err := in.Mask("mask")
	if err != nil {
		return nil, err
	}
	addr, err := n.address(in)
	if err != nil {
		return nil, err
	}

	eng, err := n.engine(ctx)
	if err != nil {
		return nil, err
	}
	res, err := eng.Upload(ctx, images, mask, addr)
	if err != nil {
		return nil, err
	}
	return []any{res.URL, res.Key}, nil
}

// NewUploadImage uploads under folder_path/file_name.
func NewUploadImage(src EngineSource) host.Node {
	return &uploadNode{
		def: host.Definition{
			Class:       "S3UploadImage",
			DisplayName: "S3 Upload Image",
			Category:    Category,
			Description: "Upload images to the configured bucket under a folder and file name.",
			Required:    []host.Input{imagesInput, stringInput("folder_path"), stringInput("file_name")},
			Optional:    []host.Input{maskInput},
			Outputs:     uploadOutputs,
			OutputNode:  true,
		},
		engine:  src,
		address: folderAddress,
	}
}

// NewUploadImageFullPath uploads to a single path string.
func NewUploadImageFullPath(src EngineSource) host.Node {
	return &uploadNode{
		def: host.Definition{
			Class:       "S3UploadImageFullPath",
			DisplayName: "S3 Upload Image (Full Path)",
			Category:    Category,
			Description: "Upload images to the configured bucket at a full object path.",
			Required:    []host.Input{imagesInput, stringInput("full_path")},
			Optional:    []host.Input{maskInput},
			Outputs:     uploadOutputs,
			OutputNode:  true,
		},
		engine:  src,
		address: fullPathAddress,
	}
}

// NewSaveImage uploads under key_prefix with a generated
// <filename_prefix>_<uuid>.png name.
func NewSaveImage(src EngineSource) host.Node {
	return &uploadNode{
		def: host.Definition{
			Class:       "S3SaveImage",
			DisplayName: "S3 Save Image (Prefix)",
			Category:    Category,
			Description: "Upload images under a key prefix with a generated unique file name.",
			Required: []host.Input{
				imagesInput,
				stringInput("key_prefix"),
				{Name: "filename_prefix", Type: host.TypeString, Default: "gen"},
			},
			Optional:   []host.Input{maskInput},
			Outputs:    uploadOutputs,
			OutputNode: true,
		},
		engine:  src,
		address: generatedAddress,
	}
}

func folderAddress(in host.Inputs) (engine.Address, error) {
	folder, err := in.String("folder_path")
	if err != nil {
		return nil, err
	}
	file, err := in.String("file_name")
	if err != nil {
		return nil, err
	}
	return engine.FolderAddress{Folder: folder, File: file}, nil
}

func fullPathAddress(in host.Inputs) (engine.Address, error) {
	p, err := in.String("full_path")
	if err != nil {
		return nil, err
	}
	return engine.FullPathAddress{Path: p}, nil
}

func prefixAddress(in host.Inputs) (engine.Address, error) {
	prefix, err := in.String("key_prefix")
	if err != nil {
		return nil, err
	}
	file, err := in.String("file_name")
	if err != nil {
		return nil, err
	}
	return engine.PrefixAddress{Prefix: prefix, Filename: file}, nil
}

func generatedAddress(in host.Inputs) (engine.Address, error) {
	prefix, err := in.String("key_prefix")
	if err != nil {
		return nil, err
	}
	name, err := in.String("filename_prefix")
	if err != nil {
		return nil, err
	}
	name = strings.Trim(strings.TrimSpace(name), "/")
	if name == "" {
		return nil, fmt.Errorf("%w: filename prefix is required", engine.ErrInvalidInput)
	}
	return engine.PrefixAddress{
		Prefix:   prefix,
		Filename: fmt.Sprintf("%s_%s.png", name, uuid.NewString()),
	}, nil
}
