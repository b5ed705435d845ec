package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ledgerstack/ledgerdeploy/pkg/logging"
)

// ImageBuilder builds one container image per managed service.
//
// # Description
//
// Builds run strictly in table order and fail fast: a missing build
// descriptor or a failed build aborts the whole stage without
// attempting later services, because the apply and rollout stages
// assume every image exists. A missing Dockerfile is a structural
// error, not a transient one — retrying cannot conjure the file.
type ImageBuilder struct {
	proc ProcessManager
	log  *logging.Logger
}

// NewImageBuilder creates a builder backed by the docker CLI.
func NewImageBuilder(proc ProcessManager, log *logging.Logger) *ImageBuilder {
	return &ImageBuilder{proc: proc, log: log}
}

// BuildAll builds every service image, failing fast on the first error.
//
// # Inputs
//
//   - specs: the fixed service table, in build order
//
// # Outputs
//
//   - StageResult: fatal on the first missing Dockerfile or failed
//     build (later services are not attempted); ok when all built.
func (b *ImageBuilder) BuildAll(ctx context.Context, specs []ServiceSpec) StageResult {
	for _, spec := range specs {
		descriptor := filepath.Join(spec.BuildContext, DockerfileName)
		if _, err := os.Stat(descriptor); err != nil {
			b.log.Error("build descriptor missing", "service", spec.Name, "path", descriptor)
			res := fatalResult("build", "missing build source for %s", spec.Name)
			res.Missing = []string{descriptor}
			return res
		}

		b.log.Info("building image", "service", spec.Name, "image", spec.Image, "context", spec.BuildContext)
		if err := b.proc.RunStream(ctx, "docker", "build", "-t", spec.Image, spec.BuildContext); err != nil {
			b.log.Error("image build failed", "service", spec.Name, "error", err)
			return fatalResult("build", "build failed for %s: %v", spec.Name, err)
		}
		b.log.Info("image built", "service", spec.Name, "image", spec.Image)
	}
	return okResult("build", "built %d image(s)", len(specs))
}
