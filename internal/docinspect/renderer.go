// internal/docinspect/renderer.go
package docinspect

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Renderer rasterizes a document page and decodes any QR payloads on it.
// Implementations return the decoded payload texts; an empty slice means the
// page rendered fine but carried no readable code.
type Renderer interface {
	RenderAndDecode(ctx context.Context, path string, page int) ([]string, error)
}

// SidecarRenderer reads pre-decoded payloads from a "<document>.qr.txt"
// sidecar file, with payloads separated by lines containing only "---". It
// stands in for a native rasterizer/decoder so the pipeline stays runnable
// where one is not available.
type SidecarRenderer struct{}

const sidecarSuffix = ".qr.txt"

func NewSidecarRenderer() *SidecarRenderer {
	return &SidecarRenderer{}
}

func (r *SidecarRenderer) RenderAndDecode(ctx context.Context, path string, page int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page > 0 {
		// All sidecar payloads are attributed to the first page.
		return nil, nil
	}

	data, err := os.ReadFile(path + sidecarSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var payloads []string
	for _, chunk := range strings.Split(string(data), "\n---\n") {
		if chunk = strings.TrimSpace(chunk); chunk != "" {
			payloads = append(payloads, chunk)
		}
	}
	return payloads, nil
}
