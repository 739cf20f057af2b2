// Package cvnet runs ONNX networks through the OpenCV DNN module.
package cvnet

import (
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// Net wraps a gocv.Net. OpenCV networks keep per-call state, so Run holds a
// lock for the duration of a forward pass.
type Net struct {
	mu   sync.Mutex
	net  gocv.Net
	path string
}

// Load reads an ONNX model from disk. A missing file yields an error that
// matches os.ErrNotExist.
func Load(path string) (*Net, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("load model %s: empty network", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Net{net: net, path: path}, nil
}

func (n *Net) Run(input []float32, shape []int) ([]float32, []int, error) {
	blob := gocv.NewMatWithSizes(shape, gocv.MatTypeCV32F)
	defer blob.Close()

	dst, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: input blob: %w", n.path, err)
	}
	if len(dst) != len(input) {
		return nil, nil, fmt.Errorf("%s: input has %d values, shape %v needs %d", n.path, len(input), shape, len(dst))
	}
	copy(dst, input)

	n.mu.Lock()
	defer n.mu.Unlock()

	n.net.SetInput(blob, "")
	out := n.net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, nil, fmt.Errorf("%s: forward pass returned no output", n.path)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read output: %w", n.path, err)
	}
	res := make([]float32, len(data))
	copy(res, data)
	return res, out.Size(), nil
}

func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}
