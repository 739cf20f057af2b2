package vision

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	out      []float32
	outShape []int
	err      error

	gotShape []int
	closed   bool
}

func (f *fakeModel) Run(_ []float32, shape []int) ([]float32, []int, error) {
	f.gotShape = shape
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.out, f.outShape, nil
}

func (f *fakeModel) Close() error {
	f.closed = true
	return nil
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestToCHW_FromCHW_RoundTrip(t *testing.T) {
	t.Parallel()

	src := solid(3, 2, color.RGBA{R: 10, G: 128, B: 250, A: 255})
	data, shape := ToCHW(src, PixelRange)
	require.Equal(t, []int{1, 3, 2, 3}, shape)
	assert.Equal(t, float32(10), data[0])
	assert.Equal(t, float32(128), data[6])
	assert.Equal(t, float32(250), data[12])

	back, err := FromCHW(data, shape)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, back.Pix)
}

func TestToCHW_Normalization(t *testing.T) {
	t.Parallel()

	data, _ := ToCHW(solid(1, 1, color.RGBA{R: 255, G: 0, B: 255, A: 255}), ImageNet)
	assert.InDelta(t, (1-0.485)/0.229, data[0], 1e-5)
	assert.InDelta(t, (0-0.456)/0.224, data[1], 1e-5)
	assert.InDelta(t, (1-0.406)/0.225, data[2], 1e-5)
}

func TestFromCHW_ClampsAndValidates(t *testing.T) {
	t.Parallel()

	img, err := FromCHW([]float32{-20, 300, float32(math.NaN())}, []int{1, 3, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0, G: 255, B: 0, A: 255}, img.RGBAAt(0, 0))

	_, err = FromCHW([]float32{1, 2}, []int{1, 3, 1, 1})
	assert.ErrorIs(t, err, ErrOutputShape)
}

// yoloOutput lays out anchors as [1, 5, n] with a single class.
func yoloOutput(anchors [][5]float32) ([]float32, []int) {
	n := len(anchors)
	out := make([]float32, 5*n)
	for i, a := range anchors {
		for attr := 0; attr < 5; attr++ {
			out[attr*n+i] = a[attr]
		}
	}
	return out, []int{1, 5, n}
}

func TestDecodeYOLO(t *testing.T) {
	t.Parallel()

	out, shape := yoloOutput([][5]float32{
		{320, 320, 100, 100, 0.9},
		{100, 100, 50, 50, 0.01},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
	})

	boxes, err := DecodeYOLO(out, shape, 0.05, 2, 1)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, Box{X1: 540, Y1: 270, X2: 740, Y2: 370, Confidence: 0.9, Class: 0}, boxes[0])
}

func TestDecodeYOLO_Transposed(t *testing.T) {
	t.Parallel()

	// [1, anchors, 6]: two classes, second one wins.
	out := []float32{
		50, 50, 20, 20, 0.1, 0.8,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
	}
	boxes, err := DecodeYOLO(out, []int{1, 7, 6}, 0.5, 1, 1)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	assert.Equal(t, 1, boxes[0].Class)
	assert.Equal(t, float32(40), boxes[0].X1)
}

func TestDecodeYOLO_BadShape(t *testing.T) {
	t.Parallel()

	_, err := DecodeYOLO([]float32{1, 2, 3}, []int{1, 3}, 0.5, 1, 1)
	assert.ErrorIs(t, err, ErrOutputShape)
}

func TestNMS(t *testing.T) {
	t.Parallel()

	boxes := []Box{
		{X1: 0, Y1: 0, X2: 100, Y2: 100, Confidence: 0.6},
		{X1: 2, Y1: 2, X2: 100, Y2: 100, Confidence: 0.9},
		{X1: 200, Y1: 200, X2: 250, Y2: 250, Confidence: 0.3},
	}
	kept := NMS(boxes, 0.7)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Confidence)
	assert.Equal(t, float32(0.3), kept[1].Confidence)
}

func TestLargestBox(t *testing.T) {
	t.Parallel()

	_, ok := LargestBox(nil)
	assert.False(t, ok)

	boxes := []Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10, Confidence: 0.9},
		{X1: 0, Y1: 0, X2: 20, Y2: 5, Confidence: 0.2, Class: 1},
		{X1: 0, Y1: 0, X2: 30, Y2: 30, Confidence: 0.1, Class: 2},
		{X1: 5, Y1: 5, X2: 35, Y2: 35, Confidence: 0.5, Class: 3},
	}
	best, ok := LargestBox(boxes)
	require.True(t, ok)
	assert.Equal(t, 2, best.Class, "first box wins an area tie")
	assert.Equal(t, image.Rect(0, 0, 30, 30), best.Rect())
}

func TestDetector_ScalesToSource(t *testing.T) {
	t.Parallel()

	out, shape := yoloOutput([][5]float32{
		{320, 320, 640, 320, 0.8},
		{0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0}, {0, 0, 0, 0, 0},
	})
	model := &fakeModel{out: out, outShape: shape}
	d := NewDetector(model, 0.05)

	boxes, err := d.Detect(solid(1280, 320, color.RGBA{A: 255}))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, DetectorInputSize, DetectorInputSize}, model.gotShape)
	require.Len(t, boxes, 1)
	assert.Equal(t, image.Rect(0, 80, 1280, 240), boxes[0].Rect())
}

func TestAccept_RoundsBeforeComparing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pos, neg float64
		want     bool
	}{
		{name: "clear artwork", pos: 0.31, neg: 0.22, want: true},
		{name: "clear photo", pos: 0.21, neg: 0.29, want: false},
		{name: "near tie rounds to acceptance", pos: 0.2460, neg: 0.2540, want: true},
		{name: "exact tie", pos: 0.27, neg: 0.27, want: true},
		{name: "one hundredth apart", pos: 0.2449, neg: 0.2451, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Accept(tc.pos, tc.neg))
		})
	}
}

func testPrompts() *PromptSet {
	set := &PromptSet{
		Positive: []Prompt{
			{Text: "classical paintings", Embedding: []float32{1, 0, 0}},
			{Text: "sketches", Embedding: []float32{0, 2, 0}},
		},
		Negative: []Prompt{
			{Text: "a selfie", Embedding: []float32{0, 0, 3}},
		},
	}
	if err := set.normalize(); err != nil {
		panic(err)
	}
	return set
}

func TestJudge(t *testing.T) {
	t.Parallel()

	v := Judge([]float32{0, 0.8, 0.6}, testPrompts())
	assert.True(t, v.Accepted)
	assert.Equal(t, "sketches", v.PositivePrompt)
	assert.InDelta(t, 0.8, v.PositiveScore, 1e-6)
	assert.InDelta(t, 0.6, v.NegativeScore, 1e-6)

	v = Judge([]float32{0.6, 0, 0.8}, testPrompts())
	assert.False(t, v.Accepted)
	assert.Equal(t, "a selfie", v.NegativePrompt)
}

func TestGate_Check(t *testing.T) {
	t.Parallel()

	model := &fakeModel{out: []float32{3, 0, 0}, outShape: []int{1, 3}}
	g := NewGate(model, testPrompts())

	v, err := g.Check(solid(400, 300, color.RGBA{R: 200, A: 255}))
	require.NoError(t, err)
	assert.True(t, v.Accepted)
	assert.InDelta(t, 1.0, v.PositiveScore, 1e-6)
	assert.Equal(t, []int{1, 3, EmbedderInputSize, EmbedderInputSize}, model.gotShape)

	g = NewGate(&fakeModel{out: []float32{1, 2}, outShape: []int{1, 2}}, testPrompts())
	_, err = g.Check(solid(10, 10, color.RGBA{A: 255}))
	assert.ErrorIs(t, err, ErrOutputShape)
}

func TestLoadPromptSet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`{
		"positive": [{"prompt": "modern paintings", "embedding": [3, 4]}],
		"negative": [{"prompt": "a document", "embedding": [0, 2]}]
	}`), 0o600))

	set, err := LoadPromptSet(good)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, set.Positive[0].Embedding[0], 1e-6)
	assert.InDelta(t, 1.0, set.Negative[0].Embedding[1], 1e-6)
	assert.Equal(t, 2, set.Dim())

	mismatch := filepath.Join(dir, "mismatch.json")
	require.NoError(t, os.WriteFile(mismatch, []byte(`{
		"positive": [{"prompt": "a", "embedding": [1, 0]}],
		"negative": [{"prompt": "b", "embedding": [1, 0, 0]}]
	}`), 0o600))
	_, err = LoadPromptSet(mismatch)
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"positive": []}`), 0o600))
	_, err = LoadPromptSet(empty)
	assert.Error(t, err)

	_, err = LoadPromptSet(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSoftmax(t *testing.T) {
	t.Parallel()

	probs := Softmax([]float32{1000, 1000, 999})
	var sum float64
	for _, p := range probs {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, probs[0], probs[1], 1e-12)
	assert.Greater(t, probs[0], probs[2])
	assert.Nil(t, Softmax(nil))
}

func TestTopK_StableOnTies(t *testing.T) {
	t.Parallel()

	labels := []string{"Baroque", "Cubism", "Impressionism", "Realism"}
	got := TopK([]float64{0.1, 0.3, 0.3, 0.3}, labels, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "Cubism", got[0].Label)
	assert.Equal(t, "Impressionism", got[1].Label)
	assert.Equal(t, "Realism", got[2].Label)

	assert.Len(t, TopK([]float64{1}, labels[:1], 3), 1)
}

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	labels := []string{"Baroque", "Cubism", "Impressionism", "Realism"}
	model := &fakeModel{out: []float32{0.1, 2.5, 1.0, -1}, outShape: []int{1, 4}}
	c := NewClassifier(model, labels)

	scores, err := c.Classify(solid(50, 80, color.RGBA{G: 90, A: 255}), 3)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "Cubism", scores[0].Label)
	assert.Equal(t, "Impressionism", scores[1].Label)
	assert.Equal(t, "Baroque", scores[2].Label)
	assert.True(t, scores[0].Probability > scores[1].Probability)
	assert.Equal(t, []int{1, 3, ClassifierInputSize, ClassifierInputSize}, model.gotShape)
}

func TestClassifier_Errors(t *testing.T) {
	t.Parallel()

	img := solid(8, 8, color.RGBA{A: 255})

	c := NewClassifier(&fakeModel{out: []float32{1, 2}, outShape: []int{1, 2}}, []string{"a", "b", "c"})
	_, err := c.Classify(img, 3)
	assert.ErrorIs(t, err, ErrOutputShape)

	boom := errors.New("forward failed")
	c = NewClassifier(&fakeModel{err: boom}, []string{"a"})
	_, err = c.Classify(img, 3)
	assert.ErrorIs(t, err, boom)
}

func TestLoadLabels(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "class_names.json")
	require.NoError(t, os.WriteFile(path, []byte(`["Art Nouveau", "Baroque"]`), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Art Nouveau", "Baroque"}, labels)

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte(`[]`), 0o600))
	_, err = LoadLabels(emptyPath)
	assert.Error(t, err)
}

func TestStylizer_Apply(t *testing.T) {
	t.Parallel()

	out := make([]float32, 3*4*4)
	for i := range out {
		out[i] = 128
	}
	model := &fakeModel{out: out, outShape: []int{1, 3, 4, 4}}
	s := NewStylizer(model, 4)

	img, err := s.Apply(solid(10, 6, color.RGBA{R: 1, A: 255}))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	assert.Equal(t, color.RGBA{R: 128, G: 128, B: 128, A: 255}, img.RGBAAt(3, 3))
	assert.Equal(t, []int{1, 3, 4, 4}, model.gotShape)

	require.NoError(t, s.Close())
	assert.True(t, model.closed)
}
