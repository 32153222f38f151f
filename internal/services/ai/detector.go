package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"diettracker/internal/config"
	"diettracker/internal/logger"
	"diettracker/internal/model"
)

// DetectorService runs a YOLOv8 ONNX model through the OpenCV DNN module.
// A gocv.Net is not safe for concurrent use, so calls are serialized; run
// several services for parallel sessions.
type DetectorService struct {
	net       gocv.Net
	modelPath string
	inputSize image.Point
	minScore  float32
	nmsScore  float32
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewDetectorService loads the model from config.ModelPath.
func NewDetectorService(config *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		modelPath: config.ModelPath,
		inputSize: image.Pt(config.ModelInputSize, config.ModelInputSize),
		// Noise floor only; the session applies CONFIDENCE_THRESHOLD.
		minScore: 0.1,
		nmsScore: float32(config.NMSThreshold),
		logger:   logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the network from the model file.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized from %s", s.modelPath)
	return nil
}

// Detect decodes an encoded image and returns every object the model sees,
// food or not, with COCO labels.
func (s *DetectorService) Detect(imageBytes []byte) ([]model.DetectedItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.net.Empty() {
		return nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, s.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	items, err := s.parseOutput(output, mat.Cols(), mat.Rows())
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		s.logger.Info("Detected %s (%.2f)", item.Label, item.Confidence)
	}
	return items, nil
}

// parseOutput reads the [1, 84, N] YOLOv8 tensor: 4 box values (center x,
// center y, width, height in input pixels) followed by 80 class scores.
func (s *DetectorService) parseOutput(output gocv.Mat, imgW, imgH int) ([]model.DetectedItem, error) {
	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] < 5 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}
	channels, candidates := sizes[1], sizes[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	scaleX := float32(imgW) / float32(s.inputSize.X)
	scaleY := float32(imgH) / float32(s.inputSize.Y)

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)
	for i := 0; i < candidates; i++ {
		best, classID := float32(0), 0
		for c := 4; c < channels; c++ {
			if score := data[c*candidates+i]; score > best {
				best, classID = score, c-4
			}
		}
		if best < s.minScore {
			continue
		}

		cx, cy := data[i], data[candidates+i]
		w, h := data[2*candidates+i], data[3*candidates+i]
		boxes = append(boxes, image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
		))
		confidences = append(confidences, best)
		classIDs = append(classIDs, classID)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, s.minScore, s.nmsScore)
	items := make([]model.DetectedItem, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		items = append(items, model.DetectedItem{
			Label:      ClassLabel(classIDs[idx]),
			Confidence: float64(confidences[idx]),
			Box:        model.Box{X1: box.Min.X, Y1: box.Min.Y, X2: box.Max.X, Y2: box.Max.Y},
		})
	}
	return items, nil
}

// DrawDetections draws a box and caption per item on an encoded image and
// returns it re-encoded as JPEG. caption may be nil.
func (s *DetectorService) DrawDetections(items []model.DetectedItem, img []byte, caption func(model.DetectedItem) string) ([]byte, error) {
	return DrawDetections(items, img, caption)
}

// DrawDetections is the stateless form of DetectorService.DrawDetections.
func DrawDetections(items []model.DetectedItem, img []byte, caption func(model.DetectedItem) string) ([]byte, error) {
	green := color.RGBA{R: 0, G: 255, B: 0, A: 0}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	for _, item := range items {
		rect := image.Rect(item.Box.X1, item.Box.Y1, item.Box.X2, item.Box.Y2)
		if err := gocv.Rectangle(&mat, rect, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", item.Label, item.Confidence)
		if caption != nil {
			label = caption(item)
		}
		if err := gocv.PutText(&mat, label, image.Pt(item.Box.X1, item.Box.Y1-10), gocv.FontHersheySimplex, 0.6, green, 2); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
