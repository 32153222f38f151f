package model

// Box is a bounding box in image pixels, (X1,Y1) top-left and (X2,Y2) bottom-right.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// DetectedItem is one raw detector output. Labels are free-form and may be in any case.
type DetectedItem struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}
