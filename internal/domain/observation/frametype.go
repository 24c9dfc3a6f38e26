package observation

// FrameType is the observational purpose of an exposure. Classification
// always produces a value; FrameTypeUnknown is a valid terminal outcome,
// not an error.
type FrameType string

const (
	FrameTypeDark    FrameType = "dark"
	FrameTypeFlat    FrameType = "flat"
	FrameTypeBias    FrameType = "bias"
	FrameTypeScience FrameType = "science"
	FrameTypeArc     FrameType = "arc"
	FrameTypeUnknown FrameType = "unknown"
)

func (t FrameType) String() string {
	return string(t)
}
