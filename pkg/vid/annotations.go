package vid

// Annotation is one ground-truth instance on a frame
type Annotation struct {
	Box     Rect   `json:"box"`
	Class   string `json:"class"`
	IsCrowd bool   `json:"isCrowd,omitempty"` // Crowd regions label a group of objects without separating them, and are excluded from training
}

// FilterInstances drops crowd-flagged instances and instances whose box has
// become empty (eg after augmentation pushed it off the image).
func FilterInstances(annotations []Annotation) []Annotation {
	keep := make([]Annotation, 0, len(annotations))
	for _, a := range annotations {
		if a.IsCrowd || a.Box.IsEmpty() {
			continue
		}
		keep = append(keep, a)
	}
	return keep
}
