// Package postprocess - provides Non-Maximum Suppression for detection results.
package postprocess

import (
	"sort"
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	// Overlap threshold for suppression.
	IoUThreshold float32 `json:"iou_threshold" yaml:"iou_threshold"`
	// If true, suppress only within same class.
	ClassAware bool `json:"class_aware" yaml:"class_aware"`
}

// DefaultNMSConfig returns the suppression settings used by the YOLO decoders.
func DefaultNMSConfig() *NMSConfig {
	return &NMSConfig{IoUThreshold: 0.45, ClassAware: true}
}

// Config carries the decoding thresholds for one PostProcess call.
type Config struct {
	// ScoreThreshold drops candidates scoring below it, in [0, 1].
	ScoreThreshold float32 `json:"score_threshold" yaml:"score_threshold"`
	// NMS configures suppression. Nil disables suppression.
	NMS *NMSConfig `json:"nms" yaml:"nms"`
}

// SortByScore orders detections by descending confidence. Ties keep their input order.
func SortByScore(detections []Result) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})
}

// FilterByScore returns the detections scoring at least threshold.
func FilterByScore(detections []Result, threshold float32) []Result {
	out := detections[:0:0]
	for _, d := range detections {
		if d.Score >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// The input is sorted by descending confidence before suppression, so callers may pass
// detections in any order.
//
// Arguments:
//   - detections: Candidate detections.
//   - config: NMS configuration. If ClassAware is set, boxes only suppress boxes of the same
//     class. A nil config returns the sorted input unchanged.
//
// Returns:
//   - Filtered slice of detections, highest score first. If no detections are provided,
//     returns nil.
func ApplyGreedyNMS(detections []Result, config *NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return nil
	}

	sorted := make([]Result, n)
	copy(sorted, detections)
	SortByScore(sorted)
	if config == nil {
		return sorted
	}

	filtered := make([]Result, 0, n)
	used := make([]bool, n)

	for i := 0; i < n; i++ {
		if used[i] {
			continue
		}

		anchor := sorted[i]
		filtered = append(filtered, anchor)
		used[i] = true

		for j := i + 1; j < n; j++ {
			if used[j] {
				continue
			}
			if config.ClassAware && sorted[j].Class != anchor.Class {
				continue
			}

			// Suppress if IoU exceeds threshold
			if anchor.Box.IoU(sorted[j].Box) > config.IoUThreshold {
				used[j] = true
			}
		}
	}

	return filtered
}
