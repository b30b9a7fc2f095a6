package application

import "canvaslink/internal/domain"

// IsCanvasPath reports whether path names a canvas document
func IsCanvasPath(path string) bool {
	_, _, ext := domain.SplitExt(path)
	return ext == domain.CanvasExt
}
