// Package media inventories screenshots and screen recordings without
// looking inside them.
package media

import (
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ai-dev-2024/labtriage/internal/model"
)

const bytesPerMiB = 1024 * 1024

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Kind derives the media kind from the extension alone.
func Kind(rel string) model.MediaKind {
	if imageExtensions[strings.ToLower(path.Ext(rel))] {
		return model.MediaImage
	}
	return model.MediaVideo
}

// Entry stats root/rel and describes it.
func Entry(root, rel string) (model.MediaEntry, error) {
	info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return model.MediaEntry{}, fmt.Errorf("stat media: %w", err)
	}
	return model.MediaEntry{
		Path:   rel,
		SizeMB: SizeMiB(info.Size()),
		Type:   Kind(rel),
	}, nil
}

// SizeMiB converts bytes to mebibytes rounded to two decimals.
func SizeMiB(size int64) float64 {
	return math.Round(float64(size)/bytesPerMiB*100) / 100
}

// Split sorts entries into screenshots and videos, keeping order.
func Split(entries []model.MediaEntry) (screenshots, videos []model.MediaEntry) {
	screenshots = make([]model.MediaEntry, 0)
	videos = make([]model.MediaEntry, 0)
	for _, e := range entries {
		if e.Type == model.MediaImage {
			screenshots = append(screenshots, e)
		} else {
			videos = append(videos, e)
		}
	}
	return screenshots, videos
}
