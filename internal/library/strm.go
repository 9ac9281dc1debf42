package library

import (
	"fmt"
	"os"
	"path/filepath"

	"strmhub/internal/utils"
)

// WriteStrm writes a stream-reference file for a library item and returns
// the path. Media players treat the file's single line as the stream URL.
// Layout is <root>/<Name (Year)>/<Name (Year)>.strm so movie and series
// folders sit side by side.
func WriteStrm(root string, item *Item, streamURL string) (string, error) {
	if streamURL == "" {
		return "", fmt.Errorf("no stream url for %q", item.Name)
	}

	base := utils.SanitizeFilename(item.Name)
	if base == "" {
		base = fmt.Sprintf("item-%d", item.ID)
	}
	if item.Year != nil {
		base = fmt.Sprintf("%s (%d)", base, *item.Year)
	}

	dir := filepath.Join(root, base)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create library folder: %w", err)
	}

	path := filepath.Join(dir, base+".strm")
	if err := os.WriteFile(path, []byte(streamURL+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write strm file: %w", err)
	}
	return path, nil
}
