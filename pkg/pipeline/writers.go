package pipeline

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/1F47E/go-inkwell/pkg/workspace"
)

// writeMoved encodes into workspace scratch and renames into place.
// A failed encode leaves nothing at the destination.
func writeMoved(ws *workspace.Handle, finalPath string, encode func(scratch string) error) error {
	scratch := ws.Path(filepath.Base(finalPath))
	if err := encode(scratch); err != nil {
		return err
	}

	if dir := filepath.Dir(finalPath); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("cannot create output dir %s: %w", dir, err)
		}
	}
	if err := os.Rename(scratch, finalPath); err != nil {
		return fmt.Errorf("cannot move artifact into place: %w", err)
	}
	return nil
}

func writePNG(img *image.NRGBA, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create file: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img.SubImage(img.Rect)); err != nil {
		return fmt.Errorf("cannot encode png: %w", err)
	}
	return file.Sync()
}

func writeJPG(img *image.NRGBA, path string, quality int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create file: %w", err)
	}
	defer file.Close()
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("cannot encode jpg: %w", err)
	}
	return file.Sync()
}
