package services

import (
	// Standard library
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	// Internal packages
	"photogallery/internal/models"

	// Third-party
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	_ "golang.org/x/image/webp" // registers the WebP decoder used by imaging.Decode
)

// MediaPrefix is the URL path under which stored photos are served.
const MediaPrefix = "/media/"

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrDecode          = errors.New("cannot decode image")
)

// allowedImageTypes maps a sniffed MIME type to the format the photo is stored in.
// WebP is decoded but stored as JPEG because imaging has no WebP encoder.
var allowedImageTypes = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
	"image/webp": imaging.JPEG,
}

var formatInfo = map[imaging.Format]struct{ ext, mime string }{
	imaging.JPEG: {".jpeg", "image/jpeg"},
	imaging.PNG:  {".png", "image/png"},
	imaging.GIF:  {".gif", "image/gif"},
}

// ProcessAndSavePhoto stores one uploaded multipart file. See SavePhoto.
func ProcessAndSavePhoto(fileHeader *multipart.FileHeader, uploadDir string) (*models.Photo, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()
	return SavePhoto(file, fileHeader.Filename, uploadDir)
}

// SavePhoto checks the real content type, decodes the image (applying EXIF
// orientation), re-encodes it under a random name in uploadDir and returns the
// resulting Photo. Re-encoding drops most metadata.
func SavePhoto(src io.Reader, filename, uploadDir string) (*models.Photo, error) {
	// The real type comes from the first 512 bytes, not the extension.
	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("read file header: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	format, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	img, err := imaging.Decode(io.MultiReader(bytes.NewReader(head), src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	id := uuid.NewString()
	info := formatInfo[format]
	storedFilename := id + info.ext
	filePath := filepath.Join(uploadDir, storedFilename)

	out, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filePath, err)
	}
	if err := imaging.Encode(out, img, format); err != nil {
		out.Close()
		os.Remove(filePath)
		return nil, fmt.Errorf("encode %s: %w", filePath, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("close %s: %w", filePath, err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}

	log.Printf("Photo %q stored as %s (%dx%d, %s)", filename, storedFilename, width, height, contentType)
	return &models.Photo{
		ID:             id,
		URL:            MediaPrefix + storedFilename,
		Filename:       filepath.Base(filename),
		StoredFilename: storedFilename,
		Size:           stat.Size(),
		Type:           info.mime,
		Width:          &width,
		Height:         &height,
	}, nil
}

// RemoveStoredFiles deletes stored photo files, logging failures instead of returning them.
func RemoveStoredFiles(uploadDir string, storedFilenames []string) {
	for _, name := range storedFilenames {
		if name == "" {
			continue
		}
		fullPath := filepath.Join(uploadDir, filepath.Base(name))
		if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
			log.Printf("WARNING: could not remove %s: %v", fullPath, err)
		}
	}
}
