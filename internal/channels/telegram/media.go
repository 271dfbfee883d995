package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mymmrac/telego"
)

const (
	// maxPhotoBytes caps photo downloads. Telegram bot API serves files up
	// to 20 MB, but the remote feature API rejects anything near that.
	maxPhotoBytes = 10 * 1024 * 1024

	// maxPhotoDimension is the longest edge sent to the feature API.
	// Larger photos are downscaled before upload.
	maxPhotoDimension = 1024

	downloadMaxRetries = 3
)

// downloadPhoto fetches the largest rendition of a Telegram photo into
// memory and downscales it to the upload limit.
func (c *Channel) downloadPhoto(ctx context.Context, photos []telego.PhotoSize) ([]byte, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("no photo sizes")
	}
	// Telegram orders renditions smallest first.
	best := photos[len(photos)-1]

	raw, err := c.downloadFile(ctx, best.FileID)
	if err != nil {
		return nil, err
	}
	return downscalePhoto(raw)
}

// downloadFile downloads a file from Telegram by file_id with retry logic.
func (c *Channel) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	var file *telego.File
	var err error

	for attempt := 1; attempt <= downloadMaxRetries; attempt++ {
		file, err = c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
		if err == nil {
			break
		}
		if attempt < downloadMaxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("get file info after %d attempts: %w", downloadMaxRetries, err)
	}

	if file.FilePath == "" {
		return nil, fmt.Errorf("empty file path for file_id %s", fileID)
	}
	if int64(file.FileSize) > maxPhotoBytes {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", file.FileSize, maxPhotoBytes)
	}

	downloadURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.config.Token, file.FilePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > maxPhotoBytes {
		return nil, fmt.Errorf("file exceeds max size during download: %d bytes", len(data))
	}
	return data, nil
}

// downscalePhoto re-encodes photos whose longest edge exceeds the upload
// limit. Photos already within bounds pass through untouched.
func downscalePhoto(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= maxPhotoDimension && bounds.Dy() <= maxPhotoDimension {
		return raw, nil
	}

	resized := imaging.Fit(img, maxPhotoDimension, maxPhotoDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode photo: %w", err)
	}
	return buf.Bytes(), nil
}
