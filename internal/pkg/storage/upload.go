package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"time"
)

// sniffLen is how many bytes mimetype needs for the formats we accept.
const sniffLen = 3072

// StoredMedia describes a saved upload.
type StoredMedia struct {
	Key       string
	URL       string
	MediaType string
	MIME      string
	Size      int64
}

// SaveUpload validates a multipart file and stores it through p.
func SaveUpload(ctx context.Context, p Provider, fh *multipart.FileHeader, now time.Time) (*StoredMedia, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return SaveReader(ctx, p, fh.Filename, f, fh.Size, now)
}

// SaveReader is SaveUpload for an arbitrary reader of known size.
func SaveReader(ctx context.Context, p Provider, filename string, r io.Reader, size int64, now time.Time) (*StoredMedia, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	sniffed, err := ValidateMedia(filename, head, size)
	if err != nil {
		return nil, err
	}

	key := ObjectKey(sniffed.Ext, now)
	url, err := p.Save(ctx, key, io.MultiReader(bytes.NewReader(head), r), size, sniffed.MIME)
	if err != nil {
		return nil, err
	}
	return &StoredMedia{Key: key, URL: url, MediaType: sniffed.MediaType, MIME: sniffed.MIME, Size: size}, nil
}
