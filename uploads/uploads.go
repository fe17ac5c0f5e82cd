// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"github.com/danielhkuo/abri/apiclient"
	"github.com/danielhkuo/abri/models"
	"github.com/danielhkuo/abri/workflow"
)

// Upload endpoints and their multipart field names
const (
	PathSingle   = "/uploads/single"
	PathMultiple = "/uploads/multiple"
	PathDonation = "/dons/upload"
	FieldImage   = "image"
	FieldImages  = "images"
)

const maxImageSize = 10 << 20

// API is the part of the HTTP client used for uploads and listings
type API interface {
	workflow.API
	Upload(ctx context.Context, path string, files []apiclient.File, token string) (*apiclient.Response, error)
}

// Uploader reads images from a filesystem and posts them to the backend
type Uploader struct {
	fs  afero.Fs
	api API
}

func NewUploader(fs afero.Fs, api API) *Uploader {
	return &Uploader{fs: fs, api: api}
}

// UploadImages uploads the files at paths and returns their URLs, in order.
// One file goes to the single-upload endpoint, several to the multiple one.
func (u *Uploader) UploadImages(ctx context.Context, paths []string, token string) ([]string, error) {
	switch len(paths) {
	case 0:
		return nil, nil
	case 1:
		url, err := u.uploadOne(ctx, PathSingle, paths[0], token)
		if err != nil {
			return nil, err
		}
		return []string{url}, nil
	}

	files, closeAll, err := u.open(FieldImages, paths)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	resp, err := u.api.Upload(ctx, PathMultiple, files, token)
	if err != nil {
		return nil, err
	}

	var out models.UploadResponse
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	if len(out.URLs) != len(paths) {
		return nil, &apiclient.Error{
			Reason:  apiclient.ReasonDecode,
			Status:  resp.Status,
			Message: fmt.Sprintf("expected %d image urls, got %d", len(paths), len(out.URLs)),
		}
	}
	return out.URLs, nil
}

// UploadDonationImage uploads the photo of a donation
func (u *Uploader) UploadDonationImage(ctx context.Context, path, token string) (string, error) {
	return u.uploadOne(ctx, PathDonation, path, token)
}

func (u *Uploader) uploadOne(ctx context.Context, endpoint, path, token string) (string, error) {
	files, closeAll, err := u.open(FieldImage, []string{path})
	if err != nil {
		return "", err
	}
	defer closeAll()

	resp, err := u.api.Upload(ctx, endpoint, files, token)
	if err != nil {
		return "", err
	}

	var out models.UploadResponse
	if err := resp.Decode(&out); err != nil {
		return "", err
	}
	switch {
	case out.URL != "":
		return out.URL, nil
	case len(out.URLs) > 0:
		return out.URLs[0], nil
	default:
		return "", &apiclient.Error{Reason: apiclient.ReasonDecode, Status: resp.Status, Message: "upload response has no url"}
	}
}

// open opens every path before anything is sent, so a missing file fails
// without a network call.
func (u *Uploader) open(field string, paths []string) ([]apiclient.File, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	files := make([]apiclient.File, 0, len(paths))
	for _, p := range paths {
		info, err := u.fs.Stat(p)
		if err != nil {
			closeAll()
			return nil, nil, &FileError{Path: p, Err: err}
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, &FileError{Path: p, Err: fmt.Errorf("is a directory")}
		}
		if info.Size() > maxImageSize {
			closeAll()
			return nil, nil, &FileError{Path: p, Err: fmt.Errorf("%s exceeds the %s limit", humanize.Bytes(uint64(info.Size())), humanize.Bytes(maxImageSize))}
		}

		f, err := u.fs.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, &FileError{Path: p, Err: err}
		}
		closers = append(closers, f)

		slog.Debug("uploading image", "path", p, "size", humanize.Bytes(uint64(info.Size())))
		files = append(files, apiclient.File{Field: field, Name: filepath.Base(p), Content: f})
	}
	return files, closeAll, nil
}

// FileError reports a local image that could not be read
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("image %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// withField sets key in a JSON object. When key is new it is appended and
// the existing bytes are kept as they are.
func withField(payload []byte, key string, value any) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("payload is not a JSON object")
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	if _, exists := fields[key]; exists {
		fields[key] = encoded
		return json.Marshal(fields)
	}

	trimmed := bytes.TrimRight(payload, " \t\r\n")
	body := trimmed[:len(trimmed)-1]
	out := make([]byte, 0, len(payload)+len(key)+len(encoded)+4)
	out = append(out, body...)
	if len(fields) > 0 {
		out = append(out, ',')
	}
	k, _ := json.Marshal(key)
	out = append(out, k...)
	out = append(out, ':')
	out = append(out, encoded...)
	out = append(out, '}')
	return out, nil
}
