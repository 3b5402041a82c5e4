package alai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// ImageHandle is the backend's opaque reference to an uploaded image. It is
// passed back verbatim when requesting slide variants, so it stays raw JSON.
type ImageHandle = json.RawMessage

// browserUserAgent is sent when fetching source images; some hosts refuse
// requests without a realistic client identity.
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36"

// acceptedSubtypes are the image formats the backend's variant generator
// accepts. Everything else is filtered out before upload.
var acceptedSubtypes = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
}

type imageFile struct {
	name        string
	contentType string
	data        []byte
}

// UploadImages fetches each URL, filters out anything that is not an accepted
// image format, and re-uploads the survivors in a single multipart request.
// Individual fetch or format failures only shrink the result; an empty input
// or a fully filtered set returns empty with no upload call.
func (c *Client) UploadImages(ctx context.Context, presentationID string, urls []string) ([]ImageHandle, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	var files []imageFile
	for i, u := range urls {
		if !strings.HasPrefix(u, "http") {
			slog.Warn("Skipping non-absolute image URL", "url", u)
			continue
		}

		data, contentType, err := c.fetchImage(ctx, u)
		if err != nil {
			slog.Warn("Failed to fetch image", "url", u, "err", err)
			continue
		}

		subtype := imageSubtype(contentType)
		if !acceptedSubtypes[subtype] {
			slog.Warn("Skipping unsupported image format", "url", u, "content_type", contentType)
			continue
		}

		files = append(files, imageFile{
			name:        fmt.Sprintf("img%d.%s", i, subtype),
			contentType: contentType,
			data:        data,
		})
	}

	if len(files) == 0 {
		return nil, nil
	}

	return c.uploadFiles(ctx, presentationID, files)
}

// fetchImage downloads one image and reports its declared content type.
func (c *Client) fetchImage(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image data: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	return data, contentType, nil
}

// imageSubtype extracts the lowercase subtype from a content type header,
// dropping any media-type parameters.
func imageSubtype(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	mediaType = strings.ToLower(mediaType)
	if idx := strings.Index(mediaType, "/"); idx >= 0 {
		return mediaType[idx+1:]
	}
	return mediaType
}

// uploadFiles submits the surviving images plus the upload_input sidecar
// naming the target presentation.
func (c *Client) uploadFiles(ctx context.Context, presentationID string, files []imageFile) ([]ImageHandle, error) {
	token, err := c.tokens.ValidToken(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		header.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create multipart section: %w", err)
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, fmt.Errorf("failed to write image data: %w", err)
		}
	}

	sidecar, err := json.Marshal(map[string]string{"presentation_id": presentationID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload input: %w", err)
	}
	if err := writer.WriteField("upload_input", string(sidecar)); err != nil {
		return nil, fmt.Errorf("failed to write upload input: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/upload-images-for-slide-generation", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Origin", appOrigin)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &BackendError{Op: "/upload-images-for-slide-generation", Status: resp.StatusCode, Body: string(body)}
	}

	var result struct {
		Images []ImageHandle `json:"images"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	slog.Info("Images uploaded", "presentation_id", presentationID, "count", len(result.Images))
	return result.Images, nil
}
