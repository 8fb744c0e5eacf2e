package leonardo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// allowed init-image extensions, per the service's upload contract.
var initImageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"webp": true,
}

type initImageResponse struct {
	UploadInitImage struct {
		ID  string `json:"id"`
		URL string `json:"url"`
		// Fields is a JSON-encoded string of form fields the storage
		// target requires on the multipart POST.
		Fields string `json:"fields"`
	} `json:"uploadInitImage"`
}

// UploadInitImage uploads a local image for use as an init image and
// returns its id.
//
// The upload is a two-step protocol: first request a presigned upload
// target (URL plus a set of required form fields), then POST the fields
// and the file as multipart form data to that target. The target confirms
// success with an empty body, not JSON.
func (c *Client) UploadInitImage(ctx context.Context, path string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !initImageExtensions[ext] {
		return "", validationErrorf("unsupported init image extension %q (want png, jpg, jpeg, or webp)", ext)
	}

	// Step 1: obtain the upload target.
	body, err := c.doRequest(ctx, http.MethodPost, "init-image", map[string]any{"extension": ext})
	if err != nil {
		return "", err
	}

	var resp initImageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", shapeErrorf("parse init-image response: %v", err)
	}
	target := resp.UploadInitImage
	if target.ID == "" || target.URL == "" {
		return "", shapeErrorf("init-image response missing upload target")
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(target.Fields), &fields); err != nil {
		return "", shapeErrorf("parse init-image upload fields: %v", err)
	}

	// Step 2: multipart POST to the presigned target.
	if err := c.postMultipart(ctx, target.URL, fields, path); err != nil {
		return "", err
	}

	log.Info().Str("initImageId", target.ID).Str("file", filepath.Base(path)).Msg("Init image uploaded")
	return target.ID, nil
}

// postMultipart sends the presigned fields plus the file to the upload
// target. The target is not the API itself, so no auth header is sent.
func (c *Client) postMultipart(ctx context.Context, url string, fields map[string]string, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return &Error{Kind: KindValidation, Message: "open init image", Err: err}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return &Error{Kind: KindTransport, Message: "write upload field", Err: err}
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return &Error{Kind: KindTransport, Message: "create upload part", Err: err}
	}
	if _, err := io.Copy(part, file); err != nil {
		return &Error{Kind: KindTransport, Message: "read init image", Err: err}
	}
	if err := writer.Close(); err != nil {
		return &Error{Kind: KindTransport, Message: "finalize upload body", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "build upload request", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "upload request failed", Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		respBody, _ := io.ReadAll(httpResp.Body)
		return classifyStatus(httpResp.StatusCode, "init-image upload", string(respBody))
	}

	// Success is an empty-body confirmation; nothing to parse.
	return nil
}
