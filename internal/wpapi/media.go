package wpapi

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/twcadmin/internal/gateway"
)

// Media is an uploaded attachment.
type Media struct {
	ID        int    `json:"id"`
	SourceURL string `json:"source_url"`
	MimeType  string `json:"mime_type"`
}

// UploadMedia uploads content as the multipart field "file".
func (c *Client) UploadMedia(ctx context.Context, name, contentType string, content []byte) (*Media, error) {
	req := gateway.Request{
		Method: http.MethodPost,
		Path:   PathMedia,
		File: &gateway.File{
			Field:       "file",
			Name:        name,
			ContentType: contentType,
			Content:     content,
		},
	}

	var m Media
	if _, err := c.gw.DoJSON(ctx, req, &m); err != nil {
		return nil, wrap(err, "Failed to upload media")
	}
	return &m, nil
}
