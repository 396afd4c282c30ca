// Package vision asks the Google Cloud Vision API for image labels.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/juju/loggo"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"
)

var logger = loggo.GetLogger("picad.vision")

const featureLabels = "LABEL_DETECTION"

type Client struct {
	svc        *visionapi.Service
	maxResults int64
}

// New authenticates with the service account key in keyFile. Extra options
// are applied after the credentials.
func New(ctx context.Context, keyFile string, maxResults int64, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(keyFile),
		option.WithScopes(visionapi.CloudVisionScope),
	}, opts...)

	return newClient(ctx, maxResults, opts...)
}

func newClient(ctx context.Context, maxResults int64, opts ...option.ClientOption) (*Client, error) {
	svc, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}

	return &Client{svc: svc, maxResults: maxResults}, nil
}

// Labels returns the label descriptions for the image, most relevant first.
func (c *Client) Labels(ctx context.Context, content []byte) ([]string, error) {
	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image: &visionapi.Image{
				Content: base64.StdEncoding.EncodeToString(content),
			},
			Features: []*visionapi.Feature{{
				Type:       featureLabels,
				MaxResults: c.maxResults,
			}},
		}},
	}

	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, errors.New("annotate: empty response")
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("annotate: %s (code %d)", r.Error.Message, r.Error.Code)
	}

	labels := make([]string, 0, len(r.LabelAnnotations))
	for _, l := range r.LabelAnnotations {
		logger.Tracef("label %q score %.3f", l.Description, l.Score)
		labels = append(labels, l.Description)
	}

	return labels, nil
}
