package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type visionSuite struct {
	srv      *httptest.Server
	got      *visionapi.BatchAnnotateImagesRequest
	path     string
	response string
}

var _ = check.Suite(&visionSuite{})

func (s *visionSuite) SetUpTest(c *check.C) {
	s.got = nil
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.path = r.URL.Path
		s.got = &visionapi.BatchAnnotateImagesRequest{}
		if err := json.NewDecoder(r.Body).Decode(s.got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s.response))
	}))
}

func (s *visionSuite) TearDownTest(c *check.C) {
	s.srv.Close()
}

func (s *visionSuite) client(c *check.C) *Client {
	cl, err := newClient(context.Background(), 5,
		option.WithEndpoint(s.srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(s.srv.Client()),
	)
	c.Assert(err, check.IsNil)
	return cl
}

func (s *visionSuite) TestLabels(c *check.C) {
	s.response = `{"responses":[{"labelAnnotations":[
		{"description":"Cat","score":0.98},
		{"description":"Whiskers","score":0.91},
		{"description":"Sofa","score":0.72}
	]}]}`

	labels, err := s.client(c).Labels(context.Background(), []byte("jpeg bytes"))
	c.Assert(err, check.IsNil)
	c.Check(labels, check.DeepEquals, []string{"Cat", "Whiskers", "Sofa"})

	c.Check(s.path, check.Equals, "/v1/images:annotate")
	c.Assert(s.got.Requests, check.HasLen, 1)
	req := s.got.Requests[0]
	c.Check(req.Image.Content, check.Equals, base64.StdEncoding.EncodeToString([]byte("jpeg bytes")))
	c.Assert(req.Features, check.HasLen, 1)
	c.Check(req.Features[0].Type, check.Equals, "LABEL_DETECTION")
	c.Check(req.Features[0].MaxResults, check.Equals, int64(5))
}

func (s *visionSuite) TestNoLabels(c *check.C) {
	s.response = `{"responses":[{}]}`

	labels, err := s.client(c).Labels(context.Background(), []byte("x"))
	c.Assert(err, check.IsNil)
	c.Check(labels, check.HasLen, 0)
}

func (s *visionSuite) TestResponseError(c *check.C) {
	s.response = `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`

	_, err := s.client(c).Labels(context.Background(), []byte("x"))
	c.Check(err, check.ErrorMatches, `annotate: Bad image data\. \(code 3\)`)
}

func (s *visionSuite) TestEmptyResponse(c *check.C) {
	s.response = `{}`

	_, err := s.client(c).Labels(context.Background(), []byte("x"))
	c.Check(err, check.ErrorMatches, "annotate: empty response")
}

func (s *visionSuite) TestHTTPError(c *check.C) {
	s.srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})

	_, err := s.client(c).Labels(context.Background(), []byte("x"))
	c.Check(err, check.ErrorMatches, "annotate: .*")
}
