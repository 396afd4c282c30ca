package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/api/option"
	speechapi "google.golang.org/api/speech/v1"
	ttsapi "google.golang.org/api/texttospeech/v1"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type speechSuite struct {
	srv *httptest.Server

	recognize  *speechapi.RecognizeRequest
	synthesize *ttsapi.SynthesizeSpeechRequest
	response   string
}

var _ = check.Suite(&speechSuite{})

func (s *speechSuite) SetUpTest(c *check.C) {
	s.recognize, s.synthesize = nil, nil
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var into interface{}
		switch r.URL.Path {
		case "/v1/speech:recognize":
			s.recognize = &speechapi.RecognizeRequest{}
			into = s.recognize
		case "/v1/text:synthesize":
			s.synthesize = &ttsapi.SynthesizeSpeechRequest{}
			into = s.synthesize
		default:
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(into); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s.response))
	}))
}

func (s *speechSuite) TearDownTest(c *check.C) {
	s.srv.Close()
}

func (s *speechSuite) client(c *check.C) *Client {
	cl, err := newClient(context.Background(), "en-US", "FEMALE",
		option.WithEndpoint(s.srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(s.srv.Client()),
	)
	c.Assert(err, check.IsNil)
	return cl
}

func (s *speechSuite) TestTranscribe(c *check.C) {
	s.response = `{"results":[
		{"alternatives":[{"transcript":"hello raspberry","confidence":0.93},{"transcript":"hello rasp berry"}]},
		{"alternatives":[]},
		{"alternatives":[{"transcript":"how are you"}]}
	]}`

	txt, err := s.client(c).Transcribe(context.Background(), []byte("RIFF wav"))
	c.Assert(err, check.IsNil)
	c.Check(txt, check.Equals, "hello raspberry\nhow are you")

	c.Assert(s.recognize, check.NotNil)
	c.Check(s.recognize.Config.Encoding, check.Equals, "LINEAR16")
	c.Check(s.recognize.Config.LanguageCode, check.Equals, "en-US")
	c.Check(s.recognize.Audio.Content, check.Equals, base64.StdEncoding.EncodeToString([]byte("RIFF wav")))
}

func (s *speechSuite) TestTranscribeSilence(c *check.C) {
	s.response = `{}`

	txt, err := s.client(c).Transcribe(context.Background(), []byte("RIFF"))
	c.Assert(err, check.IsNil)
	c.Check(txt, check.Equals, "")
}

func (s *speechSuite) TestTranscribeError(c *check.C) {
	s.srv.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":400,"message":"bad encoding"}}`, http.StatusBadRequest)
	})

	_, err := s.client(c).Transcribe(context.Background(), []byte("x"))
	c.Check(err, check.ErrorMatches, "recognize: .*")
}

func (s *speechSuite) TestSynthesize(c *check.C) {
	s.response = `{"audioContent":"` + base64.StdEncoding.EncodeToString([]byte("RIFF spoken")) + `"}`

	wav, err := s.client(c).Synthesize(context.Background(), "hello raspberry")
	c.Assert(err, check.IsNil)
	c.Check(string(wav), check.Equals, "RIFF spoken")

	c.Assert(s.synthesize, check.NotNil)
	c.Check(s.synthesize.Input.Text, check.Equals, "hello raspberry")
	c.Check(s.synthesize.Voice.LanguageCode, check.Equals, "en-US")
	c.Check(s.synthesize.Voice.SsmlGender, check.Equals, "FEMALE")
	c.Check(s.synthesize.AudioConfig.AudioEncoding, check.Equals, "LINEAR16")
}

func (s *speechSuite) TestSynthesizeNothing(c *check.C) {
	_, err := s.client(c).Synthesize(context.Background(), " \n")
	c.Check(err, check.ErrorMatches, "synthesize: nothing to say")
	c.Check(s.synthesize, check.IsNil)
}

func (s *speechSuite) TestSynthesizeBadAudio(c *check.C) {
	s.response = `{"audioContent":"not base64!"}`

	_, err := s.client(c).Synthesize(context.Background(), "hi")
	c.Check(err, check.ErrorMatches, "synthesize: decode audio: .*")
}
