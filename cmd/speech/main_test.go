package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/config"
	"code.sztanpet.net/zvpsz/picad-vision/internal/input"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type fakeSound struct {
	recorded []string
	played   []string
	lengths  []time.Duration
	onRecord func()
	err      error
}

func (f *fakeSound) Record(ctx context.Context, path string, length time.Duration) error {
	if f.onRecord != nil {
		f.onRecord()
	}
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, path)
	f.lengths = append(f.lengths, length)
	return os.WriteFile(path, []byte("RIFF said"), 0644)
}

func (f *fakeSound) Play(ctx context.Context, path string) error {
	f.played = append(f.played, path)
	return nil
}

type fakeVoice struct {
	heard     string
	err       error
	got       []string
	spokeText []string
}

func (f *fakeVoice) Transcribe(ctx context.Context, wav []byte) (string, error) {
	f.got = append(f.got, string(wav))
	return f.heard, f.err
}

func (f *fakeVoice) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.spokeText = append(f.spokeText, text)
	return []byte("RIFF " + text), nil
}

type fakeKeys struct {
	keys []rune
}

func (f *fakeKeys) WaitForKey(ctx context.Context) (rune, error) {
	if len(f.keys) == 0 {
		return 0, io.EOF
	}
	r := f.keys[0]
	f.keys = f.keys[1:]
	return r, nil
}

type speechSuite struct {
	a     *app
	dir   string
	out   *bytes.Buffer
	sound *fakeSound
	voice *fakeVoice
	keys  *fakeKeys
}

var _ = check.Suite(&speechSuite{})

func (s *speechSuite) SetUpTest(c *check.C) {
	s.dir = c.MkDir()
	s.out = &bytes.Buffer{}
	s.sound = &fakeSound{}
	s.voice = &fakeVoice{heard: "hello raspberry"}
	s.keys = &fakeKeys{}

	ctx, exit := context.WithCancel(context.Background())
	s.a = &app{
		ctx:   ctx,
		exit:  exit,
		cfg:   &config.Config{SoundDir: s.dir, RecordLength: 5 * time.Second},
		out:   s.out,
		sound: s.sound,
		voice: s.voice,
		keys:  s.keys,
	}
}

func (s *speechSuite) TearDownTest(c *check.C) {
	s.a.exit()
}

func (s *speechSuite) TestRound(c *check.C) {
	c.Assert(s.a.round(), check.IsNil)

	in := filepath.Join(s.dir, "input.wav")
	out := filepath.Join(s.dir, "output.wav")
	c.Check(s.sound.recorded, check.DeepEquals, []string{in})
	c.Check(s.sound.lengths, check.DeepEquals, []time.Duration{5 * time.Second})
	c.Check(s.voice.got, check.DeepEquals, []string{"RIFF said"})
	c.Check(s.voice.spokeText, check.DeepEquals, []string{"hello raspberry"})
	c.Check(s.sound.played, check.DeepEquals, []string{out})

	spoken, err := os.ReadFile(out)
	c.Assert(err, check.IsNil)
	c.Check(string(spoken), check.Equals, "RIFF hello raspberry")
	c.Check(s.out.String(), check.Equals, "Say something\r\nI heard: hello raspberry\r\n")
}

func (s *speechSuite) TestSilence(c *check.C) {
	s.voice.heard = ""

	c.Assert(s.a.round(), check.IsNil)

	c.Check(s.voice.spokeText, check.HasLen, 0)
	c.Check(s.sound.played, check.HasLen, 0)
	c.Check(s.out.String(), check.Equals, "Say something\r\nI heard nothing\r\n")
}

func (s *speechSuite) TestLoopUntilCtrlD(c *check.C) {
	s.keys.keys = []rune{'x', ' ', input.KeyEndTransmission, 'y'}

	c.Assert(s.a.loop(), check.IsNil)

	c.Check(s.sound.recorded, check.HasLen, 3)
	c.Check(s.keys.keys, check.DeepEquals, []rune{'y'})
}

func (s *speechSuite) TestLoopEndsWithTerminal(c *check.C) {
	c.Assert(s.a.loop(), check.IsNil)
	c.Check(s.sound.recorded, check.HasLen, 1)
}

func (s *speechSuite) TestTranscribeFailure(c *check.C) {
	s.voice.err = errors.New("recognize: permission denied")
	s.keys.keys = []rune{'x'}

	c.Check(s.a.loop(), check.ErrorMatches, "recognize: permission denied")
	c.Check(s.sound.played, check.HasLen, 0)
}

func (s *speechSuite) TestStopWhileRecording(c *check.C) {
	s.sound.onRecord = s.a.exit
	s.sound.err = context.Canceled

	c.Check(s.a.loop(), check.IsNil)
}
