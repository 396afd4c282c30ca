package input

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type inputSuite struct{}

var _ = check.Suite(&inputSuite{})

type reader struct {
	*bufio.Reader
}

func (r reader) ReadRune() (rune, error) {
	ru, _, err := r.Reader.ReadRune()
	return ru, err
}

func keys(s string) *Input {
	return &Input{r: reader{bufio.NewReader(strings.NewReader(s))}}
}

func (s *inputSuite) TestWaitForEnter(c *check.C) {
	for _, in := range []string{"\r", "abc\rdef", "x\n", "\x04", "\x03", "no enter at all"} {
		c.Check(keys(in).WaitForEnter(context.Background()), check.IsNil, check.Commentf("input %q", in))
	}
}

func (s *inputSuite) TestCancelled(c *check.C) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := keys("\r").WaitForEnter(ctx)
	c.Check(errors.Is(err, context.Canceled), check.Equals, true)
}

func (s *inputSuite) TestCloseWithoutTTY(c *check.C) {
	c.Check(keys("").Close(), check.IsNil)
}

func (s *inputSuite) TestWaitForKey(c *check.C) {
	in := keys("q")

	r, err := in.WaitForKey(context.Background())
	c.Assert(err, check.IsNil)
	c.Check(r, check.Equals, 'q')

	_, err = in.WaitForKey(context.Background())
	c.Check(err, check.Equals, io.EOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = keys("q").WaitForKey(ctx)
	c.Check(errors.Is(err, context.Canceled), check.Equals, true)
}
