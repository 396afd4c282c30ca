package mcp23s17_test

import (
	"errors"
	"testing"

	"code.sztanpet.net/zvpsz/picad-vision/internal/mcp23s17"
	"code.sztanpet.net/zvpsz/picad-vision/internal/mcp23s17/mcp23s17test"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type devSuite struct{}

var _ = check.Suite(&devSuite{})

type recordingConn struct {
	tx [][]byte
}

func (r *recordingConn) Tx(w, rd []byte) error {
	r.tx = append(r.tx, append([]byte(nil), w...))
	if rd != nil {
		rd[2] = 0xA5
	}
	return nil
}

func (s *devSuite) TestOpcodes(c *check.C) {
	conn := &recordingConn{}
	d := mcp23s17.New(conn, 3)

	c.Assert(d.WriteRegister(mcp23s17.IODIRB, 0x00), check.IsNil)
	v, err := d.ReadRegister(mcp23s17.GPIOA)
	c.Assert(err, check.IsNil)
	c.Check(v, check.Equals, byte(0xA5))

	c.Check(conn.tx, check.DeepEquals, [][]byte{
		{0x46, 0x01, 0x00},
		{0x47, 0x12, 0x00},
	})
}

func (s *devSuite) TestErrorsAreWrapped(c *check.C) {
	boom := errors.New("bus gone")
	d := mcp23s17.New(&mcp23s17test.Fake{Err: boom}, 0)

	_, err := d.ReadRegister(mcp23s17.INTFA)
	c.Check(errors.Is(err, boom), check.Equals, true)
	c.Check(err, check.ErrorMatches, "mcp23s17: read 0xe: bus gone")

	err = d.WriteRegister(mcp23s17.OLATB, 0x80)
	c.Check(errors.Is(err, boom), check.Equals, true)
	c.Check(err, check.ErrorMatches, "mcp23s17: write 0x15: bus gone")
}
