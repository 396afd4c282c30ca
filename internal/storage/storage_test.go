package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/file"
	"github.com/go-sql-driver/mysql"
	"gopkg.in/check.v1"
)

func Test(t *testing.T) { check.TestingT(t) }

type storageSuite struct {
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
	s      *Storage
}

var _ = check.Suite(&storageSuite{})

// nothing listens on port 1, inserts fail and the journal stays on disk
const unreachableDSN = "picad:secret@tcp(127.0.0.1:1)/picad?timeout=100ms"

func (s *storageSuite) SetUpTest(c *check.C) {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.dir = c.MkDir()

	st, err := New(s.ctx, s.dir, unreachableDSN)
	c.Assert(err, check.IsNil)
	s.s = st
}

func (s *storageSuite) TearDownTest(c *check.C) {
	s.cancel()
}

func (s *storageSuite) TestInsertJournalsToDisk(c *check.C) {
	a := Annotation{
		Image:     "/opt/picad/snap/1539692400.000001.jpg",
		Labels:    []string{"Cat", "Sofa"},
		CreatedAt: time.Unix(1539692400, 1000),
	}
	c.Assert(s.s.Insert(a), check.IsNil)

	path := filepath.Join(s.dir, "storage", "1539692400000001000")
	var got Annotation
	c.Assert(file.Unserialize(path, &got), check.IsNil)
	c.Check(got.Image, check.Equals, a.Image)
	c.Check(got.Labels, check.DeepEquals, a.Labels)
	c.Check(got.CreatedAt.Equal(a.CreatedAt), check.Equals, true)
}

func (s *storageSuite) TestInsertRequiresTimestamp(c *check.C) {
	c.Check(s.s.Insert(Annotation{Image: "x.jpg"}), check.ErrorMatches, ".*CreatedAt cannot be zero")
}

func (s *storageSuite) TestInsertAfterCancel(c *check.C) {
	s.cancel()

	c.Check(s.s.Insert(Annotation{Image: "x.jpg", CreatedAt: time.Now()}), check.IsNil)
	entries, err := os.ReadDir(filepath.Join(s.dir, "storage"))
	c.Assert(err, check.IsNil)
	c.Check(entries, check.HasLen, 1)
}

func (s *storageSuite) TestIgnoreDuplicate(c *check.C) {
	c.Check(ignoreDuplicate(nil), check.IsNil)
	c.Check(ignoreDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), check.IsNil)
	c.Check(ignoreDuplicate(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}), check.NotNil)

	other := errors.New("connection refused")
	c.Check(ignoreDuplicate(other), check.Equals, other)
}
