package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"code.sztanpet.net/zvpsz/picad-vision/internal/file"
	"github.com/go-sql-driver/mysql"
	"github.com/juju/loggo"
)

// Storage persists Annotations to disk before inserting them into a database
type Storage struct {
	ctx    context.Context
	path   string
	db     *sql.DB
	insert chan inData

	stmtMu sync.RWMutex
	inStmt *sql.Stmt
}

type inData struct {
	path string
	data Annotation
}

// Annotation is one labeled snap
type Annotation struct {
	Image     string
	Labels    []string
	CreatedAt time.Time
}

var logger = loggo.GetLogger("picad.storage")
var pathProcessDurr = 1 * time.Minute

// dsn options: ?loc=UTC&parseTime=true&strict=true&timeout=1s&time_zone="+00:00"

// New journals into <statePath>/storage and inserts into the database at dsn.
// If the directory cannot be created an error is returned
func New(ctx context.Context, statePath, dsn string) (*Storage, error) {
	path := filepath.Join(statePath, "storage")
	// Open doesn't open a connection to validate the DSN!
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(30 * time.Second)
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	err = file.EnsureDir(path)
	if err != nil {
		return nil, err
	}

	s := &Storage{
		ctx:    ctx,
		path:   path,
		db:     db,
		insert: make(chan inData, 1),
	}

	go s.consumeData()

	return s, nil
}

// TestConnection can be used to test whether the provided DSN actually works
// and to make sure the connection to the database is alive
func (s *Storage) TestConnection() error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	return s.db.PingContext(ctx)
}

func (s *Storage) pathFor(data Annotation) string {
	return filepath.Join(s.path, strconv.FormatInt(data.CreatedAt.UnixNano(), 10))
}

// Insert persists the Annotation to disk for resilience
// and tries to insert it into the DB.
func (s *Storage) Insert(data Annotation) error {
	if data.CreatedAt.IsZero() {
		return errors.New("Annotation.CreatedAt cannot be zero")
	}

	// assumption: UnixNano() will give us a safely unique and nicely sortable filename
	dp := s.pathFor(data)
	if err := file.Serialize(dp, &data); err != nil {
		return err
	}

	// try to send the data up to the DB asap, on success the serialized file will be deleted
	// otherwise processPath picks it up later
	select {
	case <-s.ctx.Done():
	case s.insert <- inData{path: dp, data: data}:
	default:
		logger.Debugf("Insert: insert queue full, leaving %v for later", dp)
	}

	return nil
}

// consumeData listens on the Storage.insert channel for things to insert.
// If successfull, it tries to remove the persisted data file.
// It regularly processes any persisted data files and tries to insert them.
func (s *Storage) consumeData() {
	t := time.NewTicker(pathProcessDurr)
	defer t.Stop()
	var cancel context.CancelFunc
	defer func() {
		if cancel != nil {
			cancel()
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			logger.Infof("consumeData: context cancelled, exiting")
			_ = s.db.Close()
			return

		case in := <-s.insert:
			err := s.dbInsert(in.data)
			if err != nil {
				// processPath will retry the insert later
				logger.Debugf("inserting %v failed: %v", in.path, err)
				continue
			}

			// if the database insert was successfull, we can safely remove the local backup of the data
			err = os.Remove(in.path)
			if err != nil && !os.IsNotExist(err) {
				// there is a unique index on annotations.created_at, so on re-inserting
				// we should just try and remove the file again
				logger.Errorf("Failed to remove path: %v error was: %v", in.path, err)
			}

		case <-t.C:
			if cancel != nil {
				cancel()
				cancel = nil
			}
			var ctx context.Context
			ctx, cancel = context.WithCancel(s.ctx)
			go s.processPath(ctx)
		}
	}
}

// processPath retries inserting the persisted data in Storage.path.
func (s *Storage) processPath(ctx context.Context) {
	files, err := os.ReadDir(s.path)
	if err != nil {
		logger.Errorf("listing s.path failed (%v), skipping processing", err)
		return
	}

	logger.Tracef("number of files to insert: %v", len(files))
	for _, f := range files {
		if strings.Contains(f.Name(), ".tmp") {
			continue
		}
		id := inData{
			path: filepath.Join(s.path, f.Name()),
		}

		err := file.Unserialize(id.path, &id.data)
		if err != nil {
			logger.Errorf("failed unseralizing %v, error was: %v", id.path, err)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case s.insert <- id:
		}
	}
}

func (s *Storage) dbInsert(row Annotation) error {
	err := s.ensureStatement()
	if err != nil {
		return err
	}

	s.stmtMu.RLock()
	defer s.stmtMu.RUnlock()

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	// the result is irrelevant, only the error matters
	_, err = s.inStmt.ExecContext(
		ctx,
		filepath.Base(row.Image),
		strings.Join(row.Labels, "\n"),
		row.CreatedAt.UnixNano(),
	)

	return ignoreDuplicate(err)
}

func ignoreDuplicate(err error) error {
	me, ok := err.(*mysql.MySQLError)
	if !ok {
		return err
	}

	// uniqe error codes from:
	// https://dev.mysql.com/doc/refman/5.7/en/server-error-reference.html
	switch me.Number {
	case 1062, 1586:
		return nil
	}

	return err
}

func (s *Storage) ensureStatement() error {
	// take read lock first to check if inStmt is nil or not
	// and if it is, take a write lock to set it
	s.stmtMu.RLock()
	if s.inStmt != nil {
		s.stmtMu.RUnlock()
		return nil
	}
	s.stmtMu.RUnlock()

	// db.Stmt is safe to use concurrently, but it is not safe
	// for us to modify the pointer pointing to it concurrently
	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if s.inStmt != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	stmt, err := s.db.PrepareContext(ctx, `
		INSERT INTO annotations (image, labels, created_at, timestamp)
		VALUES (?, ?, ?, NOW())
	`)
	if err != nil {
		return err
	}
	s.inStmt = stmt

	return nil
}
