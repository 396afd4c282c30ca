package file

import (
	"encoding/gob"
	"os"
	"path/filepath"
)

// Serialize gob-encodes data into a temporary file and renames it to path,
// so readers never see a half written file.
func Serialize(path string, data interface{}) error {
	tf, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}

	e := gob.NewEncoder(tf)
	err = e.Encode(data)
	if err != nil {
		_ = tf.Close()
		_ = os.Remove(tf.Name())
		return err
	}

	err = tf.Sync()
	if err != nil {
		_ = tf.Close()
		_ = os.Remove(tf.Name())
		return err
	}
	_ = tf.Close()

	return os.Rename(tf.Name(), path)
}

func Unserialize(path string, data interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewDecoder(f).Decode(data)
}

// EnsureDir creates path and its parents if they are missing.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Append writes data to the end of path, creating it if needed.
func Append(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	return err
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
