package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	filePrefix = "session_"
	fileSuffix = ".json"
)

// FileStore keeps one JSON file per session in a directory, named
// session_<id>.json.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file session store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create sessions directory %s", dir)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string {
	return s.dir
}

// checkID rejects ids that would resolve outside the store directory.
func checkID(id string) error {
	if strings.ContainsAny(id, `/\`) {
		return errors.Errorf("file session store: invalid session id %q", id)
	}
	return nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, filePrefix+id+fileSuffix)
}

// Save writes the snapshot atomically, replacing any previous one.
func (s *FileStore) Save(_ context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("file session store: nil session")
	}
	if err := checkID(sess.ID); err != nil {
		return err
	}
	touch(sess)
	data, err := encode(sess)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp session file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "write session file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "close session file")
	}
	if err := os.Rename(tmp.Name(), s.path(sess.ID)); err != nil {
		_ = os.Remove(tmp.Name())
		return errors.Wrap(err, "replace session file")
	}

	log.Debug().Str("session_id", sess.ID).Str("dir", s.dir).Msg("session saved")
	return nil
}

func (s *FileStore) Load(_ context.Context, id string) (*Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", id)
		}
		return nil, errors.Wrapf(err, "read session %s", id)
	}
	return decode(data)
}

// List enumerates sessions, most recently updated first. Unreadable files are
// skipped with a warning.
func (s *FileStore) List(_ context.Context) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "list sessions in %s", s.dir)
	}

	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable session file")
			continue
		}
		sess, err := decode(data)
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping corrupt session file")
			continue
		}
		out = append(out, Summary{ID: sess.ID, LastUpdated: sess.LastUpdated})
	}
	sortSummaries(out)
	return out, nil
}

func sortSummaries(out []Summary) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].ID < out[j].ID
	})
}
