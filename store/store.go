// Package store keeps trained models in a BadgerDB registry, keyed by
// model name.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akualab/chorale/model/hmm"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrNotFound  = Error("store: model not found")
	ErrNoName    = Error("store: model has no name")
	ErrUntrained = Error("store: model is not trained")
)

const (
	infoPrefix  = "info/"
	modelPrefix = "model/"
)

// Info describes a stored model.
type Info struct {
	Name       string    `json:"name" msgpack:"name"`
	ID         string    `json:"id" msgpack:"id"`
	Created    time.Time `json:"created" msgpack:"created"`
	Floor      float64   `json:"floor" msgpack:"floor"`
	NumPieces  int       `json:"num_pieces" msgpack:"num_pieces"`
	NumEvents  int       `json:"num_events" msgpack:"num_events"`
	UnseenRows int       `json:"unseen_rows" msgpack:"unseen_rows"`
}

// Badger is a model registry backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// Options configures the registry.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB with no disk persistence.
	InMemory bool

	// Logger sets the badger logger. Defaults to glog.
	Logger badger.Logger
}

// Open opens or creates a registry.
func Open(opts Options) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if opts.Logger != nil {
		dbOpts = dbOpts.WithLogger(opts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(glogLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("opened model store, dir: %q, in memory: %t", opts.Dir, opts.InMemory)
	return &Badger{db: db}, nil
}

// Put stores a trained model under its name, replacing any model with
// the same name. Returns the info record of the stored model.
func (b *Badger) Put(_ context.Context, m *hmm.Model) (Info, error) {
	if m.Name() == "" {
		return Info{}, ErrNoName
	}
	if !m.Trained() {
		return Info{}, fmt.Errorf("%w: %q", ErrUntrained, m.Name())
	}
	info := Info{
		Name:       m.Name(),
		ID:         uuid.NewString(),
		Created:    time.Now().UTC(),
		Floor:      m.Floor,
		NumPieces:  m.NumPieces,
		NumEvents:  m.NumEvents,
		UnseenRows: m.UnseenRows,
	}
	iv, err := msgpack.Marshal(&info)
	if err != nil {
		return Info{}, err
	}
	mv, err := m.MarshalBinary()
	if err != nil {
		return Info{}, err
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(infoPrefix+info.Name), iv); err != nil {
			return err
		}
		return txn.Set([]byte(modelPrefix+info.Name), mv)
	})
	if err != nil {
		return Info{}, err
	}
	glog.V(1).Infof("stored model %q, id: %s, %d bytes", info.Name, info.ID, len(mv))
	return info, nil
}

// Get returns the model stored under name.
func (b *Badger) Get(_ context.Context, name string) (*hmm.Model, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(modelPrefix + name))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	m := hmm.NewModel()
	if err := m.UnmarshalBinary(val); err != nil {
		return nil, fmt.Errorf("model %q: %w", name, err)
	}
	return m, nil
}

// Info returns the info record of the model stored under name.
func (b *Badger) Info(_ context.Context, name string) (Info, error) {
	var info Info
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(infoPrefix + name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &info)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Info{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return info, err
}

// List returns the info records of all stored models, sorted by name.
func (b *Badger) List(ctx context.Context) ([]Info, error) {
	var infos []Info
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = []byte(infoPrefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var info Info
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &info)
			})
			if err != nil {
				return err
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return infos, nil
}

// Delete removes the model stored under name.
func (b *Badger) Delete(_ context.Context, name string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(infoPrefix + name)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(infoPrefix + name)); err != nil {
			return err
		}
		return txn.Delete([]byte(modelPrefix + name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return err
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// glogLogger sends badger messages to glog. Info and debug messages are
// only logged at higher verbosity.
type glogLogger struct{}

func (glogLogger) Errorf(f string, v ...interface{})   { glog.Errorf("badger: "+f, v...) }
func (glogLogger) Warningf(f string, v ...interface{}) { glog.Warningf("badger: "+f, v...) }
func (glogLogger) Infof(f string, v ...interface{})    { glog.V(3).Infof("badger: "+f, v...) }
func (glogLogger) Debugf(f string, v ...interface{})   { glog.V(5).Infof("badger: "+f, v...) }
