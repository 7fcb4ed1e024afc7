package agentbbolt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kolide/hybridenroll/pkg/traces"
	"go.etcd.io/bbolt"
)

const (
	DbFileName = "hybridenroll.db"

	// FlagsBucket holds the convergence loop's persistent flags.
	FlagsBucket = "flags"
)

// NoDbError is an error type that represents a nil bbolt database
type NoDbError struct{}

func (e NoDbError) Error() string {
	return "bbolt db is nil"
}

// NoBucketError is an error type that represents a nonexistent bucket
type NoBucketError struct {
	bucketName string
}

func (e NoBucketError) Error() string {
	return fmt.Sprintf("%s bucket does not exist", e.bucketName)
}

func NewNoBucketError(bucketName string) NoBucketError {
	return NoBucketError{bucketName: bucketName}
}

// OpenDB opens the agent database in rootDirectory, creating the directory if needed.
func OpenDB(rootDirectory string) (*bbolt.DB, error) {
	if err := os.MkdirAll(rootDirectory, 0700); err != nil {
		return nil, fmt.Errorf("creating root directory %s: %w", rootDirectory, err)
	}

	boltOptions := &bbolt.Options{Timeout: time.Duration(30) * time.Second}
	db, err := bbolt.Open(filepath.Join(rootDirectory, DbFileName), 0600, boltOptions)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db in %s: %w", rootDirectory, err)
	}

	return db, nil
}

type bboltKeyValueStore struct {
	slogger    *slog.Logger
	db         *bbolt.DB
	bucketName string
}

func NewStore(ctx context.Context, slogger *slog.Logger, db *bbolt.DB, bucketName string) (*bboltKeyValueStore, error) {
	_, span := traces.StartSpan(ctx, "bucket_name", bucketName)
	defer span.End()

	if db == nil {
		return nil, NoDbError{}
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s := &bboltKeyValueStore{
		slogger:    slogger.With("bucket", bucketName),
		db:         db,
		bucketName: bucketName,
	}

	return s, nil
}

func (s *bboltKeyValueStore) Get(key []byte) (value []byte, err error) {
	if s == nil || s.db == nil {
		return nil, NoDbError{}
	}

	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucketName))
		if b == nil {
			return NewNoBucketError(s.bucketName)
		}

		// bbolt values are only valid for the life of the transaction
		if v := b.Get(key); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return value, nil
}

func (s *bboltKeyValueStore) Set(key, value []byte) error {
	if s == nil || s.db == nil {
		return NoDbError{}
	}

	if len(key) == 0 {
		return errors.New("key is blank")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(s.bucketName))
		if b == nil {
			return NewNoBucketError(s.bucketName)
		}

		if value != nil {
			if err := b.Put(key, value); err != nil {
				return fmt.Errorf("error setting %s key: %w", string(key), err)
			}
		}

		return nil
	})
}
