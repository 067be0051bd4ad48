package statement

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "statements"

// DB defines the interface for database operations
type DB interface {
	// SaveStatement saves a statement to the database
	SaveStatement(statement *Statement) error

	// GetStatement retrieves a statement by ID
	GetStatement(id string) (*Statement, error)

	// ListStatements returns all statements
	ListStatements() ([]*Statement, error)

	// DeleteStatement removes a statement from the database
	DeleteStatement(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create bucket if it doesn't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveStatement saves a statement to the database
func (b *BoltDB) SaveStatement(statement *Statement) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data, err := json.Marshal(statement)
		if err != nil {
			return fmt.Errorf("marshaling statement: %w", err)
		}
		return bucket.Put([]byte(statement.ID), data)
	})
}

// GetStatement retrieves a statement by ID
func (b *BoltDB) GetStatement(id string) (*Statement, error) {
	var statement *Statement
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("statement not found: %s", id)
		}
		return json.Unmarshal(data, &statement)
	})
	if err != nil {
		return nil, err
	}
	return statement, nil
}

// ListStatements returns all statements
func (b *BoltDB) ListStatements() ([]*Statement, error) {
	statements := make([]*Statement, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var statement Statement
			if err := json.Unmarshal(v, &statement); err != nil {
				return fmt.Errorf("unmarshaling statement: %w", err)
			}
			statements = append(statements, &statement)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return statements, nil
}

// DeleteStatement removes a statement from the database
func (b *BoltDB) DeleteStatement(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
