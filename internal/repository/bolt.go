package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/common-repository/payflexi-instalment-payment-gateway-for-gravity-forms/internal/models"
)

// Bucket layout: correlation records and the reference index are
// partitioned per mode so live and test namespaces can never
// cross-reconcile; idempotency keys share one bucket keyed by
// key + path.
const (
	correlationsBucketPrefix = "correlations_"
	referencesBucketPrefix   = "references_"
	idempotencyBucket        = "idempotency_keys"
)

// BoltStore is an embedded correlation store backed by a single bolt
// database file. Bolt serializes Update transactions, which gives
// MergeEvent its atomic read-modify-write without row locking.
type BoltStore struct {
	db *bolt.DB
}

var _ CorrelationRepository = (*BoltStore)(nil)
var _ IdempotencyRepository = (*BoltStore)(nil)

// OpenBolt opens (or creates) the bolt database at the given path and
// ensures all buckets exist.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, mode := range []models.Mode{models.ModeLive, models.ModeTest} {
			if _, err := tx.CreateBucketIfNotExists(correlationsBucket(mode)); err != nil {
				return err
			}
			if _, err := tx.CreateBucketIfNotExists(referencesBucket(mode)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucketIfNotExists([]byte(idempotencyBucket))
		return err
	})
	if err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database file is still usable.
func (s *BoltStore) Ping(_ context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

// Create persists a new correlation record. Returns
// models.ErrDuplicateSubmission when one already exists for the
// (mode, submission) pair.
func (s *BoltStore) Create(_ context.Context, rec *models.CorrelationRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(correlationsBucket(rec.Mode))
		key := submissionKey(rec.SubmissionID)

		if b.Get(key) != nil {
			return models.ErrDuplicateSubmission
		}

		now := time.Now().UTC()
		rec.CreatedAt = now
		rec.UpdatedAt = now

		if err := putCorrelation(b, key, rec); err != nil {
			return err
		}

		return indexReferences(tx, rec)
	})
}

// FindBySubmission retrieves the record for a submission in the given mode.
func (s *BoltStore) FindBySubmission(_ context.Context, mode models.Mode, submissionID int64) (*models.CorrelationRecord, error) {
	var rec *models.CorrelationRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getCorrelation(tx, mode, submissionKey(submissionID))
		if err != nil {
			return err
		}
		rec = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// FindByReference resolves a record through the per-mode reference index.
func (s *BoltStore) FindByReference(_ context.Context, mode models.Mode, reference string) (*models.CorrelationRecord, error) {
	var rec *models.CorrelationRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		idx := tx.Bucket(referencesBucket(mode))
		key := idx.Get([]byte(reference))
		if key == nil {
			return models.ErrNotFound
		}

		found, err := getCorrelation(tx, mode, key)
		if err != nil {
			return err
		}
		rec = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// MergeEvent folds one approved event into the record's counters. The
// whole read-modify-write runs inside a single bolt Update transaction,
// so concurrent deliveries for the same submission serialize.
func (s *BoltStore) MergeEvent(_ context.Context, mode models.Mode, submissionID int64, eventRef string, txnAmount, orderTotal int64) (*models.CorrelationRecord, error) {
	var merged *models.CorrelationRecord

	err := s.db.Update(func(tx *bolt.Tx) error {
		key := submissionKey(submissionID)
		rec, err := getCorrelation(tx, mode, key)
		if err != nil {
			return err
		}

		rec.ApplyEvent(eventRef, txnAmount, orderTotal)
		rec.UpdatedAt = time.Now().UTC()

		if err := putCorrelation(tx.Bucket(correlationsBucket(mode)), key, rec); err != nil {
			return err
		}
		if err := indexReferences(tx, rec); err != nil {
			return err
		}

		merged = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return merged, nil
}

// SetAmountPaid overwrites the paid counter with a single authoritative
// amount, used by the synchronous return path.
func (s *BoltStore) SetAmountPaid(_ context.Context, mode models.Mode, submissionID int64, reference string, amount int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := submissionKey(submissionID)
		rec, err := getCorrelation(tx, mode, key)
		if err != nil {
			return err
		}

		rec.AmountPaid = amount
		rec.LastReference = reference
		rec.UpdatedAt = time.Now().UTC()

		if err := putCorrelation(tx.Bucket(correlationsBucket(mode)), key, rec); err != nil {
			return err
		}

		return indexReferences(tx, rec)
	})
}

// MarkFulfilled records that the host has fulfilled the submission.
func (s *BoltStore) MarkFulfilled(_ context.Context, mode models.Mode, submissionID int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := submissionKey(submissionID)
		rec, err := getCorrelation(tx, mode, key)
		if err != nil {
			return err
		}

		rec.Fulfilled = true
		rec.UpdatedAt = time.Now().UTC()

		return putCorrelation(tx.Bucket(correlationsBucket(mode)), key, rec)
	})
}

// Get returns the cached response for an idempotency key, or nil when
// none exists.
func (s *BoltStore) Get(_ context.Context, key, requestPath string) (*models.IdempotencyKey, error) {
	var idemKey *models.IdempotencyKey

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(idempotencyBucket)).Get(idempotencyKeyFor(key, requestPath))
		if v == nil {
			return nil
		}

		var stored models.IdempotencyKey
		if err := json.Unmarshal(v, &stored); err != nil {
			return fmt.Errorf("failed to decode idempotency key: %w", err)
		}
		idemKey = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}

	return idemKey, nil
}

// Store persists a response for replay. The first stored response wins.
func (s *BoltStore) Store(_ context.Context, idemKey *models.IdempotencyKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(idempotencyBucket))
		key := idempotencyKeyFor(idemKey.Key, idemKey.RequestPath)

		if b.Get(key) != nil {
			return nil
		}

		idemKey.CreatedAt = time.Now().UTC()
		data, err := json.Marshal(idemKey)
		if err != nil {
			return fmt.Errorf("failed to encode idempotency key: %w", err)
		}

		return b.Put(key, data)
	})
}

func correlationsBucket(mode models.Mode) []byte {
	return []byte(correlationsBucketPrefix + string(mode))
}

func referencesBucket(mode models.Mode) []byte {
	return []byte(referencesBucketPrefix + string(mode))
}

func submissionKey(submissionID int64) []byte {
	return []byte(strconv.FormatInt(submissionID, 10))
}

func idempotencyKeyFor(key, requestPath string) []byte {
	return []byte(key + "|" + requestPath)
}

func getCorrelation(tx *bolt.Tx, mode models.Mode, key []byte) (*models.CorrelationRecord, error) {
	v := tx.Bucket(correlationsBucket(mode)).Get(key)
	if v == nil {
		return nil, models.ErrNotFound
	}

	var rec models.CorrelationRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode correlation record: %w", err)
	}

	return &rec, nil
}

func putCorrelation(b *bolt.Bucket, key []byte, rec *models.CorrelationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode correlation record: %w", err)
	}
	return b.Put(key, data)
}

// indexReferences keeps the reference index pointing at the record for
// both its chain anchor and its most recent reference.
func indexReferences(tx *bolt.Tx, rec *models.CorrelationRecord) error {
	idx := tx.Bucket(referencesBucket(rec.Mode))
	key := submissionKey(rec.SubmissionID)

	if rec.InitialReference != "" {
		if err := idx.Put([]byte(rec.InitialReference), key); err != nil {
			return err
		}
	}
	if rec.LastReference != "" {
		if err := idx.Put([]byte(rec.LastReference), key); err != nil {
			return err
		}
	}
	return nil
}
