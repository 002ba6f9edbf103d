package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"signal-relay/domain"
	"signal-relay/errors"

	"github.com/dgraph-io/badger/v4"
)

// fetchRetries bounds how often a fetch is replayed when Badger aborts its
// transaction because a concurrent writer touched the same mailbox.
const fetchRetries = 3

type ISignalRepository interface {
	Append(signal domain.Signal) error
	FetchAndDelete(roomID, toDevice string) ([]domain.Signal, error)
	DeleteCreatedBefore(cutoff time.Time) (int, error)
	Close() error
}

type SignalRepository struct {
	db         *badger.DB
	seq        *badger.Sequence
	maxBacklog int
}

// NewSignalRepository wires the mailbox store. maxBacklog caps the number of
// undelivered signals per (room, recipient) pair; 0 disables the cap. The
// cap is approximate: it is checked against the sender's transaction
// snapshot, which cannot see another sender's uncommitted insert, so
// simultaneous sends can overshoot it by the number of in-flight writers.
// It bounds unattended growth, it is not an exact quota.
// Close must be called on shutdown to return unused sequence numbers.
func NewSignalRepository(db *badger.DB, maxBacklog int) (SignalRepository, error) {
	seq, err := db.GetSequence([]byte("seq:signal"), 128)
	if err != nil {
		return SignalRepository{}, fmt.Errorf("signal sequence: %w", err)
	}
	return SignalRepository{db: db, seq: seq, maxBacklog: maxBacklog}, nil
}

func (s SignalRepository) Close() error {
	return s.seq.Release()
}

type signalRow struct {
	RoomID     string          `json:"room_id"`
	FromDevice string          `json:"from"`
	ToDevice   string          `json:"to"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  int64           `json:"created_at"`
}

// Append persists one signal under a key that sorts after every signal
// already queued for the same recipient (see keys.go). Signals are never
// updated in place, only inserted here and deleted on delivery or eviction.
// Fails with ErrMailboxFull when the recipient's backlog has hit the cap
// (see NewSignalRepository for its precision); rejecting the newest keeps
// the delivery order of what is already queued.
func (s SignalRepository) Append(signal domain.Signal) error {
	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next signal sequence: %w", err)
	}
	bytes, err := json.Marshal(fromSignal(signal))
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}
	key := signalKey(signal.RoomID, signal.ToDevice, signal.CreatedAt, seq)
	return s.db.Update(func(txn *badger.Txn) error {
		if s.maxBacklog > 0 {
			if countPrefix(txn, signalRecipientPrefix(signal.RoomID, signal.ToDevice)) >= s.maxBacklog {
				return errors.ErrMailboxFull
			}
		}
		return txn.Set(key, bytes)
	})
}

// FetchAndDelete returns every signal queued for the recipient in creation
// order and deletes exactly those rows, all within a single transaction.
// This is what makes delivery at-most-once: a signal is either in the store
// or in one fetch result, never both and never in two results. A signal
// appended after the transaction's snapshot survives for the next poll.
// An empty result is the normal outcome of an idle poll.
func (s SignalRepository) FetchAndDelete(roomID, toDevice string) ([]domain.Signal, error) {
	var rows []signalRow
	fetch := func(txn *badger.Txn) error {
		rows = rows[:0]
		var keys [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := signalRecipientPrefix(roomID, toDevice)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var row signalRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			rows = append(rows, row)
			keys = append(keys, item.KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	for attempt := 0; attempt < fetchRetries; attempt++ {
		err = s.db.Update(fetch)
		if !stderrors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	signals := make([]domain.Signal, 0, len(rows))
	for _, row := range rows {
		signals = append(signals, toSignal(row))
	}
	return signals, nil
}

// DeleteCreatedBefore removes signals across all rooms older than the cutoff,
// bounding storage growth from messages nobody ever fetched.
func (s SignalRepository) DeleteCreatedBefore(cutoff time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		deleted = 0
		var expired [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := signalScanPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var row signalRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			if row.CreatedAt < cutoff.UnixNano() {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		deleted = len(expired)
		return nil
	})
	return deleted, err
}

func countPrefix(txn *badger.Txn, prefix []byte) int {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	defer it.Close()
	count := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		count++
	}
	return count
}

func fromSignal(signal domain.Signal) signalRow {
	return signalRow{
		RoomID:     signal.RoomID,
		FromDevice: signal.FromDevice,
		ToDevice:   signal.ToDevice,
		Type:       signal.Type,
		Payload:    signal.Payload,
		CreatedAt:  signal.CreatedAt.UnixNano(),
	}
}

func toSignal(row signalRow) domain.Signal {
	return domain.Signal{
		RoomID:     row.RoomID,
		FromDevice: row.FromDevice,
		ToDevice:   row.ToDevice,
		Type:       row.Type,
		Payload:    row.Payload,
		CreatedAt:  time.Unix(0, row.CreatedAt).UTC(),
	}
}
