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

type IRoomRepository interface {
	CreateRoom(room domain.Room, host domain.Participant) error
	GetRoom(roomID string) (domain.Room, error)
	CloseRoom(roomID string, now time.Time) error
	DeleteClosedBefore(cutoff time.Time) (int, error)
}

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) RoomRepository {
	return RoomRepository{db: db}
}

// roomRow is the on-disk representation of a room.
type roomRow struct {
	ID        string `json:"id"`
	HostID    string `json:"host_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
	ClosedAt  int64  `json:"closed_at,omitempty"`
}

// CreateRoom inserts the room and registers its host participant in a single
// transaction, so a room never exists without a host row. It fails with
// ErrRoomCodeTaken when the code is already in use; the caller retries with
// a fresh code.
func (r RoomRepository) CreateRoom(room domain.Room, host domain.Participant) error {
	roomBytes, err := json.Marshal(fromRoom(room))
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	hostBytes, err := json.Marshal(fromParticipant(host))
	if err != nil {
		return fmt.Errorf("marshal host participant: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		key := roomKey(room.ID)
		_, err := txn.Get(key)
		if err == nil {
			return errors.ErrRoomCodeTaken
		}
		if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, roomBytes); err != nil {
			return err
		}
		return txn.Set(participantKey(host.RoomID, host.DeviceID), hostBytes)
	})
}

func (r RoomRepository) GetRoom(roomID string) (domain.Room, error) {
	var row roomRow
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(row), nil
}

// CloseRoom marks the room closed and deletes every participant and signal
// row belonging to it, all in one transaction. Idempotent: closing an
// already-closed or unknown room is a no-op, not an error.
func (r RoomRepository) CloseRoom(roomID string, now time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(roomKey(roomID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var row roomRow
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		}); err != nil {
			return err
		}
		if row.Status != string(domain.RoomClosed) {
			row.Status = string(domain.RoomClosed)
			row.ClosedAt = now.UnixNano()
			updated, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if err := txn.Set(roomKey(roomID), updated); err != nil {
				return err
			}
		}
		if err := deletePrefix(txn, participantRoomPrefix(roomID)); err != nil {
			return err
		}
		return deletePrefix(txn, signalRoomPrefix(roomID))
	})
}

// DeleteClosedBefore removes room rows that were closed before the cutoff.
// Their participants and signals were already cascaded away at close time.
func (r RoomRepository) DeleteClosedBefore(cutoff time.Time) (int, error) {
	deleted := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		deleted = 0
		var stale [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := roomScanPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var row roomRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			if row.Status == string(domain.RoomClosed) && row.ClosedAt < cutoff.UnixNano() {
				stale = append(stale, item.KeyCopy(nil))
			}
		}
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		deleted = len(stale)
		return nil
	})
	return deleted, err
}

// deletePrefix removes every key under the given prefix within txn.
// Keys are collected before deleting because Badger iterators must not
// observe writes made by the same loop.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	options := badger.DefaultIteratorOptions
	options.PrefetchValues = false
	it := txn.NewIterator(options)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func fromRoom(room domain.Room) roomRow {
	row := roomRow{
		ID:        room.ID,
		HostID:    room.HostID,
		Status:    string(room.Status),
		CreatedAt: room.CreatedAt.UnixNano(),
	}
	if !room.ClosedAt.IsZero() {
		row.ClosedAt = room.ClosedAt.UnixNano()
	}
	return row
}

func toRoom(row roomRow) domain.Room {
	room := domain.Room{
		ID:        row.ID,
		HostID:    row.HostID,
		Status:    domain.RoomStatus(row.Status),
		CreatedAt: time.Unix(0, row.CreatedAt).UTC(),
	}
	if row.ClosedAt != 0 {
		room.ClosedAt = time.Unix(0, row.ClosedAt).UTC()
	}
	return room
}
