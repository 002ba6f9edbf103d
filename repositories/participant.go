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

type IParticipantRepository interface {
	Upsert(participant domain.Participant) (domain.Participant, error)
	UpsertInOpenRoom(participant domain.Participant) (domain.Participant, domain.Room, error)
	Touch(roomID, deviceID string, now time.Time) error
	ListByRoom(roomID string) ([]domain.Participant, error)
	DeleteLastSeenBefore(cutoff time.Time) (int, error)
}

type ParticipantRepository struct {
	db *badger.DB
}

func NewParticipantRepository(db *badger.DB) ParticipantRepository {
	return ParticipantRepository{db: db}
}

type participantRow struct {
	DeviceID string `json:"device_id"`
	RoomID   string `json:"room_id"`
	Role     string `json:"role"`
	LastSeen int64  `json:"last_seen"`
}

// Upsert inserts the participant or, if the (room, device) pair is already
// registered, refreshes its LastSeen. The stored role is immutable: a host
// re-joining its own room stays a host no matter what role the caller
// proposes. Returns the row as persisted.
func (p ParticipantRepository) Upsert(participant domain.Participant) (domain.Participant, error) {
	stored := participant
	err := p.db.Update(func(txn *badger.Txn) error {
		stored = participant
		key := participantKey(participant.RoomID, participant.DeviceID)
		item, err := txn.Get(key)
		switch {
		case err == nil:
			var existing participantRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			stored.Role = domain.Role(existing.Role)
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		bytes, err := json.Marshal(fromParticipant(stored))
		if err != nil {
			return fmt.Errorf("marshal participant: %w", err)
		}
		return txn.Set(key, bytes)
	})
	if err != nil {
		return domain.Participant{}, err
	}
	return stored, nil
}

// UpsertInOpenRoom verifies the room exists and is open, then upserts the
// participant, all in one transaction. The room check and the registration
// cannot be interleaved with a concurrent close: closing writes the room row
// this transaction read, so one of the two aborts and no participant row can
// land in a closed room. Fails with ErrRoomNotFound for missing and closed
// rooms alike. Returns the participant as persisted and the room.
func (p ParticipantRepository) UpsertInOpenRoom(participant domain.Participant) (domain.Participant, domain.Room, error) {
	stored := participant
	var room domain.Room
	err := p.db.Update(func(txn *badger.Txn) error {
		stored = participant

		item, err := txn.Get(roomKey(participant.RoomID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrRoomNotFound
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
		room = toRoom(row)
		if !room.IsOpen() {
			return errors.ErrRoomNotFound
		}

		key := participantKey(participant.RoomID, participant.DeviceID)
		item, err = txn.Get(key)
		switch {
		case err == nil:
			var existing participantRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			stored.Role = domain.Role(existing.Role)
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		bytes, err := json.Marshal(fromParticipant(stored))
		if err != nil {
			return fmt.Errorf("marshal participant: %w", err)
		}
		return txn.Set(key, bytes)
	})
	if err != nil {
		return domain.Participant{}, domain.Room{}, err
	}
	return stored, room, nil
}

// Touch refreshes LastSeen for an already-registered participant and fails
// with ErrParticipantNotFound otherwise, never silently accepting an update
// that matched nothing: a caller that was evicted must learn it has to
// re-join.
func (p ParticipantRepository) Touch(roomID, deviceID string, now time.Time) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		key := participantKey(roomID, deviceID)
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var row participantRow
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		}); err != nil {
			return err
		}
		row.LastSeen = now.UnixNano()
		bytes, err := json.Marshal(row)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrParticipantNotFound
	}
	return err
}

// ListByRoom returns every participant registered in the room, present or
// not. Liveness filtering is the caller's concern.
func (p ParticipantRepository) ListByRoom(roomID string) ([]domain.Participant, error) {
	var participants []domain.Participant
	err := p.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := participantRoomPrefix(roomID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var row participantRow
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			participants = append(participants, toParticipant(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// DeleteLastSeenBefore removes participants across all rooms whose LastSeen
// is older than the cutoff. Used by eviction with the abandonment window,
// which is much longer than the liveness window, so briefly-offline devices
// keep their registration.
func (p ParticipantRepository) DeleteLastSeenBefore(cutoff time.Time) (int, error) {
	deleted := 0
	err := p.db.Update(func(txn *badger.Txn) error {
		deleted = 0
		var stale [][]byte
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := participantScanPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var row participantRow
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			if row.LastSeen < cutoff.UnixNano() {
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

func fromParticipant(participant domain.Participant) participantRow {
	return participantRow{
		DeviceID: participant.DeviceID,
		RoomID:   participant.RoomID,
		Role:     string(participant.Role),
		LastSeen: participant.LastSeen.UnixNano(),
	}
}

func toParticipant(row participantRow) domain.Participant {
	return domain.Participant{
		DeviceID: row.DeviceID,
		RoomID:   row.RoomID,
		Role:     domain.Role(row.Role),
		LastSeen: time.Unix(0, row.LastSeen).UTC(),
	}
}
