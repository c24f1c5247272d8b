package repository

import (
	"github.com/station-labs/station/model"
	"github.com/station-labs/station/storage"
)

const nsNotificationByUser = "notification_by_user"

// NotificationRepository indexes Notification by its target user, the
// access pattern the supplemental notification inbox endpoint needs.
type NotificationRepository struct {
	repo *Repository[*model.Notification]
}

func NewNotificationRepository(db storage.Database) *NotificationRepository {
	encode, decode := JSONCodec[*model.Notification]()
	indexes := []IndexSpec[*model.Notification]{
		{
			Name: nsNotificationByUser,
			KeysFor: func(n *model.Notification) [][]byte {
				return [][]byte{IndexKey(nsNotificationByUser, n.TargetUser[:], timeKey(n.Created), n.ID[:])}
			},
		},
	}
	return &NotificationRepository{repo: New(db, "notification", indexes, encode, decode)}
}

func (nr *NotificationRepository) Get(id model.UUID) (*model.Notification, bool, error) {
	return nr.repo.Get(id)
}
func (nr *NotificationRepository) Put(n *model.Notification) error  { return nr.repo.Put(n.ID, n) }
func (nr *NotificationRepository) Remove(id model.UUID) error       { return nr.repo.Remove(id) }
func (nr *NotificationRepository) All() ([]*model.Notification, error) { return nr.repo.All() }

// ByUser returns user's notifications newest-first.
func (nr *NotificationRepository) ByUser(user model.UUID) ([]*model.Notification, error) {
	start := IndexKey(nsNotificationByUser, user[:])
	end := IndexKey(nsNotificationByUser, user[:], model.MaxUUID[:])
	rows, err := nr.repo.IndexRange(start, append(end, 0xff))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Notification, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		id, err := ExtractID(rows[i].Key)
		if err != nil {
			return nil, err
		}
		n, ok, err := nr.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}
