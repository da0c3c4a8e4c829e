package repository

import (
	"context"
	"strings"

	"chat_fanout_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contactRepository struct {
	db *gorm.DB
}

// NewContactRepository 联系人表仓储
func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) GetContacts(ctx context.Context, edges []model.ContactEdge) ([]model.Contact, error) {
	if len(edges) == 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(edges))
	args := make([]any, 0, 2*len(edges))
	for _, e := range edges {
		conds = append(conds, "(user_id = ? AND contact_id = ?)")
		args = append(args, e.UserID, e.ContactID)
	}
	var contacts []model.Contact
	if err := r.db.WithContext(ctx).Where(strings.Join(conds, " OR "), args...).Find(&contacts).Error; err != nil {
		return nil, wrapDBError(err, "get contacts")
	}
	return contacts, nil
}

func (r *contactRepository) InsertContacts(ctx context.Context, contacts []model.Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&contacts)
	if res.Error != nil {
		return 0, wrapDBError(res.Error, "insert contacts")
	}
	return res.RowsAffected, nil
}

func (r *contactRepository) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	var contacts []model.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, model.ContactStatusDeleted).
		Order("contact_id").
		Find(&contacts).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "list contacts user=%d", userID)
	}
	return contacts, nil
}

func (r *contactRepository) SetContactStatus(ctx context.Context, userID, contactID int64, status model.ContactStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Contact{}).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Update("status", status)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "set contact status user=%d contact=%d", userID, contactID)
	}
	return res.RowsAffected, nil
}
