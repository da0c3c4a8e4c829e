package contact

import (
	"context"

	"chat_fanout_server/internal/dao/repository"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"

	"go.uber.org/zap"
)

var ErrContactNotFound = errorx.New(errorx.CodeNotFound, "contact not found")

// contactService 联系人业务实现
// 联系人边由单聊首条消息自动建立（状态 Active 表示待通过）
type contactService struct {
	repos *repository.Repositories
}

// NewContactService 联系人服务
func NewContactService(repos *repository.Repositories) *contactService {
	return &contactService{repos: repos}
}

// ListContacts 用户发出的未删除联系人
func (c *contactService) ListContacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	contacts, err := c.repos.Contact.ListContacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return contacts, nil
}

// ApproveContact 通过 contactID -> userID 的请求，并把反向边一并置为通过
func (c *contactService) ApproveContact(ctx context.Context, userID, contactID int64) error {
	if userID == contactID {
		return errorx.ErrInvalidParam
	}
	incoming := model.ContactEdge{UserID: contactID, ContactID: userID}
	outgoing := model.ContactEdge{UserID: userID, ContactID: contactID}

	return c.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		existing, err := tx.Contact.GetContacts(ctx, []model.ContactEdge{incoming, outgoing})
		if err != nil {
			return err
		}
		var in, out *model.Contact
		for i := range existing {
			switch (model.ContactEdge{UserID: existing[i].UserID, ContactID: existing[i].ContactID}) {
			case incoming:
				in = &existing[i]
			case outgoing:
				out = &existing[i]
			}
		}
		if in == nil || in.Status == model.ContactStatusDeleted {
			return ErrContactNotFound
		}

		if out == nil {
			if _, err := tx.Contact.InsertContacts(ctx, []model.Contact{{
				UserID: userID, ContactID: contactID, Status: model.ContactStatusApproved,
			}}); err != nil {
				return err
			}
		} else if out.Status != model.ContactStatusApproved {
			if _, err := tx.Contact.SetContactStatus(ctx, userID, contactID, model.ContactStatusApproved); err != nil {
				return err
			}
		}
		if in.Status != model.ContactStatusApproved {
			if _, err := tx.Contact.SetContactStatus(ctx, contactID, userID, model.ContactStatusApproved); err != nil {
				return err
			}
		}
		zap.L().Info("contact approved", zap.Int64("userId", userID), zap.Int64("contactId", contactID))
		return nil
	})
}

// DeleteContact 只删除自己这一侧的边
func (c *contactService) DeleteContact(ctx context.Context, userID, contactID int64) error {
	existing, err := c.repos.Contact.GetContacts(ctx, []model.ContactEdge{{UserID: userID, ContactID: contactID}})
	if err != nil {
		return err
	}
	if len(existing) == 0 || existing[0].Status == model.ContactStatusDeleted {
		return ErrContactNotFound
	}
	if _, err := c.repos.Contact.SetContactStatus(ctx, userID, contactID, model.ContactStatusDeleted); err != nil {
		return err
	}
	zap.L().Info("contact deleted", zap.Int64("userId", userID), zap.Int64("contactId", contactID))
	return nil
}
