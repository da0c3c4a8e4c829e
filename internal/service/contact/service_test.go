package contact

import (
	"context"
	"errors"
	"testing"

	"chat_fanout_server/internal/dao/repository/repotest"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"
)

func seed(t *testing.T, store *repotest.Store, contacts ...model.Contact) {
	t.Helper()
	if _, err := store.InsertContacts(context.Background(), contacts); err != nil {
		t.Fatal(err)
	}
}

func statusOf(store *repotest.Store, userID, contactID int64) (model.ContactStatus, bool) {
	for _, c := range store.Contacts() {
		if c.UserID == userID && c.ContactID == contactID {
			return c.Status, true
		}
	}
	return 0, false
}

func TestApproveContact(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewContactService(store.Repositories())
	seed(t, store, model.Contact{UserID: 1, ContactID: 2, Status: model.ContactStatusActive})

	if err := svc.ApproveContact(ctx, 2, 1); err != nil {
		t.Fatalf("ApproveContact: %v", err)
	}
	for _, e := range []model.ContactEdge{{UserID: 1, ContactID: 2}, {UserID: 2, ContactID: 1}} {
		if st, ok := statusOf(store, e.UserID, e.ContactID); !ok || st != model.ContactStatusApproved {
			t.Fatalf("edge %+v status = %v (exists %v)", e, st, ok)
		}
	}

	// 幂等
	if err := svc.ApproveContact(ctx, 2, 1); err != nil {
		t.Fatalf("second approve: %v", err)
	}
}

func TestApproveContactWithoutRequest(t *testing.T) {
	store := repotest.New()
	svc := NewContactService(store.Repositories())
	if err := svc.ApproveContact(context.Background(), 2, 1); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("err = %v", err)
	}
	if err := svc.ApproveContact(context.Background(), 1, 1); errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("self approve: err = %v", err)
	}
}

func TestListAndDeleteContact(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	svc := NewContactService(store.Repositories())
	seed(t, store,
		model.Contact{UserID: 1, ContactID: 2},
		model.Contact{UserID: 1, ContactID: 3},
	)

	list, err := svc.ListContacts(ctx, 1)
	if err != nil || len(list) != 2 {
		t.Fatalf("list = %+v, %v", list, err)
	}
	if err := svc.DeleteContact(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteContact(ctx, 1, 2); !errorx.IsNotFound(err) {
		t.Fatalf("double delete: err = %v", err)
	}
	list, err = svc.ListContacts(ctx, 1)
	if err != nil || len(list) != 1 || list[0].ContactID != 3 {
		t.Fatalf("list after delete = %+v, %v", list, err)
	}
	if list, _ := svc.ListContacts(ctx, 9); list == nil || len(list) != 0 {
		t.Fatalf("empty list = %#v", list)
	}
}

func TestApproveContactPropagatesStoreError(t *testing.T) {
	store := repotest.New()
	svc := NewContactService(store.Repositories())
	seed(t, store, model.Contact{UserID: 1, ContactID: 2})
	store.FailOn("SetContactStatus", errorx.New(errorx.CodeDBError, "db down"))

	if err := svc.ApproveContact(context.Background(), 2, 1); !errorx.IsDependency(err) {
		t.Fatalf("err = %v", err)
	}
}
