package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tutoria/tutoria-backend/internal/model"
)

func TestGrantCredit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "ada", "", 5)

	credit, err := env.ledger.Grant(context.Background(), student.ID, nil, "goodwill")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if credit.Status != model.CreditStatusAvailable {
		t.Errorf("status = %s, want AVAILABLE", credit.Status)
	}
	if credit.OriginalSessionID != nil {
		t.Error("manual grant must not reference a session")
	}
	if credit.Reason != "goodwill" {
		t.Errorf("reason = %q, want goodwill", credit.Reason)
	}
	if _, ok := env.state.credits[credit.ID]; !ok {
		t.Error("credit not persisted")
	}

	if _, err := env.ledger.Grant(context.Background(), 999, nil, "x"); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("unknown student err = %v, want ErrSubjectNotFound", err)
	}
}

func TestRedeemCredit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "bob", "", 5)
	credit, err := env.ledger.Grant(context.Background(), student.ID, nil, "cancelled class")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	t.Run("first redemption wins", func(t *testing.T) {
		redeemed, err := env.ledger.Redeem(context.Background(), credit.ID)
		if err != nil {
			t.Fatalf("Redeem: %v", err)
		}
		if redeemed.Status != model.CreditStatusUsed {
			t.Errorf("status = %s, want USED", redeemed.Status)
		}
		if redeemed.UsedDate == nil {
			t.Error("used date not set")
		}
	})

	t.Run("second redemption loses", func(t *testing.T) {
		if _, err := env.ledger.Redeem(context.Background(), credit.ID); !errors.Is(err, ErrCreditAlreadyUsed) {
			t.Errorf("err = %v, want ErrCreditAlreadyUsed", err)
		}
	})

	t.Run("missing credit", func(t *testing.T) {
		if _, err := env.ledger.Redeem(context.Background(), uuid.New()); !errors.Is(err, ErrCreditNotFound) {
			t.Errorf("err = %v, want ErrCreditNotFound", err)
		}
	})
}

func TestListCreditsByStudent(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "cat", "", 5)
	other := env.addStudent(t, "dan", "", 5)

	first, err := env.ledger.Grant(context.Background(), student.ID, nil, "one")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := env.ledger.Grant(context.Background(), student.ID, nil, "two"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := env.ledger.Redeem(context.Background(), first.ID); err != nil {
		t.Fatalf("Redeem: %v", err)
	}

	all, err := env.ledger.ListByStudent(context.Background(), student.ID, nil)
	if err != nil {
		t.Fatalf("ListByStudent: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("listed %d credits, want 2", len(all))
	}

	available := model.CreditStatusAvailable
	open, err := env.ledger.ListByStudent(context.Background(), student.ID, &available)
	if err != nil {
		t.Fatalf("ListByStudent filtered: %v", err)
	}
	if len(open) != 1 || open[0].Reason != "two" {
		t.Errorf("AVAILABLE filter returned %+v, want only the unredeemed credit", open)
	}

	empty, err := env.ledger.ListByStudent(context.Background(), other.ID, nil)
	if err != nil {
		t.Fatalf("ListByStudent empty: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("empty ledger = %v, want a non-nil empty slice", empty)
	}

	if _, err := env.ledger.ListByStudent(context.Background(), 999, nil); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("unknown student err = %v, want ErrSubjectNotFound", err)
	}
}

func TestGetCredit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	student := env.addStudent(t, "eli", "", 5)
	credit, err := env.ledger.Grant(context.Background(), student.ID, nil, "x")
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	got, err := env.ledger.Get(context.Background(), credit.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != credit.ID {
		t.Errorf("got credit %s, want %s", got.ID, credit.ID)
	}

	if _, err := env.ledger.Get(context.Background(), uuid.New()); !errors.Is(err, ErrCreditNotFound) {
		t.Errorf("err = %v, want ErrCreditNotFound", err)
	}
}
