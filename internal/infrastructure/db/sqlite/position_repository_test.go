package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/crmadmin/access-core/internal/core/domain"
)

func TestPositionRepository_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewPositionRepository(testDB(t), 0)

	p := &domain.Position{
		ID:    "pos-agent",
		Name:  "Sales Agent",
		Level: 10,
		Permissions: domain.Permissions{
			domain.SectionDeals: {domain.ActionView: true, domain.ActionCreate: true},
		},
	}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.FindByID(ctx, "pos-agent")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Name != "Sales Agent" || got.IsAdmin {
		t.Fatalf("unexpected position %+v", got)
	}
	if !got.Permissions.Allows(domain.SectionDeals, domain.ActionCreate) || got.Permissions.Allows(domain.SectionDeals, domain.ActionDelete) {
		t.Fatalf("permissions not round-tripped: %+v", got.Permissions)
	}

	p.Level = domain.AdminLevelThreshold
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	got, _ = repo.FindByID(ctx, "pos-agent")
	if !got.IsAdmin {
		t.Fatalf("level change should make position admin")
	}
}

func TestPositionRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewPositionRepository(testDB(t), 0)

	for _, p := range []*domain.Position{
		{ID: "a", Name: "Agent", Level: 10},
		{ID: "m", Name: "Manager", Level: 50},
		{ID: "x", Name: "Admin", Level: 100},
	} {
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %s: %v", p.ID, err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].ID != "x" || list[2].ID != "a" {
		t.Fatalf("unexpected order: %v, %v, %v", list[0].ID, list[1].ID, list[2].ID)
	}
	if list[1].Permissions == nil {
		t.Fatalf("empty permission table should decode to an empty map")
	}
}

func TestPositionRepository_NotFound(t *testing.T) {
	repo := NewPositionRepository(testDB(t), 0)
	if _, err := repo.FindByID(context.Background(), "nope"); !errors.Is(err, domain.ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}
