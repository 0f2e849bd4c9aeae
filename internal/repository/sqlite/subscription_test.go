package sqlite

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webhookd/webhookd/internal/repository"
)

func TestSubscriptionCRUD(t *testing.T) {
	store := openTestStore(t)
	repo := store.Subscriptions()
	ctx := context.Background()

	created, err := repo.Create(ctx, repository.Subscription{
		ID:         uuid.NewString(),
		TargetURL:  "https://example.com/hook",
		EventTypes: []string{"user.created", "user.deleted"},
		Secret:     "s3cret",
	})
	require.NoError(t, err)
	require.False(t, created.CreatedAt.IsZero())

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)
	require.Equal(t, "https://example.com/hook", found.TargetURL)
	require.Equal(t, []string{"user.created", "user.deleted"}, found.EventTypes)
	require.Equal(t, "s3cret", found.Secret)

	found.TargetURL = "https://updated.example.com"
	found.EventTypes = []string{"updated.event"}
	updated, err := repo.Update(ctx, found)
	require.NoError(t, err)
	require.Equal(t, "https://updated.example.com", updated.TargetURL)

	reread, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "https://updated.example.com", reread.TargetURL)
	require.Equal(t, []string{"updated.event"}, reread.EventTypes)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.FindByID(ctx, created.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionFindMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Subscriptions().FindByID(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionUpdateMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Subscriptions().Update(context.Background(), repository.Subscription{ID: "nope", TargetURL: "https://x"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionDeleteMissing(t *testing.T) {
	store := openTestStore(t)
	err := store.Subscriptions().Delete(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubscriptionFindByIDFiltered(t *testing.T) {
	store := openTestStore(t)
	repo := store.Subscriptions()
	ctx := context.Background()

	narrow, err := repo.Create(ctx, repository.Subscription{
		ID:         uuid.NewString(),
		TargetURL:  "https://example.com",
		EventTypes: []string{"a"},
	})
	require.NoError(t, err)

	_, err = repo.FindByIDFiltered(ctx, narrow.ID, []string{"a", "b"})
	require.NoError(t, err)

	_, err = repo.FindByIDFiltered(ctx, narrow.ID, []string{"b"})
	require.ErrorIs(t, err, repository.ErrNotFound, "no overlap means not subscribed")

	// A subscription with no filter accepts any event type.
	open, err := repo.Create(ctx, repository.Subscription{
		ID:        uuid.NewString(),
		TargetURL: "https://example.com",
	})
	require.NoError(t, err)
	_, err = repo.FindByIDFiltered(ctx, open.ID, []string{"anything"})
	require.NoError(t, err)
}

func TestSubscriptionList(t *testing.T) {
	store := openTestStore(t)
	repo := store.Subscriptions()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, repository.Subscription{
			ID:         uuid.NewString(),
			TargetURL:  "https://example.com",
			EventTypes: []string{"a"},
		})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, repository.Subscription{
		ID:         uuid.NewString(),
		TargetURL:  "https://example.com",
		EventTypes: []string{"b"},
	})
	require.NoError(t, err)

	all, err := repo.List(ctx, repository.SubscriptionFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, all, 4)

	onlyA, err := repo.List(ctx, repository.SubscriptionFilter{EventType: "a", Limit: 100})
	require.NoError(t, err)
	require.Len(t, onlyA, 3)

	limited, err := repo.List(ctx, repository.SubscriptionFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
}
