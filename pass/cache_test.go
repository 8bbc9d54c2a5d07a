package pass_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/evently/walletpass/internal/mockpass"
	"github.com/evently/walletpass/pass"
)

func TestCachingFinder(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	finder := mockpass.NewMockRecordFinder(ctrl)
	ctx := context.Background()

	gala := pass.Record{"id": "E1", "name": "Gala"}
	finder.EXPECT().FindByField(gomock.Any(), "events", "id", "E1").Return(gala, nil).Times(1)
	finder.EXPECT().FindByField(gomock.Any(), "events", "id", "E2").Return(nil, pass.ErrRecordNotFound).Times(2)
	finder.EXPECT().FindAllByField(gomock.Any(), "events", "name", "Gala").Return([]pass.Record{gala}, nil).Times(1)

	cache, err := pass.NewCachingFinder(finder, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		rec, err := cache.FindByField(ctx, "events", "id", "E1")
		if err != nil || rec["name"] != "Gala" {
			t.Fatalf("lookup %d: unexpected result %v, %v", i, rec, err)
		}
		recs, err := cache.FindAllByField(ctx, "events", "name", "Gala")
		if err != nil || len(recs) != 1 {
			t.Fatalf("lookup %d: unexpected results %v, %v", i, recs, err)
		}
	}
	// failures go to the wrapped finder every time
	for i := 0; i < 2; i++ {
		if _, err := cache.FindByField(ctx, "events", "id", "E2"); !errors.Is(err, pass.ErrRecordNotFound) {
			t.Fatalf("expected ErrRecordNotFound, got %v", err)
		}
	}
}

func TestCachingFinderInvalidSize(t *testing.T) {
	t.Parallel()

	if _, err := pass.NewCachingFinder(nil, 0); err == nil {
		t.Fatal("expected a zero sized cache to fail")
	}
}
