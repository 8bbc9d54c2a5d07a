package database

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/evently/walletpass/formats"
)

func TestInsertAndGetAuths(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	var (
		auth = formats.Authorization{
			ID:                    "test-hawk-id-" + suffix,
			Key:                   "cdbc735007c1c1ed5f3f1d97c0a71b5260ae1e6d6d50ef1e561d0b9c6342073c",
			HawkTimestampValidity: time.Minute * 5,
			Signers:               []string{"test-signer-1", "test-signer-2"},
		}
		badAuth = formats.Authorization{
			ID:                    "-invalid-hawk-id",
			Key:                   "cdbc735007c1c1ed5f3f1d97c0a71b5260ae1e6d6d50ef1e561d0b9c6342073c",
			HawkTimestampValidity: time.Minute * 5,
			Signers:               []string{"test-signer-1", "test-signer-2"},
		}
	)
	if err := db.InsertAuthorization(ctx, badAuth); err == nil {
		t.Fatal("did not fail to insert bad authorization")
	}
	if err := db.InsertAuthorization(ctx, auth); err != nil {
		t.Fatal("failed to insert authorization:", err)
	}
	if err := db.InsertAuthorization(ctx, auth); err == nil {
		t.Fatal("inserted a duplicate authorization")
	}

	var count int
	err := db.QueryRow("SELECT COUNT(1) FROM authorizations WHERE credential_id = $1", auth.ID).Scan(&count)
	if err != nil {
		t.Fatal("failed to select auths:", err)
	}
	if count != len(auth.Signers) {
		t.Fatalf("got unexpected # of authorization rows wanted %d got %d", len(auth.Signers), count)
	}

	auths, err := db.GetAuthorizations(ctx)
	if err != nil {
		t.Fatal("failed to get authorization:", err)
	}
	var found bool
	for _, got := range auths {
		if got.ID != auth.ID {
			continue
		}
		found = true
		if !reflect.DeepEqual(got, auth) {
			t.Fatalf("got different auth then saved got %+v but wanted %+v", got, auth)
		}
	}
	if !found {
		t.Fatalf("authorization %s not returned", auth.ID)
	}
}
