package confessions

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func mustConfessionID(t *testing.T, value string) ConfessionID {
	t.Helper()
	id, err := NewConfessionID(value)
	if err != nil {
		t.Fatalf("unexpected confession id error: %v", err)
	}
	return id
}

func mustDraft(t *testing.T, body string) Draft {
	t.Helper()
	draft, err := NewDraft("", nil, "", body, "")
	if err != nil {
		t.Fatalf("unexpected draft error: %v", err)
	}
	return draft
}

type sequenceIDProvider struct {
	ids   []string
	index int
}

func (g *sequenceIDProvider) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errExhaustedIDs
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

var errExhaustedIDs = &ServiceError{code: "test.ids_exhausted"}

func newTestService(t *testing.T, ids []string, clock func() time.Time) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&Confession{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	var provider IDProvider = NewUUIDProvider()
	if len(ids) > 0 {
		provider = &sequenceIDProvider{ids: ids}
	}
	if clock == nil {
		clock = time.Now
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: provider,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service, db
}
