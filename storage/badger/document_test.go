package badger

import (
	"context"
	"testing"
	"time"

	"github.com/knowstack/knowstack/core"
	"github.com/knowstack/knowstack/storage"
)

func testDocument(tenantId, content string) *core.Document {
	return &core.Document{
		Id:          core.NewID(),
		TenantId:    tenantId,
		Filename:    "report.txt",
		ContentType: "text/plain",
		ContentHash: core.HashContent([]byte(content)),
		SizeBytes:   int64(len(content)),
		Status:      core.DocumentStatusQueued,
		StorageKey:  "blob/" + tenantId,
	}
}

func TestDocumentAddAndGet(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	doc := testDocument("acme", "quarterly numbers")

	if err := repos.Documents.AddDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}
	if doc.CreatedAt.IsZero() {
		t.Fatal("Expected CreatedAt to be set")
	}

	retrieved, err := repos.Documents.GetDocument(ctx, "acme", doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Filename != "report.txt" {
		t.Fatalf("Expected 'report.txt', got '%s'", retrieved.Filename)
	}
	if retrieved.ContentHash != doc.ContentHash {
		t.Fatal("Content hash mismatch after round trip")
	}
}

func TestDocumentDuplicateHash(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()

	first := testDocument("acme", "same bytes")
	if err := repos.Documents.AddDocument(ctx, first); err != nil {
		t.Fatalf("Failed to add first document: %v", err)
	}

	second := testDocument("acme", "same bytes")
	if err := repos.Documents.AddDocument(ctx, second); err != storage.ErrDuplicateKey {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// Same bytes under another tenant must be accepted.
	other := testDocument("globex", "same bytes")
	if err := repos.Documents.AddDocument(ctx, other); err != nil {
		t.Fatalf("Failed to add same-content document for another tenant: %v", err)
	}

	found, err := repos.Documents.FindDocumentByHash(ctx, "acme", first.ContentHash)
	if err != nil {
		t.Fatalf("Failed to find document by hash: %v", err)
	}
	if found.Id != first.Id {
		t.Fatalf("Expected document %s, got %s", first.Id, found.Id)
	}
}

func TestDocumentTenantIsolation(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	doc := testDocument("acme", "private data")
	if err := repos.Documents.AddDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if _, err := repos.Documents.GetDocument(ctx, "globex", doc.Id); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound for wrong tenant, got %v", err)
	}
	if _, err := repos.Documents.FindDocumentByHash(ctx, "globex", doc.ContentHash); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound for wrong tenant hash lookup, got %v", err)
	}

	docs, err := repos.Documents.ListDocuments(ctx, "globex", "", 0)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("Expected no documents for other tenant, got %d", len(docs))
	}
}

func TestDocumentListOrderAndFilter(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, content := range []string{"first", "second", "third"} {
		doc := testDocument("acme", content)
		doc.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repos.Documents.AddDocument(ctx, doc); err != nil {
			t.Fatalf("Failed to add document %d: %v", i, err)
		}
		if i == 2 {
			if err := repos.Documents.SetDocumentStatus(ctx, "acme", doc.Id, core.DocumentStatusReady, ""); err != nil {
				t.Fatalf("Failed to set status: %v", err)
			}
		}
	}

	docs, err := repos.Documents.ListDocuments(ctx, "acme", "", 0)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}
	for i := 1; i < len(docs); i++ {
		if docs[i].CreatedAt.After(docs[i-1].CreatedAt) {
			t.Fatal("Expected newest-first ordering")
		}
	}

	ready, err := repos.Documents.ListDocuments(ctx, "acme", core.DocumentStatusReady, 0)
	if err != nil {
		t.Fatalf("Failed to list ready documents: %v", err)
	}
	if len(ready) != 1 {
		t.Fatalf("Expected 1 ready document, got %d", len(ready))
	}

	limited, err := repos.Documents.ListDocuments(ctx, "acme", "", 2)
	if err != nil {
		t.Fatalf("Failed to list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("Expected 2 documents with limit, got %d", len(limited))
	}
}

func TestDocumentSetStatus(t *testing.T) {
	repos, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Close()

	ctx := context.Background()
	doc := testDocument("acme", "will fail")
	if err := repos.Documents.AddDocument(ctx, doc); err != nil {
		t.Fatalf("Failed to add document: %v", err)
	}

	if err := repos.Documents.SetDocumentStatus(ctx, "acme", doc.Id, core.DocumentStatusFailed, "extraction: corrupt file"); err != nil {
		t.Fatalf("Failed to set status: %v", err)
	}

	retrieved, err := repos.Documents.GetDocument(ctx, "acme", doc.Id)
	if err != nil {
		t.Fatalf("Failed to get document: %v", err)
	}
	if retrieved.Status != core.DocumentStatusFailed {
		t.Fatalf("Expected failed status, got %s", retrieved.Status)
	}
	if retrieved.Error != "extraction: corrupt file" {
		t.Fatalf("Unexpected error detail: %s", retrieved.Error)
	}

	if err := repos.Documents.SetDocumentStatus(ctx, "acme", "missing", core.DocumentStatusReady, ""); err != storage.ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
