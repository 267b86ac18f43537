package core_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aurumcrm/exchange/internal/core"
	"github.com/aurumcrm/exchange/internal/store"
)

func newTestService(opts core.Options) (*core.Service, *store.Memory) {
	mem := store.NewMemory()
	return core.NewService(mem, opts), mem
}

func mustImport(t *testing.T, svc *core.Service, input string, format core.Format) *core.ImportResult {
	t.Helper()
	result, err := svc.Import(context.Background(), strings.NewReader(input), format)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return result
}

func TestImportCSV(t *testing.T) {
	svc, mem := newTestService(core.Options{})

	input := "email,first_name,status,tags\n" +
		"jane@example.com,Jane,lead,\"vip, festive\"\n" +
		"raj@example.com,Raj,ACTIVE,\n"

	result := mustImport(t, svc, input, core.FormatCSV)
	if result.Imported != 2 || result.Skipped != 0 {
		t.Fatalf("result = %+v", result)
	}

	count, _ := mem.Count(context.Background())
	if count != 2 {
		t.Errorf("store count = %d, want 2", count)
	}
}

func TestImportJSON(t *testing.T) {
	svc, mem := newTestService(core.Options{})

	input := `[
		{"email": "jane@example.com", "first_name": "Jane", "tags": ["vip"]},
		{"email": "raj@example.com", "ring_size": 14}
	]`

	result := mustImport(t, svc, input, core.FormatJSON)
	if result.Imported != 2 {
		t.Fatalf("result = %+v", result)
	}

	var ringSize string
	mem.Each(context.Background(), func(c *core.Customer) error {
		if c.Email == "raj@example.com" {
			ringSize = c.RingSize
		}
		return nil
	})
	if ringSize != "14" {
		t.Errorf("ring_size = %q, want 14", ringSize)
	}
}

func TestImportEveryRecordHasOneOutcome(t *testing.T) {
	svc, _ := newTestService(core.Options{BatchSize: 2})

	input := "email,first_name\n" +
		"one@example.com,One\n" +
		"broken-email,Two\n" +
		"one@example.com,Dup\n" +
		",Blank\n" +
		"five@example.com,Five\n"

	result := mustImport(t, svc, input, core.FormatCSV)

	if result.Total() != 5 {
		t.Fatalf("Total() = %d, want 5 (result %+v)", result.Total(), result)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
	if result.Skipped != 3 || len(result.Errors) != 3 {
		t.Errorf("Skipped = %d, Errors = %d, want 3 each", result.Skipped, len(result.Errors))
	}
}

func TestImportDuplicateInFile(t *testing.T) {
	svc, _ := newTestService(core.Options{})

	// Case-folded emails are the same identity.
	input := "email,first_name\n" +
		"A@x.com,First\n" +
		"a@x.com,Second\n"

	result := mustImport(t, svc, input, core.FormatCSV)
	if result.Imported != 1 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0].Row != 2 || result.Errors[0].Reason != "duplicate in file" {
		t.Errorf("outcome = %+v", result.Errors[0])
	}
}

func TestImportAlreadyExists(t *testing.T) {
	svc, _ := newTestService(core.Options{})

	mustImport(t, svc, "email\njane@example.com\n", core.FormatCSV)
	result := mustImport(t, svc, "email\nJANE@EXAMPLE.COM\n", core.FormatCSV)

	if result.Imported != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Errors[0].Reason != "already exists" {
		t.Errorf("reason = %q", result.Errors[0].Reason)
	}
}

func TestImportFirstOccurrenceWins(t *testing.T) {
	svc, mem := newTestService(core.Options{})

	input := "email,first_name\n" +
		"jane@example.com,Original\n" +
		"jane@example.com,Overwrite\n"

	mustImport(t, svc, input, core.FormatCSV)

	var name string
	mem.Each(context.Background(), func(c *core.Customer) error {
		name = c.FirstName
		return nil
	})
	if name != "Original" {
		t.Errorf("stored first_name = %q, want Original", name)
	}
}

func TestImportFormatErrorAbortsWhole(t *testing.T) {
	svc, _ := newTestService(core.Options{})

	_, err := svc.Import(context.Background(), strings.NewReader(`{"not": "array"}`), core.FormatJSON)

	var formatErr *core.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("error = %v, want *FormatError", err)
	}
}

func TestImportInvalidUTF8(t *testing.T) {
	svc, _ := newTestService(core.Options{})

	input := append([]byte("email\n"), 0xFF, 0xFE, '\n')
	_, err := svc.Import(context.Background(), bytes.NewReader(input), core.FormatCSV)
	if err == nil {
		t.Fatal("invalid UTF-8 accepted")
	}
}

func TestImportFileTooLarge(t *testing.T) {
	svc, _ := newTestService(core.Options{MaxFileSize: 64})

	var sb strings.Builder
	sb.WriteString("email\n")
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "user%03d@example.com\n", i)
	}

	_, err := svc.Import(context.Background(), strings.NewReader(sb.String()), core.FormatCSV)
	if !errors.Is(err, core.ErrFileTooLarge) {
		t.Fatalf("error = %v, want ErrFileTooLarge", err)
	}
}

func TestImportCancellation(t *testing.T) {
	svc, _ := newTestService(core.Options{BatchSize: 8})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the stream starts being consumed, so the import is
	// already past admission when it notices.
	input := &cancelingReader{r: strings.NewReader("email\njane@example.com\n"), cancel: cancel}

	result, err := svc.Import(ctx, input, core.FormatCSV)
	if err != nil {
		t.Fatalf("cancelled import returned error: %v", err)
	}
	if !result.Cancelled {
		t.Error("result.Cancelled = false")
	}
}

type cancelingReader struct {
	r      *strings.Reader
	cancel context.CancelFunc
}

func (c *cancelingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.cancel()
	return n, err
}

func TestImportMissingRequiredColumn(t *testing.T) {
	svc, _ := newTestService(core.Options{})

	input := "first_name,last_name\nJane,Doe\n"
	result := mustImport(t, svc, input, core.FormatCSV)

	if result.Imported != 0 || result.Skipped != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.Errors[0].Reason, "email") {
		t.Errorf("reason = %q, want mention of email", result.Errors[0].Reason)
	}
}

func TestImportStoreUnavailableAborts(t *testing.T) {
	failing := &flakyStore{Memory: store.NewMemory(), failAfter: 2}
	svc := core.NewService(failing, core.Options{BatchSize: 1})

	input := "email\n" +
		"one@example.com\n" +
		"two@example.com\n" +
		"three@example.com\n"

	_, err := svc.Import(context.Background(), strings.NewReader(input), core.FormatCSV)
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("error = %v, want ErrStoreUnavailable", err)
	}
}

// flakyStore delegates to Memory until failAfter inserts have happened,
// then reports the store as gone.
type flakyStore struct {
	*store.Memory
	inserts   int
	failAfter int
}

func (f *flakyStore) Insert(ctx context.Context, c *core.Customer) error {
	if f.inserts >= f.failAfter {
		return core.ErrStoreUnavailable
	}
	f.inserts++
	return f.Memory.Insert(ctx, c)
}

func TestImportLargeFileStreams(t *testing.T) {
	svc, mem := newTestService(core.Options{BatchSize: 64, ValidationWorkers: 8})

	const rows = 10000
	var sb strings.Builder
	sb.WriteString("email,first_name,status\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "user%05d@example.com,User%d,lead\n", i, i)
	}

	result := mustImport(t, svc, sb.String(), core.FormatCSV)
	if result.Imported != rows || result.Skipped != 0 {
		t.Fatalf("imported %d, skipped %d", result.Imported, result.Skipped)
	}

	count, _ := mem.Count(context.Background())
	if count != rows {
		t.Errorf("store count = %d, want %d", count, rows)
	}
}

func TestImportConcurrencyLimit(t *testing.T) {
	svc, _ := newTestService(core.Options{
		MaxConcurrentImports: 1,
		MaxWaitTime:          50 * time.Millisecond,
	})

	// Park one import on a reader that blocks until released.
	release := make(chan struct{})
	go svc.Import(context.Background(), &blockingReader{release: release}, core.FormatCSV)

	deadline := time.Now().Add(time.Second)
	for svc.ActiveImports() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first import never took its slot")
		}
		time.Sleep(time.Millisecond)
	}

	_, err := svc.Import(context.Background(), strings.NewReader("email\n"), core.FormatCSV)
	close(release)
	if !errors.Is(err, core.ErrTooManyImports) {
		t.Fatalf("error = %v, want ErrTooManyImports", err)
	}
}

type blockingReader struct {
	release chan struct{}
}

func (b *blockingReader) Read(p []byte) (int, error) {
	<-b.release
	return 0, errors.New("released")
}
