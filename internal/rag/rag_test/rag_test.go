package rag_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/akolanti/CyberScholar/internal/config"
	"github.com/akolanti/CyberScholar/internal/data/store"
	"github.com/akolanti/CyberScholar/internal/domain/commonModels"
	"github.com/akolanti/CyberScholar/internal/domain/coreErrors"
	"github.com/akolanti/CyberScholar/internal/domain/jobModel"
	"github.com/akolanti/CyberScholar/internal/fileStore"
	"github.com/akolanti/CyberScholar/internal/rag"
	"github.com/akolanti/CyberScholar/internal/rag/safety"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB"
	"github.com/akolanti/CyberScholar/internal/rag/vectorDB/lexicalDB"
)

const owner = "owner-1"

type fixture struct {
	svc   rag.Service
	llm   *MockLLM
	index *RecordingIndex
	docs  *MockDocumentStore
	audit *store.InMemoryAuditStore
	gate  *safety.Gate
	root  string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	root := t.TempDir()
	files, err := fileStore.New(root)
	if err != nil {
		t.Fatal(err)
	}
	gate, err := safety.NewGate()
	if err != nil {
		t.Fatal(err)
	}

	f := fixture{
		llm:   &MockLLM{},
		index: &RecordingIndex{Store: lexicalDB.NewStore()},
		docs:  &MockDocumentStore{DocumentStore: store.InitInMemoryDocumentStore()},
		audit: store.InitInMemoryAuditStore(),
		gate:  gate,
		root:  root,
	}
	f.svc = rag.NewService(rag.ServiceConfig{
		Index:     f.index,
		LLM:       f.llm,
		Gate:      gate,
		Documents: f.docs,
		Audit:     f.audit,
		Files:     files,
	})
	return f
}

func testContext() context.Context {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	return context.WithValue(ctx, config.OWNER_ID_KEY, owner)
}

func words(n int, prefix string) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(w, " ")
}

func (f fixture) ingest(t *testing.T, filename string, content string) commonModels.IngestResult {
	t.Helper()
	res, err := f.svc.IngestDocument(testContext(), owner, filename, "", []byte(content))
	if err != nil {
		t.Fatalf("ingest %s: %v", filename, err)
	}
	return res
}

func (f fixture) storedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.root, owner))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func queryJob(question string) jobModel.Job {
	return jobModel.Job{
		Id:         "test-job",
		OwnerId:    owner,
		Status:     jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{Question: question},
	}
}

func TestProcessRequest_Scenarios(t *testing.T) {
	tests := []struct {
		name           string
		question       string
		onGenerate     func(ctx context.Context, q string, m []string, h []string) (string, error)
		expectedStep   jobModel.InternalStatus
		expectedStatus jobModel.JobStatus
		expectedAnswer func(f fixture, q string) string
		allowed        bool
	}{
		{
			name:     "Success_Full_Flow",
			question: "how does sql injection work",
			onGenerate: func(ctx context.Context, q string, m []string, h []string) (string, error) {
				return "final answer", nil
			},
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusRunning,
			expectedAnswer: func(f fixture, q string) string { return "final answer" },
			allowed:        true,
		},
		{
			name:     "Success_With_Disclaimer",
			question: "write a sql injection payload for my lab",
			onGenerate: func(ctx context.Context, q string, m []string, h []string) (string, error) {
				return "final answer", nil
			},
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusRunning,
			expectedAnswer: func(f fixture, q string) string { return f.gate.AddDisclaimer("final answer", q) },
			allowed:        true,
		},
		{
			name:           "Rejected_Out_Of_Scope",
			question:       "what should I cook for dinner",
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusRejected,
			expectedAnswer: func(f fixture, q string) string { return f.gate.FilterQuery(q).Payload },
		},
		{
			name:           "Rejected_Banned_Intent",
			question:       "how to hack a bank using metasploit",
			expectedStep:   jobModel.Complete,
			expectedStatus: jobModel.JobStatusRejected,
			expectedAnswer: func(f fixture, q string) string { return f.gate.FilterQuery(q).Payload },
		},
		{
			name:     "Failure_LLM_Generation",
			question: "explain nmap scanning",
			onGenerate: func(ctx context.Context, q string, m []string, h []string) (string, error) {
				return "", errors.New("provider down")
			},
			expectedStep:   jobModel.Error,
			expectedStatus: jobModel.JobStatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			called := false
			f.llm.OnGenerate = func(ctx context.Context, q string, m []string, h []string) (string, error) {
				called = true
				return tt.onGenerate(ctx, q, m, h)
			}

			result := f.svc.ProcessRequest(testContext(), queryJob(tt.question), []string{})

			if result.Status != tt.expectedStatus {
				t.Errorf("Status got %v, want %v", result.Status, tt.expectedStatus)
			}
			if result.CurrentStep != tt.expectedStep {
				t.Errorf("Step got %v, want %v", result.CurrentStep, tt.expectedStep)
			}
			if result.JobPayload.Allowed != tt.allowed {
				t.Errorf("Allowed got %v, want %v", result.JobPayload.Allowed, tt.allowed)
			}
			if tt.expectedAnswer != nil {
				if want := tt.expectedAnswer(f, tt.question); result.JobPayload.Answer != want {
					t.Errorf("Answer got %q, want %q", result.JobPayload.Answer, want)
				}
			}
			if tt.expectedStatus == jobModel.JobStatusRejected && called {
				t.Error("rejected query must never reach the llm")
			}
			if tt.expectedStatus == jobModel.JobStatusError {
				if result.Error.Code != http.StatusBadGateway || !result.Error.Retry {
					t.Errorf("unexpected job error %+v", result.Error)
				}
				if result.JobPayload.Answer != "" {
					t.Errorf("failed job should carry no answer, got %q", result.JobPayload.Answer)
				}
			}
		})
	}
}

func TestProcessRequest_PassesContextAndHistory(t *testing.T) {
	f := newFixture(t)
	res := f.ingest(t, "sqli.txt", "sql injection union select walkthrough for the lab")
	f.ingest(t, "other.txt", "wireshark capture filters")

	var gotMatches, gotHistory []string
	f.llm.OnGenerate = func(ctx context.Context, q string, m []string, h []string) (string, error) {
		gotMatches, gotHistory = m, h
		return "answer", nil
	}

	history := []string{`{"question":"q1","answer":"a1"}`}
	result := f.svc.ProcessRequest(testContext(), queryJob("sql injection union select"), history)

	if len(gotMatches) == 0 || !strings.Contains(gotMatches[0], "union select") {
		t.Errorf("best match should be passed first, got %v", gotMatches)
	}
	if len(gotHistory) != 1 || gotHistory[0] != history[0] {
		t.Errorf("history not forwarded: %v", gotHistory)
	}
	if len(result.JobPayload.Sources) == 0 || result.JobPayload.Sources[0] != res.Source {
		t.Errorf("sources got %v, want %s first", result.JobPayload.Sources, res.Source)
	}
	seen := map[string]bool{}
	for _, s := range result.JobPayload.Sources {
		if seen[s] {
			t.Errorf("duplicate source %s", s)
		}
		seen[s] = true
	}
}

func TestProcessRequest_OtherOwnersDocumentsAreInvisible(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.IngestDocument(testContext(), "someone-else", "xss.md", "", []byte("xss payload notes")); err != nil {
		t.Fatal(err)
	}

	var gotMatches []string
	f.llm.OnGenerate = func(ctx context.Context, q string, m []string, h []string) (string, error) {
		gotMatches = m
		return "answer", nil
	}
	result := f.svc.ProcessRequest(testContext(), queryJob("xss payload"), nil)
	if len(gotMatches) != 0 || len(result.JobPayload.Sources) != 0 {
		t.Errorf("saw another owner's chunks: %v %v", gotMatches, result.JobPayload.Sources)
	}
}

func TestIngestDocument_Types(t *testing.T) {
	tests := []struct {
		filename string
		content  string
		want     string
	}{
		{"notes.txt", "Nmap scanning basics for the home lab.", "Nmap scanning basics"},
		{"guide.md", "# Recon\n\nPassive footprinting first.", "# Recon"},
		{"tools.json", `{"tool": "burp", "port": 8080}`, "tool: burp"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			f := newFixture(t)
			res := f.ingest(t, tt.filename, tt.content)

			if res.ChunkCount != 1 {
				t.Errorf("expected 1 chunk, got %d", res.ChunkCount)
			}
			if !strings.HasPrefix(res.Source, tt.filename+"_") {
				t.Errorf("source %q should start with the filename", res.Source)
			}
			if res.Size != int64(len(tt.content)) || len(res.Digest) != 64 {
				t.Errorf("unexpected result %+v", res)
			}

			doc, found, err := f.docs.GetDocument(testContext(), owner, res.Source)
			if err != nil || !found {
				t.Fatalf("document record missing: %v", err)
			}
			if !strings.Contains(doc.ContentPreview, tt.want) {
				t.Errorf("preview %q missing %q", doc.ContentPreview, tt.want)
			}
			if doc.MimeType == "" {
				t.Error("mime type not recorded")
			}

			chunks := f.index.GetByMetadata(owner, map[string]any{vectorDB.MetaSource: res.Source})
			if len(chunks) != 1 || chunks[0].Metadata["filename"] != tt.filename {
				t.Errorf("index chunks %+v", chunks)
			}
		})
	}
}

func TestIngestDocument_SameFilenameGetsNewSource(t *testing.T) {
	f := newFixture(t)
	a := f.ingest(t, "notes.txt", "first version about xss")
	b := f.ingest(t, "notes.txt", "second version about csrf")
	if a.Source == b.Source {
		t.Fatal("re-uploading must not reuse the source")
	}
	docs, _ := f.svc.ListDocuments(testContext(), owner)
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
}

func TestIngestDocument_Failures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		declared string
		data     []byte
		check    func(err error) bool
	}{
		{"unsupported_extension", "payload.exe", "", []byte("MZ"), func(err error) bool { return errors.Is(err, coreErrors.ErrUnsupportedType) }},
		{"no_extension", "README", "", []byte("text"), func(err error) bool { return errors.Is(err, coreErrors.ErrUnsupportedType) }},
		{"unsupported_declared", "notes.txt", "docx", []byte("text"), func(err error) bool { return errors.Is(err, coreErrors.ErrUnsupportedType) }},
		{"empty", "notes.txt", "", nil, func(err error) bool { return errors.Is(err, coreErrors.ErrEmptyFile) }},
		{"size_exceeded", "big.txt", "", make([]byte, config.MaxUploadSize+1), func(err error) bool { return errors.Is(err, coreErrors.ErrSizeExceeded) }},
		{"invalid_json", "broken.json", "", []byte(`{"tool": `), func(err error) bool {
			var e *coreErrors.ExtractionFailedError
			return errors.As(err, &e)
		}},
		{"whitespace_only", "blank.txt", "", []byte("   \n\t  "), func(err error) bool {
			var e *coreErrors.ExtractionFailedError
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.IngestDocument(testContext(), owner, tt.filename, tt.declared, tt.data)
			if !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
			if left := f.storedFiles(t); len(left) != 0 {
				t.Errorf("failed ingestion left files behind: %v", left)
			}
			if chunks := f.index.GetByMetadata(owner, nil); len(chunks) != 0 {
				t.Errorf("failed ingestion left %d chunks", len(chunks))
			}
		})
	}
}

func TestIngestDocument_RecordFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.docs.OnSaveDocument = func(ctx context.Context, doc commonModels.Document) error {
		return errors.New("redis down")
	}

	_, err := f.svc.IngestDocument(testContext(), owner, "notes.txt", "", []byte("xss notes"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if left := f.storedFiles(t); len(left) != 0 {
		t.Errorf("file not removed: %v", left)
	}
	if chunks := f.index.GetByMetadata(owner, nil); len(chunks) != 0 {
		t.Errorf("chunks not removed: %d", len(chunks))
	}
}

func TestRetrieve_ClampsK(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, config.DefaultRetrievalCount},
		{-3, config.DefaultRetrievalCount},
		{2, 2},
		{config.MaxRetrievalCount + 10, config.MaxRetrievalCount},
	}
	f := newFixture(t)
	f.ingest(t, "notes.txt", "burp suite")
	for _, tt := range tests {
		if _, err := f.svc.Retrieve(testContext(), owner, "burp", tt.in); err != nil {
			t.Fatal(err)
		}
		if f.index.LastK != tt.want {
			t.Errorf("k=%d queried with %d, want %d", tt.in, f.index.LastK, tt.want)
		}
	}
}

func TestRetrieve_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(testContext())
	cancel()
	if _, err := f.svc.Retrieve(ctx, owner, "burp", 3); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestVerifyIntegrity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, path string)
		want   commonModels.IntegrityStatus
	}{
		{"untouched", func(t *testing.T, path string) {}, commonModels.IntegrityOk},
		{"tampered", func(t *testing.T, path string) {
			if err := os.WriteFile(path, []byte("rewritten by someone"), 0o640); err != nil {
				t.Fatal(err)
			}
		}, commonModels.IntegrityMismatch},
		{"truncated", func(t *testing.T, path string) {
			if err := os.WriteFile(path, nil, 0o640); err != nil {
				t.Fatal(err)
			}
		}, commonModels.IntegrityMismatch},
		{"deleted", func(t *testing.T, path string) {
			if err := os.Remove(path); err != nil {
				t.Fatal(err)
			}
		}, commonModels.IntegrityFileMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res := f.ingest(t, "notes.txt", "metasploit module notes")
			doc, _, _ := f.docs.GetDocument(testContext(), owner, res.Source)
			tt.mutate(t, doc.StoragePath)

			report, err := f.svc.VerifyIntegrity(testContext(), owner, res.Source)
			if err != nil {
				t.Fatal(err)
			}
			if report.Status != tt.want || report.Verified != (tt.want == commonModels.IntegrityOk) {
				t.Errorf("report %+v, want status %s", report, tt.want)
			}

			events, _ := f.audit.ListEvents(testContext(), owner)
			audited := len(events) == 1 && events[0].EventType == commonModels.EventIntegrityMismatch
			if audited != (tt.want == commonModels.IntegrityMismatch) {
				t.Errorf("audit events %+v", events)
			}
		})
	}
}

func TestVerifyIntegrity_UnknownSource(t *testing.T) {
	f := newFixture(t)
	report, err := f.svc.VerifyIntegrity(testContext(), owner, "never-uploaded")
	if err != nil {
		t.Fatal(err)
	}
	if report.Status != commonModels.IntegrityUnknown || report.Verified {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	keep := f.ingest(t, "keep.txt", "wireshark filters")
	drop := f.ingest(t, "drop.txt", "nmap flags")

	if err := f.svc.DeleteDocument(testContext(), owner, drop.Source); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteDocument(testContext(), owner, drop.Source); !errors.Is(err, coreErrors.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}

	docs, _ := f.svc.ListDocuments(testContext(), owner)
	if len(docs) != 1 || docs[0].Source != keep.Source {
		t.Errorf("unexpected documents left %+v", docs)
	}
	if left := f.storedFiles(t); len(left) != 1 || left[0] != keep.Source {
		t.Errorf("unexpected files left %v", left)
	}
	if chunks := f.index.GetByMetadata(owner, map[string]any{vectorDB.MetaSource: drop.Source}); len(chunks) != 0 {
		t.Errorf("chunks of the deleted document are still indexed")
	}
}

// upload, ask, verify: the whole path a user walks through
func TestEndToEnd_LargeDocument(t *testing.T) {
	f := newFixture(t)
	body := words(1200, "w")
	res := f.ingest(t, "course.txt", body)
	if res.ChunkCount != 3 {
		t.Fatalf("1200 words should give 3 chunks, got %d", res.ChunkCount)
	}

	records, err := f.svc.Retrieve(testContext(), owner, "w1199 w1198", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Chunk.Id != res.Source+"_2" {
		t.Errorf("expected the last chunk, got %+v", records)
	}

	report, err := f.svc.VerifyIntegrity(testContext(), owner, res.Source)
	if err != nil || report.Status != commonModels.IntegrityOk {
		t.Errorf("integrity %+v %v", report, err)
	}

	doc, _, _ := f.docs.GetDocument(testContext(), owner, res.Source)
	if n := len([]rune(doc.ContentPreview)); n != config.ContentPreviewSize {
		t.Errorf("preview has %d characters, want %d", n, config.ContentPreviewSize)
	}
}

// a restart keeps files and records but loses the index
func TestReindex_RebuildsFromVerifiedFiles(t *testing.T) {
	f := newFixture(t)
	kept := f.ingest(t, "kept.txt", "burp intruder payload positions")
	tampered := f.ingest(t, "tampered.txt", "wireshark display filters")
	doc, _, _ := f.docs.GetDocument(testContext(), owner, tampered.Source)
	if err := os.WriteFile(doc.StoragePath, []byte("wireshark display filters and a planted line"), 0o640); err != nil {
		t.Fatal(err)
	}

	files, err := fileStore.New(f.root)
	if err != nil {
		t.Fatal(err)
	}
	restarted := rag.NewService(rag.ServiceConfig{
		Index:     lexicalDB.NewStore(),
		LLM:       f.llm,
		Gate:      f.gate,
		Documents: f.docs,
		Audit:     f.audit,
		Files:     files,
	})
	if records, _ := restarted.Retrieve(testContext(), owner, "burp intruder", 5); len(records) != 0 {
		t.Fatalf("fresh index should be empty, got %d records", len(records))
	}

	indexed, err := restarted.Reindex(testContext(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if indexed != 1 {
		t.Errorf("indexed %d documents, want 1", indexed)
	}

	records, _ := restarted.Retrieve(testContext(), owner, "burp intruder wireshark filters", 5)
	if len(records) != 1 || records[0].Chunk.Source != kept.Source {
		t.Errorf("only the verified document should be searchable, got %+v", records)
	}
}

func TestIngestDocument_LongFilenamesKeepSeparateFiles(t *testing.T) {
	f := newFixture(t)
	name := strings.Repeat("a", 250) + ".txt"
	first := f.ingest(t, name, "first upload about sql injection")
	second := f.ingest(t, name, "second upload about buffer overflows")

	firstDoc, _, _ := f.docs.GetDocument(testContext(), owner, first.Source)
	secondDoc, _, _ := f.docs.GetDocument(testContext(), owner, second.Source)
	if firstDoc.StoragePath == secondDoc.StoragePath {
		t.Fatalf("both uploads landed on %s", firstDoc.StoragePath)
	}
	if len(filepath.Base(firstDoc.StoragePath)) > 255 {
		t.Errorf("stored name is %d bytes", len(filepath.Base(firstDoc.StoragePath)))
	}

	report, err := f.svc.VerifyIntegrity(testContext(), owner, first.Source)
	if err != nil || report.Status != commonModels.IntegrityOk {
		t.Errorf("first upload integrity after the second: %+v %v", report, err)
	}

	if err := f.svc.DeleteDocument(testContext(), owner, second.Source); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(firstDoc.StoragePath); err != nil {
		t.Errorf("deleting the second upload removed the first file: %v", err)
	}
}

func TestReindex_SkipsDocumentDeletedAfterListing(t *testing.T) {
	f := newFixture(t)
	res := f.ingest(t, "gone.txt", "metasploit module options")

	f.docs.OnListDocuments = func(ctx context.Context, ownerId string) ([]commonModels.Document, error) {
		listed, err := f.docs.DocumentStore.ListDocuments(ctx, ownerId)
		if err != nil {
			return nil, err
		}
		if err := f.svc.DeleteDocument(ctx, ownerId, res.Source); err != nil {
			t.Errorf("delete during listing: %v", err)
		}
		return listed, nil
	}

	indexed, err := f.svc.Reindex(testContext(), owner)
	if err != nil {
		t.Fatal(err)
	}
	if indexed != 0 {
		t.Errorf("indexed %d documents, want 0", indexed)
	}
	if chunks := f.index.GetByMetadata(owner, map[string]any{vectorDB.MetaSource: res.Source}); len(chunks) != 0 {
		t.Errorf("deleted document is searchable again: %d chunks", len(chunks))
	}
}

func TestReindex_ConcurrentDeleteLeavesNoChunks(t *testing.T) {
	f := newFixture(t)
	for i := range 25 {
		res := f.ingest(t, fmt.Sprintf("race-%d.txt", i), "hydra brute force wordlists")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Reindex(testContext(), owner); err != nil {
				t.Errorf("reindex: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := f.svc.DeleteDocument(testContext(), owner, res.Source); err != nil {
				t.Errorf("delete: %v", err)
			}
		}()
		wg.Wait()

		if chunks := f.index.GetByMetadata(owner, map[string]any{vectorDB.MetaSource: res.Source}); len(chunks) != 0 {
			t.Fatalf("round %d: %d chunks outlived their document", i, len(chunks))
		}
	}
}
