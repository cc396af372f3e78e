package service

import (
	"context"
	"strings"
	"testing"

	"stylesync/internal/entity"
	"stylesync/internal/storage"
)

type fakeRepo struct {
	created []*entity.DbTryOnRecord
	updates map[uint]entity.TryOnRecordUpdates
	nextID  uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{updates: make(map[uint]entity.TryOnRecordUpdates), nextID: 100}
}

func (r *fakeRepo) CreateTryOnRecord(_ context.Context, record *entity.DbTryOnRecord) error {
	r.nextID++
	record.ID = r.nextID
	r.created = append(r.created, record)
	return nil
}

func (r *fakeRepo) UpdateTryOnRecord(_ context.Context, id uint, updates entity.TryOnRecordUpdates) error {
	r.updates[id] = updates
	return nil
}

func (r *fakeRepo) ListTryOnRecords(_ context.Context, _ *entity.TryOnRecordQuery) ([]entity.DbTryOnRecord, *entity.Meta, error) {
	return nil, nil, nil
}

func (r *fakeRepo) GetTryOnRecord(_ context.Context, _ uint) (*entity.DbTryOnRecord, error) {
	return nil, nil
}

func (r *fakeRepo) DeleteTryOnRecord(_ context.Context, _ uint) error {
	return nil
}

type fakeArchive struct {
	puts []storage.PutOptions
}

func (a *fakeArchive) Put(_ context.Context, _ []byte, opts storage.PutOptions) (string, error) {
	a.puts = append(a.puts, opts)
	return opts.Kind + "/" + opts.BaseName + "." + opts.Extension, nil
}

func TestRecordServicePersistsSuccessfulAttempt(t *testing.T) {
	repo := newFakeRepo()
	archive := &fakeArchive{}
	svc := NewRecordService(repo, archive)

	svc.handleAttempt(TryOnAttempt{
		SessionID:    "device-123",
		SubjectKind:  entity.SourceKindPrompt,
		SubjectLabel: "young woman in casual style",
		GarmentLabel: "shirt.jpg",
		Seed:         "42",
		Inputs: []InputImage{
			{Data: []byte("garment-bytes"), ContentType: "image/jpeg"},
		},
		ResultData:   []byte("result-bytes"),
		ContentType:  "image/jpeg",
		ProcessingMs: 4200,
	})

	if len(repo.created) != 1 {
		t.Fatalf("created %d records, want 1", len(repo.created))
	}
	record := repo.created[0]
	if record.Status != entity.RecordStatusSuccess {
		t.Fatalf("status = %q", record.Status)
	}
	if record.SessionID != "device-123" || record.Seed != "42" {
		t.Fatalf("record = %+v", record)
	}

	updates, ok := repo.updates[record.ID]
	if !ok {
		t.Fatal("expected archive paths to be written back")
	}
	if updates.InputImages == nil || len(*updates.InputImages) != 1 {
		t.Fatalf("input images = %v", updates.InputImages)
	}
	if updates.ResultImage == nil || !strings.HasPrefix(*updates.ResultImage, storage.KindResults+"/") {
		t.Fatalf("result image = %v", updates.ResultImage)
	}
	if updates.ByteSize == nil || *updates.ByteSize != int64(len("result-bytes")) {
		t.Fatalf("byte size = %v", updates.ByteSize)
	}

	// 输入图按内容寻址,允许去重
	if len(archive.puts) != 2 {
		t.Fatalf("archive puts = %d, want 2", len(archive.puts))
	}
	if !archive.puts[0].SkipIfExists || archive.puts[0].Kind != storage.KindInputs {
		t.Fatalf("input put opts = %+v", archive.puts[0])
	}
	if archive.puts[1].SkipIfExists || archive.puts[1].Kind != storage.KindResults {
		t.Fatalf("result put opts = %+v", archive.puts[1])
	}
}

func TestRecordServicePersistsFailureWithoutArchive(t *testing.T) {
	repo := newFakeRepo()
	svc := NewRecordService(repo, nil)

	svc.handleAttempt(TryOnAttempt{
		SessionID:     "device-123",
		SubjectKind:   entity.SourceKindImage,
		SubjectLabel:  "model.jpg",
		GarmentLabel:  "shirt.jpg",
		ErrorCategory: "timeout",
		ErrorMessage:  "Request to the image service timed out.",
		ProcessingMs:  60000,
	})

	if len(repo.created) != 1 {
		t.Fatalf("created %d records, want 1", len(repo.created))
	}
	record := repo.created[0]
	if record.Status != entity.RecordStatusFailure {
		t.Fatalf("status = %q", record.Status)
	}
	if record.ErrorCategory != "timeout" {
		t.Fatalf("error category = %q", record.ErrorCategory)
	}
	if _, ok := repo.updates[record.ID]; ok {
		t.Fatal("no archive configured, no update expected")
	}
}

func TestRecordServiceNilRepoIsNoop(t *testing.T) {
	svc := NewRecordService(nil, nil)
	// 未配置数据库时整个服务退化为空操作
	svc.RecordAsync(TryOnAttempt{SessionID: "device-123"})
}
