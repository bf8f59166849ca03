package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/internal/storage"
	"github.com/gridframe/gridframe/pkg/types"
)

// FrameStore persists frames: encoded blobs on an ObjectStorage, records in
// a Catalog. It never validates what it reads back; that is the container's
// job, and stored data is treated as untrusted raw input.
type FrameStore struct {
	catalog Catalog
	objects storage.ObjectStorage
	prefix  string
}

// NewFrameStore creates a frame store writing blobs under prefix.
func NewFrameStore(catalog Catalog, objects storage.ObjectStorage, prefix string) *FrameStore {
	if prefix == "" {
		prefix = "frames"
	}
	return &FrameStore{catalog: catalog, objects: objects, prefix: prefix}
}

// Save encodes and uploads a table under the named template, then records
// the frame in the catalog. The template must already be registered and
// must match the table's schema.
func (s *FrameStore) Save(ctx context.Context, templateName string, table *types.Table) (*FrameRecord, error) {
	tpl, err := s.catalog.GetTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}
	if tpl.Fingerprint != table.Schema.Fingerprint() {
		return nil, gferrors.NewStoreError(gferrors.CodeTemplateNotFound,
			fmt.Sprintf("table schema does not match template %q", templateName), nil)
	}

	blob, err := EncodeTable(table)
	if err != nil {
		return nil, err
	}

	frameID := uuid.New().String()
	objectPath := fmt.Sprintf("%s/%s.gfz", s.prefix, frameID)

	if err := s.objects.Put(ctx, objectPath, blob); err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeUploadFailed,
			fmt.Sprintf("upload frame %s", frameID), err)
	}

	rec := &FrameRecord{
		FrameID:    frameID,
		TemplateID: tpl.ID,
		ObjectPath: objectPath,
		RowCount:   int64(table.NumRows()),
		CreatedAt:  time.Now(),
	}
	if table.Indexed() && len(table.Index) > 0 {
		minT := table.Index[0].Time
		maxT := table.Index[len(table.Index)-1].Time
		rec.MinTime = &minT
		rec.MaxTime = &maxT
	}

	if err := s.catalog.RegisterFrame(ctx, rec); err != nil {
		// Blob is now orphaned; best effort cleanup, the record is the
		// source of truth.
		_ = s.objects.Delete(ctx, objectPath)
		return nil, err
	}

	return rec, nil
}

// Load downloads and decodes a stored frame as a raw table bound to the
// template's schema. Callers must feed the result through a container's
// Load/Validate before trusting it.
func (s *FrameStore) Load(ctx context.Context, templateName, frameID string) (*types.Table, error) {
	tpl, err := s.catalog.GetTemplate(ctx, templateName)
	if err != nil {
		return nil, err
	}
	rec, err := s.catalog.GetFrame(ctx, frameID)
	if err != nil {
		return nil, err
	}
	if rec.TemplateID != tpl.ID {
		return nil, gferrors.NewStoreError(gferrors.CodeFrameNotFound,
			fmt.Sprintf("frame %q is not stored under template %q", frameID, templateName), nil)
	}

	blob, err := s.objects.Get(ctx, rec.ObjectPath)
	if err != nil {
		return nil, gferrors.NewStoreError(gferrors.CodeDownloadFailed,
			fmt.Sprintf("download frame %s", frameID), err)
	}

	return DecodeTable(tpl.Schema, blob)
}

// Delete removes a frame's blob and record.
func (s *FrameStore) Delete(ctx context.Context, frameID string) error {
	rec, err := s.catalog.GetFrame(ctx, frameID)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, rec.ObjectPath); err != nil {
		return gferrors.NewStoreError(gferrors.CodeDeleteFailed,
			fmt.Sprintf("delete frame blob %s", frameID), err)
	}
	return s.catalog.DeleteFrame(ctx, frameID)
}

// TemplatePersister adapts the store to the container's Persister contract
// for one template. Each Persist call stores a new frame.
type TemplatePersister struct {
	Store    *FrameStore
	Template string
	Ctx      context.Context

	// LastRecord holds the record of the most recent successful persist.
	LastRecord *FrameRecord
}

// Persist stores the table as a new frame under the configured template.
func (p *TemplatePersister) Persist(table *types.Table) error {
	ctx := p.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := p.Store.Save(ctx, p.Template, table)
	if err != nil {
		return err
	}
	p.LastRecord = rec
	return nil
}
