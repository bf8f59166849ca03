package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gferrors "github.com/gridframe/gridframe/internal/errors"
	"github.com/gridframe/gridframe/pkg/types"
)

func tempCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	catalog, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestCatalog_RegisterAndGetTemplate(t *testing.T) {
	catalog := tempCatalog(t)
	ctx := context.Background()
	schema := meterSchema(t)

	rec, err := catalog.RegisterTemplate(ctx, "meter_readings", schema)
	if err != nil {
		t.Fatalf("RegisterTemplate: %v", err)
	}
	if rec.ID == 0 {
		t.Error("template record has no id")
	}
	if rec.Fingerprint != schema.Fingerprint() {
		t.Error("template fingerprint does not match the schema")
	}

	got, err := catalog.GetTemplate(ctx, "meter_readings")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.ID != rec.ID || got.Fingerprint != rec.Fingerprint {
		t.Errorf("got %+v, want the registered record", got)
	}
	if got.Schema.Fingerprint() != schema.Fingerprint() {
		t.Error("stored schema round trip changed the fingerprint")
	}
	if _, ok := got.Schema.EstimateColumn(); !ok {
		t.Error("estimate column lost in the round trip")
	}
}

func TestCatalog_RegisterTemplateDedup(t *testing.T) {
	catalog := tempCatalog(t)
	ctx := context.Background()
	schema := meterSchema(t)

	first, err := catalog.RegisterTemplate(ctx, "meter_readings", schema)
	if err != nil {
		t.Fatalf("RegisterTemplate: %v", err)
	}
	second, err := catalog.RegisterTemplate(ctx, "meter_readings", schema)
	if err != nil {
		t.Fatalf("re-register identical schema: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("dedup returned id %d, want %d", second.ID, first.ID)
	}

	// Same name, different layout: refused.
	other, err := types.NewSchema([]types.ColumnSpec{{Name: "kw", Type: types.FloatType}})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if _, err := catalog.RegisterTemplate(ctx, "meter_readings", other); err == nil {
		t.Error("conflicting re-registration must fail")
	}
}

func TestCatalog_GetTemplateMissing(t *testing.T) {
	catalog := tempCatalog(t)

	_, err := catalog.GetTemplate(context.Background(), "nope")
	if gferrors.GetCode(err) != gferrors.CodeTemplateNotFound {
		t.Errorf("code = %s, want %s", gferrors.GetCode(err), gferrors.CodeTemplateNotFound)
	}
}

func TestCatalog_FrameLifecycle(t *testing.T) {
	catalog := tempCatalog(t)
	ctx := context.Background()

	tpl, err := catalog.RegisterTemplate(ctx, "meter_readings", meterSchema(t))
	if err != nil {
		t.Fatalf("RegisterTemplate: %v", err)
	}

	minT := baseTime
	maxT := baseTime.Add(45 * time.Minute)
	rec := &FrameRecord{
		FrameID:    "frame-1",
		TemplateID: tpl.ID,
		ObjectPath: "frames/frame-1.gfz",
		RowCount:   4,
		MinTime:    &minT,
		MaxTime:    &maxT,
		CreatedAt:  time.Now(),
	}
	if err := catalog.RegisterFrame(ctx, rec); err != nil {
		t.Fatalf("RegisterFrame: %v", err)
	}

	got, err := catalog.GetFrame(ctx, "frame-1")
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if got.TemplateID != tpl.ID || got.ObjectPath != rec.ObjectPath || got.RowCount != 4 {
		t.Errorf("got %+v", got)
	}
	if got.MinTime == nil || !got.MinTime.Equal(minT) {
		t.Errorf("MinTime = %v, want %s", got.MinTime, minT)
	}
	if got.MaxTime == nil || !got.MaxTime.Equal(maxT) {
		t.Errorf("MaxTime = %v, want %s", got.MaxTime, maxT)
	}

	frames, err := catalog.ListFrames(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("ListFrames: %v", err)
	}
	if len(frames) != 1 || frames[0].FrameID != "frame-1" {
		t.Errorf("ListFrames = %+v", frames)
	}

	if err := catalog.DeleteFrame(ctx, "frame-1"); err != nil {
		t.Fatalf("DeleteFrame: %v", err)
	}
	if _, err := catalog.GetFrame(ctx, "frame-1"); gferrors.GetCode(err) != gferrors.CodeFrameNotFound {
		t.Errorf("after delete: %v", err)
	}
	frames, err = catalog.ListFrames(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("ListFrames: %v", err)
	}
	if len(frames) != 0 {
		t.Errorf("frames remain after delete: %+v", frames)
	}
}

func TestCatalog_FrameWithoutTimes(t *testing.T) {
	catalog := tempCatalog(t)
	ctx := context.Background()

	tpl, err := catalog.RegisterTemplate(ctx, "meter_readings", meterSchema(t))
	if err != nil {
		t.Fatalf("RegisterTemplate: %v", err)
	}
	rec := &FrameRecord{
		FrameID:    "frame-positional",
		TemplateID: tpl.ID,
		ObjectPath: "frames/frame-positional.gfz",
		RowCount:   1,
		CreatedAt:  time.Now(),
	}
	if err := catalog.RegisterFrame(ctx, rec); err != nil {
		t.Fatalf("RegisterFrame: %v", err)
	}

	got, err := catalog.GetFrame(ctx, "frame-positional")
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if got.MinTime != nil || got.MaxTime != nil {
		t.Errorf("positional frame should have nil time bounds, got %+v", got)
	}
}
