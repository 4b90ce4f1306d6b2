package app

import (
	"bytes"
	"context"
	"testing"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/offerletter"
)

func TestListReturnsAggregates(t *testing.T) {
	f := newFixture(t)
	job := common.NewUUID()
	for i := 0; i < 3; i++ {
		f.seed(t, func(a *application.Application) { a.JobID = job; a.JobTitle = "Designer" })
	}
	f.seed(t, func(a *application.Application) { a.Status = application.StatusHired })

	result, err := f.applications.List(context.Background(), ListQuery{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total != 4 || len(result.Items) != 2 || result.Page != 1 || result.Limit != 2 {
		t.Fatalf("unexpected page %+v", result)
	}
	if result.StatusCounts[application.StatusNew] != 3 || result.StatusCounts[application.StatusHired] != 1 {
		t.Fatalf("unexpected counts %+v", result.StatusCounts)
	}
	if len(result.TopJobs) == 0 || result.TopJobs[0].JobID != job || result.TopJobs[0].Count != 3 {
		t.Fatalf("unexpected top jobs %+v", result.TopJobs)
	}

	capped, err := f.applications.List(context.Background(), ListQuery{Limit: 1000, Page: 0})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if capped.Limit != MaxPageSize || capped.Page != 1 {
		t.Fatalf("expected clamped paging, got %d/%d", capped.Page, capped.Limit)
	}
}

func TestUpdateAppendsTimelineOnStatusChange(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	status, rating := "interview", 4
	tags := []string{"go", " Go ", "", "remote"}

	updated, err := f.applications.Update(context.Background(), seeded.ID.String(), Patch{Status: &status, Rating: &rating, Tags: &tags}, Actor{Name: "Grace"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != application.StatusInterview || len(updated.Timeline) != 1 || updated.Timeline[0].Actor != "Grace" {
		t.Fatalf("unexpected timeline %+v", updated.Timeline)
	}
	if len(updated.Tags) != 2 || updated.Rating != 4 {
		t.Fatalf("unexpected tags/rating %v %d", updated.Tags, updated.Rating)
	}

	notes := "strong portfolio"
	again, err := f.applications.Update(context.Background(), seeded.ID.String(), Patch{Notes: &notes}, Actor{})
	if err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if len(again.Timeline) != 1 {
		t.Fatalf("notes-only update must not add timeline entries")
	}

	bad := 9
	if _, err := f.applications.Update(context.Background(), seeded.ID.String(), Patch{Rating: &bad}, Actor{}); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestOfferLetterEndpoints(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)

	generated, err := f.applications.GenerateOfferLetter(context.Background(), seeded.ID.String(), GenerateLetterRequest{
		Format:    "docx",
		Overrides: offerletter.Overrides{Duration: "6 Months"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if generated.Format != "docx" || generated.Size == 0 {
		t.Fatalf("unexpected letter %+v", generated)
	}

	uploaded, err := f.applications.UploadOfferLetter(context.Background(), seeded.ID.String(), "signed offer.docx", bytes.NewReader([]byte("docx")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	stored := f.reload(t, seeded.ID)
	if stored.Offer.Letter == nil || stored.Offer.Letter.Path != uploaded.Path || uploaded.Format != "docx" {
		t.Fatalf("uploaded letter not attached: %+v", stored.Offer.Letter)
	}
	if _, err := f.applications.UploadOfferLetter(context.Background(), seeded.ID.String(), "macro.xlsm", bytes.NewReader([]byte("x"))); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation for extension, got %v", err)
	}
}

func TestDeleteApplication(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	if err := f.applications.Delete(context.Background(), seeded.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.applications.Get(context.Background(), seeded.ID.String()); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
