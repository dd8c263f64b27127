package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

func TestQuoteService_CreateQuote(t *testing.T) {
	h := newTestHarness()

	quote, err := h.quoteSvc.CreateQuote(context.Background(), CreateQuoteRequest{CustomerEmail: "ana@example.com"})
	if err != nil {
		t.Fatalf("CreateQuote() error = %v", err)
	}

	if !regexp.MustCompile(`^Q-\d{8}-[0-9A-F]{6}$`).MatchString(quote.QuoteNumber) {
		t.Errorf("QuoteNumber = %s, want Q-YYYYMMDD-XXXXXX", quote.QuoteNumber)
	}
	if quote.Status != workflow.StateDraft {
		t.Errorf("Status = %s, want draft", quote.Status)
	}
	if quote.EntryPoint != entity.EntryPointWebsite {
		t.Errorf("EntryPoint = %s, want website", quote.EntryPoint)
	}
	validity := quote.ExpiresAt.Sub(quote.CreatedAt)
	if validity < 29*24*time.Hour || validity > 31*24*time.Hour {
		t.Errorf("validity = %v, want about 30 days", validity)
	}

	if _, err := h.quoteSvc.CreateQuote(context.Background(), CreateQuoteRequest{EntryPoint: "fax"}); !errors.Is(err, entity.ErrValidation) {
		t.Errorf("CreateQuote(fax) error = %v, want ErrValidation", err)
	}
	if _, err := h.quoteSvc.CreateQuote(context.Background(), CreateQuoteRequest{CustomerEmail: "not-an-email"}); !errors.Is(err, entity.ErrValidation) {
		t.Errorf("CreateQuote(bad email) error = %v, want ErrValidation", err)
	}
}

func TestQuoteService_AddFile(t *testing.T) {
	tests := []struct {
		name     string
		status   workflow.State
		mimeType string
		content  []byte
		wantErr  error
	}{
		{name: "pdf upload on a draft", status: workflow.StateDraft, mimeType: entity.MimeTypePDF, content: []byte("%PDF")},
		{name: "replacement upload", status: workflow.StateAwaitingCustomer, mimeType: entity.MimeTypePNG, content: []byte("png")},
		{name: "unsupported type", status: workflow.StateDraft, mimeType: "application/zip", content: []byte("zip"), wantErr: entity.ErrValidation},
		{name: "empty file", status: workflow.StateDraft, mimeType: entity.MimeTypePDF, wantErr: entity.ErrValidation},
		{name: "too large", status: workflow.StateDraft, mimeType: entity.MimeTypePDF, content: make([]byte, 2048), wantErr: entity.ErrValidation},
		{name: "quote waiting for payment", status: workflow.StateAwaitingPayment, mimeType: entity.MimeTypePDF, content: []byte("%PDF"), wantErr: workflow.ErrInvalidState},
		{name: "expired quote", status: workflow.StateExpired, mimeType: entity.MimeTypePDF, content: []byte("%PDF"), wantErr: entity.ErrQuoteTerminal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(testQuote("q-1", tt.status))

			file, err := h.quoteSvc.AddFile(context.Background(), UploadRequest{
				QuoteID:  "q-1",
				FileName: "../../Birth Certificate.pdf",
				MimeType: tt.mimeType,
				Content:  tt.content,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("AddFile() error = %v, want %v", err, tt.wantErr)
				}
				if len(h.blobs.blobs) != 0 {
					t.Errorf("stored %d blobs on a rejected upload", len(h.blobs.blobs))
				}
				return
			}
			if err != nil {
				t.Fatalf("AddFile() error = %v", err)
			}
			if !strings.HasPrefix(file.StoragePath, "quotes/q-1/"+file.ID+"-") || strings.Contains(file.StoragePath, "..") {
				t.Errorf("StoragePath = %s, want a sanitized path under the quote", file.StoragePath)
			}
			if file.AIProcessingStatus != entity.FileStatusPending {
				t.Errorf("AIProcessingStatus = %s, want pending", file.AIProcessingStatus)
			}
			if _, ok := h.blobs.blobs[file.StoragePath]; !ok {
				t.Error("upload not written to the blob store")
			}
		})
	}
}

func TestQuoteService_AddFile_RemovesBlobWhenRowFails(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateDraft))
	h.files.createFunc = func(ctx context.Context, file *entity.QuoteFile) error {
		return errors.New("insert failed")
	}

	_, err := h.quoteSvc.AddFile(context.Background(), UploadRequest{QuoteID: "q-1", FileName: "a.pdf", MimeType: entity.MimeTypePDF, Content: []byte("%PDF")})
	if err == nil {
		t.Fatal("AddFile() error = nil, want insert failure")
	}
	if len(h.blobs.deleted) != 1 || len(h.blobs.blobs) != 0 {
		t.Errorf("blobs = %v deleted = %v, want the orphan removed", h.blobs.blobs, h.blobs.deleted)
	}
}

func TestQuoteService_SubmitDetails(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateDraft))
	h.analyses.analyses = []*entity.AIAnalysisResult{{ID: "a-1", QuoteID: "q-1", QuoteFileID: "f-1", LineTotal: 100}}
	fee := 15.0

	quote, err := h.quoteSvc.SubmitDetails(context.Background(), "q-1", QuoteDetails{
		CustomerEmail:  "ana@example.com",
		CustomerName:   "Ana  Lopez",
		SourceLanguage: "es",
		TargetLanguage: "en",
		IsRush:         true,
		DeliveryFee:    &fee,
	})
	if err != nil {
		t.Fatalf("SubmitDetails() error = %v", err)
	}

	if quote.Status != workflow.StateDetailsPending {
		t.Errorf("Status = %s, want details_pending", quote.Status)
	}
	// 100 translation + 25 rush + 15 delivery
	if quote.Total != 140 {
		t.Errorf("Total = %v, want 140 after repricing", quote.Total)
	}
	if h.tx.calls == 0 {
		t.Error("details were not saved in a transaction")
	}
}

func TestQuoteService_SubmitDetails_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		status  workflow.State
		details QuoteDetails
		wantErr error
	}{
		{
			name:    "bad language code",
			status:  workflow.StateDraft,
			details: QuoteDetails{CustomerEmail: "a@b.co", CustomerName: "A", SourceLanguage: "spanish", TargetLanguage: "en"},
			wantErr: entity.ErrValidation,
		},
		{
			name:    "locked once payment is requested",
			status:  workflow.StateAwaitingPayment,
			details: QuoteDetails{CustomerEmail: "a@b.co", CustomerName: "A", SourceLanguage: "es", TargetLanguage: "en"},
			wantErr: workflow.ErrInvalidState,
		},
		{
			name:    "converted quote",
			status:  workflow.StateConverted,
			details: QuoteDetails{CustomerEmail: "a@b.co", CustomerName: "A", SourceLanguage: "es", TargetLanguage: "en"},
			wantErr: entity.ErrQuoteTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHarness(testQuote("q-1", tt.status))
			_, err := h.quoteSvc.SubmitDetails(context.Background(), "q-1", tt.details)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitDetails() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuoteService_GetStatus(t *testing.T) {
	q := testQuote("q-1", workflow.StateHITLPending)
	h := newTestHarness(q)

	status, err := h.quoteSvc.GetStatus(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("GetStatus() error = %v", err)
	}
	if status.Status != workflow.StateHITLPending || status.ProcessingStatus != workflow.ProcessingStatusReviewRequired {
		t.Errorf("status = %+v, want hitl_pending with review_required processing", status)
	}

	if _, err := h.quoteSvc.GetStatus(context.Background(), "missing"); !errors.Is(err, entity.ErrQuoteNotFound) {
		t.Errorf("GetStatus(missing) error = %v, want ErrQuoteNotFound", err)
	}
}

func TestQuoteService_RequestPayment(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateQuoteReady))
	ctx := context.Background()

	quote, err := h.quoteSvc.RequestPayment(ctx, "q-1", "customer")
	if err != nil {
		t.Fatalf("RequestPayment() error = %v", err)
	}
	if quote.Status != workflow.StateAwaitingPayment {
		t.Errorf("Status = %s, want awaiting_payment", quote.Status)
	}
	if len(h.publisher.events) != 1 || h.publisher.events[0].Type != event.TypePaymentRequested {
		t.Fatalf("events = %v, want [payment.requested]", h.publisher.types())
	}
	if url := h.publisher.events[0].GetPayloadString(event.KeyPaymentURL); url != "https://pay.example.com/q/q-1" {
		t.Errorf("payment url = %s", url)
	}

	if _, err := h.quoteSvc.RequestPayment(ctx, "q-1", "customer"); err != nil {
		t.Errorf("second RequestPayment() error = %v, want idempotent success", err)
	}
	if len(h.history.history) != 1 {
		t.Errorf("history rows = %d, want 1", len(h.history.history))
	}
}

func TestQuoteService_ConvertFromPayment(t *testing.T) {
	q := testQuote("q-1", workflow.StateAwaitingPayment)
	q.Total = 226
	h := newTestHarness(q)
	ctx := context.Background()
	payment := port.PaymentSucceeded{EventID: "evt_1", PaymentIntentID: "pi_1", QuoteID: "q-1", AmountReceived: 226, Currency: "cad"}

	order, created, err := h.quoteSvc.ConvertFromPayment(ctx, payment)
	if err != nil {
		t.Fatalf("ConvertFromPayment() error = %v", err)
	}
	if !created || order.AmountPaid != 226 || order.StripePaymentIntentID != "pi_1" {
		t.Errorf("order = %+v created = %v", order, created)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") {
		t.Errorf("OrderNumber = %s, want ORD- prefix", order.OrderNumber)
	}
	if h.quotes.status("q-1") != workflow.StateConverted {
		t.Errorf("quote status = %s, want converted", h.quotes.status("q-1"))
	}

	again, created, err := h.quoteSvc.ConvertFromPayment(ctx, payment)
	if err != nil {
		t.Fatalf("redelivered ConvertFromPayment() error = %v", err)
	}
	if created || again.ID != order.ID {
		t.Errorf("redelivery created = %v order = %s, want the existing order %s", created, again.ID, order.ID)
	}
	if len(h.orders.orders) != 1 {
		t.Errorf("orders = %d, want 1", len(h.orders.orders))
	}
}

func TestQuoteService_ConvertFromPayment_ConcurrentWebhook(t *testing.T) {
	h := newTestHarness(testQuote("q-1", workflow.StateAwaitingPayment))
	winner := &entity.Order{ID: "o-winner", QuoteID: "q-1"}
	lookups := 0
	h.orders.getByQuoteIDFunc = func(ctx context.Context, quoteID string) (*entity.Order, error) {
		lookups++
		if lookups == 1 {
			return nil, nil
		}
		return winner, nil
	}
	h.orders.createFunc = func(ctx context.Context, order *entity.Order) error {
		return errors.New("duplicate key value violates unique constraint")
	}

	order, created, err := h.quoteSvc.ConvertFromPayment(context.Background(), port.PaymentSucceeded{QuoteID: "q-1", AmountReceived: 10})
	if err != nil {
		t.Fatalf("ConvertFromPayment() error = %v", err)
	}
	if created || order.ID != "o-winner" {
		t.Errorf("order = %s created = %v, want the concurrent winner", order.ID, created)
	}
}

func TestQuoteService_ExpireStale(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	stale := testQuote("q-stale", workflow.StateQuoteReady)
	stale.ExpiresAt = past
	staleDraft := testQuote("q-stale-draft", workflow.StateDraft)
	staleDraft.ExpiresAt = past
	done := testQuote("q-done", workflow.StateConverted)
	done.ExpiresAt = past
	fresh := testQuote("q-fresh", workflow.StateQuoteReady)

	h := newTestHarness(stale, staleDraft, done, fresh)

	n, err := h.quoteSvc.ExpireStale(context.Background(), time.Now(), 100)
	if err != nil {
		t.Fatalf("ExpireStale() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expired = %d, want 2", n)
	}
	for id, want := range map[string]workflow.State{
		"q-stale":       workflow.StateExpired,
		"q-stale-draft": workflow.StateExpired,
		"q-done":        workflow.StateConverted,
		"q-fresh":       workflow.StateQuoteReady,
	} {
		if got := h.quotes.status(id); got != want {
			t.Errorf("%s status = %s, want %s", id, got, want)
		}
	}
}
