package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/translation-quotes/internal/application/port"
	"github.com/garyjia/translation-quotes/internal/domain/entity"
	"github.com/garyjia/translation-quotes/internal/domain/event"
	"github.com/garyjia/translation-quotes/internal/domain/pricing"
	"github.com/garyjia/translation-quotes/internal/domain/workflow"
)

// Mock repositories. Each keeps rows in memory unless a func field overrides the call.

type mockQuoteRepo struct {
	mu     sync.Mutex
	quotes map[string]*entity.Quote

	getByIDFunc      func(ctx context.Context, id string) (*entity.Quote, error)
	casFunc          func(ctx context.Context, id string, from, to workflow.State) (bool, error)
	updateTotalsFunc func(ctx context.Context, quote *entity.Quote) error
	casCalls         int
}

func newMockQuoteRepo(quotes ...*entity.Quote) *mockQuoteRepo {
	m := &mockQuoteRepo{quotes: make(map[string]*entity.Quote)}
	for _, q := range quotes {
		m.quotes[q.ID] = q
	}
	return m
}

func (m *mockQuoteRepo) Create(ctx context.Context, quote *entity.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *quote
	m.quotes[quote.ID] = &cp
	return nil
}

func (m *mockQuoteRepo) GetByID(ctx context.Context, id string) (*entity.Quote, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (m *mockQuoteRepo) UpdateDetails(ctx context.Context, quote *entity.Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[quote.ID]
	if !ok {
		return errors.New("quote not found")
	}
	q.CustomerEmail = quote.CustomerEmail
	q.CustomerName = quote.CustomerName
	q.SourceLanguage = quote.SourceLanguage
	q.TargetLanguage = quote.TargetLanguage
	q.IsRush = quote.IsRush
	q.DeliveryFee = quote.DeliveryFee
	return nil
}

func (m *mockQuoteRepo) UpdateTotals(ctx context.Context, quote *entity.Quote) error {
	if m.updateTotalsFunc != nil {
		return m.updateTotalsFunc(ctx, quote)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[quote.ID]
	if !ok {
		return errors.New("quote not found")
	}
	q.Subtotal = quote.Subtotal
	q.CertificationTotal = quote.CertificationTotal
	q.TaxAmount = quote.TaxAmount
	q.Total = quote.Total
	q.CalculatedTotals = quote.CalculatedTotals
	return nil
}

func (m *mockQuoteRepo) CompareAndSetStatus(ctx context.Context, id string, from, to workflow.State) (bool, error) {
	m.mu.Lock()
	m.casCalls++
	m.mu.Unlock()
	if m.casFunc != nil {
		return m.casFunc(ctx, id, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok || q.Status != from {
		return false, nil
	}
	q.Status = to
	if ps, ok := workflow.ProcessingStatusFor(to); ok {
		q.ProcessingStatus = ps
	}
	return true, nil
}

func (m *mockQuoteRepo) IncrementVersion(ctx context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return 0, errors.New("quote not found")
	}
	q.Version++
	return q.Version, nil
}

func (m *mockQuoteRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Quote
	for _, q := range m.quotes {
		if !q.Status.IsTerminal() && q.IsExpired(now) {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// status reads the stored status without copying the quote
func (m *mockQuoteRepo) status(id string) workflow.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotes[id].Status
}

func (m *mockQuoteRepo) setStatus(id string, s workflow.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[id].Status = s
}

type mockFileRepo struct {
	mu    sync.Mutex
	files []*entity.QuoteFile

	createFunc func(ctx context.Context, file *entity.QuoteFile) error
}

func (m *mockFileRepo) Create(ctx context.Context, file *entity.QuoteFile) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, file)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *file
	m.files = append(m.files, &cp)
	return nil
}

func (m *mockFileRepo) GetByID(ctx context.Context, id string) (*entity.QuoteFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockFileRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.QuoteFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.QuoteFile
	for _, f := range m.files {
		if f.QuoteID == quoteID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockFileRepo) UpdateStatus(ctx context.Context, id, status, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ID == id {
			f.AIProcessingStatus = status
			f.ProcessingError = errorMsg
			return nil
		}
	}
	return errors.New("file not found")
}

func (m *mockFileRepo) MarkNeedsReplacement(ctx context.Context, quoteID string, fileIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	selected := make(map[string]bool, len(fileIDs))
	for _, id := range fileIDs {
		selected[id] = true
	}
	for _, f := range m.files {
		if f.QuoteID == quoteID && (len(fileIDs) == 0 || selected[f.ID]) {
			f.NeedsReplacement = true
		}
	}
	return nil
}

func (m *mockFileRepo) statusOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.ID == id {
			return f.AIProcessingStatus
		}
	}
	return ""
}

type mockAnalysisRepo struct {
	mu       sync.Mutex
	analyses []*entity.AIAnalysisResult

	listFunc func(ctx context.Context, quoteID string) ([]*entity.AIAnalysisResult, error)
	deleted  []string
}

func (m *mockAnalysisRepo) Upsert(ctx context.Context, result *entity.AIAnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *result
	for i, a := range m.analyses {
		if a.QuoteFileID == result.QuoteFileID {
			cp.ID = a.ID
			m.analyses[i] = &cp
			return nil
		}
	}
	m.analyses = append(m.analyses, &cp)
	return nil
}

func (m *mockAnalysisRepo) GetByID(ctx context.Context, id string) (*entity.AIAnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.analyses {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockAnalysisRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.AIAnalysisResult, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, quoteID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AIAnalysisResult
	for _, a := range m.analyses {
		if a.QuoteID == quoteID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockAnalysisRepo) DeleteByQuoteFileID(ctx context.Context, quoteFileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, quoteFileID)
	kept := m.analyses[:0]
	for _, a := range m.analyses {
		if a.QuoteFileID != quoteFileID {
			kept = append(kept, a)
		}
	}
	m.analyses = kept
	return nil
}

type mockReviewRepo struct {
	mu      sync.Mutex
	reviews []*entity.HITLReview

	createOpenFunc func(ctx context.Context, review *entity.HITLReview) (*entity.HITLReview, bool, error)
	// beforeUpdate runs ahead of the compare-and-set, outside the lock
	beforeUpdate func(review *entity.HITLReview)
}

func (m *mockReviewRepo) CreateOpen(ctx context.Context, review *entity.HITLReview) (*entity.HITLReview, bool, error) {
	if m.createOpenFunc != nil {
		return m.createOpenFunc(ctx, review)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.QuoteID == review.QuoteID && r.IsOpen() {
			cp := *r
			return &cp, false, nil
		}
	}
	cp := *review
	m.reviews = append(m.reviews, &cp)
	out := cp
	return &out, true, nil
}

func (m *mockReviewRepo) GetByID(ctx context.Context, id string) (*entity.HITLReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockReviewRepo) GetOpenByQuoteID(ctx context.Context, quoteID string) (*entity.HITLReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.QuoteID == quoteID && r.IsOpen() {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockReviewRepo) ListOpen(ctx context.Context, limit, offset int) ([]*entity.HITLReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.HITLReview
	for _, r := range m.reviews {
		if r.IsOpen() {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockReviewRepo) Update(ctx context.Context, review *entity.HITLReview, fromStatus string) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate(review)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.reviews {
		if r.ID == review.ID {
			if r.Status != fromStatus {
				return entity.ErrReviewClosed
			}
			cp := *review
			m.reviews[i] = &cp
			return nil
		}
	}
	return errors.New("review not found")
}

type mockThresholdRepo struct {
	values  map[string]float64
	listErr error
	upserts map[string]float64
}

func (m *mockThresholdRepo) ListActive(ctx context.Context) (map[string]float64, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.values, nil
}

func (m *mockThresholdRepo) Upsert(ctx context.Context, key string, value float64, active bool) error {
	if m.upserts == nil {
		m.upserts = make(map[string]float64)
	}
	m.upserts[key] = value
	return nil
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders []*entity.Order

	createFunc         func(ctx context.Context, order *entity.Order) error
	getByQuoteIDFunc   func(ctx context.Context, quoteID string) (*entity.Order, error)
	cancelIfActiveFunc func(ctx context.Context, id string) (bool, error)
}

func (m *mockOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *order
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) GetByQuoteID(ctx context.Context, quoteID string) (*entity.Order, error) {
	if m.getByQuoteIDFunc != nil {
		return m.getByQuoteIDFunc(ctx, quoteID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.QuoteID == quoteID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockOrderRepo) CancelIfActive(ctx context.Context, id string) (bool, error) {
	if m.cancelIfActiveFunc != nil {
		return m.cancelIfActiveFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id && o.Status == entity.OrderStatusActive {
			o.Status = entity.OrderStatusCancelled
			return true, nil
		}
	}
	return false, nil
}

type mockCancellationRepo struct {
	created []*entity.OrderCancellation
}

func (m *mockCancellationRepo) Create(ctx context.Context, c *entity.OrderCancellation) error {
	cp := *c
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockCancellationRepo) ListByOrderID(ctx context.Context, orderID string) ([]*entity.OrderCancellation, error) {
	var out []*entity.OrderCancellation
	for _, c := range m.created {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockVersionRepo struct {
	versions []*entity.QuoteVersion
}

func (m *mockVersionRepo) Create(ctx context.Context, v *entity.QuoteVersion) error {
	m.versions = append(m.versions, v)
	return nil
}

func (m *mockVersionRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.QuoteVersion, error) {
	return m.versions, nil
}

type mockHistoryRepo struct {
	mu      sync.Mutex
	history []*entity.StatusHistory

	createFunc func(ctx context.Context, history *entity.StatusHistory) error
}

func (m *mockHistoryRepo) Create(ctx context.Context, h *entity.StatusHistory) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, h)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, h)
	return nil
}

func (m *mockHistoryRepo) ListByQuoteID(ctx context.Context, quoteID string) ([]*entity.StatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.StatusHistory
	for _, h := range m.history {
		if h.QuoteID == quoteID {
			out = append(out, h)
		}
	}
	return out, nil
}

// path lists the recorded transitions as "from->to"
func (m *mockHistoryRepo) path() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.history))
	for _, h := range m.history {
		out = append(out, string(h.FromStatus)+"->"+string(h.ToStatus))
	}
	return out
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	calls               int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockBlobStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	putErr  error
	deleted []string
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{blobs: make(map[string][]byte)}
}

func (m *mockBlobStore) Put(ctx context.Context, path string, content []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[path] = content
	return nil
}

func (m *mockBlobStore) Get(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return b, nil
}

func (m *mockBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[path]
	return ok, nil
}

func (m *mockBlobStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, path)
	m.deleted = append(m.deleted, path)
	return nil
}

type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context, in port.AnalysisInput) (*port.DocumentAnalysis, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, in port.AnalysisInput) (*port.DocumentAnalysis, error) {
	if m.analyzeFunc != nil {
		return m.analyzeFunc(ctx, in)
	}
	return confidentAnalysis(450), nil
}

func confidentAnalysis(words int) *port.DocumentAnalysis {
	return &port.DocumentAnalysis{
		DetectedLanguage:       "es",
		DocumentType:           "birth_certificate",
		Complexity:             "easy",
		WordCount:              words,
		PageCount:              1,
		OCRConfidence:          0.98,
		LanguageConfidence:     0.99,
		DocumentTypeConfidence: 0.95,
		ComplexityConfidence:   0.9,
	}
}

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockPublisher) types() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type mockMetrics struct {
	mu          sync.Mutex
	outcomes    []string
	gates       []bool
	transitions int
	refunds     []string
}

func (m *mockMetrics) ObserveProcessing(outcome string, documents int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) ObserveGate(passed bool, reasons []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates = append(m.gates, passed)
}

func (m *mockMetrics) ObserveTransition(from, to workflow.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions++
}

func (m *mockMetrics) ObserveRefund(method, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refunds = append(m.refunds, method+":"+status)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockGateway struct {
	configured bool
	refundFunc func(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error)
	requests   []port.RefundRequest
}

func (m *mockGateway) Configured() bool { return m.configured }

func (m *mockGateway) Refund(ctx context.Context, req port.RefundRequest) (*port.RefundResult, error) {
	m.requests = append(m.requests, req)
	if m.refundFunc != nil {
		return m.refundFunc(ctx, req)
	}
	return &port.RefundResult{RefundID: "re_123", Status: "succeeded"}, nil
}

type mockCancellationNotifier struct {
	err   error
	calls int
}

func (m *mockCancellationNotifier) NotifyOrderCancelled(ctx context.Context, order *entity.Order, c *entity.OrderCancellation) error {
	m.calls++
	return m.err
}

type mockEmailSender struct {
	mu       sync.Mutex
	sent     []port.EmailMessage
	sendFunc func(ctx context.Context, msg port.EmailMessage) error
}

func (m *mockEmailSender) Send(ctx context.Context, msg port.EmailMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	if m.sendFunc != nil {
		return m.sendFunc(ctx, msg)
	}
	return nil
}

type mockStaffNotifier struct {
	alerts []port.ReviewAlert
	err    error
}

func (m *mockStaffNotifier) NotifyReview(ctx context.Context, alert port.ReviewAlert) error {
	m.alerts = append(m.alerts, alert)
	return m.err
}

// testQuote returns a quote in the given status that expires in a week
func testQuote(id string, status workflow.State) *entity.Quote {
	now := time.Now()
	return &entity.Quote{
		ID:            id,
		QuoteNumber:   "Q-20261015-ABC123",
		Status:        status,
		CustomerEmail: "ana@example.com",
		CustomerName:  "Ana",
		Version:       1,
		EntryPoint:    entity.EntryPointWebsite,
		ExpiresAt:     now.Add(7 * 24 * time.Hour),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// testHarness wires the services against in-memory mocks
type testHarness struct {
	quotes        *mockQuoteRepo
	files         *mockFileRepo
	analyses      *mockAnalysisRepo
	reviews       *mockReviewRepo
	thresholdRepo *mockThresholdRepo
	orders        *mockOrderRepo
	versions      *mockVersionRepo
	history       *mockHistoryRepo
	tx            *mockTxManager
	blobs         *mockBlobStore
	analyzer      *mockAnalyzer
	publisher     *mockPublisher
	metrics       *mockMetrics

	transitions TransitionService
	gate        ThresholdService
	processing  ProcessingService
	quoteSvc    QuoteService
	reviewSvc   ReviewService
}

func newTestHarness(quotes ...*entity.Quote) *testHarness {
	h := &testHarness{
		quotes:        newMockQuoteRepo(quotes...),
		files:         &mockFileRepo{},
		analyses:      &mockAnalysisRepo{},
		reviews:       &mockReviewRepo{},
		thresholdRepo: &mockThresholdRepo{values: map[string]float64{}},
		orders:        &mockOrderRepo{},
		versions:      &mockVersionRepo{},
		history:       &mockHistoryRepo{},
		tx:            &mockTxManager{},
		blobs:         newMockBlobStore(),
		analyzer:      &mockAnalyzer{},
		publisher:     &mockPublisher{},
		metrics:       &mockMetrics{},
	}
	logger := &mockLogger{}

	calc, err := pricing.NewCalculator(pricing.DefaultConfig())
	if err != nil {
		panic(err)
	}

	h.transitions = NewTransitionService(h.quotes, h.history, h.tx, h.metrics, logger)
	h.gate = NewThresholdService(h.quotes, h.analyses, h.thresholdRepo, h.reviews, h.transitions, h.tx, h.publisher, h.metrics, logger, 0)
	h.processing = NewProcessingService(h.quotes, h.files, h.analyses, h.versions, h.blobs, h.analyzer, calc,
		h.transitions, h.gate, h.tx, h.publisher, h.metrics, logger, ProcessingOptions{
			MaxConcurrentFiles: 2,
			Pricing:            PricingDefaults{BaseRate: 50, RushFee: 25},
		})
	h.quoteSvc = NewQuoteService(h.quotes, h.files, h.analyses, h.history, h.orders, h.blobs, h.transitions,
		h.processing, h.tx, h.publisher, logger, QuoteOptions{PaymentBaseURL: "https://pay.example.com/q", MaxFileSize: 1024})
	h.reviewSvc = NewReviewService(h.reviews, h.quotes, h.files, h.thresholdRepo, h.transitions, h.tx, h.publisher,
		logger, "https://pay.example.com/q")
	return h
}

// addFile stores a pending upload for quoteID
func (h *testHarness) addFile(quoteID, fileID string) {
	path := "quotes/" + quoteID + "/" + fileID + "-scan.pdf"
	h.blobs.blobs[path] = []byte("%PDF-1.7")
	h.files.files = append(h.files.files, &entity.QuoteFile{
		ID:                 fileID,
		QuoteID:            quoteID,
		OriginalFilename:   fileID + ".pdf",
		StoragePath:        path,
		MimeType:           entity.MimeTypePDF,
		FileSize:           8,
		AIProcessingStatus: entity.FileStatusPending,
	})
}
