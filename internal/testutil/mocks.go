package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rello/rello-backend/internal/domain"
	"github.com/rello/rello-backend/internal/event"
	"github.com/shopspring/decimal"
)

// MockOutgoingTransferRepository is a mock implementation of
// domain.OutgoingTransferRepository. It is safe for concurrent use so
// engine claim races can be exercised in tests.
type MockOutgoingTransferRepository struct {
	mu        sync.Mutex
	Transfers map[uuid.UUID]*domain.OutgoingTransfer
	order     []uuid.UUID
}

// NewMockOutgoingTransferRepository creates a new MockOutgoingTransferRepository
func NewMockOutgoingTransferRepository() *MockOutgoingTransferRepository {
	return &MockOutgoingTransferRepository{
		Transfers: make(map[uuid.UUID]*domain.OutgoingTransfer),
	}
}

// Insert creates a payout, enforcing idempotency key uniqueness
func (m *MockOutgoingTransferRepository) Insert(ctx context.Context, t *domain.OutgoingTransfer) (*domain.OutgoingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.IdempotencyKey != nil {
		for _, existing := range m.Transfers {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *t.IdempotencyKey {
				return nil, domain.ErrDuplicateKey
			}
		}
	}

	stored := *t
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Transfers[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	out := stored
	return &out, nil
}

// GetByID retrieves a payout by id
func (m *MockOutgoingTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OutgoingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	out := *t
	return &out, nil
}

// ListByStatus returns payouts in a status, oldest first
func (m *MockOutgoingTransferRepository) ListByStatus(ctx context.Context, status domain.PayoutStatus, limit int32) ([]*domain.OutgoingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.OutgoingTransfer
	for _, id := range m.order {
		t := m.Transfers[id]
		if t.Status != status {
			continue
		}
		out := *t
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// AdvanceStatus moves a payout between statuses, guarded by the expected
// current status
func (m *MockOutgoingTransferRepository) AdvanceStatus(ctx context.Context, id uuid.UUID, from, to domain.PayoutStatus) (*domain.OutgoingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	if t.Status != from {
		return nil, domain.ErrPreconditionFailed
	}
	t.Status = to
	out := *t
	return &out, nil
}

// MarkBroadcast assigns the tx hash while moving signed -> broadcast
func (m *MockOutgoingTransferRepository) MarkBroadcast(ctx context.Context, id uuid.UUID, txHash string) (*domain.OutgoingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	if t.Status != domain.PayoutStatusSigned {
		return nil, domain.ErrPreconditionFailed
	}
	t.Status = domain.PayoutStatusBroadcast
	t.TxHash = &txHash
	out := *t
	return &out, nil
}

// ListRecent returns payouts in the given statuses, newest first
func (m *MockOutgoingTransferRepository) ListRecent(ctx context.Context, statuses []domain.PayoutStatus, limit int32) ([]*domain.OutgoingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[domain.PayoutStatus]bool)
	for _, s := range statuses {
		wanted[s] = true
	}

	var result []*domain.OutgoingTransfer
	for i := len(m.order) - 1; i >= 0; i-- {
		t := m.Transfers[m.order[i]]
		if !wanted[t.Status] {
			continue
		}
		out := *t
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// CountByStatus returns payout counts per status
func (m *MockOutgoingTransferRepository) CountByStatus(ctx context.Context) (map[domain.PayoutStatus]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[domain.PayoutStatus]int64)
	for _, t := range m.Transfers {
		counts[t.Status]++
	}
	return counts, nil
}

// CountStuck counts payouts sitting in a status longer than maxAge
func (m *MockOutgoingTransferRepository) CountStuck(ctx context.Context, status domain.PayoutStatus, maxAge time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var count int64
	for _, t := range m.Transfers {
		if t.Status == status && t.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

// AddTransfer adds a payout to the mock repository (helper for tests)
func (m *MockOutgoingTransferRepository) AddTransfer(t *domain.OutgoingTransfer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.Transfers[t.ID] = t
	m.order = append(m.order, t.ID)
}

// MockIncomingTransferRepository is a mock implementation of
// domain.IncomingTransferRepository
type MockIncomingTransferRepository struct {
	mu        sync.Mutex
	Transfers map[uuid.UUID]*domain.IncomingTransfer
	order     []uuid.UUID
}

// NewMockIncomingTransferRepository creates a new MockIncomingTransferRepository
func NewMockIncomingTransferRepository() *MockIncomingTransferRepository {
	return &MockIncomingTransferRepository{
		Transfers: make(map[uuid.UUID]*domain.IncomingTransfer),
	}
}

// Insert creates an inbound transfer, enforcing tx hash uniqueness
func (m *MockIncomingTransferRepository) Insert(ctx context.Context, t *domain.IncomingTransfer) (*domain.IncomingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Transfers {
		if existing.TxHash == t.TxHash {
			return nil, domain.ErrDuplicateKey
		}
	}

	stored := *t
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Transfers[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	out := stored
	return &out, nil
}

// GetByID retrieves an inbound transfer by id
func (m *MockIncomingTransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.IncomingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	out := *t
	return &out, nil
}

// ListSeenBelow returns seen transfers below the confirmation threshold,
// oldest first
func (m *MockIncomingTransferRepository) ListSeenBelow(ctx context.Context, threshold int32, limit int32) ([]*domain.IncomingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.IncomingTransfer
	for _, id := range m.order {
		t := m.Transfers[id]
		if t.Status != domain.IncomingStatusSeen || t.Confirmations >= threshold {
			continue
		}
		out := *t
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// IncrementConfirmations adds one confirmation, guarded by the record
// still being seen and below threshold
func (m *MockIncomingTransferRepository) IncrementConfirmations(ctx context.Context, id uuid.UUID, threshold int32) (*domain.IncomingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	if t.Status != domain.IncomingStatusSeen || t.Confirmations >= threshold {
		return nil, domain.ErrPreconditionFailed
	}
	t.Confirmations++
	out := *t
	return &out, nil
}

// MarkConfirmed moves seen -> confirmed, guarded by status
func (m *MockIncomingTransferRepository) MarkConfirmed(ctx context.Context, id uuid.UUID) (*domain.IncomingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.Transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	if t.Status != domain.IncomingStatusSeen {
		return nil, domain.ErrPreconditionFailed
	}
	t.Status = domain.IncomingStatusConfirmed
	out := *t
	return &out, nil
}

// ListRecent returns the newest inbound transfers
func (m *MockIncomingTransferRepository) ListRecent(ctx context.Context, limit int32) ([]*domain.IncomingTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.IncomingTransfer
	for i := len(m.order) - 1; i >= 0; i-- {
		out := *m.Transfers[m.order[i]]
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// Counts returns inbound transfer counts
func (m *MockIncomingTransferRepository) Counts(ctx context.Context) (*domain.IncomingCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := &domain.IncomingCounts{}
	for _, t := range m.Transfers {
		counts.Total++
		if t.Status == domain.IncomingStatusConfirmed {
			counts.Confirmed++
		}
	}
	return counts, nil
}

// AddTransfer adds an inbound transfer to the mock repository (helper for tests)
func (m *MockIncomingTransferRepository) AddTransfer(t *domain.IncomingTransfer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	m.Transfers[t.ID] = t
	m.order = append(m.order, t.ID)
}

// MockTrustPairRepository is a mock implementation of domain.TrustPairRepository
type MockTrustPairRepository struct {
	mu    sync.Mutex
	Pairs map[uuid.UUID]*domain.TrustPair
}

// NewMockTrustPairRepository creates a new MockTrustPairRepository
func NewMockTrustPairRepository() *MockTrustPairRepository {
	return &MockTrustPairRepository{Pairs: make(map[uuid.UUID]*domain.TrustPair)}
}

// Insert creates a pair, enforcing one row per unordered pair
func (m *MockTrustPairRepository) Insert(ctx context.Context, pair *domain.TrustPair) (*domain.TrustPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Pairs {
		if existing.CompanyLowID == pair.CompanyLowID && existing.CompanyHighID == pair.CompanyHighID {
			return nil, domain.ErrDuplicateKey
		}
	}

	stored := *pair
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Pairs[stored.ID] = &stored
	out := stored
	return &out, nil
}

// GetByID retrieves a pair by id
func (m *MockTrustPairRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrustPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pair, ok := m.Pairs[id]
	if !ok {
		return nil, domain.ErrPairNotFound
	}
	out := *pair
	return &out, nil
}

// GetByCompanies retrieves a pair by its canonical identity
func (m *MockTrustPairRepository) GetByCompanies(ctx context.Context, lowID, highID uuid.UUID) (*domain.TrustPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pair := range m.Pairs {
		if pair.CompanyLowID == lowID && pair.CompanyHighID == highID {
			out := *pair
			return &out, nil
		}
	}
	return nil, domain.ErrPairNotFound
}

// MockTrustSessionRepository is a mock implementation of domain.TrustSessionRepository
type MockTrustSessionRepository struct {
	mu       sync.Mutex
	Sessions map[uuid.UUID]*domain.TrustSession
	order    []uuid.UUID
}

// NewMockTrustSessionRepository creates a new MockTrustSessionRepository
func NewMockTrustSessionRepository() *MockTrustSessionRepository {
	return &MockTrustSessionRepository{Sessions: make(map[uuid.UUID]*domain.TrustSession)}
}

func sessionDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// Insert creates a session, enforcing one per (pair, date)
func (m *MockTrustSessionRepository) Insert(ctx context.Context, session *domain.TrustSession) (*domain.TrustSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := sessionDay(session.SessionDate)
	for _, existing := range m.Sessions {
		if existing.PairID == session.PairID && sessionDay(existing.SessionDate).Equal(day) {
			return nil, domain.ErrDuplicateKey
		}
	}

	stored := *session
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.SessionDate = day
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.NetAmount = decimal.Zero
	stored.NetValue = decimal.Zero
	m.Sessions[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	out := stored
	return &out, nil
}

// GetByID retrieves a session by id
func (m *MockTrustSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrustSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	out := *session
	return &out, nil
}

// GetByPairAndDate retrieves the session for one netting day
func (m *MockTrustSessionRepository) GetByPairAndDate(ctx context.Context, pairID uuid.UUID, date time.Time) (*domain.TrustSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := sessionDay(date)
	for _, session := range m.Sessions {
		if session.PairID == pairID && sessionDay(session.SessionDate).Equal(day) {
			out := *session
			return &out, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

// ListByState returns sessions in the given state, oldest first
func (m *MockTrustSessionRepository) ListByState(ctx context.Context, state domain.TrustSessionState, limit int32) ([]*domain.TrustSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.TrustSession
	for _, id := range m.order {
		session := m.Sessions[id]
		if session.State != state {
			continue
		}
		out := *session
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// Close moves a session open -> closed
func (m *MockTrustSessionRepository) Close(ctx context.Context, id uuid.UUID) (*domain.TrustSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok || session.State != domain.TrustSessionOpen {
		return nil, domain.ErrPreconditionFailed
	}
	session.State = domain.TrustSessionClosed
	out := *session
	return &out, nil
}

// MarkSettled moves a session closed -> settled recording the net
func (m *MockTrustSessionRepository) MarkSettled(ctx context.Context, id uuid.UUID, netAmount, netValue decimal.Decimal) (*domain.TrustSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.Sessions[id]
	if !ok || session.State != domain.TrustSessionClosed {
		return nil, domain.ErrPreconditionFailed
	}
	now := time.Now()
	session.State = domain.TrustSessionSettled
	session.NetAmount = netAmount
	session.NetValue = netValue
	session.SettledAt = &now
	out := *session
	return &out, nil
}

// AddSession adds a session to the mock repository (helper for tests)
func (m *MockTrustSessionRepository) AddSession(session *domain.TrustSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	m.Sessions[session.ID] = session
	m.order = append(m.order, session.ID)
}

// MockTrustLedgerRepository is a mock implementation of domain.TrustLedgerRepository
type MockTrustLedgerRepository struct {
	mu      sync.Mutex
	Entries []*domain.TrustLedgerEntry
}

// NewMockTrustLedgerRepository creates a new MockTrustLedgerRepository
func NewMockTrustLedgerRepository() *MockTrustLedgerRepository {
	return &MockTrustLedgerRepository{}
}

// Insert appends a ledger movement
func (m *MockTrustLedgerRepository) Insert(ctx context.Context, entry *domain.TrustLedgerEntry) (*domain.TrustLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *entry
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Entries = append(m.Entries, &stored)
	out := stored
	return &out, nil
}

// ListBySession returns a session's movements in insertion order
func (m *MockTrustLedgerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.TrustLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.TrustLedgerEntry
	for _, entry := range m.Entries {
		if entry.SessionID == sessionID {
			out := *entry
			result = append(result, &out)
		}
	}
	return result, nil
}

// MockEodSettlementRepository is a mock implementation of domain.EodSettlementRepository
type MockEodSettlementRepository struct {
	mu          sync.Mutex
	Settlements map[uuid.UUID]*domain.EodSettlement
}

// NewMockEodSettlementRepository creates a new MockEodSettlementRepository
func NewMockEodSettlementRepository() *MockEodSettlementRepository {
	return &MockEodSettlementRepository{Settlements: make(map[uuid.UUID]*domain.EodSettlement)}
}

// Insert creates a settlement, enforcing one per session
func (m *MockEodSettlementRepository) Insert(ctx context.Context, s *domain.EodSettlement) (*domain.EodSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Settlements {
		if existing.SessionID == s.SessionID {
			return nil, domain.ErrDuplicateKey
		}
	}

	stored := *s
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Settlements[stored.ID] = &stored
	out := stored
	return &out, nil
}

// GetBySession retrieves the settlement of one session
func (m *MockEodSettlementRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*domain.EodSettlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.Settlements {
		if s.SessionID == sessionID {
			out := *s
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MockDepositLedgerRepository is a mock implementation of domain.DepositLedgerRepository
type MockDepositLedgerRepository struct {
	mu      sync.Mutex
	Entries []*domain.DepositLedgerEntry
}

// NewMockDepositLedgerRepository creates a new MockDepositLedgerRepository
func NewMockDepositLedgerRepository() *MockDepositLedgerRepository {
	return &MockDepositLedgerRepository{}
}

// Insert appends a ledger entry
func (m *MockDepositLedgerRepository) Insert(ctx context.Context, entry *domain.DepositLedgerEntry) (*domain.DepositLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *entry
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Entries = append(m.Entries, &stored)
	out := stored
	return &out, nil
}

// Balance returns the signed sum of a company's entries
func (m *MockDepositLedgerRepository) Balance(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := decimal.Zero
	for _, entry := range m.Entries {
		if entry.CompanyID != companyID {
			continue
		}
		if entry.Type.Credit() {
			balance = balance.Add(entry.Amount)
		} else {
			balance = balance.Sub(entry.Amount)
		}
	}
	return balance, nil
}

// ListByCompany returns a company's entries, newest first
func (m *MockDepositLedgerRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.DepositLedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.DepositLedgerEntry
	for i := len(m.Entries) - 1; i >= 0; i-- {
		if m.Entries[i].CompanyID != companyID {
			continue
		}
		out := *m.Entries[i]
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// MockCompanyRepository is a mock implementation of domain.CompanyRepository
type MockCompanyRepository struct {
	mu        sync.Mutex
	Companies map[uuid.UUID]*domain.Company
}

// NewMockCompanyRepository creates a new MockCompanyRepository
func NewMockCompanyRepository() *MockCompanyRepository {
	return &MockCompanyRepository{Companies: make(map[uuid.UUID]*domain.Company)}
}

// Insert creates a company, enforcing slug uniqueness
func (m *MockCompanyRepository) Insert(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.Companies {
		if existing.Slug == company.Slug {
			return nil, domain.ErrDuplicateKey
		}
	}

	stored := *company
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Companies[stored.ID] = &stored
	out := stored
	return &out, nil
}

// GetByID retrieves a company by id
func (m *MockCompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	company, ok := m.Companies[id]
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	out := *company
	return &out, nil
}

// GetBySlug retrieves a company by slug
func (m *MockCompanyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, company := range m.Companies {
		if company.Slug == slug {
			out := *company
			return &out, nil
		}
	}
	return nil, domain.ErrCompanyNotFound
}

// AddCompany adds a company to the mock repository (helper for tests)
func (m *MockCompanyRepository) AddCompany(company *domain.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if company.ID == uuid.Nil {
		company.ID = uuid.New()
	}
	m.Companies[company.ID] = company
}

// MockReferenceRepository is a mock implementation of domain.ReferenceRepository
type MockReferenceRepository struct {
	mu    sync.Mutex
	Tiers map[uuid.UUID]domain.Tier
}

// NewMockReferenceRepository creates a new MockReferenceRepository
func NewMockReferenceRepository() *MockReferenceRepository {
	return &MockReferenceRepository{Tiers: make(map[uuid.UUID]domain.Tier)}
}

// CompanyTier returns the company's tier, defaulting to the most
// conservative one
func (m *MockReferenceRepository) CompanyTier(ctx context.Context, companyID uuid.UUID) (domain.Tier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tier, ok := m.Tiers[companyID]; ok {
		return tier, nil
	}
	return domain.TierS, nil
}

// SetCompanyTier stores the company's tier
func (m *MockReferenceRepository) SetCompanyTier(ctx context.Context, companyID uuid.UUID, tier domain.Tier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Tiers[companyID] = tier
	return nil
}

// MockOfferRepository is a mock implementation of domain.OfferRepository
type MockOfferRepository struct {
	mu     sync.Mutex
	Offers map[uuid.UUID]*domain.Offer
	order  []uuid.UUID
}

// NewMockOfferRepository creates a new MockOfferRepository
func NewMockOfferRepository() *MockOfferRepository {
	return &MockOfferRepository{Offers: make(map[uuid.UUID]*domain.Offer)}
}

// Insert publishes an offer
func (m *MockOfferRepository) Insert(ctx context.Context, offer *domain.Offer) (*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *offer
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Offers[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	out := stored
	return &out, nil
}

// GetActive retrieves an offer by id if it is still active
func (m *MockOfferRepository) GetActive(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offer, ok := m.Offers[id]
	if !ok || offer.Status != domain.OfferStatusActive {
		return nil, domain.ErrOfferNotFound
	}
	out := *offer
	return &out, nil
}

// ListByCompany returns a company's offers, newest first
func (m *MockOfferRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Offer
	for i := len(m.order) - 1; i >= 0; i-- {
		offer := m.Offers[m.order[i]]
		if offer.CompanyID != companyID {
			continue
		}
		out := *offer
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// ListFeed returns active offers published by other companies
func (m *MockOfferRepository) ListFeed(ctx context.Context, excludeCompanyID uuid.UUID, limit int32) ([]*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Offer
	for i := len(m.order) - 1; i >= 0; i-- {
		offer := m.Offers[m.order[i]]
		if offer.Status != domain.OfferStatusActive || offer.CompanyID == excludeCompanyID {
			continue
		}
		out := *offer
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// Close moves an offer active -> closed
func (m *MockOfferRepository) Close(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	offer, ok := m.Offers[id]
	if !ok || offer.Status != domain.OfferStatusActive {
		return nil, domain.ErrPreconditionFailed
	}
	offer.Status = domain.OfferStatusClosed
	out := *offer
	return &out, nil
}

// AddOffer adds an offer to the mock repository (helper for tests)
func (m *MockOfferRepository) AddOffer(offer *domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if offer.ID == uuid.Nil {
		offer.ID = uuid.New()
	}
	m.Offers[offer.ID] = offer
	m.order = append(m.order, offer.ID)
}

// MockDealRepository is a mock implementation of domain.DealRepository
type MockDealRepository struct {
	mu    sync.Mutex
	Deals map[uuid.UUID]*domain.Deal
	order []uuid.UUID
}

// NewMockDealRepository creates a new MockDealRepository
func NewMockDealRepository() *MockDealRepository {
	return &MockDealRepository{Deals: make(map[uuid.UUID]*domain.Deal)}
}

// Insert creates a deal
func (m *MockDealRepository) Insert(ctx context.Context, deal *domain.Deal) (*domain.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *deal
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	m.Deals[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	out := stored
	return &out, nil
}

// GetByID retrieves a deal by id
func (m *MockDealRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deal, ok := m.Deals[id]
	if !ok {
		return nil, domain.ErrDealNotFound
	}
	out := *deal
	return &out, nil
}

// ListByCompany returns a company's deals, newest first
func (m *MockDealRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, limit int32) ([]*domain.Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.Deal
	for i := len(m.order) - 1; i >= 0; i-- {
		deal := m.Deals[m.order[i]]
		if deal.InitiatorCompanyID != companyID && deal.CounterpartyCompanyID != companyID {
			continue
		}
		out := *deal
		result = append(result, &out)
		if int32(len(result)) >= limit {
			break
		}
	}
	return result, nil
}

// OpenExposure sums the amounts of a company's non-closed deals
func (m *MockDealRepository) OpenExposure(ctx context.Context, companyID uuid.UUID) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exposure := decimal.Zero
	for _, deal := range m.Deals {
		if deal.State == domain.DealStateClosed {
			continue
		}
		if deal.InitiatorCompanyID == companyID || deal.CounterpartyCompanyID == companyID {
			exposure = exposure.Add(deal.Amount)
		}
	}
	return exposure, nil
}

// AddDeal adds a deal to the mock repository (helper for tests)
func (m *MockDealRepository) AddDeal(deal *domain.Deal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	m.Deals[deal.ID] = deal
	m.order = append(m.order, deal.ID)
}

// MockWalletRepository is a mock implementation of domain.WalletRepository
type MockWalletRepository struct {
	mu      sync.Mutex
	Wallets []*domain.PlatformWallet
}

// NewMockWalletRepository creates a new MockWalletRepository
func NewMockWalletRepository() *MockWalletRepository {
	return &MockWalletRepository{}
}

// Insert creates a wallet
func (m *MockWalletRepository) Insert(ctx context.Context, wallet *domain.PlatformWallet) (*domain.PlatformWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *wallet
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	m.Wallets = append(m.Wallets, &stored)
	out := stored
	return &out, nil
}

// ActiveHot returns the active hot wallet for a network/token pair
func (m *MockWalletRepository) ActiveHot(ctx context.Context, network, token string) (*domain.PlatformWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, wallet := range m.Wallets {
		if wallet.Network == network && wallet.Token == token && wallet.Type == domain.WalletTypeHot && wallet.IsActive {
			out := *wallet
			return &out, nil
		}
	}
	return nil, domain.ErrConfigurationMissing
}

// RecordedEvent is one event captured by MockEmitter.
type RecordedEvent struct {
	Type           event.Type
	Payload        interface{}
	IdempotencyKey string
}

// MockEmitter records emitted events for assertions.
type MockEmitter struct {
	mu     sync.Mutex
	Events []RecordedEvent
}

// NewMockEmitter creates a new MockEmitter
func NewMockEmitter() *MockEmitter {
	return &MockEmitter{}
}

// Emit records the event
func (m *MockEmitter) Emit(eventType event.Type, payload interface{}, idempotencyKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Events = append(m.Events, RecordedEvent{
		Type:           eventType,
		Payload:        payload,
		IdempotencyKey: idempotencyKey,
	})
}

// CountByType returns how many events of one type were emitted
func (m *MockEmitter) CountByType(eventType event.Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, e := range m.Events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}
