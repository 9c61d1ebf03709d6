package service

import (
	"database/sql"
	"fmt"
	"time"

	"tourops/internal/model"
)

// Общие заглушки хранилищ для тестов сервисного слоя. Каждая заглушка
// повторяет контракт соответствующего репозитория, включая sql.ErrNoRows
// для отсутствующих строк.

type stubSteps struct {
	byID    map[int]*model.StepContext
	updates []string // "id:status"
}

func newStubSteps(steps ...*model.StepContext) *stubSteps {
	s := &stubSteps{byID: map[int]*model.StepContext{}}
	for _, sc := range steps {
		s.byID[sc.ID] = sc
	}
	return s
}

func (s *stubSteps) GetContext(stepID int) (*model.StepContext, error) {
	sc, ok := s.byID[stepID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sc, nil
}

func (s *stubSteps) UpdateStatus(stepID int, status string) error {
	sc, ok := s.byID[stepID]
	if !ok {
		return sql.ErrNoRows
	}
	sc.Status = status
	s.updates = append(s.updates, fmt.Sprintf("%d:%s", stepID, status))
	return nil
}

func (s *stubSteps) SetSupplierName(stepID int, name string) error {
	sc, ok := s.byID[stepID]
	if !ok {
		return sql.ErrNoRows
	}
	sc.SupplierName = name
	return nil
}

type stubMembers struct {
	items []model.Membership
}

func (s *stubMembers) GetMembership(tenantID, userID int) (*model.Membership, error) {
	for i := range s.items {
		if s.items[i].TenantID == tenantID && s.items[i].UserID == userID {
			return &s.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubMembers) GetMembershipByUser(userID int) (*model.Membership, error) {
	for i := range s.items {
		if s.items[i].UserID == userID && s.items[i].Status == model.MembershipStatusActive {
			return &s.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type stubAudit struct {
	events    []model.AuditEvent
	statusLog []model.StepStatusLog
	listErr   error
}

func (s *stubAudit) Insert(ev *model.AuditEvent) error {
	s.events = append(s.events, *ev)
	return nil
}

func (s *stubAudit) InsertStatusLog(l *model.StepStatusLog) error {
	s.statusLog = append(s.statusLog, *l)
	return nil
}

func (s *stubAudit) ListByStep(stepID, limit int) ([]model.AuditEvent, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.AuditEvent
	for _, ev := range s.events {
		if ev.StepID == stepID {
			out = append(out, ev)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubAudit) ListStatusLog(stepID int) ([]model.StepStatusLog, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.StepStatusLog
	for _, l := range s.statusLog {
		if l.StepID == stepID {
			out = append(out, l)
		}
	}
	return out, nil
}

type stubNotifier struct {
	transitions []string // "from>to"
	ensured     []int
}

func (s *stubNotifier) Transition(sc *model.StepContext, from, to string) {
	s.transitions = append(s.transitions, from+">"+to)
}

func (s *stubNotifier) EnsureRequests(sc *model.StepContext) {
	s.ensured = append(s.ensured, sc.ID)
}

type stubSuppliers struct {
	byID   map[int]*model.Supplier
	byStep map[int][]int
}

func newStubSuppliers(suppliers ...*model.Supplier) *stubSuppliers {
	s := &stubSuppliers{byID: map[int]*model.Supplier{}, byStep: map[int][]int{}}
	for _, sup := range suppliers {
		s.byID[sup.ID] = sup
	}
	return s
}

func (s *stubSuppliers) GetByID(id int) (*model.Supplier, error) {
	sup, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sup, nil
}

func (s *stubSuppliers) ListByStep(stepID int) ([]model.Supplier, error) {
	var out []model.Supplier
	for _, id := range s.byStep[stepID] {
		if sup, ok := s.byID[id]; ok {
			out = append(out, *sup)
		}
	}
	return out, nil
}

func (s *stubSuppliers) FindByBindCode(code string) (*model.Supplier, error) {
	for _, sup := range s.byID {
		if sup.BindCode != nil && *sup.BindCode == code {
			return sup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubSuppliers) FindByChatID(chatID int64) (*model.Supplier, error) {
	for _, sup := range s.byID {
		if sup.ChatID != nil && *sup.ChatID == chatID {
			return sup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubSuppliers) BindChat(supplierID int, chatID int64) (bool, error) {
	sup, ok := s.byID[supplierID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if sup.ChatID != nil && *sup.ChatID != chatID {
		return false, nil
	}
	sup.ChatID = &chatID
	sup.BindCode = nil
	sup.BindCodeExpiresAt = nil
	return true, nil
}

func (s *stubSuppliers) SetBindCode(supplierID int, code string, expiresAt time.Time) error {
	sup, ok := s.byID[supplierID]
	if !ok {
		return sql.ErrNoRows
	}
	sup.BindCode = &code
	sup.BindCodeExpiresAt = &expiresAt
	return nil
}

type stubAssignments struct {
	pairs map[[2]int]bool
	rows  map[int][]model.StepSupplier
}

func newStubAssignments() *stubAssignments {
	return &stubAssignments{pairs: map[[2]int]bool{}, rows: map[int][]model.StepSupplier{}}
}

func (s *stubAssignments) ListByStep(stepID int) ([]model.StepSupplier, error) {
	return s.rows[stepID], nil
}

func (s *stubAssignments) Assign(stepID, supplierID int) (bool, error) {
	key := [2]int{stepID, supplierID}
	if s.pairs[key] {
		return false, nil
	}
	s.pairs[key] = true
	return true, nil
}

func (s *stubAssignments) Remove(stepID, supplierID int) (bool, error) {
	key := [2]int{stepID, supplierID}
	if !s.pairs[key] {
		return false, nil
	}
	delete(s.pairs, key)
	return true, nil
}

type stubTokens struct {
	byID      map[string]*model.RequestToken
	cancelled [][2]int
}

func newStubTokens(tokens ...*model.RequestToken) *stubTokens {
	s := &stubTokens{byID: map[string]*model.RequestToken{}}
	for _, t := range tokens {
		s.byID[t.ID] = t
	}
	return s
}

func (s *stubTokens) GetByID(id string) (*model.RequestToken, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *stubTokens) openFor(stepID, supplierID int, now time.Time) *model.RequestToken {
	for _, t := range s.byID {
		if t.StepID == stepID && t.SupplierID == supplierID && t.Open(now) {
			return t
		}
	}
	return nil
}

func (s *stubTokens) EnsureOpen(stepID, supplierID int, id string, now time.Time, ttl time.Duration) (*model.RequestToken, bool, error) {
	if t := s.openFor(stepID, supplierID, now); t != nil {
		return t, false, nil
	}
	t := &model.RequestToken{
		ID:         id,
		StepID:     stepID,
		SupplierID: supplierID,
		Channel:    model.ChannelLink,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	s.byID[id] = t
	return t, true, nil
}

func (s *stubTokens) MarkNotified(id string, at time.Time) error {
	t, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	if t.NotifiedAt == nil {
		t.NotifiedAt = &at
	}
	return nil
}

func (s *stubTokens) CancelOpen(stepID, supplierID int, now time.Time) error {
	if t := s.openFor(stepID, supplierID, now); t != nil {
		cancelled := model.ResponseCancelled
		t.Response = &cancelled
		t.RespondedAt = &now
	}
	s.cancelled = append(s.cancelled, [2]int{stepID, supplierID})
	return nil
}

func (s *stubTokens) ListByStep(stepID int) ([]model.RequestToken, error) {
	var out []model.RequestToken
	for _, t := range s.byID {
		if t.StepID == stepID {
			out = append(out, *t)
		}
	}
	return out, nil
}

type stubSettings struct {
	byTenant map[int]*model.TenantSettings
}

func (s *stubSettings) SaveSettings(st *model.TenantSettings) error {
	if s.byTenant == nil {
		s.byTenant = map[int]*model.TenantSettings{}
	}
	s.byTenant[st.TenantID] = st
	return nil
}

func (s *stubSettings) GetSettings(tenantID int) (*model.TenantSettings, error) {
	if st, ok := s.byTenant[tenantID]; ok {
		return st, nil
	}
	return &model.TenantSettings{
		TenantID:          tenantID,
		AutomationEnabled: true,
		NotifyBooked:      true,
		NotifyPaid:        true,
	}, nil
}

type stubEmail struct {
	sent []string // "to|subject|body"
	fail int      // сколько первых отправок завершить ошибкой
}

func (s *stubEmail) Send(to, subject, body string) error {
	if s.fail > 0 {
		s.fail--
		return fmt.Errorf("smtp недоступен")
	}
	s.sent = append(s.sent, to+"|"+subject+"|"+body)
	return nil
}

type stubChat struct {
	sent   []string
	tokens []string
	fail   int
}

func (s *stubChat) Send(chatID int64, text string, token string) error {
	if s.fail > 0 {
		s.fail--
		return fmt.Errorf("чат недоступен")
	}
	s.sent = append(s.sent, text)
	s.tokens = append(s.tokens, token)
	return nil
}

// stepInTenant собирает контекст шага с принадлежностью для тестов.
func stepInTenant(id, tenantID int, status string) *model.StepContext {
	return &model.StepContext{
		Step: model.Step{
			ID:          id,
			DayID:       1,
			Kind:        model.StepKindHotel,
			Title:       "Отель у моря",
			Description: "2 ночи, завтрак",
			Status:      status,
		},
		TourID:     10,
		TenantID:   tenantID,
		TourName:   "Крым за неделю",
		TenantName: "Южный берег",
		DayDate:    "05.09.2026",
	}
}

// accessWith возвращает стража доступа с заданными членствами.
func accessWith(memberships ...model.Membership) *AccessService {
	return NewAccessService(&stubMembers{items: memberships})
}

func membership(tenantID, userID int, role string) model.Membership {
	return model.Membership{TenantID: tenantID, UserID: userID, Role: role, Status: model.MembershipStatusActive}
}
