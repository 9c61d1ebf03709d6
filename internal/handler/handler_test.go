package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tourops/internal/model"
	"tourops/internal/repository"
	"tourops/internal/service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const hookSecret = "hook-secret"

// Хранилища в памяти, повторяющие контракты репозиториев.

type tokenStore struct {
	byID map[string]*model.RequestToken
}

func (s *tokenStore) GetByID(id string) (*model.RequestToken, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *tokenStore) ApplyDecision(tok *model.RequestToken, response, channel, toStatus string, now time.Time) (*repository.DecisionResult, error) {
	t := s.byID[tok.ID]
	if t.Response != nil {
		return &repository.DecisionResult{}, nil
	}
	t.Response = &response
	t.RespondedAt = &now
	t.ResponseChannel = &channel
	return &repository.DecisionResult{Applied: true}, nil
}

type supplierStore struct {
	byID map[int]*model.Supplier
}

func (s *supplierStore) GetByID(id int) (*model.Supplier, error) {
	sup, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sup, nil
}

func (s *supplierStore) FindByBindCode(code string) (*model.Supplier, error) {
	for _, sup := range s.byID {
		if sup.BindCode != nil && *sup.BindCode == code {
			return sup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *supplierStore) FindByChatID(chatID int64) (*model.Supplier, error) {
	for _, sup := range s.byID {
		if sup.ChatID != nil && *sup.ChatID == chatID {
			return sup, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *supplierStore) BindChat(supplierID int, chatID int64) (bool, error) {
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

func (s *supplierStore) SetBindCode(supplierID int, code string, expiresAt time.Time) error {
	sup, ok := s.byID[supplierID]
	if !ok {
		return sql.ErrNoRows
	}
	sup.BindCode = &code
	sup.BindCodeExpiresAt = &expiresAt
	return nil
}

func (s *supplierStore) Create(sup *model.Supplier) (int, error) {
	sup.ID = len(s.byID) + 1
	s.byID[sup.ID] = sup
	return sup.ID, nil
}

func (s *supplierStore) ListByTenant(tenantID int) ([]model.Supplier, error) {
	var out []model.Supplier
	for _, sup := range s.byID {
		if sup.TenantID == tenantID {
			out = append(out, *sup)
		}
	}
	return out, nil
}

type userStore struct {
	byEmail map[string]*model.User
}

func (s *userStore) GetByEmail(email string) (*model.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return u, nil
}

func (s *userStore) GetByID(id int) (*model.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *userStore) Create(user *model.User) (int, error) {
	user.ID = len(s.byEmail) + 1
	s.byEmail[user.Email] = user
	return user.ID, nil
}

type tenantStore struct {
	byID    map[int]*model.Tenant
	members *memberStore
}

func (s *tenantStore) Create(name string) (int, error) {
	id := len(s.byID) + 1
	s.byID[id] = &model.Tenant{ID: id, Name: name}
	return id, nil
}

func (s *tenantStore) GetByID(id int) (*model.Tenant, error) {
	t, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func (s *tenantStore) AddMembership(m *model.Membership) error {
	s.members.items = append(s.members.items, *m)
	return nil
}

type memberStore struct {
	items []model.Membership
}

func (s *memberStore) GetMembership(tenantID, userID int) (*model.Membership, error) {
	for i := range s.items {
		if s.items[i].TenantID == tenantID && s.items[i].UserID == userID {
			return &s.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memberStore) GetMembershipByUser(userID int) (*model.Membership, error) {
	for i := range s.items {
		if s.items[i].UserID == userID && s.items[i].Status == model.MembershipStatusActive {
			return &s.items[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

type testEnv struct {
	router    *gin.Engine
	tokens    *tokenStore
	suppliers *supplierStore
}

// newTestEnv собирает маршрутизатор с реальными сервисами поверх хранилищ
// в памяти: открытый токен "tok-open", отвеченный "tok-done", истекший
// "tok-old"; поставщик 5 с привязанным чатом 100 и кодом привязки у
// поставщика 6; пользователь op@example.com / secret123 — оператор компании 1.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.Now()
	accepted := model.ResponseAccepted
	tokens := &tokenStore{byID: map[string]*model.RequestToken{
		"tok-open": {ID: "tok-open", StepID: 1, SupplierID: 5, Channel: model.ChannelLink,
			IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		"tok-done": {ID: "tok-done", StepID: 1, SupplierID: 5, Channel: model.ChannelLink,
			IssuedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(time.Hour),
			Response: &accepted, RespondedAt: &now},
		"tok-old": {ID: "tok-old", StepID: 1, SupplierID: 5, Channel: model.ChannelLink,
			IssuedAt: now.Add(-24 * time.Hour), ExpiresAt: now.Add(-12 * time.Hour)},
	}}

	chatID := int64(100)
	code := "AB12CD34"
	expires := now.Add(20 * time.Minute)
	suppliers := &supplierStore{byID: map[int]*model.Supplier{
		5: {ID: 5, TenantID: 1, Name: "Гид Сергей", ChatID: &chatID},
		6: {ID: 6, TenantID: 1, Name: "Отель Ялта", BindCode: &code, BindCodeExpiresAt: &expires},
	}}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	users := &userStore{byEmail: map[string]*model.User{
		"op@example.com":    {ID: 7, Email: "op@example.com", PasswordHash: string(hash), Role: model.UserRoleUser},
		"admin@example.com": {ID: 8, Email: "admin@example.com", PasswordHash: string(hash), Role: model.UserRoleAdmin},
	}}
	members := &memberStore{items: []model.Membership{{
		TenantID: 1, UserID: 7, Role: model.MembershipRoleOperator, Status: model.MembershipStatusActive,
	}}}
	tenants := &tenantStore{byID: map[int]*model.Tenant{1: {ID: 1, Name: "Южный берег"}}, members: members}

	access := service.NewAccessService(members)
	h := &Handler{
		Auth:      service.NewAuthService(users, "test-secret", time.Hour),
		Access:    access,
		Suppliers: service.NewSupplierService(suppliers, access),
		Bind:      service.NewBindService(suppliers, tokens, access, 30*time.Minute),
		Resolve:   service.NewResolveService(tokens, suppliers),
		Admin:     service.NewAdminService(users, tenants),
	}

	router := gin.New()
	h.RegisterRoutes(router, hookSecret)
	return &testEnv{router: router, tokens: tokens, suppliers: suppliers}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// login выполняет вход и возвращает заголовок с JWT.
func (e *testEnv) login(t *testing.T, email string) map[string]string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": "secret123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("вход %s = %d %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("ответ входа: %s", w.Body.String())
	}
	return map[string]string{"Authorization": "Bearer " + resp.Token}
}

func TestRespondByLinkStatuses(t *testing.T) {
	cases := []struct {
		name     string
		path     string
		wantCode int
	}{
		{"принятие", "/r/tok-open/accept", http.StatusOK},
		{"повторный ответ", "/r/tok-done/accept", http.StatusConflict},
		{"истекшая ссылка", "/r/tok-old/decline", http.StatusGone},
		{"неизвестный токен", "/r/tok-ghost/accept", http.StatusNotFound},
		{"неизвестное действие", "/r/tok-open/maybe", http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			w := env.do(t, http.MethodGet, tc.path, nil, nil)
			if w.Code != tc.wantCode {
				t.Fatalf("GET %s = %d, ожидалось %d; тело: %s", tc.path, w.Code, tc.wantCode, w.Body.String())
			}
		})
	}
}

func TestRespondByLinkSecondClickConflicts(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/r/tok-open/accept", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("первый клик = %d; тело: %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodGet, "/r/tok-open/accept", nil, nil); w.Code != http.StatusConflict {
		t.Fatalf("второй клик = %d, ожидалось 409", w.Code)
	}
}

func TestChatWebhookSecret(t *testing.T) {
	env := newTestEnv(t)
	body := map[string]interface{}{"type": "start", "chat_id": 300, "code": "AB12CD34"}

	if w := env.do(t, http.MethodPost, "/webhook/chat", body, nil); w.Code != http.StatusForbidden {
		t.Fatalf("вебхук без секрета = %d, ожидалось 403", w.Code)
	}
	wrong := map[string]string{"X-Webhook-Secret": "guess"}
	if w := env.do(t, http.MethodPost, "/webhook/chat", body, wrong); w.Code != http.StatusForbidden {
		t.Fatalf("вебхук с неверным секретом = %d, ожидалось 403", w.Code)
	}
}

func TestChatWebhookBindAndResolve(t *testing.T) {
	env := newTestEnv(t)
	auth := map[string]string{"X-Webhook-Secret": hookSecret}

	// Привязка чата по коду.
	w := env.do(t, http.MethodPost, "/webhook/chat",
		map[string]interface{}{"type": "start", "chat_id": 300, "code": "AB12CD34"}, auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("привязка = %d %s", w.Code, w.Body.String())
	}
	if sup := env.suppliers.byID[6]; sup.ChatID == nil || *sup.ChatID != 300 {
		t.Error("чат не привязан к поставщику 6")
	}

	// Ответ кнопкой из привязанного чата поставщика 5.
	w = env.do(t, http.MethodPost, "/webhook/chat",
		map[string]interface{}{"type": "button", "chat_id": 100, "action": "accept", "token": "tok-open"}, auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("ответ кнопкой = %d %s", w.Code, w.Body.String())
	}

	// Чужой чат: исход отрицательный, но HTTP-код все равно 200.
	env = newTestEnv(t)
	w = env.do(t, http.MethodPost, "/webhook/chat",
		map[string]interface{}{"type": "button", "chat_id": 999, "action": "accept", "token": "tok-open"}, auth)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":false`) {
		t.Fatalf("ответ из чужого чата = %d %s", w.Code, w.Body.String())
	}
	if env.tokens.byID["tok-open"].Response != nil {
		t.Error("ответ из чужого чата записан в токен")
	}
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/suppliers?tenant_id=1", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("запрос без токена = %d, ожидалось 401", w.Code)
	}
	bad := map[string]string{"Authorization": "Bearer not-a-jwt"}
	if w := env.do(t, http.MethodGet, "/api/suppliers?tenant_id=1", nil, bad); w.Code != http.StatusUnauthorized {
		t.Fatalf("запрос с мусорным токеном = %d, ожидалось 401", w.Code)
	}

	w := env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "op@example.com", "password": "secret123"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("вход = %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("ответ входа: %s", w.Body.String())
	}

	authed := map[string]string{"Authorization": "Bearer " + resp.Token}
	w = env.do(t, http.MethodGet, "/api/suppliers?tenant_id=1", nil, authed)
	if w.Code != http.StatusOK {
		t.Fatalf("авторизованный запрос = %d %s", w.Code, w.Body.String())
	}
	var suppliers []model.Supplier
	if err := json.Unmarshal(w.Body.Bytes(), &suppliers); err != nil || len(suppliers) != 2 {
		t.Fatalf("список поставщиков: %s", w.Body.String())
	}
	// Одноразовый код привязки не должен утекать в API.
	if strings.Contains(w.Body.String(), "AB12CD34") {
		t.Error("код привязки виден в ответе API")
	}

	// Чужая компания для того же пользователя закрыта.
	if w := env.do(t, http.MethodGet, "/api/suppliers?tenant_id=2", nil, authed); w.Code != http.StatusNotFound {
		t.Fatalf("чужая компания = %d, ожидалось 404", w.Code)
	}
}

func TestSuppliersDefaultTenant(t *testing.T) {
	env := newTestEnv(t)
	authed := env.login(t, "op@example.com")

	// Без tenant_id берется компания членства пользователя.
	w := env.do(t, http.MethodGet, "/api/suppliers", nil, authed)
	if w.Code != http.StatusOK {
		t.Fatalf("список без tenant_id = %d %s", w.Code, w.Body.String())
	}
	var suppliers []model.Supplier
	if err := json.Unmarshal(w.Body.Bytes(), &suppliers); err != nil || len(suppliers) != 2 {
		t.Fatalf("список поставщиков: %s", w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/suppliers",
		map[string]string{"name": "Трансфер Юг"}, authed)
	if w.Code != http.StatusCreated {
		t.Fatalf("создание без tenant_id = %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.ID == 0 {
		t.Fatalf("ответ создания: %s", w.Body.String())
	}
	if sup := env.suppliers.byID[created.ID]; sup == nil || sup.TenantID != 1 {
		t.Errorf("поставщик создан не в компании членства: %+v", env.suppliers.byID[created.ID])
	}
}

func TestTenantIsolationForGuessedIDs(t *testing.T) {
	env := newTestEnv(t)
	authed := env.login(t, "op@example.com")

	// Перебор идентификаторов компаний: открыта только своя.
	for tenantID := 2; tenantID <= 25; tenantID++ {
		path := fmt.Sprintf("/api/suppliers?tenant_id=%d", tenantID)
		if w := env.do(t, http.MethodGet, path, nil, authed); w.Code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, ожидалось 404", path, w.Code)
		}
	}
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	operator := env.login(t, "op@example.com")
	admin := env.login(t, "admin@example.com")

	// Оператор — не глобальный администратор.
	w := env.do(t, http.MethodPost, "/api/users",
		map[string]string{"email": "new@example.com", "password": "secret123"}, operator)
	if w.Code != http.StatusForbidden {
		t.Fatalf("создание пользователя оператором = %d, ожидалось 403", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/users",
		map[string]string{"email": "new@example.com", "password": "secret123", "name": "Мария"}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("создание пользователя = %d %s", w.Code, w.Body.String())
	}
	var user model.User
	if err := json.Unmarshal(w.Body.Bytes(), &user); err != nil || user.ID == 0 {
		t.Fatalf("ответ создания пользователя: %s", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password_hash") {
		t.Error("хеш пароля виден в ответе API")
	}

	w = env.do(t, http.MethodPost, "/api/tenants", map[string]string{"name": "Крым-тур"}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("создание компании = %d %s", w.Code, w.Body.String())
	}
	var tenant model.Tenant
	if err := json.Unmarshal(w.Body.Bytes(), &tenant); err != nil || tenant.ID == 0 {
		t.Fatalf("ответ создания компании: %s", w.Body.String())
	}

	path := fmt.Sprintf("/api/tenants/%d/members", tenant.ID)
	w = env.do(t, http.MethodPost, path,
		map[string]interface{}{"user_id": user.ID, "role": model.MembershipRoleAgent}, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("добавление членства = %d %s", w.Code, w.Body.String())
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "op@example.com", "password": "wrong"}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("вход с неверным паролем = %d, ожидалось 403", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "op@example.com"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("вход без пароля = %d, ожидалось 400", w.Code)
	}
}
