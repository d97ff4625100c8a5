package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	securebridge "github.com/opengovern/secure-bridge"
)

// Collections served by the Backend, one per dashboard resource.
var Collections = []string{
	"branches", "staff", "payroll", "invoices", "inventory",
	"patients", "appointments", "claims", "expenses",
}

const (
	MockDefaultTokenTTL = time.Hour
	MockDefaultPageSize = 50
	MockMaxPageSize     = 500
	MockMaxPage         = 1_000_000
)

// User is an account the Backend accepts at /auth/login.
type User struct {
	ID       string
	Email    string
	Password string
	Name     string
	Role     string // "viewer" may only read
	TenantID string
}

// Fault replaces the next response for one method and path.
type Fault struct {
	Status     int
	Body       string
	RetryAfter int           // seconds, sent on 429
	Delay      time.Duration // applied before responding; aborted if the client goes away
}

// Backend is an in-memory dashboard API for tests and local development.
// It issues HS256 session tokens, enforces the client headers, and stores
// each collection as loosely typed JSON objects.
type Backend struct {
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time

	mu      sync.Mutex
	users   map[string]User
	items   map[string]map[string]map[string]interface{}
	order   map[string][]string
	faults  map[string][]Fault
	revoked map[string]bool
	hits    int

	router chi.Router
}

type claimsKey struct{}

func NewBackend() *Backend {
	b := &Backend{
		Secret:   []byte(uuid.NewString()),
		TokenTTL: MockDefaultTokenTTL,
		Now:      time.Now,
		users:    make(map[string]User),
		items:    make(map[string]map[string]map[string]interface{}),
		order:    make(map[string][]string),
		faults:   make(map[string][]Fault),
		revoked:  make(map[string]bool),
	}
	for _, c := range Collections {
		b.items[c] = make(map[string]map[string]interface{})
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer, b.countHits, b.injectFaults, b.requireClientHeaders)
	r.Post(securebridge.LoginEndpoint, b.login)
	r.Group(func(r chi.Router) {
		r.Use(b.authenticate)
		r.Post(securebridge.LogoutEndpoint, b.logout)
		r.Get("/reports/financial-summary", b.financialSummary)
		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", b.list)
			r.Post("/", b.create)
			r.Get("/{id}", b.get)
			r.Put("/{id}", b.replace)
			r.Patch("/{id}", b.update)
			r.Delete("/{id}", b.remove)
		})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	b.router = r
	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// AddUser registers an account. Missing ID, Role or TenantID get defaults.
func (b *Backend) AddUser(u User) User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = "manager"
	}
	if u.TenantID == "" {
		u.TenantID = "default"
	}
	b.mu.Lock()
	b.users[strings.ToLower(u.Email)] = u
	b.mu.Unlock()
	return u
}

// IssueToken signs a session token for u that expires after ttl.
func (b *Backend) IssueToken(u User, ttl time.Duration) (string, error) {
	now := b.Now()
	claims := securebridge.AuthClaims{
		Role:     u.Role,
		TenantID: u.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.Secret)
}

// InjectFault queues f for the next request matching method and path.
func (b *Backend) InjectFault(method, path string, f Fault) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := strings.ToUpper(method) + " " + path
	b.faults[key] = append(b.faults[key], f)
}

// Seed stores item in collection and returns its id.
func (b *Backend) Seed(collection string, item map[string]interface{}) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.items[collection]; !ok {
		return "", fmt.Errorf("unknown collection %q", collection)
	}
	return b.insertLocked(collection, item), nil
}

// Hits returns how many requests reached the Backend.
func (b *Backend) Hits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

func (b *Backend) insertLocked(collection string, item map[string]interface{}) string {
	id, _ := item["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	stored := make(map[string]interface{}, len(item)+2)
	for k, v := range item {
		stored[k] = v
	}
	stored["id"] = id
	if _, ok := stored["createdAt"]; !ok {
		stored["createdAt"] = b.Now().UTC().Format(time.RFC3339)
	}
	if _, exists := b.items[collection][id]; !exists {
		b.order[collection] = append(b.order[collection], id)
	}
	b.items[collection][id] = stored
	return id
}

// middleware

func (b *Backend) countHits(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		queue := b.faults[key]
		var fault *Fault
		if len(queue) > 0 {
			fault = &queue[0]
			b.faults[key] = queue[1:]
		}
		b.mu.Unlock()

		if fault == nil {
			next.ServeHTTP(w, r)
			return
		}
		if fault.Delay > 0 {
			select {
			case <-time.After(fault.Delay):
			case <-r.Context().Done():
				return
			}
		}
		if fault.Status == 0 {
			next.ServeHTTP(w, r)
			return
		}
		if fault.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(fault.RetryAfter))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fault.Status)
		_, _ = w.Write([]byte(fault.Body))
	})
}

func (b *Backend) requireClientHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(securebridge.HeaderRequestedWith) != "XMLHttpRequest" || r.Header.Get(securebridge.HeaderCSRFToken) == "" {
			writeMessage(w, http.StatusForbidden, "missing CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims := &securebridge.AuthClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return b.Secret, nil
		})
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		b.mu.Lock()
		revoked := b.revoked[claims.ID]
		b.mu.Unlock()
		if revoked {
			writeMessage(w, http.StatusUnauthorized, "session has been logged out")
			return
		}
		readOnly := r.Method == http.MethodGet || r.Method == http.MethodHead || r.URL.Path == securebridge.LogoutEndpoint
		if !readOnly && claims.Role == "viewer" {
			writeMessage(w, http.StatusForbidden, "read-only account")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	})
}

// auth

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	b.mu.Lock()
	u, ok := b.users[strings.ToLower(in.Email)]
	b.mu.Unlock()
	if !ok || u.Password != in.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := b.IssueToken(u, b.TokenTTL)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":        token,
		"refreshToken": uuid.NewString(),
		"user": map[string]string{
			"id":       u.ID,
			"email":    u.Email,
			"name":     u.Name,
			"role":     u.Role,
			"tenantId": u.TenantID,
		},
	})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(claimsKey{}).(*securebridge.AuthClaims)
	b.mu.Lock()
	b.revoked[claims.ID] = true
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// collections

func (b *Backend) collection(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "collection")
	b.mu.Lock()
	_, ok := b.items[name]
	b.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, fmt.Sprintf("unknown collection %q", name))
	}
	return name, ok
}

func (b *Backend) list(w http.ResponseWriter, r *http.Request) {
	name, ok := b.collection(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1, MockMaxPage)
	limit := atoiDefault(q.Get("limit"), MockDefaultPageSize, MockMaxPageSize)

	b.mu.Lock()
	var matched []map[string]interface{}
	for _, id := range b.order[name] {
		item, ok := b.items[name][id]
		if ok && matchesQuery(item, q) {
			matched = append(matched, item)
		}
	}
	b.mu.Unlock()

	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	items := matched[start:end]
	if items == nil {
		items = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"total": len(matched),
		"page":  page,
		"limit": limit,
	})
}

func (b *Backend) create(w http.ResponseWriter, r *http.Request) {
	name, ok := b.collection(w, r)
	if !ok {
		return
	}
	item, ok := decodeObject(w, r)
	if !ok {
		return
	}
	delete(item, "id")

	b.mu.Lock()
	id := b.insertLocked(name, item)
	stored := b.items[name][id]
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, stored)
}

func (b *Backend) get(w http.ResponseWriter, r *http.Request) {
	name, ok := b.collection(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	item, found := b.items[name][chi.URLParam(r, "id")]
	b.mu.Unlock()
	if !found {
		writeMessage(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (b *Backend) replace(w http.ResponseWriter, r *http.Request) {
	b.write(w, r, false)
}

func (b *Backend) update(w http.ResponseWriter, r *http.Request) {
	b.write(w, r, true)
}

func (b *Backend) write(w http.ResponseWriter, r *http.Request, merge bool) {
	name, ok := b.collection(w, r)
	if !ok {
		return
	}
	in, ok := decodeObject(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	current, found := b.items[name][id]
	if !found {
		writeMessage(w, http.StatusNotFound, "item not found")
		return
	}
	next := map[string]interface{}{"createdAt": current["createdAt"]}
	if merge {
		for k, v := range current {
			next[k] = v
		}
	}
	for k, v := range in {
		next[k] = v
	}
	next["id"] = id
	next["updatedAt"] = b.Now().UTC().Format(time.RFC3339)
	b.items[name][id] = next
	writeJSON(w, http.StatusOK, next)
}

func (b *Backend) remove(w http.ResponseWriter, r *http.Request) {
	name, ok := b.collection(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, found := b.items[name][id]; !found {
		writeMessage(w, http.StatusNotFound, "item not found")
		return
	}
	delete(b.items[name], id)
	ids := b.order[name]
	for i, v := range ids {
		if v == id {
			b.order[name] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// reports

func (b *Backend) financialSummary(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var revenue, outstanding, expenses float64
	for _, inv := range b.items["invoices"] {
		amount := number(inv["amount"])
		if inv["status"] == "paid" {
			revenue += amount
		} else {
			outstanding += amount
		}
	}
	for _, exp := range b.items["expenses"] {
		expenses += number(exp["amount"])
	}

	branches := make([]string, 0, len(b.items["branches"]))
	for _, br := range b.items["branches"] {
		if n, ok := br["name"].(string); ok {
			branches = append(branches, n)
		}
	}
	sort.Strings(branches)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"totalRevenue":  revenue,
		"outstanding":   outstanding,
		"totalExpenses": expenses,
		"netIncome":     revenue - expenses,
		"invoiceCount":  len(b.items["invoices"]),
		"expenseCount":  len(b.items["expenses"]),
		"branches":      branches,
		"generatedAt":   b.Now().UTC().Format(time.RFC3339),
	})
}

// helpers

func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]interface{}, bool) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var in map[string]interface{}
	if err := dec.Decode(&in); err != nil || in == nil {
		writeMessage(w, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}
	return in, true
}

func matchesQuery(item map[string]interface{}, q map[string][]string) bool {
	for k, vals := range q {
		if k == "page" || k == "limit" || len(vals) == 0 {
			continue
		}
		if fmt.Sprint(item[k]) != vals[0] {
			return false
		}
	}
	return true
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case json.Number:
		f, _ := n.Float64()
		return f
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

// atoiDefault parses a positive query integer, clamped to ceiling.
func atoiDefault(s string, def, ceiling int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

var errNoUser = errors.New("no such user")

// TokenFor signs a session token for the registered user with email.
func (b *Backend) TokenFor(email string) (string, error) {
	b.mu.Lock()
	u, ok := b.users[strings.ToLower(email)]
	b.mu.Unlock()
	if !ok {
		return "", errNoUser
	}
	return b.IssueToken(u, b.TokenTTL)
}
