package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/identity/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/authz"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHMACSecret = "test-secret"

type memOTPStore struct {
	mu       sync.Mutex
	records  map[string]entity.OTP
	conflict int
	err      error
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{records: map[string]entity.OTP{}}
}

func (m *memOTPStore) ReplaceOTP(_ context.Context, otp entity.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	if m.conflict > 0 {
		m.conflict--
		return goerror.ErrConflict
	}

	for id, r := range m.records {
		if r.Tuple() == otp.Tuple() {
			delete(m.records, id)
		}
	}
	m.records[otp.ID] = otp
	return nil
}

func (m *memOTPStore) FindActiveOTP(_ context.Context, t entity.Tuple, codeHash string) (*entity.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.records {
		if r.Tuple() == t && !r.Used && r.CodeHash == codeHash {
			return &r, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memOTPStore) FindLatestOTP(_ context.Context, t entity.Tuple) (*entity.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *entity.OTP
	for _, r := range m.records {
		if r.Tuple() != t || r.Used {
			continue
		}
		if latest == nil || r.CreatedAt.After(latest.CreatedAt) {
			rec := r
			latest = &rec
		}
	}
	if latest == nil {
		return nil, goerror.ErrNotFound
	}
	return latest, nil
}

func (m *memOTPStore) MarkOTPUsed(_ context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok || r.Used {
		return false, nil
	}
	r.Used = true
	r.UsedAt = &at
	m.records[id] = r
	return true, nil
}

func (m *memOTPStore) DeleteOTPTuple(_ context.Context, t entity.Tuple) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.records {
		if r.Tuple() == t {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *memOTPStore) DeleteExpiredOTP(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.records {
		if r.ExpiresAt.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *memOTPStore) forTuple(t entity.Tuple) []entity.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []entity.OTP
	for _, r := range m.records {
		if r.Tuple() == t {
			out = append(out, r)
		}
	}
	return out
}

func (m *memOTPStore) unused(t entity.Tuple) int {
	n := 0
	for _, r := range m.forTuple(t) {
		if !r.Used {
			n++
		}
	}
	return n
}

type memUserStore struct {
	mu    sync.Mutex
	users map[int64]*entity.User
	now   func() time.Time
}

func newMemUserStore(now func() time.Time) *memUserStore {
	return &memUserStore{users: map[int64]*entity.User{}, now: now}
}

func (m *memUserStore) find(match func(*entity.User) bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memUserStore) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.ID == id })
}

func (m *memUserStore) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Email == email })
}

func (m *memUserStore) GetUserByMobile(_ context.Context, mobile string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Mobile == mobile })
}

func (m *memUserStore) GetUserByLogin(_ context.Context, login string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Username == login || u.Email == login })
}

func (m *memUserStore) GetUserTaken(_ context.Context, username, email, mobile string) (*entity.UserTaken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := &entity.UserTaken{}
	for _, u := range m.users {
		out.Username = out.Username || u.Username == username
		out.Email = out.Email || u.Email == email
		out.Mobile = out.Mobile || u.Mobile == mobile
	}
	return out, nil
}

func (m *memUserStore) CreateUser(_ context.Context, in entity.NewUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[in.ID]; ok {
		return goerror.ErrConflict
	}
	m.users[in.ID] = &entity.User{
		ID:           in.ID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Username:     in.Username,
		Email:        in.Email,
		Mobile:       in.Mobile,
		PasswordHash: in.PasswordHash,
		CreatedAt:    m.now(),
		UpdatedAt:    m.now(),
	}
	return nil
}

func (m *memUserStore) mark(id int64, email bool) (*entity.Convergence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	flag, other := &u.EmailVerified, u.MobileVerified
	if !email {
		flag, other = &u.MobileVerified, u.EmailVerified
	}
	if *flag {
		return &entity.Convergence{User: *u}, nil
	}

	*flag = true
	wasEnabled := u.Enabled
	u.Enabled = u.Enabled || other
	return &entity.Convergence{FlagChanged: true, Activated: !wasEnabled && u.Enabled, User: *u}, nil
}

func (m *memUserStore) MarkEmailVerified(_ context.Context, id int64) (*entity.Convergence, error) {
	return m.mark(id, true)
}

func (m *memUserStore) MarkMobileVerified(_ context.Context, id int64) (*entity.Convergence, error) {
	return m.mark(id, false)
}

func (m *memUserStore) UpdateUserPassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return goerror.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUserStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return goerror.ErrNotFound
	}
	u.LastLoginAt = &at
	return nil
}

func (m *memUserStore) put(u entity.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

type recNotifier struct {
	mu       sync.Mutex
	otps     []entity.OTPDispatch
	welcomes []entity.WelcomeDispatch
	otpErr   error
	block    bool
}

func (n *recNotifier) SendOTP(ctx context.Context, in entity.OTPDispatch) error {
	if n.block {
		<-ctx.Done()
		return ctx.Err()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.otpErr != nil {
		return n.otpErr
	}
	n.otps = append(n.otps, in)
	return nil
}

func (n *recNotifier) SendWelcome(_ context.Context, in entity.WelcomeDispatch) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.welcomes = append(n.welcomes, in)
	return nil
}

func (n *recNotifier) lastCode(t *testing.T, identifier string, ch entity.Channel, p entity.Purpose) string {
	t.Helper()

	n.mu.Lock()
	defer n.mu.Unlock()

	for i := len(n.otps) - 1; i >= 0; i-- {
		d := n.otps[i]
		if d.Identifier == identifier && d.Channel == ch && d.Purpose == p {
			return d.Code
		}
	}
	require.FailNow(t, "no otp dispatched", "%s %s %s", identifier, ch, p)
	return ""
}

func (n *recNotifier) otpCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.otps)
}

func (n *recNotifier) welcomeChannels() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.welcomes))
	for _, w := range n.welcomes {
		out = append(out, w.Channel.String())
	}
	sort.Strings(out)
	return out
}

type memDevices struct {
	mu      sync.Mutex
	trusted map[string]time.Duration
}

func (d *memDevices) IsTrustedDevice(_ context.Context, userID int64, fp string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.trusted[strconv.FormatInt(userID, 10)+":"+fp]
	return ok, nil
}

func (d *memDevices) TrustDevice(_ context.Context, userID int64, fp string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.trusted[strconv.FormatInt(userID, 10)+":"+fp] = ttl
	return nil
}

// seqGenerator hands out codes in order and repeats the last one.
type seqGenerator struct {
	mu    sync.Mutex
	codes []string
}

func (g *seqGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code, nil
}

type seqID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type seqUUID struct{ ids seqID }

func (s *seqUUID) Generate() string {
	return "otp-" + strconv.FormatInt(s.ids.Generate(), 10)
}

type stubJWT struct{}

func (stubJWT) Generate(uid int64, username string) (string, error) {
	return "token-" + strconv.FormatInt(uid, 10) + "-" + username, nil
}

func (stubJWT) Verify(string) (jwt.Claims, error) {
	return jwt.Claims{}, errors.New("not supported")
}

type fixture struct {
	uc      *Usecase
	otps    *memOTPStore
	users   *memUserStore
	notif   *recNotifier
	devices *memDevices
	gen     *seqGenerator
	redis   *miniredis.Miniredis
	hmac    *hash.HMACSHA256
	now     time.Time
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) codeHash(code string) string {
	h, _ := f.hmac.Hash(code)
	return string(h)
}

const baseConfig = `
modules:
  identity:
    otp:
      ttl_minutes: 5
      resend_cooldown_seconds: 60
      store_timeout_ms: 500
      notify_timeout_ms: 200
`

func newFixture(t *testing.T, extraConfig ...string) *fixture {
	t.Helper()

	f := &fixture{
		otps:    newMemOTPStore(),
		notif:   &recNotifier{},
		devices: &memDevices{trusted: map[string]time.Duration{}},
		gen:     &seqGenerator{codes: []string{"123456"}},
		redis:   miniredis.RunT(t),
		hmac:    hash.NewHMACSHA256(testHMACSecret),
		now:     time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.now }
	f.users = newMemUserStore(now)

	raw := baseConfig
	for _, c := range extraConfig {
		raw += c
	}
	cfg, err := config.NewViperFromBytes("yaml", []byte(raw))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	enforcer, err := authz.NewEnforcer([]string{"p, role:admin, otp, *", "g, 900, role:admin"})
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: f.redis.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f.uc = New(Dependency{
		OTPStore:    f.otps,
		UserStore:   f.users,
		Notifier:    f.notif,
		DeviceCache: f.devices,
		Idempotency: idempotency.New(client),
		Generator:   f.gen,
		Validator:   v,
		Config:      cfg,
		Password:    hash.NewBcrypt(4, ""),
		HMAC:        f.hmac,
		UID:         &seqID{},
		UUID:        &seqUUID{},
		Clock:       clock.Func(now),
		JWT:         stubJWT{},
		Instrument:  instrument.NewNoop(),
		Enforcer:    enforcer,
	})

	return f
}

// seedUser stores an enabled account with password "Secret123".
func (f *fixture) seedUser(t *testing.T, id int64, mutate ...func(*entity.User)) entity.User {
	t.Helper()

	h, err := hash.NewBcrypt(4, "").Hash("Secret123")
	require.NoError(t, err)

	u := entity.User{
		ID:             id,
		FirstName:      "Asha",
		Username:       "asha" + strconv.FormatInt(id, 10),
		Email:          "asha" + strconv.FormatInt(id, 10) + "@example.com",
		Mobile:         "98765432" + strconv.FormatInt(10+id, 10),
		PasswordHash:   string(h),
		EmailVerified:  true,
		MobileVerified: true,
		Enabled:        true,
	}
	for _, m := range mutate {
		m(&u)
	}
	f.users.put(u)
	return u
}

func assertStatus(t *testing.T, err error, status int, msg string) {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, status, gerr.StatusCode())
	if msg != "" {
		assert.Equal(t, msg, gerr.Msg())
	}
}
